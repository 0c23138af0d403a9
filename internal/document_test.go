package internal_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanLimbu/esindex/internal"
)

func TestDocument_ID(t *testing.T) {
	tests := []struct {
		name   string
		doc    internal.Document
		want   string
		wantOK bool
	}{
		{name: "string", doc: internal.Document{"id": "abc"}, want: "abc", wantOK: true},
		{name: "float", doc: internal.Document{"id": float64(3)}, want: "3", wantOK: true},
		{name: "json number", doc: internal.Document{"id": json.Number("17")}, want: "17", wantOK: true},
		{name: "int", doc: internal.Document{"id": 9}, want: "9", wantOK: true},
		{name: "int64", doc: internal.Document{"id": int64(10)}, want: "10", wantOK: true},
		{name: "empty", doc: internal.Document{"id": ""}},
		{name: "missing", doc: internal.Document{"title": "x"}},
		{name: "nil", doc: internal.Document{"id": nil}},
		{name: "bool", doc: internal.Document{"id": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.doc.ID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
