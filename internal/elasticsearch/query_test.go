package elasticsearch

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanLimbu/esindex/internal"
)

func TestQueryFrom(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    string
		wantErr bool
	}{
		{name: "map", value: map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}}, want: `{"query":{"match_all":{}}}`},
		{name: "document", value: internal.Document{"size": 1}, want: `{"size":1}`},
		{name: "string", value: `{"size":2}`, want: `{"size":2}`},
		{name: "bytes", value: []byte(`{"size":3}`), want: `{"size":3}`},
		{name: "raw message", value: json.RawMessage(`{"size":4}`), want: `{"size":4}`},
		{name: "query", value: RawQuery(`{"size":5}`), want: `{"size":5}`},
		{name: "integer", value: 42, wantErr: true},
		{name: "slice", value: []string{"a"}, wantErr: true},
		{name: "nil", value: nil, wantErr: true},
		{name: "unencodable", value: map[string]interface{}{"fn": func() {}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := queryBody(QueryFrom(tt.value))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Invalid query value.")
				return
			}

			require.NoError(t, err)

			b, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestRawQuery_Empty(t *testing.T) {
	body, err := queryBody(RawQuery(""))
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestMatchAllQuery(t *testing.T) {
	b, err := json.Marshal(MatchAllQuery(20, 5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"match_all":{}},"sort":[{"id":"asc"}],"from":20,"size":5}`, string(b))
}

func TestMatchQuery(t *testing.T) {
	b, err := json.Marshal(MatchQuery("title", "foo bar", 0, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"match":{"title":"foo bar"}},"from":0,"size":10}`, string(b))
}
