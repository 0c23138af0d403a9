package internal

import (
	"encoding/json"
	"strconv"
)

//SearchInfoKey is the synthetic field injected into every search hit.
const SearchInfoKey = "__search_info"

//Document is a schemaless record; the "id" field is its external identifier.
type Document map[string]interface{}

//ID returns the document identifier, strings and JSON numbers are accepted.
func (d Document) ID() (string, bool) {
	v, ok := d["id"]
	if !ok || v == nil {
		return "", false
	}

	var id string

	switch t := v.(type) {
	case string:
		id = t
	case json.Number:
		id = t.String()
	case float64:
		id = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		id = strconv.Itoa(t)
	case int64:
		id = strconv.FormatInt(t, 10)
	default:
		return "", false
	}

	return id, id != ""
}

//SearchResult is the normalized result of a search request.
type SearchResult struct {
	Documents []Document `json:"documents"`
	Total     *int64     `json:"total,omitempty"`
	MaxScore  *float64   `json:"max_score,omitempty"`
}

//GetResult is the response of fetching a single document, including its metadata.
type GetResult struct {
	Index       string   `json:"_index"`
	Type        string   `json:"_type,omitempty"`
	ID          string   `json:"_id"`
	Version     int64    `json:"_version"`
	SeqNo       int64    `json:"_seq_no"`
	PrimaryTerm int64    `json:"_primary_term"`
	Found       bool     `json:"found"`
	Source      Document `json:"_source"`
}
