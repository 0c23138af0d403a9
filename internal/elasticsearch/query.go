package elasticsearch

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/sanLimbu/esindex/internal"
)

const invalidQueryMessage = "Invalid query value."

//Query is the body of a search, count or analyze request: either a DSL mapping or a RawQuery.
type Query interface {
	body() (io.Reader, error)
}

//DSL is a structured query, encoded as JSON.
type DSL map[string]interface{}

//RawQuery is a preformatted body sent as is.
type RawQuery string

type invalidQuery struct {
	value interface{}
}

//QueryFrom converts a dynamically typed value into a Query. Mappings become DSL, strings and
//byte slices become RawQuery; anything else yields a query that is rejected before any request.
func QueryFrom(v interface{}) Query {
	switch t := v.(type) {
	case Query:
		return t
	case map[string]interface{}:
		return DSL(t)
	case internal.Document:
		return DSL(t)
	case json.RawMessage:
		return RawQuery(t)
	case []byte:
		return RawQuery(t)
	case string:
		return RawQuery(t)
	}

	return invalidQuery{value: v}
}

func (q DSL) body() (io.Reader, error) {
	if q == nil {
		return nil, errInvalidQuery()
	}

	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, invalidQueryMessage)
	}

	return &buf, nil
}

func (q RawQuery) body() (io.Reader, error) {
	if q == "" {
		return nil, nil
	}

	return strings.NewReader(string(q)), nil
}

func (q invalidQuery) body() (io.Reader, error) {
	return nil, errInvalidQuery()
}

func queryBody(q Query) (io.Reader, error) {
	if q == nil {
		return nil, errInvalidQuery()
	}

	return q.body()
}

func errInvalidQuery() error {
	return internal.NewErrorf(internal.ErrorCodeInvalidArgument, invalidQueryMessage)
}

//MatchAllQuery selects every document ordered by id.
func MatchAllQuery(from, size int) DSL {
	return DSL{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
		"from": from,
		"size": size,
	}
}

//MatchQuery selects the documents whose field matches the keywords.
func MatchQuery(field, keywords string, from, size int) DSL {
	return DSL{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				field: keywords,
			},
		},
		"from": from,
		"size": size,
	}
}
