package elasticsearch

import (
	"bytes"
	"encoding/json"

	"github.com/sanLimbu/esindex/internal"
)

type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Took   int64 `json:"took"`
	Errors bool  `json:"errors"`
}

//newBulkBody encodes one index action line followed by one source line per document, in order.
func newBulkBody(index string, docs []internal.Document) (*bytes.Buffer, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)

	for n, doc := range docs {
		id, ok := doc.ID()
		if !ok {
			return nil, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "document %d: id is required", n)
		}

		if err := enc.Encode(bulkAction{Index: bulkTarget{Index: index, ID: id}}); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json.Encoder.Encode action")
		}

		if err := enc.Encode(doc); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json.Encoder.Encode document")
		}
	}

	return &buf, nil
}
