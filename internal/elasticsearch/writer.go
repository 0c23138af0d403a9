package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/sanLimbu/esindex/internal"
)

const (
	resultCreated = "created"
	resultUpdated = "updated"
	resultDeleted = "deleted"
)

//DocumentWriter sends create, update, delete and bulk requests.
type DocumentWriter struct {
	idx *Index
}

type writeResponse struct {
	Result string `json:"result"`
}

//CreateOrUpdateDocument upserts doc under its id. It succeeds only when Elasticsearch reports the
//document as created or updated.
func (w *DocumentWriter) CreateOrUpdateDocument(ctx context.Context, doc internal.Document) error {
	return observeErr(ctx, w.idx, "DocumentWriter.CreateOrUpdateDocument", func(ctx context.Context) error {
		id, ok := doc.ID()
		if !ok {
			return internal.NewErrorf(internal.ErrorCodeInvalidArgument, "document id is required")
		}

		var buf bytes.Buffer

		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json.NewEncoder.Encode")
		}

		res, err := w.idx.perform(ctx, esv7api.IndexRequest{
			Index:      w.idx.index,
			DocumentID: id,
			Body:       &buf,
		})
		if err != nil {
			return err
		}

		if res.statusCode != http.StatusOK && res.statusCode != http.StatusCreated {
			return errWriteFailed("IndexRequest.Do", res.statusCode)
		}

		var resp writeResponse

		if err := json.Unmarshal(res.body, &resp); err != nil {
			return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
		}

		if resp.Result != resultCreated && resp.Result != resultUpdated {
			return errWriteFailed("IndexRequest.Do", res.statusCode)
		}

		return nil
	})
}

//CreateDocuments upserts all docs with a single bulk request. The batch fails as a whole when
//Elasticsearch flags any error; individual item failures are not reported.
func (w *DocumentWriter) CreateDocuments(ctx context.Context, docs []internal.Document) error {
	return observeErr(ctx, w.idx, "DocumentWriter.CreateDocuments", func(ctx context.Context) error {
		if len(docs) == 0 {
			return nil
		}

		body, err := newBulkBody(w.idx.index, docs)
		if err != nil {
			return err
		}

		res, err := w.idx.perform(ctx, esv7api.BulkRequest{Body: body})
		if err != nil {
			return err
		}

		if res.statusCode != http.StatusOK && res.statusCode != http.StatusCreated {
			return errWriteFailed("BulkRequest.Do", res.statusCode)
		}

		var resp bulkResponse

		if err := json.Unmarshal(res.body, &resp); err != nil {
			return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
		}

		if resp.Errors {
			return errWriteFailed("BulkRequest.Do", res.statusCode)
		}

		return nil
	})
}

//DeleteDocument removes the document with the given id.
func (w *DocumentWriter) DeleteDocument(ctx context.Context, id string) error {
	return observeErr(ctx, w.idx, "DocumentWriter.DeleteDocument", func(ctx context.Context) error {
		if id == "" {
			return internal.NewErrorf(internal.ErrorCodeInvalidArgument, "document id is required")
		}

		res, err := w.idx.perform(ctx, esv7api.DeleteRequest{
			Index:      w.idx.index,
			DocumentID: id,
		})
		if err != nil {
			return err
		}

		if res.statusCode != http.StatusOK {
			return errWriteFailed("DeleteRequest.Do", res.statusCode)
		}

		var resp writeResponse

		if err := json.Unmarshal(res.body, &resp); err != nil {
			return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
		}

		if resp.Result != resultDeleted {
			return errWriteFailed("DeleteRequest.Do", res.statusCode)
		}

		return nil
	})
}

//errWriteFailed maps 404 to NotFound and 400 to InvalidArgument so consumers know not to retry.
func errWriteFailed(call string, status int) error {
	code := internal.ErrorCodeUnknown

	switch status {
	case http.StatusNotFound:
		code = internal.ErrorCodeNotFound
	case http.StatusBadRequest:
		code = internal.ErrorCodeInvalidArgument
	}

	return internal.NewErrorf(code, "%s %d: document write failed", call, status)
}
