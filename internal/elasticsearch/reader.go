package elasticsearch

import (
	"context"
	"encoding/json"
	"net/http"

	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/sanLimbu/esindex/internal"
)

//DocumentReader sends get-by-id, list-all and count requests.
type DocumentReader struct {
	idx *Index
}

//AllDocumentsParams pages through every document. A nil Limit means "up to the last document",
//computed from a count issued before the search.
type AllDocumentsParams struct {
	Limit  *int
	Offset int
}

//GetDocumentByID returns the document together with its metadata. The result is nil whenever
//the document could not be returned, whatever the reason; the error tells them apart.
func (r *DocumentReader) GetDocumentByID(ctx context.Context, id string) (*internal.GetResult, error) {
	return observe(ctx, r.idx, "DocumentReader.GetDocumentByID", func(ctx context.Context) (*internal.GetResult, error) {
		if id == "" {
			return nil, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "document id is required")
		}

		res, err := r.idx.perform(ctx, esv7api.GetRequest{
			Index:      r.idx.index,
			DocumentID: id,
		})
		if err != nil {
			return nil, err
		}

		if res.statusCode != http.StatusOK || len(res.body) == 0 {
			return nil, internal.NewErrorf(internal.ErrorCodeNotFound, "GetRequest.Do %d: document %q not found", res.statusCode, id)
		}

		var doc internal.GetResult

		if err := json.Unmarshal(res.body, &doc); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
		}

		if !doc.Found || len(doc.Source) == 0 {
			return nil, internal.NewErrorf(internal.ErrorCodeNotFound, "document %q not found", id)
		}

		return &doc, nil
	})
}

//GetAllDocuments returns a page of every document sorted by id. The count and the search are two
//separate requests, documents written in between may be missed or repeated.
func (r *DocumentReader) GetAllDocuments(ctx context.Context, args AllDocumentsParams) (*internal.SearchResult, error) {
	query, total, err := r.allDocumentsQuery(ctx, args)
	if err != nil {
		return nil, err
	}

	if query == nil {
		return &internal.SearchResult{
			Documents: []internal.Document{},
			Total:     total,
		}, nil
	}

	return r.idx.searcher.Search(ctx, query)
}

//GetAllDocumentsRaw is GetAllDocuments returning the verbatim search response.
func (r *DocumentReader) GetAllDocumentsRaw(ctx context.Context, args AllDocumentsParams) ([]byte, error) {
	query, _, err := r.allDocumentsQuery(ctx, args)
	if err != nil {
		return nil, err
	}

	if query == nil {
		query = MatchAllQuery(offsetOrZero(args.Offset), 0)
	}

	return r.idx.searcher.SearchRaw(ctx, query)
}

//GetAllDocumentsCount returns the number of documents in the index.
func (r *DocumentReader) GetAllDocumentsCount(ctx context.Context) (int64, error) {
	return r.idx.searcher.Count(ctx, DSL{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
	})
}

//allDocumentsQuery returns a nil query when the page is known to be empty.
func (r *DocumentReader) allDocumentsQuery(ctx context.Context, args AllDocumentsParams) (DSL, *int64, error) {
	offset := offsetOrZero(args.Offset)

	var total *int64

	limit := 0
	if args.Limit != nil {
		limit = *args.Limit
	} else {
		count, err := r.GetAllDocumentsCount(ctx)
		if err != nil {
			return nil, nil, err
		}

		total = &count
		limit = int(count) - offset
	}

	if limit <= 0 {
		return nil, total, nil
	}

	return MatchAllQuery(offset, limit), total, nil
}

func offsetOrZero(offset int) int {
	if offset < 0 {
		return 0
	}

	return offset
}
