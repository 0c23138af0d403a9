package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/sanLimbu/esindex/internal"
)

const defaultSimpleLimit = 10

//SearchHelper sends search and count requests and normalizes search responses.
type SearchHelper struct {
	idx *Index
}

type searchResponse struct {
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total    json.RawMessage `json:"total"`
		MaxScore *float64        `json:"max_score"`
		Hits     []struct {
			Score  *float64          `json:"_score"`
			Source internal.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

//Search runs q and returns the matching documents, each annotated with its score under
//"__search_info". A response that timed out or has no hits is a failure.
func (s *SearchHelper) Search(ctx context.Context, q Query) (*internal.SearchResult, error) {
	return observe(ctx, s.idx, "SearchHelper.Search", func(ctx context.Context) (*internal.SearchResult, error) {
		res, err := s.search(ctx, q)
		if err != nil {
			return nil, err
		}

		if res.statusCode != http.StatusOK || len(res.body) == 0 {
			return nil, internal.NewErrorf(internal.ErrorCodeUnknown, "SearchRequest.Do %d", res.statusCode)
		}

		var resp searchResponse

		if err := json.Unmarshal(res.body, &resp); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
		}

		if resp.TimedOut {
			return nil, internal.NewErrorf(internal.ErrorCodeUnknown, "SearchRequest.Do: search timed out")
		}

		if len(resp.Hits.Hits) == 0 {
			return nil, internal.NewErrorf(internal.ErrorCodeNotFound, "SearchRequest.Do: no documents found")
		}

		docs := make([]internal.Document, len(resp.Hits.Hits))
		for n, hit := range resp.Hits.Hits {
			doc := hit.Source
			if doc == nil {
				doc = internal.Document{}
			}

			var score interface{}
			if hit.Score != nil {
				score = *hit.Score
			}

			doc[internal.SearchInfoKey] = map[string]interface{}{"score": score}
			docs[n] = doc
		}

		total, err := parseTotal(resp.Hits.Total)
		if err != nil {
			return nil, err
		}

		return &internal.SearchResult{
			Documents: docs,
			Total:     total,
			MaxScore:  resp.Hits.MaxScore,
		}, nil
	})
}

//SearchRaw runs q and returns the response body untouched, whatever its status.
func (s *SearchHelper) SearchRaw(ctx context.Context, q Query) ([]byte, error) {
	return observe(ctx, s.idx, "SearchHelper.SearchRaw", func(ctx context.Context) ([]byte, error) {
		res, err := s.search(ctx, q)
		if err != nil {
			return nil, err
		}

		return res.body, nil
	})
}

//Count returns the number of documents matching q.
func (s *SearchHelper) Count(ctx context.Context, q Query) (int64, error) {
	return observe(ctx, s.idx, "SearchHelper.Count", func(ctx context.Context) (int64, error) {
		body, err := queryBody(q)
		if err != nil {
			return 0, err
		}

		res, err := s.idx.perform(ctx, esv7api.CountRequest{
			Index: []string{s.idx.index},
			Body:  body,
		})
		if err != nil {
			return 0, err
		}

		if res.statusCode != http.StatusOK || len(res.body) == 0 {
			return 0, internal.NewErrorf(internal.ErrorCodeUnknown, "CountRequest.Do %d", res.statusCode)
		}

		var resp struct {
			Count *json.Number `json:"count"`
		}

		dec := json.NewDecoder(bytes.NewReader(res.body))
		dec.UseNumber()

		if err := dec.Decode(&resp); err != nil {
			return 0, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Decoder.Decode")
		}

		if resp.Count == nil {
			return 0, internal.NewErrorf(internal.ErrorCodeUnknown, "CountRequest.Do: count missing")
		}

		count, err := resp.Count.Int64()
		if err != nil {
			return 0, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "CountRequest.Do: count is not an integer")
		}

		return count, nil
	})
}

//SearchSimple searches field for keywords, or lists every document sorted by id when keywords
//is empty. A limit <= 0 defaults to 10 and a negative offset to 0.
func (s *SearchHelper) SearchSimple(ctx context.Context, keywords, field string, limit, offset int) (*internal.SearchResult, error) {
	q, err := s.simpleQuery(ctx, keywords, field, limit, offset)
	if err != nil {
		return nil, err
	}

	return s.Search(ctx, q)
}

//SearchSimpleRaw is SearchSimple returning the verbatim response body.
func (s *SearchHelper) SearchSimpleRaw(ctx context.Context, keywords, field string, limit, offset int) ([]byte, error) {
	q, err := s.simpleQuery(ctx, keywords, field, limit, offset)
	if err != nil {
		return nil, err
	}

	return s.SearchRaw(ctx, q)
}

func (s *SearchHelper) simpleQuery(ctx context.Context, keywords, field string, limit, offset int) (DSL, error) {
	if limit <= 0 {
		limit = defaultSimpleLimit
	}

	offset = offsetOrZero(offset)

	if keywords == "" {
		return MatchAllQuery(offset, limit), nil
	}

	if field == "" {
		_, err := observe(ctx, s.idx, "SearchHelper.SearchSimple", func(context.Context) (DSL, error) {
			return nil, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "field is required when searching keywords")
		})
		return nil, err
	}

	return MatchQuery(field, keywords, offset, limit), nil
}

func (s *SearchHelper) search(ctx context.Context, q Query) (*response, error) {
	body, err := queryBody(q)
	if err != nil {
		return nil, err
	}

	return s.idx.perform(ctx, esv7api.SearchRequest{
		Index:        []string{s.idx.index},
		DocumentType: []string{"_doc"},
		Body:         body,
	})
}

//parseTotal accepts both the {"value": n} object and the plain number forms.
func parseTotal(raw json.RawMessage) (*int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var total int64
	if err := json.Unmarshal(raw, &total); err == nil {
		return &total, nil
	}

	var obj struct {
		Value int64 `json:"value"`
	}

	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal hits.total")
	}

	return &obj.Value, nil
}
