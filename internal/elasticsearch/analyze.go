package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/sanLimbu/esindex/internal"
)

//AnalyzeHelper sends text to the _analyze endpoint.
type AnalyzeHelper struct {
	idx *Index
}

//Analyze returns the token analysis of q as decoded JSON. An empty indexName targets the
//cluster level endpoint.
func (a *AnalyzeHelper) Analyze(ctx context.Context, q Query, indexName string) (map[string]interface{}, error) {
	return observe(ctx, a.idx, "AnalyzeHelper.Analyze", func(ctx context.Context) (map[string]interface{}, error) {
		body, err := queryBody(q)
		if err != nil {
			return nil, err
		}

		res, err := a.idx.perform(ctx, analyzeRequest{
			Index: indexName,
			Body:  body,
		})
		if err != nil {
			return nil, err
		}

		if res.statusCode != http.StatusOK || len(res.body) == 0 {
			return nil, internal.NewErrorf(internal.ErrorCodeUnknown, "analyzeRequest.Do %d", res.statusCode)
		}

		var tokens map[string]interface{}

		if err := json.Unmarshal(res.body, &tokens); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.Unmarshal")
		}

		return tokens, nil
	})
}

//analyzeRequest issues GET [/{index}]/_analyze, esapi.IndicesAnalyzeRequest switches to POST
//whenever a body is set.
type analyzeRequest struct {
	Index string
	Body  io.Reader
}

func (r analyzeRequest) Do(ctx context.Context, transport esv7api.Transport) (*esv7api.Response, error) {
	var path strings.Builder

	if r.Index != "" {
		path.WriteString("/")
		path.WriteString(r.Index)
	}

	path.WriteString("/_analyze")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path.String(), r.Body)
	if err != nil {
		return nil, err
	}

	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := transport.Perform(req)
	if err != nil {
		return nil, err
	}

	return &esv7api.Response{
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Header:     res.Header,
	}, nil
}
