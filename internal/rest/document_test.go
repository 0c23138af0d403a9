package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
	"github.com/sanLimbu/esindex/internal/rest"
)

type fakeService struct {
	err error

	getResult *internal.GetResult
	result    *internal.SearchResult
	raw       []byte
	count     int64
	tokens    map[string]interface{}

	id       string
	doc      internal.Document
	docs     []internal.Document
	limit    *int
	offset   int
	keywords string
	field    string
	query    elasticsearch.Query
	index    string
}

func (f *fakeService) Document(_ context.Context, id string) (*internal.GetResult, error) {
	f.id = id
	return f.getResult, f.err
}

func (f *fakeService) All(_ context.Context, limit *int, offset int) (*internal.SearchResult, error) {
	f.limit, f.offset = limit, offset
	return f.result, f.err
}

func (f *fakeService) Search(_ context.Context, q elasticsearch.Query) (*internal.SearchResult, error) {
	f.query = q
	return f.result, f.err
}

func (f *fakeService) SearchRaw(_ context.Context, q elasticsearch.Query) ([]byte, error) {
	f.query = q
	return f.raw, f.err
}

func (f *fakeService) SearchSimple(_ context.Context, keywords, field string, limit, offset int) (*internal.SearchResult, error) {
	f.keywords, f.field, f.offset = keywords, field, offset
	f.limit = &limit
	return f.result, f.err
}

func (f *fakeService) Count(_ context.Context, q elasticsearch.Query) (int64, error) {
	f.query = q
	return f.count, f.err
}

func (f *fakeService) Analyze(_ context.Context, q elasticsearch.Query, indexName string) (map[string]interface{}, error) {
	f.query, f.index = q, indexName
	return f.tokens, f.err
}

func (f *fakeService) Upsert(_ context.Context, id string, doc internal.Document) error {
	f.id, f.doc = id, doc
	return f.err
}

func (f *fakeService) Bulk(_ context.Context, docs []internal.Document) error {
	f.docs = docs
	return f.err
}

func (f *fakeService) Delete(_ context.Context, id string) error {
	f.id = id
	return f.err
}

func newRouter(svc rest.DocumentService) http.Handler {
	router := chi.NewRouter()
	rest.NewDocumentHandler(svc).Register(router)

	return router
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	res := httptest.NewRecorder()

	h.ServeHTTP(res, req)

	return res
}

func TestDocumentHandler_Document(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "OK", status: http.StatusOK},
		{name: "not found", err: internal.NewErrorf(internal.ErrorCodeNotFound, "not found"), status: http.StatusNotFound},
		{name: "invalid", err: internal.NewErrorf(internal.ErrorCodeInvalidArgument, "bad"), status: http.StatusBadRequest},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				err:       tt.err,
				getResult: &internal.GetResult{Index: "docs", ID: "a1", Found: true, Source: internal.Document{"id": "a1"}},
			}

			res := doRequest(t, newRouter(svc), http.MethodGet, "/documents/a1", "")
			assert.Equal(t, tt.status, res.Code)
			assert.Equal(t, "a1", svc.id)

			if tt.err == nil {
				assert.JSONEq(t, `{"_index":"docs","_id":"a1","_version":0,"_seq_no":0,"_primary_term":0,"found":true,"_source":{"id":"a1"}}`, res.Body.String())
			}
		})
	}
}

func TestDocumentHandler_All(t *testing.T) {
	total := int64(1)
	svc := &fakeService{result: &internal.SearchResult{Documents: []internal.Document{{"id": "1"}}, Total: &total}}
	router := newRouter(svc)

	res := doRequest(t, router, http.MethodGet, "/documents?limit=5&offset=2", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, svc.limit)
	assert.Equal(t, 5, *svc.limit)
	assert.Equal(t, 2, svc.offset)
	assert.JSONEq(t, `{"documents":[{"id":"1"}],"total":1}`, res.Body.String())

	res = doRequest(t, router, http.MethodGet, "/documents", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Nil(t, svc.limit)

	res = doRequest(t, router, http.MethodGet, "/documents?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "validations")

	res = doRequest(t, router, http.MethodGet, "/documents?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDocumentHandler_Writes(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc)

	res := doRequest(t, router, http.MethodPut, "/documents/9", `{"title":"x"}`)
	require.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, "9", svc.id)
	assert.Equal(t, internal.Document{"title": "x"}, svc.doc)

	res = doRequest(t, router, http.MethodPut, "/documents/9", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = doRequest(t, router, http.MethodPost, "/documents/_bulk", `[{"id":"1"},{"id":"2"}]`)
	require.Equal(t, http.StatusAccepted, res.Code)
	assert.Len(t, svc.docs, 2)
	assert.JSONEq(t, `{"count":2}`, res.Body.String())

	res = doRequest(t, router, http.MethodDelete, "/documents/9", "")
	require.Equal(t, http.StatusAccepted, res.Code)
	assert.JSONEq(t, `{"id":"9"}`, res.Body.String())

	svc.err = errors.New("broker down")

	res = doRequest(t, router, http.MethodDelete, "/documents/9", "")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, res.Body.String())
}

func TestDocumentHandler_SearchSimple(t *testing.T) {
	svc := &fakeService{result: &internal.SearchResult{Documents: []internal.Document{}}}
	router := newRouter(svc)

	res := doRequest(t, router, http.MethodGet, "/search?q=foo&field=title&limit=3&offset=1", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "foo", svc.keywords)
	assert.Equal(t, "title", svc.field)
	assert.Equal(t, 3, *svc.limit)
	assert.Equal(t, 1, svc.offset)

	res = doRequest(t, router, http.MethodGet, "/search?q=foo", "")
	require.Equal(t, http.StatusBadRequest, res.Code)

	var resp rest.ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Contains(t, resp.Validations, "Field")
}

func TestDocumentHandler_Search(t *testing.T) {
	const dsl = `{"query":{"match_all":{}}}`

	svc := &fakeService{
		result: &internal.SearchResult{Documents: []internal.Document{{"id": "1"}}},
		raw:    []byte(`{"hits":{"hits":[]}}`),
	}
	router := newRouter(svc)

	res := doRequest(t, router, http.MethodPost, "/search", dsl)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, elasticsearch.RawQuery(dsl), svc.query)
	assert.JSONEq(t, `{"documents":[{"id":"1"}]}`, res.Body.String())

	res = doRequest(t, router, http.MethodPost, "/search?raw=true", dsl)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, `{"hits":{"hits":[]}}`, res.Body.String())

	res = doRequest(t, router, http.MethodPost, "/search", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDocumentHandler_CountAndAnalyze(t *testing.T) {
	svc := &fakeService{count: 4, tokens: map[string]interface{}{"tokens": []interface{}{}}}
	router := newRouter(svc)

	res := doRequest(t, router, http.MethodPost, "/count", `{"query":{"match_all":{}}}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"count":4}`, res.Body.String())

	res = doRequest(t, router, http.MethodPost, "/analyze?index=docs", `{"text":"quick fox"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "docs", svc.index)
	assert.JSONEq(t, `{"tokens":[]}`, res.Body.String())
}
