package rest

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
)

//DocumentService ...
type DocumentService interface {
	Document(ctx context.Context, id string) (*internal.GetResult, error)
	All(ctx context.Context, limit *int, offset int) (*internal.SearchResult, error)
	Search(ctx context.Context, q elasticsearch.Query) (*internal.SearchResult, error)
	SearchRaw(ctx context.Context, q elasticsearch.Query) ([]byte, error)
	SearchSimple(ctx context.Context, keywords, field string, limit, offset int) (*internal.SearchResult, error)
	Count(ctx context.Context, q elasticsearch.Query) (int64, error)
	Analyze(ctx context.Context, q elasticsearch.Query, indexName string) (map[string]interface{}, error)
	Upsert(ctx context.Context, id string, doc internal.Document) error
	Bulk(ctx context.Context, docs []internal.Document) error
	Delete(ctx context.Context, id string) error
}

//DocumentHandler ...
type DocumentHandler struct {
	svc DocumentService
}

//NewDocumentHandler ...
func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{
		svc: svc,
	}
}

//Register connects the handlers to the router.
func (h *DocumentHandler) Register(r chi.Router) {
	r.Get("/documents", h.all)
	r.Post("/documents/_bulk", h.bulk)
	r.Get("/documents/{id}", h.document)
	r.Put("/documents/{id}", h.upsert)
	r.Delete("/documents/{id}", h.delete)

	r.Get("/search", h.searchSimple)
	r.Post("/search", h.search)
	r.Post("/count", h.count)
	r.Post("/analyze", h.analyze)
}

//AcceptedResponse is returned for writes, they are applied asynchronously by the indexers.
type AcceptedResponse struct {
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
}

//CountResponse defines the response returned back after counting documents.
type CountResponse struct {
	Count int64 `json:"count"`
}

func (h *DocumentHandler) document(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.svc.Document(r.Context(), id)
	if err != nil {
		renderErrorResponse(r.Context(), w, "find failed", err)
		return
	}

	renderResponse(w, doc, http.StatusOK)
}

func (h *DocumentHandler) all(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	res, err := h.svc.All(r.Context(), params.Limit, params.Offset)
	if err != nil {
		renderErrorResponse(r.Context(), w, "list failed", err)
		return
	}

	renderResponse(w, res, http.StatusOK)
}

func (h *DocumentHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var doc internal.Document
	if err := render.DecodeJSON(r.Body, &doc); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	id := chi.URLParam(r, "id")

	if err := h.svc.Upsert(r.Context(), id, doc); err != nil {
		renderErrorResponse(r.Context(), w, "upsert failed", err)
		return
	}

	renderResponse(w, &AcceptedResponse{ID: id}, http.StatusAccepted)
}

func (h *DocumentHandler) bulk(w http.ResponseWriter, r *http.Request) {
	var docs []internal.Document
	if err := render.DecodeJSON(r.Body, &docs); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	if err := h.svc.Bulk(r.Context(), docs); err != nil {
		renderErrorResponse(r.Context(), w, "bulk failed", err)
		return
	}

	renderResponse(w, &AcceptedResponse{Count: len(docs)}, http.StatusAccepted)
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		renderErrorResponse(r.Context(), w, "delete failed", err)
		return
	}

	renderResponse(w, &AcceptedResponse{ID: id}, http.StatusAccepted)
}

func (h *DocumentHandler) searchSimple(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	limit, err := intParam(values, "limit")
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	offset, err := intParam(values, "offset")
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	params := SimpleSearchParams{
		Keywords: values.Get("q"),
		Field:    values.Get("field"),
		Limit:    valueOrZero(limit),
		Offset:   valueOrZero(offset),
	}

	if err := validate(params); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	res, err := h.svc.SearchSimple(r.Context(), params.Keywords, params.Field, params.Limit, params.Offset)
	if err != nil {
		renderErrorResponse(r.Context(), w, "search failed", err)
		return
	}

	renderResponse(w, res, http.StatusOK)
}

func (h *DocumentHandler) search(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromBody(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	if r.URL.Query().Get("raw") == "true" {
		body, err := h.svc.SearchRaw(r.Context(), q)
		if err != nil {
			renderErrorResponse(r.Context(), w, "search failed", err)
			return
		}

		renderRawResponse(w, body)
		return
	}

	res, err := h.svc.Search(r.Context(), q)
	if err != nil {
		renderErrorResponse(r.Context(), w, "search failed", err)
		return
	}

	renderResponse(w, res, http.StatusOK)
}

func (h *DocumentHandler) count(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromBody(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	n, err := h.svc.Count(r.Context(), q)
	if err != nil {
		renderErrorResponse(r.Context(), w, "count failed", err)
		return
	}

	renderResponse(w, &CountResponse{Count: n}, http.StatusOK)
}

func (h *DocumentHandler) analyze(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromBody(r)
	if err != nil {
		renderErrorResponse(r.Context(), w, "invalid request", err)
		return
	}

	res, err := h.svc.Analyze(r.Context(), q, r.URL.Query().Get("index"))
	if err != nil {
		renderErrorResponse(r.Context(), w, "analyze failed", err)
		return
	}

	renderResponse(w, res, http.StatusOK)
}

func pageParams(r *http.Request) (PageParams, error) {
	values := r.URL.Query()

	limit, err := intParam(values, "limit")
	if err != nil {
		return PageParams{}, err
	}

	offset, err := intParam(values, "offset")
	if err != nil {
		return PageParams{}, err
	}

	params := PageParams{
		Limit:  limit,
		Offset: valueOrZero(offset),
	}

	if err := validate(params); err != nil {
		return PageParams{}, err
	}

	return params, nil
}

//queryFromBody passes the request body through as a raw query, an empty body is a bad request.
func queryFromBody(r *http.Request) (elasticsearch.Query, error) {
	defer r.Body.Close()

	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "io.ReadAll")
	}

	if len(b) == 0 {
		return nil, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "request body is required")
	}

	return elasticsearch.RawQuery(b), nil
}
