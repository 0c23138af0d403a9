package service

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
)

const otelName = "github.com/sanLimbu/esindex/internal/service"

//DocumentSearchRepository defines the datastore reading and searching Document records.
type DocumentSearchRepository interface {
	GetDocumentByID(ctx context.Context, id string) (*internal.GetResult, error)
	GetAllDocuments(ctx context.Context, args elasticsearch.AllDocumentsParams) (*internal.SearchResult, error)
	Search(ctx context.Context, q elasticsearch.Query) (*internal.SearchResult, error)
	SearchRaw(ctx context.Context, q elasticsearch.Query) ([]byte, error)
	SearchSimple(ctx context.Context, keywords, field string, limit, offset int) (*internal.SearchResult, error)
	Count(ctx context.Context, q elasticsearch.Query) (int64, error)
	Analyze(ctx context.Context, q elasticsearch.Query, indexName string) (map[string]interface{}, error)
}

//DocumentMessageBrokerRepository defines the messaging layer publishing document writes, the
//indexers apply them to the index.
type DocumentMessageBrokerRepository interface {
	Indexed(ctx context.Context, doc internal.Document) error
	Bulk(ctx context.Context, docs []internal.Document) error
	Deleted(ctx context.Context, id string) error
}

//Document defines the application service in charge of interacting with Documents.
type Document struct {
	search    DocumentSearchRepository
	msgBroker DocumentMessageBrokerRepository
}

//NewDocument ...
func NewDocument(search DocumentSearchRepository, msgBroker DocumentMessageBrokerRepository) *Document {
	return &Document{
		search:    search,
		msgBroker: msgBroker,
	}
}

//Document gets an existing Document from the index.
func (d *Document) Document(ctx context.Context, id string) (*internal.GetResult, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Document")
	defer span.End()

	res, err := d.search.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.CodeOf(err), "search.GetDocumentByID")
	}

	return res, nil
}

//All returns a page of every Document sorted by id.
func (d *Document) All(ctx context.Context, limit *int, offset int) (*internal.SearchResult, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.All")
	defer span.End()

	res, err := d.search.GetAllDocuments(ctx, elasticsearch.AllDocumentsParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.CodeOf(err), "search.GetAllDocuments")
	}

	return res, nil
}

//Search runs a query against the index.
func (d *Document) Search(ctx context.Context, q elasticsearch.Query) (*internal.SearchResult, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Search")
	defer span.End()

	res, err := d.search.Search(ctx, q)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.CodeOf(err), "search.Search")
	}

	return res, nil
}

//SearchRaw runs a query and returns the verbatim response.
func (d *Document) SearchRaw(ctx context.Context, q elasticsearch.Query) ([]byte, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.SearchRaw")
	defer span.End()

	res, err := d.search.SearchRaw(ctx, q)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.CodeOf(err), "search.SearchRaw")
	}

	return res, nil
}

//SearchSimple searches field for keywords.
func (d *Document) SearchSimple(ctx context.Context, keywords, field string, limit, offset int) (*internal.SearchResult, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.SearchSimple")
	defer span.End()

	res, err := d.search.SearchSimple(ctx, keywords, field, limit, offset)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.CodeOf(err), "search.SearchSimple")
	}

	return res, nil
}

//Count returns the number of Documents matching q.
func (d *Document) Count(ctx context.Context, q elasticsearch.Query) (int64, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Count")
	defer span.End()

	res, err := d.search.Count(ctx, q)
	if err != nil {
		return 0, internal.WrapErrorf(err, internal.CodeOf(err), "search.Count")
	}

	return res, nil
}

//Analyze tokenizes text with the analyzer described by q.
func (d *Document) Analyze(ctx context.Context, q elasticsearch.Query, indexName string) (map[string]interface{}, error) {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Analyze")
	defer span.End()

	res, err := d.search.Analyze(ctx, q, indexName)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.CodeOf(err), "search.Analyze")
	}

	return res, nil
}

//Upsert requests the Document to be created or replaced. The id in doc, when present, must
//match id.
func (d *Document) Upsert(ctx context.Context, id string, doc internal.Document) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Upsert")
	defer span.End()

	if id == "" {
		return internal.NewErrorf(internal.ErrorCodeInvalidArgument, "id is required")
	}

	if docID, ok := doc.ID(); ok && docID != id {
		return internal.NewErrorf(internal.ErrorCodeInvalidArgument, "document id %q does not match %q", docID, id)
	}

	out := make(internal.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}

	out["id"] = id

	if err := d.msgBroker.Indexed(ctx, out); err != nil {
		return internal.WrapErrorf(err, internal.CodeOf(err), "msgBroker.Indexed")
	}

	return nil
}

//Bulk requests every Document to be created or replaced in a single batch.
func (d *Document) Bulk(ctx context.Context, docs []internal.Document) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Bulk")
	defer span.End()

	if len(docs) == 0 {
		return nil
	}

	for n, doc := range docs {
		if _, ok := doc.ID(); !ok {
			return internal.NewErrorf(internal.ErrorCodeInvalidArgument, "document %d: id is required", n)
		}
	}

	if err := d.msgBroker.Bulk(ctx, docs); err != nil {
		return internal.WrapErrorf(err, internal.CodeOf(err), "msgBroker.Bulk")
	}

	return nil
}

//Delete requests an existing Document to be removed from the index.
func (d *Document) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer(otelName).Start(ctx, "Document.Delete")
	defer span.End()

	if id == "" {
		return internal.NewErrorf(internal.ErrorCodeInvalidArgument, "id is required")
	}

	if err := d.msgBroker.Deleted(ctx, id); err != nil {
		return internal.WrapErrorf(err, internal.CodeOf(err), "msgBroker.Deleted")
	}

	return nil
}
