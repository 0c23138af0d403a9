package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	esv7 "github.com/elastic/go-elasticsearch/v7"
	esv7api "github.com/elastic/go-elasticsearch/v7/esapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/internal"
)

const otelName = "github.com/sanLimbu/esindex/internal/elasticsearch"

//Index is the handle every operation goes through: it knows the target host, index name and
//request timeout, and keeps the most recent failure.
type Index struct {
	client      *esv7.Client
	host        string
	index       string
	timeout     time.Duration
	indexConfig json.RawMessage

	logger   *zap.Logger
	requests metric.Int64Counter

	writer   *DocumentWriter
	reader   *DocumentReader
	searcher *SearchHelper
	analyzer *AnalyzeHelper

	mu      sync.Mutex
	lastErr error
}

//New instantiates the Index handle.
func New(conf Config, opts ...Option) (*Index, error) {
	conf.setDefaults()

	if err := conf.Validate(); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "Config.Validate")
	}

	client, err := esv7.NewClient(esv7.Config{
		Addresses:    []string{conf.Host},
		Username:     conf.Username,
		Password:     conf.Password,
		Transport:    conf.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "esv7.NewClient")
	}

	idx := &Index{
		client:      client,
		host:        conf.Host,
		index:       conf.Index,
		timeout:     conf.Timeout,
		indexConfig: conf.IndexConfig,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(idx)
	}

	idx.requests, err = otel.Meter(otelName).Int64Counter("esindex.requests",
		metric.WithDescription("Elasticsearch requests issued through the index handle"))
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "Meter.Int64Counter")
	}

	idx.writer = &DocumentWriter{idx: idx}
	idx.reader = &DocumentReader{idx: idx}
	idx.searcher = &SearchHelper{idx: idx}
	idx.analyzer = &AnalyzeHelper{idx: idx}

	return idx, nil
}

//Host returns the configured Elasticsearch URL.
func (i *Index) Host() string { return i.host }

//Name returns the index name.
func (i *Index) Name() string { return i.index }

//Timeout returns the per request timeout.
func (i *Index) Timeout() time.Duration { return i.timeout }

//LastError returns the error recorded by the most recent failing operation.
func (i *Index) LastError() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.lastErr
}

func (i *Index) setError(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.lastErr = err
}

//Writer returns the document writer.
func (i *Index) Writer() *DocumentWriter { return i.writer }

//Reader returns the document reader.
func (i *Index) Reader() *DocumentReader { return i.reader }

//Searcher returns the search helper.
func (i *Index) Searcher() *SearchHelper { return i.searcher }

//Analyzer returns the analyze helper.
func (i *Index) Analyzer() *AnalyzeHelper { return i.analyzer }

//Ping checks the cluster answers.
func (i *Index) Ping(ctx context.Context) error {
	return observeErr(ctx, i, "Index.Ping", func(ctx context.Context) error {
		res, err := i.perform(ctx, esv7api.PingRequest{})
		if err != nil {
			return err
		}
		if res.statusCode != http.StatusOK {
			return internal.NewErrorf(internal.ErrorCodeUnknown, "PingRequest.Do %d", res.statusCode)
		}
		return nil
	})
}

//Exists reports whether the index exists.
func (i *Index) Exists(ctx context.Context) (bool, error) {
	return observe(ctx, i, "Index.Exists", func(ctx context.Context) (bool, error) {
		res, err := i.perform(ctx, esv7api.IndicesExistsRequest{Index: []string{i.index}})
		if err != nil {
			return false, err
		}

		switch res.statusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		}

		return false, internal.NewErrorf(internal.ErrorCodeUnknown, "IndicesExistsRequest.Do %d", res.statusCode)
	})
}

//ListIndices returns the verbose _cat/indices text table.
func (i *Index) ListIndices(ctx context.Context) (string, error) {
	return observe(ctx, i, "Index.ListIndices", func(ctx context.Context) (string, error) {
		verbose := true

		res, err := i.perform(ctx, esv7api.CatIndicesRequest{V: &verbose})
		if err != nil {
			return "", err
		}
		if res.statusCode != http.StatusOK {
			return "", internal.NewErrorf(internal.ErrorCodeUnknown, "CatIndicesRequest.Do %d", res.statusCode)
		}

		return string(res.body), nil
	})
}

//CreateIndex creates the index, using the configured index config as body when present.
func (i *Index) CreateIndex(ctx context.Context) error {
	return observeErr(ctx, i, "Index.CreateIndex", func(ctx context.Context) error {
		req := esv7api.IndicesCreateRequest{Index: i.index}
		if len(i.indexConfig) > 0 {
			req.Body = bytes.NewReader(i.indexConfig)
		}

		res, err := i.perform(ctx, req)
		if err != nil {
			return err
		}
		if res.statusCode != http.StatusOK && res.statusCode != http.StatusCreated {
			return internal.NewErrorf(internal.ErrorCodeUnknown, "IndicesCreateRequest.Do %d: %s", res.statusCode, res.body)
		}

		return nil
	})
}

//DeleteIndex removes the index and all its documents.
func (i *Index) DeleteIndex(ctx context.Context) error {
	return observeErr(ctx, i, "Index.DeleteIndex", func(ctx context.Context) error {
		res, err := i.perform(ctx, esv7api.IndicesDeleteRequest{Index: []string{i.index}})
		if err != nil {
			return err
		}
		if res.statusCode != http.StatusOK {
			return internal.NewErrorf(internal.ErrorCodeUnknown, "IndicesDeleteRequest.Do %d", res.statusCode)
		}

		return nil
	})
}

//Refresh makes recent writes visible to search.
func (i *Index) Refresh(ctx context.Context) error {
	return observeErr(ctx, i, "Index.Refresh", func(ctx context.Context) error {
		res, err := i.perform(ctx, esv7api.IndicesRefreshRequest{Index: []string{i.index}})
		if err != nil {
			return err
		}
		if res.statusCode != http.StatusOK {
			return internal.NewErrorf(internal.ErrorCodeUnknown, "IndicesRefreshRequest.Do %d", res.statusCode)
		}

		return nil
	})
}

//CreateOrUpdateDocument upserts a document, see DocumentWriter.
func (i *Index) CreateOrUpdateDocument(ctx context.Context, doc internal.Document) error {
	return i.writer.CreateOrUpdateDocument(ctx, doc)
}

//CreateDocuments bulk upserts documents, see DocumentWriter.
func (i *Index) CreateDocuments(ctx context.Context, docs []internal.Document) error {
	return i.writer.CreateDocuments(ctx, docs)
}

//DeleteDocument removes a document, see DocumentWriter.
func (i *Index) DeleteDocument(ctx context.Context, id string) error {
	return i.writer.DeleteDocument(ctx, id)
}

//GetDocumentByID fetches a document, see DocumentReader.
func (i *Index) GetDocumentByID(ctx context.Context, id string) (*internal.GetResult, error) {
	return i.reader.GetDocumentByID(ctx, id)
}

//GetAllDocuments pages through every document, see DocumentReader.
func (i *Index) GetAllDocuments(ctx context.Context, args AllDocumentsParams) (*internal.SearchResult, error) {
	return i.reader.GetAllDocuments(ctx, args)
}

//GetAllDocumentsRaw is GetAllDocuments returning the verbatim response body.
func (i *Index) GetAllDocumentsRaw(ctx context.Context, args AllDocumentsParams) ([]byte, error) {
	return i.reader.GetAllDocumentsRaw(ctx, args)
}

//GetAllDocumentsCount counts every document, see DocumentReader.
func (i *Index) GetAllDocumentsCount(ctx context.Context) (int64, error) {
	return i.reader.GetAllDocumentsCount(ctx)
}

//Search runs a query, see SearchHelper.
func (i *Index) Search(ctx context.Context, q Query) (*internal.SearchResult, error) {
	return i.searcher.Search(ctx, q)
}

//SearchRaw runs a query returning the verbatim response body, see SearchHelper.
func (i *Index) SearchRaw(ctx context.Context, q Query) ([]byte, error) {
	return i.searcher.SearchRaw(ctx, q)
}

//Count counts the documents matching a query, see SearchHelper.
func (i *Index) Count(ctx context.Context, q Query) (int64, error) {
	return i.searcher.Count(ctx, q)
}

//SearchSimple runs a keyword search, see SearchHelper.
func (i *Index) SearchSimple(ctx context.Context, keywords, field string, limit, offset int) (*internal.SearchResult, error) {
	return i.searcher.SearchSimple(ctx, keywords, field, limit, offset)
}

//SearchSimpleRaw is SearchSimple returning the verbatim response body.
func (i *Index) SearchSimpleRaw(ctx context.Context, keywords, field string, limit, offset int) ([]byte, error) {
	return i.searcher.SearchSimpleRaw(ctx, keywords, field, limit, offset)
}

//Analyze tokenizes text, see AnalyzeHelper.
func (i *Index) Analyze(ctx context.Context, q Query, indexName string) (map[string]interface{}, error) {
	return i.analyzer.Analyze(ctx, q, indexName)
}

type response struct {
	statusCode int
	body       []byte
}

//perform issues a single request bounded by the handle timeout and reads the whole body.
func (i *Index) perform(ctx context.Context, req esv7api.Request) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	name := fmt.Sprintf("%T", req)

	resp, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "%s.Do", name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "io.ReadAll")
	}

	return &response{
		statusCode: resp.StatusCode,
		body:       body,
	}, nil
}

//record keeps err as the most recent failure; successes leave the slot untouched.
func (i *Index) record(ctx context.Context, span trace.Span, op string, err error) {
	outcome := "success"

	if err != nil {
		outcome = "failure"

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		i.setError(err)
		i.logger.Warn("elasticsearch operation failed",
			zap.String("operation", op),
			zap.String("index", i.index),
			zap.Error(err),
		)
	}

	i.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func observe[T any](ctx context.Context, i *Index, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := newOTELSpan(ctx, op)
	defer span.End()

	res, err := fn(ctx)
	i.record(ctx, span, op, err)

	return res, err
}

func observeErr(ctx context.Context, i *Index, op string, fn func(context.Context) error) error {
	_, err := observe(ctx, i, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})

	return err
}

func newOTELSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(otelName).Start(ctx, name)
	span.SetAttributes(semconv.DBSystemElasticsearch)

	return ctx, span
}
