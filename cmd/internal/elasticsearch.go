package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
	"github.com/sanLimbu/esindex/internal/envvar"
)

//ElasticsearchConfig reads the index handle configuration defined in environment variables, empty
//values keep the handle defaults.
func ElasticsearchConfig(conf *envvar.Configuration) (elasticsearch.Config, error) {
	var res elasticsearch.Config

	for key, dst := range map[string]*string{
		"ELASTICSEARCH_HOST":     &res.Host,
		"ELASTICSEARCH_INDEX":    &res.Index,
		"ELASTICSEARCH_USERNAME": &res.Username,
		"ELASTICSEARCH_PASSWORD": &res.Password,
	} {
		val, err := conf.Get(key)
		if err != nil {
			return elasticsearch.Config{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get %s", key)
		}

		*dst = val
	}

	timeout, err := conf.Get("ELASTICSEARCH_TIMEOUT")
	if err != nil {
		return elasticsearch.Config{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get ELASTICSEARCH_TIMEOUT")
	}

	if timeout != "" {
		secs, err := strconv.ParseFloat(timeout, 64)
		if err != nil {
			return elasticsearch.Config{}, internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "ELASTICSEARCH_TIMEOUT")
		}

		res.Timeout = time.Duration(secs * float64(time.Second))
	}

	indexConfig, err := conf.Get("ELASTICSEARCH_INDEX_CONFIG")
	if err != nil {
		return elasticsearch.Config{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get ELASTICSEARCH_INDEX_CONFIG")
	}

	if indexConfig != "" {
		res.IndexConfig = json.RawMessage(indexConfig)
	}

	return res, nil
}

//NewElasticsearch instantiates the index handle and checks the cluster is reachable.
func NewElasticsearch(ctx context.Context, conf elasticsearch.Config, logger *zap.Logger) (*elasticsearch.Index, error) {
	if conf.Transport == nil {
		conf.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	idx, err := elasticsearch.New(conf, elasticsearch.WithLogger(logger))
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "elasticsearch.New")
	}

	if err := idx.Ping(ctx); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "idx.Ping")
	}

	return idx, nil
}
