package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanLimbu/esindex/cmd/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
	"github.com/sanLimbu/esindex/internal/envvar"
)

//options are the persistent flags, they override the environment configuration.
type options struct {
	env     string
	host    string
	index   string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "esctl",
		Short:         "Manage and query a single Elasticsearch index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "Environment Variables filename")
	rootCmd.PersistentFlags().StringVar(&opts.host, "host", "", "Elasticsearch URL, overrides ELASTICSEARCH_HOST")
	rootCmd.PersistentFlags().StringVarP(&opts.index, "index", "i", "", "Index name, overrides ELASTICSEARCH_INDEX")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per request timeout, overrides ELASTICSEARCH_TIMEOUT")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log failed requests to stderr")

	rootCmd.AddCommand(
		newIndexCmd(&opts),
		newDocCmd(&opts),
		newSearchCmd(&opts),
		newSimpleCmd(&opts),
		newCountCmd(&opts),
		newAnalyzeCmd(&opts),
	)

	return rootCmd
}

//open builds the index handle from the environment and the flags, and pings the cluster.
func (o *options) open(ctx context.Context) (*elasticsearch.Index, error) {
	if o.env != "" {
		if err := envvar.Load(o.env); err != nil {
			return nil, fmt.Errorf("envvar.Load %w", err)
		}
	}

	vault, err := internal.NewVaultProvider()
	if err != nil {
		return nil, fmt.Errorf("internal.NewVaultProvider %w", err)
	}

	conf, err := internal.ElasticsearchConfig(envvar.New(vault))
	if err != nil {
		return nil, fmt.Errorf("internal.ElasticsearchConfig %w", err)
	}

	if o.host != "" {
		conf.Host = o.host
	}

	if o.index != "" {
		conf.Index = o.index
	}

	if o.timeout != 0 {
		conf.Timeout = o.timeout
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("zap.NewDevelopment %w", err)
		}
	}

	return internal.NewElasticsearch(ctx, conf, logger)
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}

//printRaw prints an Elasticsearch response body as is.
func printRaw(w io.Writer, b []byte) error {
	_, err := fmt.Fprintln(w, string(b))
	return err
}
