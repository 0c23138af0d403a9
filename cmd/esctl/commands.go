package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/elasticsearch"
)

func newIndexCmd(opts *options) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the index",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the index using ELASTICSEARCH_INDEX_CONFIG, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			if err := idx.CreateIndex(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "index %s created\n", idx.Name())

			return err
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			if err := idx.DeleteIndex(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "index %s deleted\n", idx.Name())

			return err
		},
	}

	existsCmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether the index exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := idx.Exists(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)

			return err
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every index of the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			res, err := idx.ListIndices(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), res)

			return err
		},
	}

	indexCmd.AddCommand(createCmd, deleteCmd, existsCmd, listCmd)

	return indexCmd
}

func newDocCmd(opts *options) *cobra.Command {
	docCmd := &cobra.Command{
		Use:   "doc",
		Short: "Write and read documents",
	}

	putCmd := &cobra.Command{
		Use:   "put [json]",
		Short: "Create or replace a document, its id is read from the \"id\" field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc internal.Document
			if err := json.Unmarshal([]byte(args[0]), &doc); err != nil {
				return fmt.Errorf("invalid document: %w", err)
			}

			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			return idx.CreateOrUpdateDocument(cmd.Context(), doc)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Print a document with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			res, err := idx.GetDocumentByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			return idx.DeleteDocument(cmd.Context(), args[0])
		},
	}

	bulkCmd := &cobra.Command{
		Use:   "bulk [file]",
		Short: "Index a JSON array of documents in one request, \"-\" reads stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()

			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("os.Open %w", err)
				}
				defer f.Close()

				r = f
			}

			var docs []internal.Document
			if err := json.NewDecoder(r).Decode(&docs); err != nil {
				return fmt.Errorf("invalid documents: %w", err)
			}

			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			if err := idx.CreateDocuments(cmd.Context(), docs); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d documents indexed\n", len(docs))

			return err
		},
	}

	var (
		limit  int
		offset int
		raw    bool
	)

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Print every document sorted by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			params := elasticsearch.AllDocumentsParams{Offset: offset}
			if cmd.Flags().Changed("limit") {
				params.Limit = &limit
			}

			if raw {
				res, err := idx.GetAllDocumentsRaw(cmd.Context(), params)
				if err != nil {
					return err
				}

				return printRaw(cmd.OutOrStdout(), res)
			}

			res, err := idx.GetAllDocuments(cmd.Context(), params)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	allCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of documents, all of them by default")
	allCmd.Flags().IntVar(&offset, "offset", 0, "Number of documents to skip")
	allCmd.Flags().BoolVar(&raw, "raw", false, "Print the Elasticsearch response as is")

	docCmd.AddCommand(putCmd, getCmd, deleteCmd, bulkCmd, allCmd)

	return docCmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var raw bool

	searchCmd := &cobra.Command{
		Use:   "search [dsl]",
		Short: "Run a query DSL search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			q := elasticsearch.RawQuery(args[0])

			if raw {
				res, err := idx.SearchRaw(cmd.Context(), q)
				if err != nil {
					return err
				}

				return printRaw(cmd.OutOrStdout(), res)
			}

			res, err := idx.Search(cmd.Context(), q)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	searchCmd.Flags().BoolVar(&raw, "raw", false, "Print the Elasticsearch response as is")

	return searchCmd
}

func newSimpleCmd(opts *options) *cobra.Command {
	var (
		field  string
		limit  int
		offset int
		raw    bool
	)

	simpleCmd := &cobra.Command{
		Use:   "simple [keywords]",
		Short: "Search a field for keywords, or list documents when no keywords are given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keywords string
			if len(args) == 1 {
				keywords = args[0]
			}

			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			if raw {
				res, err := idx.SearchSimpleRaw(cmd.Context(), keywords, field, limit, offset)
				if err != nil {
					return err
				}

				return printRaw(cmd.OutOrStdout(), res)
			}

			res, err := idx.SearchSimple(cmd.Context(), keywords, field, limit, offset)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	simpleCmd.Flags().StringVarP(&field, "field", "f", "", "Field to search")
	simpleCmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of documents")
	simpleCmd.Flags().IntVar(&offset, "offset", 0, "Number of documents to skip")
	simpleCmd.Flags().BoolVar(&raw, "raw", false, "Print the Elasticsearch response as is")

	return simpleCmd
}

func newCountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count [dsl]",
		Short: "Count the documents matching a query, every document by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			var n int64
			if len(args) == 0 {
				n, err = idx.GetAllDocumentsCount(cmd.Context())
			} else {
				n, err = idx.Count(cmd.Context(), elasticsearch.RawQuery(args[0]))
			}

			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)

			return err
		},
	}
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var target string

	analyzeCmd := &cobra.Command{
		Use:   "analyze [dsl]",
		Short: "Show how text is tokenized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}

			res, err := idx.Analyze(cmd.Context(), elasticsearch.RawQuery(args[0]), target)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	analyzeCmd.Flags().StringVar(&target, "target", "", "Index whose analyzers are used, cluster level by default")

	return analyzeCmd
}
