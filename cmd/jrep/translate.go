package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jrep/internal/diag"
	"jrep/internal/history"
	"jrep/internal/input"
	"jrep/internal/processor"
)

var translateRecord bool

var translateCmd = &cobra.Command{
	Use:   "translate <reference> <query>",
	Short: "Render a search query as an s-expression",
	Long: `Translate a bare search query document into its s-expression form,
replacing attribute IDs with names and picklist option IDs with labels.

Examples:
  jrep translate reference.json query.json
  jrep translate reference.json '{"search_query_groups": [...]}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		return translateQuery(cmd.OutOrStdout(), a, args[0], args[1], translateRecord || a.cfg.History.Enabled)
	},
}

func init() {
	translateCmd.Flags().BoolVar(&translateRecord, "record", false, "Record this run in the history store")
	rootCmd.AddCommand(translateCmd)
}

func translateQuery(w io.Writer, a *app, referenceArg, queryArg string, record bool) (err error) {
	collector := diag.NewCollector()
	sink := diag.Tee{diag.NewSlogSink(a.logger), collector}

	var rendered string
	rec := a.startRun(record, []history.InputKind{history.InputQuery}, referenceArg)
	defer func() { rec.finish(rendered, collector.Diagnostics(), err) }()

	table, err := a.loadReference(referenceArg, sink)
	if err != nil {
		return err
	}
	data, err := input.Content(queryArg)
	if err != nil {
		return err
	}
	q, err := processor.DecodeQuery(data)
	if err != nil {
		return err
	}

	rendered = processor.New(table, processor.WithSink(sink)).Query(q)
	_, err = fmt.Fprintln(w, rendered)
	return err
}
