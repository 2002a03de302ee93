package main

import (
	"io"

	"github.com/spf13/cobra"

	"jrep/internal/diag"
	"jrep/internal/history"
	"jrep/internal/input"
	"jrep/internal/output"
	"jrep/internal/processor"
)

// resolveOptions describes one invocation of the root command.
type resolveOptions struct {
	Reference string
	Payload   string
	Response  string
	Entity    string
	Format    output.Format
	Indent    string
	Annotate  bool
	Record    bool
	OutPath   string
}

func (o resolveOptions) inputs() []history.InputKind {
	var kinds []history.InputKind
	if o.Payload != "" {
		kinds = append(kinds, history.InputPayload)
	}
	if o.Response != "" {
		kinds = append(kinds, history.InputResponse)
	}
	if o.Entity != "" {
		kinds = append(kinds, history.InputEntity)
	}
	return kinds
}

func runResolveCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	format, err := a.outputFormat(cmd)
	if err != nil {
		return err
	}

	annotate := a.cfg.Resolve.AnnotateTypes
	if cmd.Flags().Changed("annotate-types") {
		annotate = annotateTypes
	}

	return resolveDocuments(cmd.OutOrStdout(), a, resolveOptions{
		Reference: args[0],
		Payload:   payloadArg,
		Response:  responseArg,
		Entity:    entityArg,
		Format:    format,
		Indent:    a.cfg.Output.Indent,
		Annotate:  annotate,
		Record:    recordFlag || a.cfg.History.Enabled,
		OutPath:   outPath,
	})
}

// resolveDocuments processes the payload, response and entity documents in
// that order and prints one section per document given.
func resolveDocuments(w io.Writer, a *app, opts resolveOptions) (err error) {
	collector := diag.NewCollector()
	sink := diag.Tee{diag.NewSlogSink(a.logger), collector}

	results := make(map[string]interface{})
	rec := a.startRun(opts.Record, opts.inputs(), opts.Reference)
	defer func() { rec.finish(results, collector.Diagnostics(), err) }()

	table, err := a.loadReference(opts.Reference, sink)
	if err != nil {
		return err
	}
	proc := processor.New(table,
		processor.WithSink(sink),
		processor.WithTypeAnnotations(opts.Annotate),
	)

	var sections [][]byte
	emit := func(kind history.InputKind, v interface{}) error {
		results[string(kind)] = v
		data, err := output.Encode(v, opts.Format, opts.Indent)
		if err != nil {
			return err
		}
		sections = append(sections, data)
		return nil
	}

	if opts.Payload != "" {
		data, err := input.Content(opts.Payload)
		if err != nil {
			return err
		}
		pl, err := processor.DecodePayload(data)
		if err != nil {
			return err
		}
		if err := emit(history.InputPayload, proc.Payload(pl)); err != nil {
			return err
		}
	}

	if opts.Response != "" {
		data, err := input.Content(opts.Response)
		if err != nil {
			return err
		}
		resp, err := processor.DecodeResponse(data)
		if err != nil {
			return err
		}
		if err := emit(history.InputResponse, proc.Response(resp)); err != nil {
			return err
		}
	}

	if opts.Entity != "" {
		data, err := input.Content(opts.Entity)
		if err != nil {
			return err
		}
		entity, err := processor.DecodeEntity(data)
		if err != nil {
			return err
		}
		if err := emit(history.InputEntity, proc.Entity(entity)); err != nil {
			return err
		}
	}

	if len(sections) == 0 {
		a.logger.Info("No documents given; use --payload, --response or --entity")
	}
	a.logger.Debug("Resolution finished", "sections", len(sections), "diagnostics", collector.Count(""))

	return writeSections(w, sections, opts.OutPath)
}
