package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"jrep/internal/config"
	"jrep/internal/diag"
	"jrep/internal/history"
	"jrep/internal/input"
	"jrep/internal/output"
	"jrep/internal/paths"
	"jrep/internal/reference"
	"jrep/internal/slogutil"
)

// inlineReference stands in for the reference path of inline documents.
const inlineReference = "<inline>"

// app bundles what every command needs after flag parsing.
type app struct {
	stateDir string
	cfg      *config.Config
	logger   *slog.Logger
}

// newApp loads configuration and builds the stderr logger.
func newApp(stderr io.Writer) (*app, error) {
	stateDir := paths.StateDir(stateDirFlag)

	cfg, err := config.LoadConfig(stateDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slogutil.LevelFromVerbosity(verbosity, quiet, slogutil.LevelFromString(cfg.Logging.Level))
	logger := slogutil.NewFormattedLogger(stderr, level, slogutil.Format(cfg.Logging.Format))

	return &app{stateDir: stateDir, cfg: cfg, logger: logger}, nil
}

// outputFormat prefers an explicit --format over the configured default.
func (a *app) outputFormat(cmd *cobra.Command) (output.Format, error) {
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		return output.ParseFormat(f.Value.String())
	}
	return output.ParseFormat(a.cfg.Output.Format)
}

func (a *app) loadReference(arg string, sink diag.Sink) (*reference.Table, error) {
	data, err := input.Content(arg)
	if err != nil {
		return nil, err
	}
	table, err := reference.Load(data, sink)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Loaded reference", "attributes", table.Len())
	return table, nil
}

// recorder tracks one run in the history store. A nil recorder is a no-op.
type recorder struct {
	store  *history.Store
	run    *history.Run
	logger *slog.Logger
}

// startRun opens the history store and creates a run when recording is
// enabled. Store failures are logged and recording is skipped.
func (a *app) startRun(enabled bool, inputs []history.InputKind, referenceArg string) *recorder {
	if !enabled {
		return nil
	}

	store, err := history.OpenStore(a.stateDir, a.logger)
	if err != nil {
		a.logger.Warn("Run history unavailable", "error", err.Error())
		return nil
	}

	run := history.NewRun(inputs, displayReference(referenceArg))
	if err := store.CreateRun(run); err != nil {
		a.logger.Warn("Failed to record run", "error", err.Error())
		_ = store.Close()
		return nil
	}
	return &recorder{store: store, run: run, logger: a.logger}
}

// finish stores the outcome of the run and closes the store.
func (r *recorder) finish(result interface{}, diagnostics []diag.Diagnostic, runErr error) {
	if r == nil {
		return
	}
	defer func() { _ = r.store.Close() }()

	if runErr != nil {
		r.run.MarkFailed(runErr)
	} else if err := r.run.MarkCompleted(result, diagnostics); err != nil {
		r.run.MarkFailed(err)
	}

	if err := r.store.UpdateRun(r.run); err != nil {
		r.logger.Warn("Failed to update run", "runId", r.run.ID, "error", err.Error())
		return
	}
	if err := r.store.AddDiagnostics(r.run.ID, diagnostics); err != nil {
		r.logger.Warn("Failed to store diagnostics", "runId", r.run.ID, "error", err.Error())
		return
	}
	r.logger.Info("Recorded run", "runId", r.run.ID, "status", string(r.run.Status), "diagnostics", len(diagnostics))
}

func displayReference(arg string) string {
	if input.IsInline(arg) {
		return inlineReference
	}
	wd, err := os.Getwd()
	if err != nil {
		return paths.NormalizePath(arg)
	}
	return paths.DisplayPath(arg, wd)
}
