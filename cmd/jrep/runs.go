package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jrep/internal/config"
	"jrep/internal/diag"
	"jrep/internal/errors"
	"jrep/internal/history"
	"jrep/internal/output"
)

var (
	runsFormat    string
	runsLimit     int
	runsStatus    string
	runsOlderThan string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
	Long: `List, show and prune runs recorded with --record (or history.enabled).

Examples:
  jrep runs list
  jrep runs list --status=failed --limit=5
  jrep runs show <run-id>
  jrep runs prune --older-than=7d`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		format, err := a.outputFormat(cmd)
		if err != nil {
			return err
		}
		opts := history.ListRunsOptions{Limit: runsLimit}
		if runsStatus != "" {
			opts.Status = []history.RunStatus{history.RunStatus(runsStatus)}
		}
		return listRuns(cmd.OutOrStdout(), a, opts, format)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		format, err := a.outputFormat(cmd)
		if err != nil {
			return err
		}
		return showRun(cmd.OutOrStdout(), a, args[0], format)
	},
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished runs older than a given age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ageArg := runsOlderThan
		if ageArg == "" {
			ageArg = fmt.Sprintf("%dd", a.cfg.History.RetentionDays)
		}
		age, err := parseAge(ageArg)
		if err != nil {
			return err
		}
		return pruneRuns(cmd.OutOrStdout(), a, age)
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsFormat, "format", "json", "Output format (json, yaml)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to return")
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "Filter by status (running, completed, failed)")

	runsShowCmd.Flags().StringVar(&runsFormat, "format", "json", "Output format (json, yaml)")

	runsPruneCmd.Flags().StringVar(&runsOlderThan, "older-than", "",
		"Minimum age of pruned runs, e.g. 12h or 7d (default: history.retentionDays)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// RunShowResponseCLI is the output of runs show
type RunShowResponseCLI struct {
	Run         *history.Run      `json:"run"`
	DurationMs  int64             `json:"durationMs"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// RunsPruneResponseCLI is the output of runs prune
type RunsPruneResponseCLI struct {
	Removed   int64  `json:"removed"`
	OlderThan string `json:"olderThan"`
}

func listRuns(w io.Writer, a *app, opts history.ListRunsOptions, format output.Format) error {
	store, err := history.OpenStore(a.stateDir, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp, err := store.ListRuns(opts)
	if err != nil {
		return errors.Wrap(errors.StoreUnavailable, "cannot list runs", err)
	}
	return writeEncoded(w, resp, format, a.cfg.Output.Indent)
}

func showRun(w io.Writer, a *app, id string, format output.Format) error {
	store, err := history.OpenStore(a.stateDir, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	diagnostics, err := store.ListDiagnostics(id)
	if err != nil {
		return err
	}

	return writeEncoded(w, RunShowResponseCLI{
		Run:         run,
		DurationMs:  run.Duration().Milliseconds(),
		Diagnostics: diagnostics,
	}, format, a.cfg.Output.Indent)
}

func pruneRuns(w io.Writer, a *app, age time.Duration) error {
	store, err := history.OpenStore(a.stateDir, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	removed, err := store.Cleanup(age)
	if err != nil {
		return errors.Wrap(errors.StoreUnavailable, "cannot prune runs", err)
	}
	return writeEncoded(w, RunsPruneResponseCLI{Removed: removed, OlderThan: age.String()}, output.FormatJSON, a.cfg.Output.Indent)
}

// parseAge accepts Go durations plus a whole-day "<n>d" form.
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil || n < 0 {
			return 0, errors.Newf(errors.ConfigInvalid, "invalid age %q", s)
		}
		if n > config.MaxRetentionDays {
			return 0, errors.Newf(errors.ConfigInvalid, "age %q exceeds %d days", s, config.MaxRetentionDays)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("invalid age %q", s), err)
	}
	return d, nil
}
