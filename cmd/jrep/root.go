package main

import (
	"jrep/internal/version"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags shared by every command
	stateDirFlag string
	verbosity    int
	quiet        bool

	// Root command flags
	payloadArg    string
	responseArg   string
	entityArg     string
	formatFlag    string
	annotateTypes bool
	recordFlag    bool
	outPath       string
)

var rootCmd = &cobra.Command{
	Use:   "jrep <reference>",
	Short: "jrep - object attribute resolver",
	Long: `jrep replaces object attribute IDs in JSON documents with the display
names and picklist labels defined by a reference document, and renders
search queries as s-expressions.

Every document argument is either inline JSON or a path. Files may be JSON,
YAML or TOML, optionally gzip (.gz) or zstd (.zst) compressed.

Examples:
  jrep reference.json --entity entity.json
  jrep reference.json -p payload.json -r response.json.gz
  jrep reference.yaml -e '{"oa_0198_a1": "x"}' --format yaml`,
	Args:          cobra.ExactArgs(1),
	Version:       version.Info(),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runResolveCmd,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "",
		"State directory holding config.json and history.db (default: $JREP_HOME or .jrep)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")

	rootCmd.Flags().StringVarP(&payloadArg, "payload", "p", "", "Payload document (path or inline JSON)")
	rootCmd.Flags().StringVarP(&responseArg, "response", "r", "", "Response envelope document (path or inline JSON)")
	rootCmd.Flags().StringVarP(&entityArg, "entity", "e", "", "Entity document (path or inline JSON)")
	rootCmd.Flags().StringVar(&formatFlag, "format", "json", "Output format (json, yaml)")
	rootCmd.Flags().BoolVar(&annotateTypes, "annotate-types", false, "Render keys as \"<name> (<data_type>)\"")
	rootCmd.Flags().BoolVar(&recordFlag, "record", false, "Record this run in the history store")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to a file (.gz and .zst are compressed)")
}
