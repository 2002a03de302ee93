package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"jrep/internal/config"
	"jrep/internal/output"
	"jrep/internal/paths"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jrep configuration",
	Long:  "View and manage jrep configuration stored in <state-dir>/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults and JREP_* environment
overrides are applied.

Examples:
  jrep config show
  JREP_OUTPUT_FORMAT=yaml jrep config show --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		format, err := a.outputFormat(cmd)
		if err != nil {
			return err
		}
		return showConfig(cmd.OutOrStdout(), a, format)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.OutOrStdout(), paths.StateDir(stateDirFlag), configForce)
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "json", "Output format (json, yaml)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config.json")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string         `json:"configPath"`
	UsedDefaults bool           `json:"usedDefaults"`
	Config       *config.Config `json:"config"`
}

func showConfig(w io.Writer, a *app, format output.Format) error {
	configPath := paths.ConfigPath(a.stateDir)
	_, statErr := os.Stat(configPath)

	return writeEncoded(w, ConfigShowResponse{
		ConfigPath:   paths.NormalizePath(configPath),
		UsedDefaults: statErr != nil,
		Config:       a.cfg,
	}, format, a.cfg.Output.Indent)
}

func initConfig(w io.Writer, stateDir string, force bool) error {
	configPath := paths.ConfigPath(stateDir)
	if _, err := os.Stat(configPath); err == nil && !force {
		_, err := io.WriteString(w, "Config already exists at "+paths.NormalizePath(configPath)+" (use --force to overwrite)\n")
		return err
	}
	if err := config.DefaultConfig().Save(stateDir); err != nil {
		return err
	}
	_, err := io.WriteString(w, "Wrote "+paths.NormalizePath(configPath)+"\n")
	return err
}
