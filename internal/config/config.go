package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"jrep/internal/errors"
	"jrep/internal/output"
	"jrep/internal/slogutil"
)

// CurrentVersion is the only config schema version understood.
const CurrentVersion = 1

// FileName is the config file name inside the state directory.
const FileName = "config.json"

// EnvPrefix prefixes environment overrides, e.g. JREP_LOGGING_LEVEL.
const EnvPrefix = "JREP"

// MaxRetentionDays is the largest day count a time.Duration can hold.
const MaxRetentionDays = math.MaxInt64 / int64(24*time.Hour)

// Config represents the complete jrep configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Resolve ResolveConfig `json:"resolve" mapstructure:"resolve"`
	Output  OutputConfig  `json:"output" mapstructure:"output"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	History HistoryConfig `json:"history" mapstructure:"history"`
}

// ResolveConfig controls how resolved keys are rendered
type ResolveConfig struct {
	AnnotateTypes bool `json:"annotateTypes" mapstructure:"annotateTypes"`
}

// OutputConfig controls result encoding
type OutputConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Indent string `json:"indent" mapstructure:"indent"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Enabled       bool `json:"enabled" mapstructure:"enabled"`
	RetentionDays int  `json:"retentionDays" mapstructure:"retentionDays"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Output: OutputConfig{
			Format: string(output.FormatJSON),
			Indent: "  ",
		},
		Logging: LoggingConfig{
			Format: string(slogutil.FormatHuman),
			Level:  "warn",
		},
		History: HistoryConfig{
			Enabled:       false,
			RetentionDays: 30,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("resolve.annotateTypes", d.Resolve.AnnotateTypes)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.indent", d.Output.Indent)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.retentionDays", d.History.RetentionDays)
}

// LoadConfig loads configuration from <stateDir>/config.json, applying
// JREP_* environment overrides. A missing file yields the defaults.
func LoadConfig(stateDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(stateDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ConfigInvalid, "cannot read "+filepath.Join(stateDir, FileName), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "cannot decode configuration", err)
	}
	return &cfg, nil
}

// Save writes the configuration to <stateDir>/config.json
func (c *Config) Save(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(stateDir, FileName), append(data, '\n'), 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return invalid("version", fmt.Sprintf("unsupported config version %d", c.Version))
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return invalid("output.format", fmt.Sprintf("unknown format %q", c.Output.Format))
	}
	if strings.Trim(c.Output.Indent, " \t") != "" {
		return invalid("output.indent", "indent may only contain spaces and tabs")
	}
	switch slogutil.Format(c.Logging.Format) {
	case slogutil.FormatHuman, slogutil.FormatJSON:
	default:
		return invalid("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	if !slogutil.ValidLevel(c.Logging.Level) {
		return invalid("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if c.History.RetentionDays < 0 {
		return invalid("history.retentionDays", "must not be negative")
	}
	if int64(c.History.RetentionDays) > MaxRetentionDays {
		return invalid("history.retentionDays", fmt.Sprintf("must not exceed %d", MaxRetentionDays))
	}
	return nil
}

func invalid(field, message string) error {
	return errors.Wrap(errors.ConfigInvalid, "invalid configuration", &ConfigError{Field: field, Message: message})
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
