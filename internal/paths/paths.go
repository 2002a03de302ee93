// Package paths resolves the jrep state directory and the files inside it.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnvVar overrides the state directory location.
	HomeEnvVar = "JREP_HOME"
	// DefaultStateDir is used when neither a flag nor JREP_HOME is set.
	DefaultStateDir = ".jrep"
	// HistoryDatabaseName is the run history database inside the state dir.
	HistoryDatabaseName = "history.db"
	// ConfigFileName is the config file inside the state dir.
	ConfigFileName = "config.json"
)

// StateDir returns the state directory: flagValue when non-empty, then
// $JREP_HOME, then ./.jrep.
func StateDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(HomeEnvVar); env != "" {
		return env
	}
	return DefaultStateDir
}

// EnsureStateDir creates the state directory if needed and returns it.
func EnsureStateDir(flagValue string) (string, error) {
	dir := StateDir(flagValue)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// HistoryDatabasePath returns the history database path for a state dir.
func HistoryDatabasePath(stateDir string) string {
	return filepath.Join(stateDir, HistoryDatabaseName)
}

// ConfigPath returns the config file path for a state dir.
func ConfigPath(stateDir string) string {
	return filepath.Join(stateDir, ConfigFileName)
}

// DisplayPath converts a document path to a forward-slash path relative to
// base when it lies under base, and returns it cleaned otherwise.
// Symlinks are resolved on both sides only when path itself resolves.
func DisplayPath(path string, base string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return NormalizePath(path)
	}
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return NormalizePath(abs)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		if resolvedBase, err := filepath.EvalSymlinks(baseAbs); err == nil {
			abs, baseAbs = resolved, resolvedBase
		}
	}

	rel, err := filepath.Rel(baseAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return NormalizePath(abs)
	}
	return NormalizePath(rel)
}

// NormalizePath converts backslashes to forward slashes
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
