package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Warn("Unknown object attribute id", "attributeId", "0198-ab", "count", 2)

	out := buf.String()
	for _, want := range []string{"[warn]", "Unknown object attribute id", " | ", "attributeId=0198-ab", "count=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("each record should end with a newline")
	}
}

func TestHandler_Levels(t *testing.T) {
	tests := []struct {
		log  func(*slog.Logger)
		want string
	}{
		{func(l *slog.Logger) { l.Debug("m") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("m") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("m") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("m") }, "[error]"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %s, got %s", tt.want, buf.String())
			}
		})
	}
}

func TestHandler_Filtering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}

func TestHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("runId", "r1").WithGroup("diag")
	logger.Info("resolved", "kind", "unknown_attribute")

	out := buf.String()
	if !strings.Contains(out, "runId=r1") || !strings.Contains(out, "diag.kind=unknown_attribute") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNewFormattedLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewFormattedLogger(&buf, slog.LevelInfo, FormatJSON).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"off":     LevelSilent,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
	if ValidLevel("bogus") || !ValidLevel("Warn") {
		t.Error("ValidLevel mismatch")
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		base      slog.Level
		want      slog.Level
	}{
		{0, false, slog.LevelWarn, slog.LevelWarn},
		{1, false, slog.LevelWarn, slog.LevelInfo},
		{1, false, slog.LevelDebug, slog.LevelDebug},
		{2, false, slog.LevelWarn, slog.LevelDebug},
		{3, true, slog.LevelWarn, LevelSilent},
	}
	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet, tt.base); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v, %v) = %v, want %v", tt.verbosity, tt.quiet, tt.base, got, tt.want)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
}
