// Package diag carries non-fatal resolution diagnostics from the resolver
// to whoever is listening: a logger, a test, or the run history store.
package diag

import (
	"context"
	"log/slog"
	"sync"
)

// Kind identifies a degraded lookup.
type Kind string

const (
	UnknownAttribute         Kind = "unknown_attribute"
	MissingPicklistValue     Kind = "missing_picklist_value"
	PicklistOptionNotFound   Kind = "picklist_option_not_found"
	UnsupportedPicklistValue Kind = "unsupported_picklist_value"
	NestedFormMissingRecord  Kind = "nested_form_missing_record"
	NestedFormMalformed      Kind = "nested_form_malformed"
	DuplicateAttribute       Kind = "duplicate_attribute"
	DuplicateOutputKey       Kind = "duplicate_output_key"
	MissingPicklistOption    Kind = "missing_picklist_option"
)

// Level returns the log level a diagnostic of this kind is reported at.
// Lookup misses are warnings; the rest are informational.
func (k Kind) Level() slog.Level {
	switch k {
	case NestedFormMissingRecord, DuplicateAttribute:
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}

// Diagnostic is a single degraded-lookup report.
type Diagnostic struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	AttributeID string `json:"attributeId,omitempty"`
	Key         string `json:"key,omitempty"`
}

// Sink receives diagnostics. Implementations must tolerate concurrent calls
// when the resolver that owns them is shared.
type Sink interface {
	Report(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// SlogSink writes diagnostics as log records.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink backed by logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Report logs d at its kind's level.
func (s *SlogSink) Report(d Diagnostic) {
	attrs := []slog.Attr{slog.String("kind", string(d.Kind))}
	if d.AttributeID != "" {
		attrs = append(attrs, slog.String("attributeId", d.AttributeID))
	}
	if d.Key != "" {
		attrs = append(attrs, slog.String("key", d.Key))
	}
	s.logger.LogAttrs(context.Background(), d.Kind.Level(), d.Message, attrs...)
}

// Collector keeps every diagnostic in memory.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the number of diagnostics of kind k, or of every kind when k
// is empty.
func (c *Collector) Count(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k == "" {
		return len(c.items)
	}
	n := 0
	for _, d := range c.items {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Tee fans out to several sinks in order.
type Tee []Sink

// Report forwards d to every non-nil sink.
func (t Tee) Report(d Diagnostic) {
	for _, s := range t {
		if s != nil {
			s.Report(d)
		}
	}
}
