// Package history records jrep invocations and their diagnostics in a
// local SQLite database.
package history

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"jrep/internal/diag"
)

// RunStatus represents the state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// InputKind names one document processed by a run.
type InputKind string

const (
	InputPayload    InputKind = "payload"
	InputResponse   InputKind = "response"
	InputEntity     InputKind = "entity"
	InputQuery      InputKind = "query"
	InputAttributes InputKind = "attributes"
)

// Run is one recorded CLI invocation.
type Run struct {
	ID              string      `json:"id"`
	Inputs          []InputKind `json:"inputs"`
	ReferencePath   string      `json:"referencePath"`
	Status          RunStatus   `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
	DiagnosticCount int         `json:"diagnosticCount"`
	Error           string      `json:"error,omitempty"`
	Result          string      `json:"result,omitempty"` // JSON-encoded output
}

// NewRun creates a running run for the given inputs.
func NewRun(inputs []InputKind, referencePath string) *Run {
	return &Run{
		ID:            uuid.New().String(),
		Inputs:        append([]InputKind(nil), inputs...),
		ReferencePath: referencePath,
		Status:        RunRunning,
		CreatedAt:     time.Now().UTC(),
	}
}

// IsTerminal returns true if the run has finished.
func (r *Run) IsTerminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// MarkCompleted transitions the run to completed with its output and the
// diagnostics it produced.
func (r *Run) MarkCompleted(result interface{}, diagnostics []diag.Diagnostic) error {
	now := time.Now().UTC()
	r.Status = RunCompleted
	r.CompletedAt = &now
	r.DiagnosticCount = len(diagnostics)

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		r.Result = string(data)
	}
	return nil
}

// MarkFailed transitions the run to failed with the error message.
func (r *Run) MarkFailed(err error) {
	now := time.Now().UTC()
	r.Status = RunFailed
	r.CompletedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, or has been running.
func (r *Run) Duration() time.Duration {
	end := time.Now().UTC()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(r.CreatedAt)
}

// RunSummary is a lightweight view of a run for listing.
type RunSummary struct {
	ID              string      `json:"id"`
	Inputs          []InputKind `json:"inputs"`
	ReferencePath   string      `json:"referencePath"`
	Status          RunStatus   `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	DiagnosticCount int         `json:"diagnosticCount"`
	Error           string      `json:"error,omitempty"`
}

// ToSummary creates a summary view of the run.
func (r *Run) ToSummary() RunSummary {
	return RunSummary{
		ID:              r.ID,
		Inputs:          r.Inputs,
		ReferencePath:   r.ReferencePath,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		DiagnosticCount: r.DiagnosticCount,
		Error:           r.Error,
	}
}

// ListRunsOptions filters ListRuns.
type ListRunsOptions struct {
	Status []RunStatus
	Limit  int
}

// ListRunsResponse contains the result of listing runs.
type ListRunsResponse struct {
	Runs       []RunSummary `json:"runs"`
	TotalCount int          `json:"totalCount"`
}
