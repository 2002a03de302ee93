package history

import (
	stderrors "errors"
	"testing"
	"time"

	"jrep/internal/diag"
	"jrep/internal/errors"
	"jrep/internal/slogutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir(), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRun(t *testing.T) {
	inputs := []InputKind{InputPayload, InputEntity}
	run := NewRun(inputs, "reference.json")

	if run.ID == "" {
		t.Error("Run ID should not be empty")
	}
	if run.Status != RunRunning {
		t.Errorf("Status = %v, want %v", run.Status, RunRunning)
	}
	if run.IsTerminal() {
		t.Error("new run should not be terminal")
	}
	inputs[0] = InputQuery
	if run.Inputs[0] != InputPayload {
		t.Error("NewRun should copy the inputs slice")
	}
	if other := NewRun(nil, ""); other.ID == run.ID {
		t.Error("run IDs should be unique")
	}
}

func TestRunMarkCompleted(t *testing.T) {
	run := NewRun([]InputKind{InputEntity}, "ref.json")
	diagnostics := []diag.Diagnostic{{Kind: diag.UnknownAttribute, Message: "unknown"}}

	if err := run.MarkCompleted(map[string]string{"Name": "x"}, diagnostics); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if run.Status != RunCompleted || run.CompletedAt == nil {
		t.Errorf("unexpected state: %+v", run)
	}
	if run.DiagnosticCount != 1 {
		t.Errorf("DiagnosticCount = %d, want 1", run.DiagnosticCount)
	}
	if run.Result != `{"Name":"x"}` {
		t.Errorf("Result = %q", run.Result)
	}
	if run.Duration() < 0 {
		t.Error("Duration should not be negative")
	}
}

func TestRunMarkFailed(t *testing.T) {
	run := NewRun(nil, "")
	run.MarkFailed(stderrors.New("boom"))

	if run.Status != RunFailed || !run.IsTerminal() {
		t.Errorf("Status = %v, want failed", run.Status)
	}
	if run.Error != "boom" {
		t.Errorf("Error = %q, want boom", run.Error)
	}
}

func TestStore_RunRoundTrip(t *testing.T) {
	store := openTestStore(t)

	run := NewRun([]InputKind{InputPayload, InputResponse}, "docs/reference.json")
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != RunRunning || got.ReferencePath != "docs/reference.json" {
		t.Errorf("unexpected run: %+v", got)
	}
	if len(got.Inputs) != 2 || got.Inputs[1] != InputResponse {
		t.Errorf("Inputs = %v", got.Inputs)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}

	if err := run.MarkCompleted([]string{"ok"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun() error = %v", err)
	}

	got, err = store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != RunCompleted || got.CompletedAt == nil || got.Result != `["ok"]` {
		t.Errorf("unexpected run after update: %+v", got)
	}
}

func TestStore_RunNotFound(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.GetRun("missing"); !errors.IsCode(err, errors.RunNotFound) {
		t.Errorf("GetRun() error = %v, want RUN_NOT_FOUND", err)
	}
	if err := store.UpdateRun(NewRun(nil, "")); !errors.IsCode(err, errors.RunNotFound) {
		t.Errorf("UpdateRun() error = %v, want RUN_NOT_FOUND", err)
	}
	if _, err := store.ListDiagnostics("missing"); !errors.IsCode(err, errors.RunNotFound) {
		t.Errorf("ListDiagnostics() error = %v, want RUN_NOT_FOUND", err)
	}
	err := store.AddDiagnostics("missing", []diag.Diagnostic{{Kind: diag.UnknownAttribute, Message: "m"}})
	if !errors.IsCode(err, errors.RunNotFound) {
		t.Errorf("AddDiagnostics() error = %v, want RUN_NOT_FOUND", err)
	}
}

func TestStore_Diagnostics(t *testing.T) {
	store := openTestStore(t)
	run := NewRun([]InputKind{InputEntity}, "ref.json")
	if err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	first := []diag.Diagnostic{
		{Kind: diag.UnknownAttribute, Message: "unknown object attribute", AttributeID: "a-1", Key: "oa_a_1"},
		{Kind: diag.PicklistOptionNotFound, Message: "option missing", AttributeID: "a-2"},
	}
	second := []diag.Diagnostic{
		{Kind: diag.NestedFormMissingRecord, Message: "no record"},
	}
	if err := store.AddDiagnostics(run.ID, first); err != nil {
		t.Fatalf("AddDiagnostics() error = %v", err)
	}
	if err := store.AddDiagnostics(run.ID, second); err != nil {
		t.Fatalf("AddDiagnostics() error = %v", err)
	}
	if err := store.AddDiagnostics(run.ID, nil); err != nil {
		t.Fatalf("AddDiagnostics(nil) error = %v", err)
	}

	got, err := store.ListDiagnostics(run.ID)
	if err != nil {
		t.Fatalf("ListDiagnostics() error = %v", err)
	}
	want := append(append([]diag.Diagnostic{}, first...), second...)
	if len(got) != len(want) {
		t.Fatalf("got %d diagnostics, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("diagnostic[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, status := range []RunStatus{RunCompleted, RunFailed, RunCompleted} {
		run := NewRun([]InputKind{InputEntity}, "ref.json")
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		run.Status = status
		if err := store.CreateRun(run); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListRuns(ListRunsOptions{})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if all.TotalCount != 3 || len(all.Runs) != 3 {
		t.Fatalf("got %d/%d runs, want 3", len(all.Runs), all.TotalCount)
	}
	if !all.Runs[0].CreatedAt.After(all.Runs[1].CreatedAt) {
		t.Error("runs should be newest first")
	}

	failed, err := store.ListRuns(ListRunsOptions{Status: []RunStatus{RunFailed}})
	if err != nil {
		t.Fatal(err)
	}
	if failed.TotalCount != 1 || failed.Runs[0].Status != RunFailed {
		t.Errorf("status filter returned %+v", failed)
	}

	limited, err := store.ListRuns(ListRunsOptions{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited.Runs) != 2 || limited.TotalCount != 3 {
		t.Errorf("limit returned %d runs, total %d", len(limited.Runs), limited.TotalCount)
	}
}

func TestStore_Cleanup(t *testing.T) {
	store := openTestStore(t)

	old := NewRun([]InputKind{InputEntity}, "ref.json")
	old.MarkFailed(stderrors.New("bad"))
	past := time.Now().UTC().Add(-48 * time.Hour)
	old.CreatedAt = past
	old.CompletedAt = &past

	recent := NewRun([]InputKind{InputEntity}, "ref.json")
	if err := recent.MarkCompleted(nil, nil); err != nil {
		t.Fatal(err)
	}

	running := NewRun([]InputKind{InputEntity}, "ref.json")
	running.CreatedAt = past

	for _, r := range []*Run{old, recent, running} {
		if err := store.CreateRun(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.AddDiagnostics(old.ID, []diag.Diagnostic{{Kind: diag.UnknownAttribute, Message: "m"}}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.GetRun(old.ID); !errors.IsCode(err, errors.RunNotFound) {
		t.Errorf("old run should be gone, got %v", err)
	}
	for _, r := range []*Run{recent, running} {
		if _, err := store.GetRun(r.ID); err != nil {
			t.Errorf("run %s should survive cleanup: %v", r.Status, err)
		}
	}
}

func TestOpenStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	run := NewRun([]InputKind{InputQuery}, "")
	if err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := OpenStore(dir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if _, err := reopened.GetRun(run.ID); err != nil {
		t.Errorf("run should persist across opens: %v", err)
	}
}
