package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jrep/internal/diag"
	"jrep/internal/errors"
)

// DatabaseName is the history database file inside the state directory.
const DatabaseName = "history.db"

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// Store persists runs and their diagnostics.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// OpenStore opens or creates <dir>/history.db
func OpenStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "failed to create state directory", err)
	}

	dbPath := filepath.Join(dir, DatabaseName)
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "failed to open history database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(errors.StoreUnavailable, "failed to set pragma", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}

	if !dbExists {
		logger.Info("Creating history database", "path", dbPath)
	}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(errors.StoreUnavailable, "failed to initialize history schema", err)
	}

	return store, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			inputs TEXT NOT NULL,
			reference_path TEXT,
			status TEXT NOT NULL DEFAULT 'running',
			created_at TEXT NOT NULL,
			completed_at TEXT,
			diagnostic_count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			result TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

		CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			attribute_id TEXT,
			key TEXT,
			PRIMARY KEY (run_id, seq)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// CreateRun inserts a new run.
func (s *Store) CreateRun(run *Run) error {
	_, err := s.conn.Exec(`
		INSERT INTO runs (id, inputs, reference_path, status, created_at, completed_at, diagnostic_count, error, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		joinInputs(run.Inputs),
		nullString(run.ReferencePath),
		run.Status,
		run.CreatedAt.UTC().Format(timeLayout),
		nullTime(run.CompletedAt),
		run.DiagnosticCount,
		nullString(run.Error),
		nullString(run.Result),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	s.logger.Debug("Created run", "runId", run.ID, "inputs", joinInputs(run.Inputs))
	return nil
}

// UpdateRun stores the mutable fields of an existing run.
func (s *Store) UpdateRun(run *Run) error {
	result, err := s.conn.Exec(`
		UPDATE runs SET
			status = ?,
			completed_at = ?,
			diagnostic_count = ?,
			error = ?,
			result = ?
		WHERE id = ?
	`,
		run.Status,
		nullTime(run.CompletedAt),
		run.DiagnosticCount,
		nullString(run.Error),
		nullString(run.Result),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return runNotFound(run.ID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.conn.QueryRow(`
		SELECT id, inputs, reference_path, status, created_at, completed_at, diagnostic_count, error, result
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, runNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first.
func (s *Store) ListRuns(opts ListRunsOptions) (*ListRunsResponse, error) {
	var args []interface{}
	whereClause := ""
	if len(opts.Status) > 0 {
		placeholders := make([]string, len(opts.Status))
		for i, status := range opts.Status {
			placeholders[i] = "?"
			args = append(args, status)
		}
		whereClause = fmt.Sprintf("WHERE status IN (%s)", strings.Join(placeholders, ","))
	}

	var totalCount int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := fmt.Sprintf(`
		SELECT id, inputs, reference_path, status, created_at, completed_at, diagnostic_count, error, result
		FROM runs %s
		ORDER BY created_at DESC, id
		LIMIT ?
	`, whereClause)
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []RunSummary{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return &ListRunsResponse{Runs: runs, TotalCount: totalCount}, nil
}

// AddDiagnostics appends diagnostics to a run, preserving their order.
func (s *Store) AddDiagnostics(runID string, diagnostics []diag.Diagnostic) error {
	if len(diagnostics) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return runNotFound(runID)
	}

	var next int
	if err := tx.QueryRow("SELECT COALESCE(MAX(seq), -1) + 1 FROM diagnostics WHERE run_id = ?", runID).Scan(&next); err != nil {
		return fmt.Errorf("failed to read diagnostic sequence: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO diagnostics (run_id, seq, kind, message, attribute_id, key)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare diagnostic insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, d := range diagnostics {
		if _, err := stmt.Exec(runID, next+i, string(d.Kind), d.Message, nullString(d.AttributeID), nullString(d.Key)); err != nil {
			return fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// ListDiagnostics returns a run's diagnostics in recorded order.
func (s *Store) ListDiagnostics(runID string) ([]diag.Diagnostic, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT kind, message, attribute_id, key
		FROM diagnostics WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []diag.Diagnostic{}
	for rows.Next() {
		var d diag.Diagnostic
		var kind string
		var attributeID, key sql.NullString
		if err := rows.Scan(&kind, &d.Message, &attributeID, &key); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Kind = diag.Kind(kind)
		d.AttributeID = attributeID.String
		d.Key = key.String
		result = append(result, d)
	}
	return result, rows.Err()
}

// Cleanup removes finished runs, and their diagnostics, that completed
// before now minus olderThan.
func (s *Store) Cleanup(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(timeLayout)

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const finished = `status IN ('completed', 'failed') AND completed_at < ?`

	if _, err := tx.Exec(`DELETE FROM diagnostics WHERE run_id IN (SELECT id FROM runs WHERE `+finished+`)`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to cleanup diagnostics: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM runs WHERE `+finished, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old runs: %w", err)
	}
	removed, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	if removed > 0 {
		s.logger.Info("Pruned run history", "removed", removed)
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var inputs, createdAt string
	var referencePath, completedAt, errMsg, result sql.NullString

	if err := row.Scan(
		&run.ID,
		&inputs,
		&referencePath,
		&run.Status,
		&createdAt,
		&completedAt,
		&run.DiagnosticCount,
		&errMsg,
		&result,
	); err != nil {
		return nil, err
	}

	run.Inputs = splitInputs(inputs)
	run.ReferencePath = referencePath.String
	run.Error = errMsg.String
	run.Result = result.String

	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		run.CreatedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(timeLayout, completedAt.String); err == nil {
			run.CompletedAt = &t
		}
	}
	return &run, nil
}

func runNotFound(id string) error {
	return errors.Newf(errors.RunNotFound, "run not found: %s", id)
}

func joinInputs(inputs []InputKind) string {
	parts := make([]string, len(inputs))
	for i, k := range inputs {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func splitInputs(s string) []InputKind {
	if s == "" {
		return []InputKind{}
	}
	parts := strings.Split(s, ",")
	inputs := make([]InputKind, len(parts))
	for i, p := range parts {
		inputs[i] = InputKind(p)
	}
	return inputs
}

// Helper functions for nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
