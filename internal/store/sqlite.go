package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database. Use ":memory:" for
// an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// CreateRun records the start of a pipeline run.
func (s *SQLiteStore) CreateRun(command string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	run := &Run{
		ID:        uuid.New().String(),
		Command:   command,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun finalizes a run with a status and optional error.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString
	err := s.db.QueryRow(
		`SELECT id, command, status, started_at, completed_at, error FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Command, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, command, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Command, &run.Status, &run.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordStateRun records one state's outcome within a run.
func (s *SQLiteStore) RecordStateRun(sr *StateRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	res, err := s.db.Exec(
		`INSERT INTO state_runs (run_id, state, source, target, rows, status, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.RunID, sr.State, sr.Source, sr.Target, sr.Rows, sr.Status, sr.Error,
		sr.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record state run: %w", err)
	}
	sr.ID, _ = res.LastInsertId()
	return nil
}

// ListStateRuns returns the state outcomes for a run in insert order.
func (s *SQLiteStore) ListStateRuns(runID string) ([]*StateRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.Query(
		`SELECT id, run_id, state, source, target, rows, status, error, duration_ms
		 FROM state_runs WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list state runs: %w", err)
	}
	defer rows.Close()

	var out []*StateRun
	for rows.Next() {
		sr := &StateRun{}
		var errMsg sql.NullString
		var durationMS int64
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.State, &sr.Source, &sr.Target,
			&sr.Rows, &sr.Status, &errMsg, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan state run: %w", err)
		}
		sr.Error = errMsg.String
		sr.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, sr)
	}
	return out, rows.Err()
}
