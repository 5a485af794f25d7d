// Package store records pipeline runs and per-state outcomes in a
// SQLite database so past runs stay inspectable.
package store

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of a pipeline command.
type Run struct {
	ID          string
	Command     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StateRun is the outcome of processing one state within a run.
type StateRun struct {
	ID       int64
	RunID    string
	State    string
	Source   string
	Target   string
	Rows     int
	Status   RunStatus
	Error    string
	Duration time.Duration
}

// Store persists runs and state outcomes.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	CreateRun(command string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordStateRun(sr *StateRun) error
	ListStateRuns(runID string) ([]*StateRun, error)
}
