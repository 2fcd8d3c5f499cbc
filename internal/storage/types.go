package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file":   JSON Lines + snapshot files next to Path
//   - "sqlite": SQLite database file at Path
//   - "redis":  Redis server at Addr
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	Addr      string // redis only
	Password  string // redis only
	DB        int    // redis only
	KeyPrefix string // redis only; default "routined:"
}

// Outcome of one submission attempt for one task.
type Outcome string

const (
	OutcomeSubmitted  Outcome = "submitted"
	OutcomeDayOff     Outcome = "day_off"
	OutcomeNotAllowed Outcome = "not_allowed"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeFailed     Outcome = "failed"
)

// SubmissionRecord is one row of the submission audit. Keep it schema-stable.
type SubmissionRecord struct {
	At         time.Time `json:"at"`
	Day        string    `json:"day"` // YYYY-MM-DD in the runner's location
	EntryKey   string    `json:"entry_key"`
	TaskID     string    `json:"task_id"`
	Name       string    `json:"name"`
	Action     string    `json:"action,omitempty"`
	StartAfter time.Time `json:"start_after"`
	EndBefore  time.Time `json:"end_before"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}
