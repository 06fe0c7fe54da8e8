package importer

import (
	"time"

	"github.com/google/uuid"
)

// State is the phase of one import run. Finalizing always executes, even
// after a failure or cancellation, so the externally visible listing never
// shows stale state for partially completed imports.
type State string

const (
	StateNotStarted  State = "not_started"
	StateScanning    State = "scanning"
	StateClassifying State = "classifying"
	StateImporting   State = "importing"
	StateFinalizing  State = "finalizing"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// Terminal reports whether the state is a final one.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ImportError records one non-fatal problem encountered during a run.
type ImportError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarizes one import run. ItemsImported counts newly created
// items, not re-touched ones.
type Report struct {
	RunID          uuid.UUID     `json:"runId"`
	State          State         `json:"state"`
	FoldersCreated int           `json:"foldersCreated"`
	ListsCreated   int           `json:"listsCreated"`
	ItemsImported  int           `json:"itemsImported"`
	Errors         []ImportError `json:"errors"`
	RootFolderID   int64         `json:"rootFolderId,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt,omitempty"`
}

// Event types emitted through a ProgressSink.
const (
	EventState = "import:state"
	EventItem  = "import:item"
)

// Event is one progress update from a running import.
type Event struct {
	RunID          uuid.UUID `json:"runId"`
	Type           string    `json:"type"`
	State          State     `json:"state"`
	Path           string    `json:"path,omitempty"`
	FoldersCreated int       `json:"foldersCreated"`
	ListsCreated   int       `json:"listsCreated"`
	ItemsImported  int       `json:"itemsImported"`
	ErrorCount     int       `json:"errorCount"`
}

// ProgressSink receives progress events during an import run.
type ProgressSink interface {
	ImportEvent(ev Event)
}
