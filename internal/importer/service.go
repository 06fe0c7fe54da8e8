package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrImportInProgress is returned when a start is requested while a run is
// still active. A run stays active through finalization.
var ErrImportInProgress = errors.New("an import is already in progress")

// ErrNoImport is returned when no run, current or past, exists to report on.
var ErrNoImport = errors.New("no import has been started")

// Status is a point-in-time snapshot of the current or most recent run.
type Status struct {
	RunID          uuid.UUID     `json:"runId"`
	State          State         `json:"state"`
	Active         bool          `json:"active"`
	FoldersCreated int           `json:"foldersCreated"`
	ListsCreated   int           `json:"listsCreated"`
	ItemsImported  int           `json:"itemsImported"`
	ErrorCount     int           `json:"errorCount"`
	Errors         []ImportError `json:"errors,omitempty"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt,omitempty"`
}

// Service runs imports one at a time on a background goroutine and exposes
// their live status. It sits between the HTTP layer and the orchestrator.
type Service struct {
	orch   *Orchestrator
	logger zerolog.Logger

	mu      sync.Mutex
	active  bool
	cancel  context.CancelFunc
	status  Status
	started bool

	forward ProgressSink
}

// NewService creates the import service and registers itself as the
// orchestrator's progress sink.
func NewService(orch *Orchestrator, logger zerolog.Logger) *Service {
	s := &Service{
		orch:   orch,
		logger: logger.With().Str("component", "import-service").Logger(),
	}
	orch.SetProgressSink(s)
	return s
}

// SetForwardSink registers a secondary sink, typically the websocket hub,
// that receives every progress event the service observes.
func (s *Service) SetForwardSink(sink ProgressSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forward = sink
}

// Start launches an import of rootLocation, returning the run ID
// immediately. Only one import may run at a time.
func (s *Service) Start(rootLocation string, targetFolder *int64, rootWrapperName string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return uuid.Nil, ErrImportInProgress
	}

	runID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	s.active = true
	s.started = true
	s.cancel = cancel
	s.status = Status{
		RunID:     runID,
		State:     StateNotStarted,
		Active:    true,
		StartedAt: time.Now(),
	}

	report := &Report{
		RunID:     runID,
		State:     StateNotStarted,
		StartedAt: s.status.StartedAt,
	}

	go func() {
		defer cancel()
		if err := s.orch.ImportInto(ctx, report, rootLocation, targetFolder, rootWrapperName); err != nil {
			s.logger.Warn().Str("runId", runID.String()).Err(err).Msg("import ended with error")
		}
		s.finish(report)
	}()

	return runID, nil
}

// Run performs an import on the caller's goroutine, holding the single-run
// slot for its duration. Scheduled rescans use this so watched roots are
// imported one after another.
func (s *Service) Run(ctx context.Context, rootLocation string, targetFolder *int64, rootWrapperName string) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrImportInProgress
	}

	runID := uuid.New()
	ctx, cancel := context.WithCancel(ctx)
	s.active = true
	s.started = true
	s.cancel = cancel
	s.status = Status{
		RunID:     runID,
		State:     StateNotStarted,
		Active:    true,
		StartedAt: time.Now(),
	}
	report := &Report{
		RunID:     runID,
		State:     StateNotStarted,
		StartedAt: s.status.StartedAt,
	}
	s.mu.Unlock()

	defer cancel()
	err := s.orch.ImportInto(ctx, report, rootLocation, targetFolder, rootWrapperName)
	s.finish(report)
	return err
}

// Cancel requests cooperative cancellation of the active run. The run
// remains active until finalization completes.
func (s *Service) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrNoImport
	}
	s.cancel()
	return nil
}

// Active reports whether an import run is currently in flight.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Status returns a snapshot of the current or most recent run.
func (s *Service) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return Status{}, ErrNoImport
	}
	return s.status, nil
}

// ImportEvent implements ProgressSink. The orchestrator's report is owned
// by the run goroutine, so the service tracks live state exclusively from
// event payloads.
func (s *Service) ImportEvent(ev Event) {
	s.mu.Lock()
	if ev.RunID == s.status.RunID {
		s.status.State = ev.State
		s.status.FoldersCreated = ev.FoldersCreated
		s.status.ListsCreated = ev.ListsCreated
		s.status.ItemsImported = ev.ItemsImported
		s.status.ErrorCount = ev.ErrorCount
	}
	forward := s.forward
	s.mu.Unlock()

	if forward != nil {
		forward.ImportEvent(ev)
	}
}

// finish copies the completed report into the status snapshot and releases
// the single-run slot.
func (s *Service) finish(report *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = report.State
	s.status.FoldersCreated = report.FoldersCreated
	s.status.ListsCreated = report.ListsCreated
	s.status.ItemsImported = report.ItemsImported
	s.status.ErrorCount = len(report.Errors)
	s.status.Errors = report.Errors
	s.status.FinishedAt = report.FinishedAt
	s.status.Active = false
	s.active = false
}
