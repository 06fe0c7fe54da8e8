// Package maintenance runs background upkeep jobs: periodic listing cache
// warming and re-imports of watched roots.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/reelcat/reelcat/internal/catalog"
	"github.com/reelcat/reelcat/internal/importer"
)

// Warmer rebuilds cached listings, typically the listing cache.
type Warmer interface {
	WarmSubtree(ctx context.Context, folderID int64) (int, error)
}

// FolderLister enumerates top-level catalog folders.
type FolderLister interface {
	ListFolders(ctx context.Context, parentID *int64) ([]*catalog.Folder, error)
}

// ImportRunner runs imports and reports whether one is in flight. Warming
// defers while one is, since the import finalizer rewrites the same cache
// rows.
type ImportRunner interface {
	Active() bool
	Run(ctx context.Context, rootLocation string, targetFolder *int64, rootWrapperName string) error
}

// Options configures the maintenance manager.
type Options struct {
	// WarmInterval is how often the cache warming job runs.
	WarmInterval time.Duration
	// RescanInterval is how often the watched roots are re-imported.
	// Zero disables rescanning.
	RescanInterval time.Duration
	// WatchedRoots lists directory trees to re-import on each rescan.
	WatchedRoots []string
}

// Manager owns the background job scheduler.
type Manager struct {
	scheduler gocron.Scheduler
	warmer    Warmer
	folders   FolderLister
	imports   ImportRunner
	opts      Options
	logger    zerolog.Logger
}

// New creates a maintenance manager.
func New(warmer Warmer, folders FolderLister, imports ImportRunner, opts Options, logger zerolog.Logger) (*Manager, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	return &Manager{
		scheduler: scheduler,
		warmer:    warmer,
		folders:   folders,
		imports:   imports,
		opts:      opts,
		logger:    logger.With().Str("component", "maintenance").Logger(),
	}, nil
}

// Start registers the enabled jobs and starts the scheduler.
func (m *Manager) Start() error {
	if m.opts.WarmInterval > 0 {
		_, err := m.scheduler.NewJob(
			gocron.DurationJob(m.opts.WarmInterval),
			gocron.NewTask(m.warmListings),
			gocron.WithName("warm-listings"),
		)
		if err != nil {
			return fmt.Errorf("registering cache warming job: %w", err)
		}
	}

	if m.opts.RescanInterval > 0 && len(m.opts.WatchedRoots) > 0 && m.imports != nil {
		_, err := m.scheduler.NewJob(
			gocron.DurationJob(m.opts.RescanInterval),
			gocron.NewTask(m.rescanWatchedRoots),
			gocron.WithName("rescan-watched-roots"),
		)
		if err != nil {
			return fmt.Errorf("registering rescan job: %w", err)
		}
	}

	m.scheduler.Start()
	m.logger.Info().Dur("interval", m.opts.WarmInterval).Msg("maintenance started")
	return nil
}

// Stop shuts the scheduler down gracefully.
func (m *Manager) Stop() error {
	m.logger.Info().Msg("stopping maintenance")
	return m.scheduler.Shutdown()
}

// warmListings rebuilds cached listings for every top-level folder subtree.
func (m *Manager) warmListings() {
	if m.imports != nil && m.imports.Active() {
		m.logger.Debug().Msg("import in progress, skipping cache warming")
		return
	}

	ctx := context.Background()
	start := time.Now()

	roots, err := m.folders.ListFolders(ctx, nil)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list top-level folders")
		return
	}

	warmed := 0
	for _, root := range roots {
		n, err := m.warmer.WarmSubtree(ctx, root.ID)
		warmed += n
		if err != nil {
			m.logger.Warn().Int64("folderId", root.ID).Err(err).Msg("failed to warm subtree")
		}
	}

	m.logger.Info().
		Int("folders", warmed).
		Dur("duration", time.Since(start)).
		Msg("cache warming completed")
}

// rescanWatchedRoots re-imports every watched root in order. Roots share
// the single import slot, so each waits for the previous one to finish.
func (m *Manager) rescanWatchedRoots() {
	ctx := context.Background()
	for _, root := range m.opts.WatchedRoots {
		err := m.imports.Run(ctx, root, nil, filepath.Base(root))
		if errors.Is(err, importer.ErrImportInProgress) {
			m.logger.Debug().Str("root", root).Msg("import in progress, deferring rescan")
			return
		}
		if err != nil {
			m.logger.Warn().Str("root", root).Err(err).Msg("rescan ended with error")
		}
	}
}
