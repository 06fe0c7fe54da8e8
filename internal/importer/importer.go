// Package importer drives the import pipeline over a root tree: scanning,
// classification, metadata parsing, artwork resolution, and idempotent
// catalog writes.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reelcat/reelcat/internal/artwork"
	"github.com/reelcat/reelcat/internal/nfo"
	"github.com/reelcat/reelcat/internal/pathutil"
	"github.com/reelcat/reelcat/internal/scanner"
)

// Media types written to the catalog.
const (
	MediaTypeMovie   = "movie"
	MediaTypeEpisode = "episode"
)

// movieMetadataName is the canonical folder-level movie document filename.
const movieMetadataName = "movie.nfo"

// DefaultSource is the import-source identifier tagged onto folders and
// lists the pipeline creates, marking them as managed rather than freely
// user-editable.
const DefaultSource = "reelcat.import"

// Catalog is the repository collaborator the pipeline writes to. A
// conforming implementation performs find-or-create as a single atomic
// check-then-act step.
type Catalog interface {
	FindOrCreateFolder(ctx context.Context, name string, parentID *int64, importSource string) (id int64, created bool, err error)
	FindOrCreateList(ctx context.Context, name string, folderID *int64, importSource string) (id int64, created bool, err error)
	UpsertItem(ctx context.Context, filePath, mediaType string, meta *nfo.Metadata, art map[string]string) (id int64, created bool, err error)
	LinkItemToList(ctx context.Context, listID, itemID int64) error
}

// Cache is the cache-invalidation collaborator signaled during finalization.
type Cache interface {
	InvalidateSubtree(ctx context.Context, folderID int64) ([]int64, error)
	PreWarm(ctx context.Context, folderID int64) (bool, error)
}

// FileSource lists directories and reads sidecar file contents.
// Implementations may be local or remote; the pipeline is agnostic.
type FileSource interface {
	scanner.Lister
	ReadFile(path string) ([]byte, error)
}

// Options tunes the orchestrator.
type Options struct {
	// EpisodeNameRatio is passed through to the structure classifier.
	EpisodeNameRatio float64
	// Source is the import-source identifier; empty falls back to
	// DefaultSource.
	Source string
}

// Orchestrator walks a classified directory tree and materializes it into
// the catalog. One import invocation occupies one flow of control end to
// end; recursion is sequential and depth-first.
type Orchestrator struct {
	catalog Catalog
	cache   Cache
	files   FileSource
	parser  *nfo.Parser
	opts    Options
	logger  zerolog.Logger
	sink    ProgressSink
}

// NewOrchestrator creates an import orchestrator.
func NewOrchestrator(catalog Catalog, cache Cache, files FileSource, parser *nfo.Parser, opts Options, logger zerolog.Logger) *Orchestrator {
	if parser == nil {
		parser = nfo.NewParser()
	}
	return &Orchestrator{
		catalog: catalog,
		cache:   cache,
		files:   files,
		parser:  parser,
		opts:    opts,
		logger:  logger.With().Str("component", "importer").Logger(),
	}
}

// SetProgressSink registers a receiver for progress events.
func (o *Orchestrator) SetProgressSink(sink ProgressSink) {
	o.sink = sink
}

// ImportFrom imports the tree rooted at rootLocation into the catalog,
// optionally under a target folder and a wrapper folder named
// rootWrapperName. The returned report is always non-nil.
func (o *Orchestrator) ImportFrom(ctx context.Context, rootLocation string, targetFolder *int64, rootWrapperName string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		State:     StateNotStarted,
		StartedAt: time.Now(),
	}
	err := o.ImportInto(ctx, report, rootLocation, targetFolder, rootWrapperName)
	return report, err
}

// ImportInto runs an import against a caller-provided report, letting the
// caller own the run ID and observe the report after completion.
func (o *Orchestrator) ImportInto(ctx context.Context, report *Report, rootLocation string, targetFolder *int64, rootWrapperName string) error {
	r := &run{
		o:       o,
		ctx:     ctx,
		report:  report,
		visited: make(map[string]struct{}),
		// Ignore rules are disabled: an explicit import should import
		// everything found, unlike a passive library scan.
		scan: scanner.New(o.files, scanner.Options{ApplyIgnoreRules: false}, o.logger),
	}

	o.logger.Info().
		Str("root", rootLocation).
		Str("runId", report.RunID.String()).
		Msg("starting import")

	target := targetFolder
	var walkErr error

	if rootWrapperName != "" {
		id, created, err := o.catalog.FindOrCreateFolder(ctx, rootWrapperName, targetFolder, o.source())
		if err != nil {
			r.recordError(rootLocation, err)
			walkErr = err
		} else {
			if created {
				report.FoldersCreated++
			}
			report.RootFolderID = id
			target = &id
		}
	}

	if walkErr == nil {
		walkErr = r.walk(rootLocation, target, rootWrapperName != "")
	}

	// Finalization always runs, even after failure or cancellation, so the
	// cache never serves stale listings for a partially completed import.
	r.setState(StateFinalizing)
	r.finalize(target)

	switch {
	case ctx.Err() != nil:
		r.setState(StateCancelled)
	case walkErr != nil:
		r.setState(StateFailed)
	default:
		r.setState(StateCompleted)
	}
	report.FinishedAt = time.Now()

	o.logger.Info().
		Str("runId", report.RunID.String()).
		Str("state", string(report.State)).
		Int("foldersCreated", report.FoldersCreated).
		Int("listsCreated", report.ListsCreated).
		Int("itemsImported", report.ItemsImported).
		Int("errors", len(report.Errors)).
		Msg("import finished")

	return walkErr
}

func (o *Orchestrator) source() string {
	if o.opts.Source != "" {
		return o.opts.Source
	}
	return DefaultSource
}

func (o *Orchestrator) classifyOpts() scanner.ClassifyOptions {
	return scanner.ClassifyOptions{EpisodeNameRatio: o.opts.EpisodeNameRatio}
}

// run carries the per-run state threaded through the walk: the cancellation
// context, the per-run listing cache inside the scanner, the set of
// directories already visited, and the report.
type run struct {
	o       *Orchestrator
	ctx     context.Context
	scan    *scanner.Scanner
	report  *Report
	visited map[string]struct{}
}

// enter marks a directory as visited, reporting false when it was walked
// before. Cyclic trees (symlink loops) terminate instead of recursing
// forever.
func (r *run) enter(dir string) bool {
	key := pathutil.NormalizePath(dir)
	if _, ok := r.visited[key]; ok {
		r.o.logger.Warn().Str("path", dir).Msg("directory already visited, skipping")
		return false
	}
	r.visited[key] = struct{}{}
	return true
}

func (r *run) walk(rootLocation string, target *int64, hasWrapper bool) error {
	r.enter(rootLocation)
	r.setState(StateScanning)
	res, err := r.scan.Scan(rootLocation, false)
	if err != nil {
		r.recordError(rootLocation, err)
		return err
	}

	r.setState(StateClassifying)
	class := scanner.Classify(rootLocation, res, r.o.classifyOpts())

	r.setState(StateImporting)
	switch class.Kind {
	case scanner.KindMovie:
		r.importMovieDir(target, rootLocation, res)
	case scanner.KindTVShow:
		r.importShow(target, rootLocation, res)
	case scanner.KindSeason:
		r.importSeason(target, rootLocation, res, class, nil)
	case scanner.KindMixed:
		r.importMixed(target, rootLocation, res, hasWrapper)
	}
	return nil
}

// importMovieDir imports a directory's videos as movie-shaped items into a
// list named after the directory.
func (r *run) importMovieDir(folderID *int64, dir string, res *scanner.ScanResult) {
	listID, created, err := r.o.catalog.FindOrCreateList(r.ctx, filepath.Base(dir), folderID, r.o.source())
	if err != nil {
		r.recordError(dir, err)
		return
	}
	if created {
		r.report.ListsCreated++
	}

	folderArt := artwork.ResolveForFolder(res.ArtFiles)

	videos := res.Videos
	if res.Disc != nil {
		// A disc layout is a single playable unit.
		videos = []string{res.Disc.Path}
	}

	for _, video := range videos {
		if r.cancelled() {
			return
		}
		nameSource := video
		if res.Disc != nil && res.Disc.Kind != scanner.DiscKindImage {
			// VIDEO_TS and BDMV folder names carry no title; the containing
			// directory does.
			nameSource = dir
		}
		meta := r.movieMetadata(video, nameSource, res.MetadataFiles)
		art := artwork.ResolveForVideo(video, res.ArtFiles, meta, folderArt)
		r.upsertAndLink(listID, video, MediaTypeMovie, meta, art)
	}
}

// importShow imports a TV show directory: a folder named from the show
// metadata title (falling back to the directory name), then its season
// subdirectories.
func (r *run) importShow(parent *int64, dir string, res *scanner.ScanResult) {
	showMeta := r.showMetadata(res.MetadataFiles)

	name := filepath.Base(dir)
	if title := showMeta.DisplayTitle(); title != "" {
		name = title
	}

	folderID, created, err := r.o.catalog.FindOrCreateFolder(r.ctx, name, parent, r.o.source())
	if err != nil {
		r.recordError(dir, err)
		return
	}
	if created {
		r.report.FoldersCreated++
	}
	r.touch(folderID)

	showArt := artwork.Merge(artwork.ResolveForFolder(res.ArtFiles), artwork.FromMetadata(showMeta))

	for _, sub := range res.Subdirs {
		if r.cancelled() {
			return
		}
		if !r.enter(sub) {
			continue
		}
		childRes, err := r.scan.Scan(sub, false)
		if err != nil {
			r.recordError(sub, err)
			continue
		}
		class := scanner.Classify(sub, childRes, r.o.classifyOpts())
		if class.Kind == scanner.KindSeason {
			r.importSeason(&folderID, sub, childRes, class, showArt)
			continue
		}
		// Non-season children of a show fall through to generic handling.
		r.dispatch(&folderID, sub, childRes, class)
	}
}

// importSeason imports a season directory as a list of episode items, with
// show-level art as the lowest-precedence artwork fallback.
func (r *run) importSeason(parent *int64, dir string, res *scanner.ScanResult, class scanner.Classification, showArt artwork.Art) {
	name := filepath.Base(dir)
	if class.SeasonNumber != nil {
		name = fmt.Sprintf("Season %d", *class.SeasonNumber)
	}

	listID, created, err := r.o.catalog.FindOrCreateList(r.ctx, name, parent, r.o.source())
	if err != nil {
		r.recordError(dir, err)
		return
	}
	if created {
		r.report.ListsCreated++
	}

	for _, video := range res.Videos {
		if r.cancelled() {
			return
		}
		meta := r.episodeMetadata(video, res.MetadataFiles, class)
		art := artwork.ResolveForVideo(video, res.ArtFiles, meta, showArt)
		r.upsertAndLink(listID, video, MediaTypeEpisode, meta, art)
	}
}

// importMixed imports a directory with no single clear structure: a
// subfolder wrapping its content (suppressed at the synthetic import root),
// a list for its direct videos, and a recursive dispatch per subdirectory.
func (r *run) importMixed(parent *int64, dir string, res *scanner.ScanResult, isImportRoot bool) {
	target := parent

	if len(res.Subdirs) > 0 && !isImportRoot {
		folderID, created, err := r.o.catalog.FindOrCreateFolder(r.ctx, filepath.Base(dir), parent, r.o.source())
		if err != nil {
			r.recordError(dir, err)
			return
		}
		if created {
			r.report.FoldersCreated++
		}
		r.touch(folderID)
		target = &folderID
	}

	if len(res.Videos) > 0 || res.Disc != nil {
		r.importMovieDir(target, dir, res)
	}

	for _, sub := range res.Subdirs {
		if r.cancelled() {
			return
		}
		if !r.enter(sub) {
			continue
		}
		childRes, err := r.scan.Scan(sub, false)
		if err != nil {
			r.recordError(sub, err)
			continue
		}
		class := scanner.Classify(sub, childRes, r.o.classifyOpts())
		r.dispatch(target, sub, childRes, class)
	}
}

// dispatch routes a subdirectory to the handler for its classification.
func (r *run) dispatch(parent *int64, dir string, res *scanner.ScanResult, class scanner.Classification) {
	switch class.Kind {
	case scanner.KindMovie:
		r.importMovieDir(parent, dir, res)
	case scanner.KindTVShow:
		r.importShow(parent, dir, res)
	case scanner.KindSeason:
		// A season under a generic mixed parent stays a bare season list;
		// no wrapping show folder is synthesized for it.
		r.importSeason(parent, dir, res, class, nil)
	case scanner.KindMixed:
		r.importMixed(parent, dir, res, false)
	}
}

func (r *run) upsertAndLink(listID int64, video, mediaType string, meta *nfo.Metadata, art artwork.Art) {
	itemID, created, err := r.o.catalog.UpsertItem(r.ctx, video, mediaType, meta, art.Strings())
	if err != nil {
		r.recordError(video, err)
		return
	}
	if created {
		r.report.ItemsImported++
	}
	if err := r.o.catalog.LinkItemToList(r.ctx, listID, itemID); err != nil {
		r.recordError(video, err)
		return
	}
	r.emit(Event{Type: EventItem, Path: video})
}

// Metadata lookup.

// movieMetadata locates and parses the metadata document for one movie
// video: a document with the same filename stem, else the folder-level
// movie.nfo. A missing or malformed document degrades to filename-derived
// metadata, never to a skipped item.
func (r *run) movieMetadata(video, nameSource string, metadataFiles []string) *nfo.Metadata {
	var meta *nfo.Metadata

	if path := matchMetadataFile(video, metadataFiles); path != "" {
		meta = r.parseDocument(path, r.o.parser.ParseMovie)
	}
	if meta == nil {
		if path := findNamedMetadata(metadataFiles, movieMetadataName); path != "" {
			meta = r.parseDocument(path, r.o.parser.ParseMovie)
		}
	}
	if meta == nil {
		meta = &nfo.Metadata{}
	}
	fillFromFilename(meta, nameSource)
	return meta
}

// episodeMetadata parses an episode's per-video document, unwrapping a
// multi-episode document to its first entry.
func (r *run) episodeMetadata(video string, metadataFiles []string, class scanner.Classification) *nfo.Metadata {
	var meta *nfo.Metadata

	if path := matchMetadataFile(video, metadataFiles); path != "" {
		data, err := r.o.files.ReadFile(path)
		if err != nil {
			r.o.logger.Warn().Str("path", path).Err(err).Msg("failed to read metadata document")
		} else if episodes, err := r.o.parser.ParseEpisodes(data); err != nil {
			r.o.logger.Debug().Str("path", path).Err(err).Msg("metadata document not usable")
		} else if len(episodes) > 0 {
			meta = episodes[0]
		}
	}
	if meta == nil {
		meta = &nfo.Metadata{}
	}
	fillFromFilename(meta, video)
	if meta.Season == nil && class.SeasonNumber != nil {
		n := *class.SeasonNumber
		meta.Season = &n
	}
	return meta
}

// showMetadata parses the show-level document when one is present.
func (r *run) showMetadata(metadataFiles []string) *nfo.Metadata {
	path := findNamedMetadata(metadataFiles, "tvshow.nfo")
	if path == "" {
		return nil
	}
	return r.parseDocument(path, r.o.parser.ParseShow)
}

func (r *run) parseDocument(path string, parse func([]byte) (*nfo.Metadata, error)) *nfo.Metadata {
	data, err := r.o.files.ReadFile(path)
	if err != nil {
		r.o.logger.Warn().Str("path", path).Err(err).Msg("failed to read metadata document")
		return nil
	}
	meta, err := parse(data)
	if err != nil {
		// Wrong-rooted or unparseable documents are treated as absent; no
		// partial record is fabricated from them.
		r.o.logger.Debug().Str("path", path).Err(err).Msg("metadata document not usable")
		return nil
	}
	return meta
}

// matchMetadataFile finds the document whose filename stem equals the
// video's.
func matchMetadataFile(video string, metadataFiles []string) string {
	stem := stemOf(video)
	for _, f := range metadataFiles {
		if stemOf(f) == stem {
			return f
		}
	}
	return ""
}

func findNamedMetadata(metadataFiles []string, name string) string {
	for _, f := range metadataFiles {
		if equalFoldBase(f, name) {
			return f
		}
	}
	return ""
}

// fillFromFilename backfills missing fields from the video's filename.
func fillFromFilename(meta *nfo.Metadata, video string) {
	parsed := scanner.ParseFilename(filepath.Base(video))
	if meta.Title == nil && parsed.Title != "" {
		title := parsed.Title
		meta.Title = &title
	}
	if meta.Year == nil && parsed.Year > 0 {
		year := parsed.Year
		meta.Year = &year
	}
	if parsed.IsTV {
		if meta.Season == nil && parsed.Season > 0 {
			season := parsed.Season
			meta.Season = &season
		}
		if meta.Episode == nil && parsed.Episode > 0 {
			episode := parsed.Episode
			meta.Episode = &episode
		}
	}
}

// Run bookkeeping.

func (r *run) cancelled() bool {
	return r.ctx.Err() != nil
}

func (r *run) setState(s State) {
	r.report.State = s
	r.emit(Event{Type: EventState})
}

// touch records the topmost catalog folder the run worked under, used as
// the cache-invalidation root during finalization.
func (r *run) touch(folderID int64) {
	if r.report.RootFolderID == 0 {
		r.report.RootFolderID = folderID
	}
}

func (r *run) recordError(path string, err error) {
	r.report.Errors = append(r.report.Errors, ImportError{Path: path, Error: err.Error()})
	if errors.Is(err, scanner.ErrUnreachable) {
		r.o.logger.Warn().Str("path", path).Err(err).Msg("subtree unreachable, continuing with siblings")
		return
	}
	r.o.logger.Warn().Str("path", path).Err(err).Msg("import error, continuing")
}

func (r *run) finalize(target *int64) {
	folderID := r.report.RootFolderID
	if folderID == 0 && target != nil {
		folderID = *target
	}
	if folderID == 0 || r.o.cache == nil {
		return
	}

	// The run's context may already be cancelled; finalization must still
	// complete so partially imported state is never served stale.
	ctx := context.Background()

	invalidated, err := r.o.cache.InvalidateSubtree(ctx, folderID)
	if err != nil {
		r.o.logger.Warn().Int64("folderId", folderID).Err(err).Msg("cache invalidation failed")
		return
	}
	r.o.logger.Debug().Int64("folderId", folderID).Int("invalidated", len(invalidated)).Msg("cache invalidated")

	if _, err := r.o.cache.PreWarm(ctx, folderID); err != nil {
		r.o.logger.Warn().Int64("folderId", folderID).Err(err).Msg("cache pre-warm failed")
	}
}

func (r *run) emit(ev Event) {
	if r.o.sink == nil {
		return
	}
	ev.RunID = r.report.RunID
	ev.State = r.report.State
	ev.FoldersCreated = r.report.FoldersCreated
	ev.ListsCreated = r.report.ListsCreated
	ev.ItemsImported = r.report.ItemsImported
	ev.ErrorCount = len(r.report.Errors)
	r.o.sink.ImportEvent(ev)
}

// Path helpers.

func stemOf(p string) string {
	base := filepath.Base(p)
	return base[:len(base)-len(filepath.Ext(base))]
}

func equalFoldBase(p, name string) bool {
	return strings.EqualFold(filepath.Base(p), name)
}
