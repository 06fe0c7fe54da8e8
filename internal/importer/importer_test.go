package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelcat/reelcat/internal/catalog"
	"github.com/reelcat/reelcat/internal/scanner"
)

// fakeSource serves a canned directory tree and file contents.
type fakeSource struct {
	dirs  map[string][]scanner.Entry
	files map[string]string
}

func (f *fakeSource) List(location string) ([]scanner.Entry, error) {
	entries, ok := f.dirs[location]
	if !ok {
		return nil, errors.New("no such directory")
	}
	return entries, nil
}

func (f *fakeSource) ReadFile(path string) ([]byte, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(content), nil
}

// fakeCache records finalization calls.
type fakeCache struct {
	invalidated []int64
	prewarmed   []int64
}

func (f *fakeCache) InvalidateSubtree(_ context.Context, folderID int64) ([]int64, error) {
	f.invalidated = append(f.invalidated, folderID)
	return []int64{folderID}, nil
}

func (f *fakeCache) PreWarm(_ context.Context, folderID int64) (bool, error) {
	f.prewarmed = append(f.prewarmed, folderID)
	return true, nil
}

func file(name string) scanner.Entry { return scanner.Entry{Name: name} }
func dir(name string) scanner.Entry  { return scanner.Entry{Name: name, IsDir: true} }

func newTestOrchestrator(src *fakeSource, cat Catalog, cache Cache) *Orchestrator {
	return NewOrchestrator(cat, cache, src, nil, Options{}, zerolog.Nop())
}

func TestImport_SingleMovieFolder(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/m/Heat (1995)": {
				file("Heat (1995).mkv"),
				file("Heat (1995).nfo"),
				file("poster.jpg"),
			},
		},
		files: map[string]string{
			"/m/Heat (1995)/Heat (1995).nfo": `<movie><title>Heat</title><year>1995</year></movie>`,
		},
	}
	cat := catalog.NewMemory()
	cache := &fakeCache{}
	orch := newTestOrchestrator(src, cat, cache)

	report, err := orch.ImportFrom(context.Background(), "/m/Heat (1995)", nil, "")
	if err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	if report.State != StateCompleted {
		t.Errorf("State = %q, want completed", report.State)
	}
	if report.ListsCreated != 1 || report.ItemsImported != 1 {
		t.Errorf("counts = (%d lists, %d items), want (1, 1)", report.ListsCreated, report.ItemsImported)
	}

	list := cat.ListByName("Heat (1995)")
	if list == nil {
		t.Fatal("list named after the directory not created")
	}
	if list.FolderID != nil {
		t.Errorf("list placed under folder %v, want catalog root", list.FolderID)
	}
	if !list.ImportOwned {
		t.Error("ImportOwned = false, want import-created lists marked")
	}

	item := cat.ItemByKey("/m/Heat (1995)/Heat (1995).mkv", MediaTypeMovie)
	if item == nil {
		t.Fatal("movie item not imported")
	}
	if item.Meta.Title == nil || *item.Meta.Title != "Heat" {
		t.Errorf("Title = %v, want from the metadata document", item.Meta.Title)
	}
	if item.Art["poster"] != "/m/Heat (1995)/poster.jpg" {
		t.Errorf("poster = %q, want folder art applied", item.Art["poster"])
	}
}

func TestImport_MovieWithoutMetadataUsesFilename(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/m/Heat (1995)": {file("Heat.1995.1080p.mkv")},
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	if _, err := orch.ImportFrom(context.Background(), "/m/Heat (1995)", nil, ""); err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	item := cat.ItemByKey("/m/Heat (1995)/Heat.1995.1080p.mkv", MediaTypeMovie)
	if item == nil {
		t.Fatal("item not imported")
	}
	if item.Meta.Title == nil || *item.Meta.Title != "Heat" {
		t.Errorf("Title = %v, want parsed from filename", item.Meta.Title)
	}
	if item.Meta.Year == nil || *item.Meta.Year != 1995 {
		t.Errorf("Year = %v, want parsed from filename", item.Meta.Year)
	}
}

func TestImport_DiscLayout(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/m/Alien (1979)": {
				dir("VIDEO_TS"),
				file("ignored.mkv"),
			},
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	report, err := orch.ImportFrom(context.Background(), "/m/Alien (1979)", nil, "")
	if err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}
	if report.ItemsImported != 1 {
		t.Fatalf("ItemsImported = %d, want the disc as the only item", report.ItemsImported)
	}

	item := cat.ItemByKey("/m/Alien (1979)/VIDEO_TS", MediaTypeMovie)
	if item == nil {
		t.Fatal("disc item not imported under the disc path")
	}
	// The disc folder name carries no title; the containing directory does.
	if item.Meta.Title == nil || *item.Meta.Title != "Alien" {
		t.Errorf("Title = %v, want parsed from the containing directory", item.Meta.Title)
	}
	if item.Meta.Year == nil || *item.Meta.Year != 1979 {
		t.Errorf("Year = %v, want 1979", item.Meta.Year)
	}
}

func TestImport_TVShow(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/tv/The Wire": {
				file("tvshow.nfo"),
				file("poster.jpg"),
				dir("Season 1"),
			},
			"/tv/The Wire/Season 1": {
				file("The.Wire.S01E01.mkv"),
				file("The.Wire.S01E01.nfo"),
				file("The.Wire.S01E02.mkv"),
			},
		},
		files: map[string]string{
			"/tv/The Wire/tvshow.nfo": `<tvshow><title>The Wire</title></tvshow>`,
			"/tv/The Wire/Season 1/The.Wire.S01E01.nfo": `<episodedetails><title>The Target</title><season>1</season><episode>1</episode></episodedetails>`,
		},
	}
	cat := catalog.NewMemory()
	cache := &fakeCache{}
	orch := newTestOrchestrator(src, cat, cache)

	report, err := orch.ImportFrom(context.Background(), "/tv/The Wire", nil, "")
	if err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	if report.FoldersCreated != 1 || report.ListsCreated != 1 || report.ItemsImported != 2 {
		t.Errorf("counts = (%d folders, %d lists, %d items), want (1, 1, 2)",
			report.FoldersCreated, report.ListsCreated, report.ItemsImported)
	}

	// Folder named from show metadata, not the directory.
	show := cat.FolderByName("The Wire")
	if show == nil {
		t.Fatal("show folder not created")
	}

	season := cat.ListByName("Season 1")
	if season == nil {
		t.Fatal("season list not created")
	}
	if season.FolderID == nil || *season.FolderID != show.ID {
		t.Errorf("season list parent = %v, want the show folder %d", season.FolderID, show.ID)
	}

	// Episode with a document keeps its parsed fields.
	ep1 := cat.ItemByKey("/tv/The Wire/Season 1/The.Wire.S01E01.mkv", MediaTypeEpisode)
	if ep1 == nil {
		t.Fatal("episode 1 not imported")
	}
	if ep1.Meta.Title == nil || *ep1.Meta.Title != "The Target" {
		t.Errorf("ep1 Title = %v, want from the document", ep1.Meta.Title)
	}

	// Episode without a document falls back to filename parsing and the
	// season number from the directory.
	ep2 := cat.ItemByKey("/tv/The Wire/Season 1/The.Wire.S01E02.mkv", MediaTypeEpisode)
	if ep2 == nil {
		t.Fatal("episode 2 not imported")
	}
	if ep2.Meta.Season == nil || *ep2.Meta.Season != 1 {
		t.Errorf("ep2 Season = %v, want 1", ep2.Meta.Season)
	}
	if ep2.Meta.Episode == nil || *ep2.Meta.Episode != 2 {
		t.Errorf("ep2 Episode = %v, want 2", ep2.Meta.Episode)
	}

	// Show-level art reaches episodes as the lowest tier.
	if ep2.Art["poster"] != "/tv/The Wire/poster.jpg" {
		t.Errorf("ep2 poster = %q, want show-level art", ep2.Art["poster"])
	}

	// Finalization invalidated and warmed the show folder.
	if len(cache.invalidated) != 1 || cache.invalidated[0] != show.ID {
		t.Errorf("invalidated = %v, want [%d]", cache.invalidated, show.ID)
	}
	if len(cache.prewarmed) != 1 || cache.prewarmed[0] != show.ID {
		t.Errorf("prewarmed = %v, want [%d]", cache.prewarmed, show.ID)
	}
}

func TestImport_MultiEpisodeDocumentUsesFirstEntry(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/tv/Show/Season 1": {
				file("Show.S01E01E02.mkv"),
				file("Show.S01E01E02.nfo"),
			},
		},
		files: map[string]string{
			"/tv/Show/Season 1/Show.S01E01E02.nfo": `<multiepisodenfo>
<episodedetails><title>Part One</title><season>1</season><episode>1</episode></episodedetails>
<episodedetails><title>Part Two</title><season>1</season><episode>2</episode></episodedetails>
</multiepisodenfo>`,
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	if _, err := orch.ImportFrom(context.Background(), "/tv/Show/Season 1", nil, ""); err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	item := cat.ItemByKey("/tv/Show/Season 1/Show.S01E01E02.mkv", MediaTypeEpisode)
	if item == nil {
		t.Fatal("multi-episode file not imported")
	}
	if item.Meta.Title == nil || *item.Meta.Title != "Part One" {
		t.Errorf("Title = %v, want the first entry's title", item.Meta.Title)
	}
	if item.Meta.Episode == nil || *item.Meta.Episode != 1 {
		t.Errorf("Episode = %v, want 1", item.Meta.Episode)
	}
}

func TestImport_SeasonDirectoryBecomesList(t *testing.T) {
	// A season folder with a stray show document is still the season.
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/tv/Season 2": {
				file("tvshow.nfo"),
				file("e.s02e01.mkv"),
			},
		},
		files: map[string]string{
			"/tv/Season 2/tvshow.nfo": `<tvshow><title>Stray</title></tvshow>`,
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	if _, err := orch.ImportFrom(context.Background(), "/tv/Season 2", nil, ""); err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	if cat.FolderByName("Stray") != nil {
		t.Error("show folder created for a season directory, want none")
	}
	if cat.ListByName("Season 2") == nil {
		t.Error("season list not created")
	}
}

func TestImport_MixedRootWithWrapper(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/lib": {
				file("loose.mkv"),
				file("other.mkv"),
				dir("Heat (1995)"),
			},
			"/lib/Heat (1995)" : {file("Heat (1995).mkv")},
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	report, err := orch.ImportFrom(context.Background(), "/lib", nil, "My Import")
	if err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	wrapper := cat.FolderByName("My Import")
	if wrapper == nil {
		t.Fatal("wrapper folder not created")
	}
	if report.RootFolderID != wrapper.ID {
		t.Errorf("RootFolderID = %d, want wrapper %d", report.RootFolderID, wrapper.ID)
	}

	// The mixed root must not wrap itself in a second folder.
	if cat.FolderByName("lib") != nil {
		t.Error("mixed root created its own folder despite the wrapper")
	}

	// Loose videos land in a list named after the root directory, under the
	// wrapper.
	loose := cat.ListByName("lib")
	if loose == nil {
		t.Fatal("loose-video list not created")
	}
	if loose.FolderID == nil || *loose.FolderID != wrapper.ID {
		t.Errorf("loose list parent = %v, want wrapper", loose.FolderID)
	}

	// The movie subdirectory becomes its own list under the wrapper.
	movie := cat.ListByName("Heat (1995)")
	if movie == nil {
		t.Fatal("movie list not created")
	}
	if movie.FolderID == nil || *movie.FolderID != wrapper.ID {
		t.Errorf("movie list parent = %v, want wrapper", movie.FolderID)
	}
}

func TestImport_MixedSubdirectoryGetsFolder(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/lib": {
				file("a.mkv"),
				file("b.mkv"),
				dir("Assorted"),
			},
			"/lib/Assorted": {
				file("x.mkv"),
				file("y.mkv"),
				dir("Deeper"),
			},
			"/lib/Assorted/Deeper": {file("z.mkv")},
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	if _, err := orch.ImportFrom(context.Background(), "/lib", nil, ""); err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	// Below the root, a mixed directory with subdirectories wraps itself.
	assorted := cat.FolderByName("Assorted")
	if assorted == nil {
		t.Fatal("mixed subdirectory folder not created")
	}
	deeper := cat.ListByName("Deeper")
	if deeper == nil {
		t.Fatal("nested movie list not created")
	}
	if deeper.FolderID == nil || *deeper.FolderID != assorted.ID {
		t.Errorf("nested list parent = %v, want the Assorted folder", deeper.FolderID)
	}
}

func TestImport_Idempotent(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/tv/The Wire": {
				file("tvshow.nfo"),
				dir("Season 1"),
			},
			"/tv/The Wire/Season 1": {file("The.Wire.S01E01.mkv")},
		},
		files: map[string]string{
			"/tv/The Wire/tvshow.nfo": `<tvshow><title>The Wire</title></tvshow>`,
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	if _, err := orch.ImportFrom(context.Background(), "/tv/The Wire", nil, ""); err != nil {
		t.Fatalf("first ImportFrom() error = %v", err)
	}

	// A fresh orchestrator run over the same tree creates nothing new.
	second, err := newTestOrchestrator(src, cat, &fakeCache{}).ImportFrom(context.Background(), "/tv/The Wire", nil, "")
	if err != nil {
		t.Fatalf("second ImportFrom() error = %v", err)
	}
	if second.FoldersCreated != 0 || second.ListsCreated != 0 || second.ItemsImported != 0 {
		t.Errorf("second run counts = (%d, %d, %d), want all zero",
			second.FoldersCreated, second.ListsCreated, second.ItemsImported)
	}

	if len(cat.Folders) != 1 || len(cat.Lists) != 1 || len(cat.Items) != 1 {
		t.Errorf("catalog = (%d folders, %d lists, %d items), want (1, 1, 1)",
			len(cat.Folders), len(cat.Lists), len(cat.Items))
	}
}

func TestImport_UnreachableRootFails(t *testing.T) {
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(&fakeSource{}, cat, &fakeCache{})

	report, err := orch.ImportFrom(context.Background(), "/gone", nil, "")
	if !errors.Is(err, scanner.ErrUnreachable) {
		t.Fatalf("ImportFrom() error = %v, want ErrUnreachable", err)
	}
	if report.State != StateFailed {
		t.Errorf("State = %q, want failed", report.State)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want the root failure recorded", report.Errors)
	}
}

func TestImport_UnreachableSubtreeContinues(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/lib": {
				file("a.mkv"),
				file("b.mkv"),
				dir("broken"),
				dir("Heat (1995)"),
			},
			"/lib/Heat (1995)": {file("Heat (1995).mkv")},
		},
	}
	cat := catalog.NewMemory()
	orch := newTestOrchestrator(src, cat, &fakeCache{})

	report, err := orch.ImportFrom(context.Background(), "/lib", nil, "")
	if err != nil {
		t.Fatalf("ImportFrom() error = %v, want nil with errors recorded", err)
	}

	if report.State != StateCompleted {
		t.Errorf("State = %q, want completed despite the bad subtree", report.State)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want one record for the broken subtree", report.Errors)
	}
	if cat.ItemByKey("/lib/Heat (1995)/Heat (1995).mkv", MediaTypeMovie) == nil {
		t.Error("sibling subtree not imported after the failure")
	}
}

func TestImport_CancelledBeforeStart(t *testing.T) {
	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/m/Heat (1995)": {file("Heat (1995).mkv")},
		},
	}
	cat := catalog.NewMemory()
	cache := &fakeCache{}
	orch := newTestOrchestrator(src, cat, cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := orch.ImportFrom(ctx, "/m/Heat (1995)", nil, "")
	if err != nil {
		t.Fatalf("ImportFrom() error = %v, cancellation is not an error", err)
	}

	if report.State != StateCancelled {
		t.Errorf("State = %q, want cancelled", report.State)
	}
	if report.ItemsImported != 0 {
		t.Errorf("ItemsImported = %d, want 0 after pre-run cancellation", report.ItemsImported)
	}
}

func TestImport_TargetFolder(t *testing.T) {
	cat := catalog.NewMemory()
	target, _, err := cat.FindOrCreateFolder(context.Background(), "Existing", nil, "")
	if err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{
		dirs: map[string][]scanner.Entry{
			"/m/Heat (1995)": {file("Heat (1995).mkv")},
		},
	}
	cache := &fakeCache{}
	orch := newTestOrchestrator(src, cat, cache)

	if _, err := orch.ImportFrom(context.Background(), "/m/Heat (1995)", &target, ""); err != nil {
		t.Fatalf("ImportFrom() error = %v", err)
	}

	list := cat.ListByName("Heat (1995)")
	if list == nil {
		t.Fatal("list not created")
	}
	if list.FolderID == nil || *list.FolderID != target {
		t.Errorf("list parent = %v, want the target folder %d", list.FolderID, target)
	}

	// With no folders created by the run itself, the target is the
	// finalization root.
	if len(cache.invalidated) != 1 || cache.invalidated[0] != target {
		t.Errorf("invalidated = %v, want [%d]", cache.invalidated, target)
	}
}
