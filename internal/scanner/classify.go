package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the logical media structure of one directory.
type Kind int

const (
	KindMovie Kind = iota
	KindTVShow
	KindSeason
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	case KindTVShow:
		return "tv_show"
	case KindSeason:
		return "season"
	default:
		return "mixed"
	}
}

// Classification is the derived structure of a directory. It is recomputed
// per directory per pass, never persisted.
type Classification struct {
	Kind Kind

	// Movie fields.
	VideoPath string
	IsDisc    bool

	// TV show fields.
	HasShowMetadata bool
	EpisodeNaming   bool

	// Season fields; nil when no season number was parsed from the name.
	SeasonNumber *int

	// Mixed fields.
	VideoCount  int
	SubdirCount int
}

// ClassifyOptions tunes the classification heuristics.
type ClassifyOptions struct {
	// EpisodeNameRatio is the fraction of video filenames that must match an
	// episode-numbering pattern before the directory counts as TV-structured.
	// Zero falls back to DefaultEpisodeNameRatio.
	EpisodeNameRatio float64
}

// DefaultEpisodeNameRatio is the default episode-naming evidence threshold.
const DefaultEpisodeNameRatio = 0.5

// showMetadataName is the canonical show-level document filename.
const showMetadataName = "tvshow.nfo"

// seasonDirPattern matches "Season N" style directory names.
var seasonDirPattern = regexp.MustCompile(`(?i)^season[\s._-]*(\d{1,4})$`)

// Classify decides the logical kind of one scanned directory. It is a pure
// function of its inputs and performs no I/O.
//
// Decision order, first match wins: an optical disc is a movie; any TV
// indicator makes the directory TV-structured, where the directory's own
// "Season N" name outranks show-metadata presence (a season folder nested
// under a show must never be classified as the show); exactly one video with
// no TV indicators is a movie; everything else is mixed.
func Classify(location string, res *ScanResult, opts ClassifyOptions) Classification {
	if res.Disc != nil {
		return Classification{
			Kind:      KindMovie,
			VideoPath: res.Disc.Path,
			IsDisc:    true,
		}
	}

	hasShowMetadata := containsShowMetadata(res.MetadataFiles)
	dirSeason, dirIsSeason := seasonNumberFromName(filepath.Base(location))
	episodeNaming := episodeNamingDetected(res.Videos, opts)
	subdirSeason := anySeasonSubdir(res.Subdirs)

	if hasShowMetadata || dirIsSeason || episodeNaming || subdirSeason {
		if dirIsSeason {
			n := dirSeason
			return Classification{
				Kind:         KindSeason,
				SeasonNumber: &n,
				VideoCount:   len(res.Videos),
			}
		}
		return Classification{
			Kind:            KindTVShow,
			HasShowMetadata: hasShowMetadata,
			EpisodeNaming:   episodeNaming,
			SubdirCount:     len(res.Subdirs),
			VideoCount:      len(res.Videos),
		}
	}

	if len(res.Videos) == 1 {
		return Classification{
			Kind:      KindMovie,
			VideoPath: res.Videos[0],
		}
	}

	return Classification{
		Kind:        KindMixed,
		VideoCount:  len(res.Videos),
		SubdirCount: len(res.Subdirs),
	}
}

func containsShowMetadata(metadataFiles []string) bool {
	for _, f := range metadataFiles {
		if strings.EqualFold(filepath.Base(f), showMetadataName) {
			return true
		}
	}
	return false
}

func seasonNumberFromName(name string) (int, bool) {
	match := seasonDirPattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func anySeasonSubdir(subdirs []string) bool {
	for _, d := range subdirs {
		if _, ok := seasonNumberFromName(filepath.Base(d)); ok {
			return true
		}
	}
	return false
}

func episodeNamingDetected(videos []string, opts ClassifyOptions) bool {
	if len(videos) == 0 {
		return false
	}

	ratio := opts.EpisodeNameRatio
	if ratio <= 0 {
		ratio = DefaultEpisodeNameRatio
	}

	matched := 0
	for _, v := range videos {
		if IsEpisodeName(filepath.Base(v)) {
			matched++
		}
	}
	return float64(matched) >= ratio*float64(len(videos))
}
