// Package scanner walks directory trees of media files, partitioning entries
// into videos, sidecar metadata, artwork, and subdirectories, and classifies
// a directory's logical media structure.
package scanner

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/reelcat/reelcat/internal/pathutil"
)

// ErrUnreachable is returned when a location cannot be listed (network
// error, permission denial).
var ErrUnreachable = errors.New("location unreachable")

// Entry is one directory entry from a listing collaborator.
type Entry struct {
	Name  string
	IsDir bool
}

// Lister lists directory entries at a location. Implementations may be
// backed by a local filesystem or a remote/virtual protocol; the pipeline
// is agnostic.
type Lister interface {
	List(location string) ([]Entry, error)
}

// Disc layout kinds.
const (
	DiscKindDVD    = "dvd"
	DiscKindBluRay = "bluray"
	DiscKindImage  = "image"
)

// DiscInfo describes a detected optical-disc layout.
type DiscInfo struct {
	Path string
	Kind string
}

// ScanResult partitions one directory's entries. It is produced fresh per
// directory and never mutated after return.
type ScanResult struct {
	Videos        []string
	MetadataFiles []string
	ArtFiles      []string
	Subdirs       []string
	Disc          *DiscInfo
}

// HasContent reports whether the scan found any direct media content.
func (r *ScanResult) HasContent() bool {
	return len(r.Videos) > 0 || len(r.Subdirs) > 0 || r.Disc != nil
}

// Options controls scanning behavior.
type Options struct {
	// ApplyIgnoreRules skips extras/samples/subtitle entries. Disabled for
	// user-initiated imports, which should import everything found.
	ApplyIgnoreRules bool
}

// Scanner scans directories through a Lister. A per-run listing cache keyed
// by normalized location avoids re-listing the same directory twice within
// one pipeline execution; create one Scanner per run.
type Scanner struct {
	lister Lister
	opts   Options
	cache  map[string][]Entry
	logger zerolog.Logger
}

// New creates a Scanner with a fresh listing cache.
func New(lister Lister, opts Options, logger zerolog.Logger) *Scanner {
	return &Scanner{
		lister: lister,
		opts:   opts,
		cache:  make(map[string][]Entry),
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// maxScanDepth bounds recursive scans so a cyclic tree (symlink loops,
// pathological nesting) cannot exhaust the stack.
const maxScanDepth = 32

// Scan lists and partitions one directory. When a disc layout is found the
// scan short-circuits and reports only the disc; a disc folder must not be
// treated as a generic subdirectory. With recursive set, video, metadata,
// and art files of non-ignored subdirectories are merged into the result,
// while Subdirs still lists only immediate children.
func (s *Scanner) Scan(location string, recursive bool) (*ScanResult, error) {
	return s.scan(location, recursive, 0)
}

func (s *Scanner) scan(location string, recursive bool, depth int) (*ScanResult, error) {
	entries, err := s.list(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, location, err)
	}

	result := &ScanResult{}

	if disc := detectDisc(location, entries); disc != nil {
		result.Disc = disc
		return result, nil
	}

	for _, e := range entries {
		if s.opts.ApplyIgnoreRules && ignoredEntry(e) {
			continue
		}

		path := filepath.Join(location, e.Name)

		if e.IsDir {
			result.Subdirs = append(result.Subdirs, path)
			if recursive {
				if depth >= maxScanDepth {
					s.logger.Warn().Str("path", path).Msg("max scan depth reached, not descending")
					continue
				}
				child, err := s.scan(path, true, depth+1)
				if err != nil {
					// A single bad subtree is skipped; scanning continues.
					s.logger.Warn().Str("path", path).Err(err).Msg("skipping unreachable subdirectory")
					continue
				}
				result.Videos = append(result.Videos, child.Videos...)
				result.MetadataFiles = append(result.MetadataFiles, child.MetadataFiles...)
				result.ArtFiles = append(result.ArtFiles, child.ArtFiles...)
			}
			continue
		}

		switch ext := pathutil.Ext(e.Name); {
		case VideoExtensions[ext]:
			result.Videos = append(result.Videos, path)
		case MetadataExtensions[ext]:
			result.MetadataFiles = append(result.MetadataFiles, path)
		case ArtExtensions[ext]:
			result.ArtFiles = append(result.ArtFiles, path)
		}
	}

	return result, nil
}

func (s *Scanner) list(location string) ([]Entry, error) {
	key := pathutil.NormalizePath(location)
	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}

	entries, err := s.lister.List(location)
	if err != nil {
		return nil, err
	}

	s.cache[key] = entries
	return entries, nil
}

// detectDisc looks for a disc-layout folder or disc-image file among a
// directory's entries.
func detectDisc(location string, entries []Entry) *DiscInfo {
	for _, e := range entries {
		if e.IsDir {
			if kind, ok := discFolderNames[e.Name]; ok {
				return &DiscInfo{Path: filepath.Join(location, e.Name), Kind: kind}
			}
			continue
		}
		if discImageExtensions[pathutil.Ext(e.Name)] {
			return &DiscInfo{Path: filepath.Join(location, e.Name), Kind: DiscKindImage}
		}
	}
	return nil
}
