// Package catalog persists the hierarchical media catalog: folders containing
// lists containing items.
package catalog

import (
	"errors"
	"time"

	"github.com/reelcat/reelcat/internal/nfo"
)

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrListNotFound   = errors.New("list not found")
	ErrItemNotFound   = errors.New("item not found")
)

// Folder is a catalog folder. Folders form a tree; a nil ParentID marks a
// top-level folder.
type Folder struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ParentID     *int64    `json:"parentId,omitempty"`
	ImportOwned  bool      `json:"importOwned"`
	ImportSource string    `json:"importSource,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// List is an ordered collection of items inside a folder. A nil FolderID
// places the list at the catalog root.
type List struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	FolderID     *int64    `json:"folderId,omitempty"`
	ImportOwned  bool      `json:"importOwned"`
	ImportSource string    `json:"importSource,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Item is one cataloged video. The upsert key is (FilePath, MediaType).
type Item struct {
	ID        int64             `json:"id"`
	FilePath  string            `json:"filePath"`
	MediaType string            `json:"mediaType"`
	Meta      nfo.Metadata      `json:"meta"`
	Art       map[string]string `json:"art,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// mergeMetadata overlays freshly parsed data onto an existing record.
// Only fields present in the new data overwrite; an absent field never
// blanks a previously populated one.
func mergeMetadata(existing, update *nfo.Metadata) nfo.Metadata {
	merged := *existing

	if update.Title != nil {
		merged.Title = update.Title
	}
	if update.OriginalTitle != nil {
		merged.OriginalTitle = update.OriginalTitle
	}
	if update.Year != nil {
		merged.Year = update.Year
	}
	if update.Plot != nil {
		merged.Plot = update.Plot
	}
	if update.Tagline != nil {
		merged.Tagline = update.Tagline
	}
	if update.MPAA != nil {
		merged.MPAA = update.MPAA
	}
	if update.RuntimeMinutes != nil {
		merged.RuntimeMinutes = update.RuntimeMinutes
	}
	if update.Rating != nil {
		merged.Rating = update.Rating
	}
	if update.Votes != nil {
		merged.Votes = update.Votes
	}
	if update.Season != nil {
		merged.Season = update.Season
	}
	if update.Episode != nil {
		merged.Episode = update.Episode
	}
	if update.ShowTitle != nil {
		merged.ShowTitle = update.ShowTitle
	}
	if update.Aired != nil {
		merged.Aired = update.Aired
	}
	if len(update.Genres) > 0 {
		merged.Genres = update.Genres
	}
	if len(update.Studios) > 0 {
		merged.Studios = update.Studios
	}
	if len(update.Countries) > 0 {
		merged.Countries = update.Countries
	}
	if len(update.Directors) > 0 {
		merged.Directors = update.Directors
	}
	if len(update.Writers) > 0 {
		merged.Writers = update.Writers
	}
	if len(update.Cast) > 0 {
		merged.Cast = update.Cast
	}
	if len(update.UniqueIDs) > 0 {
		ids := make(map[string]string, len(merged.UniqueIDs)+len(update.UniqueIDs))
		for k, v := range merged.UniqueIDs {
			ids[k] = v
		}
		for k, v := range update.UniqueIDs {
			ids[k] = v
		}
		merged.UniqueIDs = ids
	}

	return merged
}

// mergeArt overlays new art per key; existing keys the update does not name
// are kept.
func mergeArt(existing, update map[string]string) map[string]string {
	if len(update) == 0 {
		return existing
	}
	merged := make(map[string]string, len(existing)+len(update))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}
