// Package listingcache maintains pre-rendered folder listings so browse
// responses avoid recomputing list contents on every request.
package listingcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelcat/reelcat/internal/catalog"
)

// Store is the catalog surface the cache is built from and persisted into.
type Store interface {
	FolderSubtree(ctx context.Context, folderID int64) ([]int64, error)
	DeleteListingCache(ctx context.Context, folderIDs []int64) error
	PutListingCache(ctx context.Context, folderID int64, payload []byte) error
	ListFolders(ctx context.Context, parentID *int64) ([]*catalog.Folder, error)
	ListLists(ctx context.Context, folderID *int64) ([]*catalog.List, error)
	CountListItems(ctx context.Context, listID int64) (int, error)
}

// Listing is the cached browse payload for one folder.
type Listing struct {
	FolderID int64          `json:"folderId"`
	Folders  []FolderEntry  `json:"folders"`
	Lists    []ListEntry    `json:"lists"`
	WarmedAt time.Time      `json:"warmedAt"`
}

// FolderEntry is one child folder in a listing.
type FolderEntry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ImportOwned bool   `json:"importOwned"`
}

// ListEntry is one list in a listing, with its item count resolved.
type ListEntry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ImportOwned bool   `json:"importOwned"`
	ItemCount   int    `json:"itemCount"`
}

// Cache builds and invalidates cached folder listings.
type Cache struct {
	store  Store
	logger zerolog.Logger
}

// New creates a listing cache over the given store.
func New(store Store, logger zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.With().Str("component", "listingcache").Logger(),
	}
}

// InvalidateSubtree drops cached listings for a folder and all of its
// descendants, returning the affected folder IDs.
func (c *Cache) InvalidateSubtree(ctx context.Context, folderID int64) ([]int64, error) {
	ids, err := c.store.FolderSubtree(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("resolving subtree of folder %d: %w", folderID, err)
	}
	if err := c.store.DeleteListingCache(ctx, ids); err != nil {
		return nil, fmt.Errorf("dropping cached listings: %w", err)
	}
	c.logger.Debug().Int64("folderId", folderID).Int("count", len(ids)).Msg("invalidated cached listings")
	return ids, nil
}

// PreWarm rebuilds the cached listing for a single folder. It reports
// whether a payload was written.
func (c *Cache) PreWarm(ctx context.Context, folderID int64) (bool, error) {
	payload, err := c.build(ctx, folderID)
	if err != nil {
		return false, err
	}
	if err := c.store.PutListingCache(ctx, folderID, payload); err != nil {
		return false, fmt.Errorf("storing listing for folder %d: %w", folderID, err)
	}
	c.logger.Debug().Int64("folderId", folderID).Msg("pre-warmed listing")
	return true, nil
}

// WarmSubtree rebuilds cached listings for a folder and every descendant.
// Used by scheduled maintenance rather than the import path, which only
// warms the root it touched.
func (c *Cache) WarmSubtree(ctx context.Context, folderID int64) (int, error) {
	ids, err := c.store.FolderSubtree(ctx, folderID)
	if err != nil {
		return 0, fmt.Errorf("resolving subtree of folder %d: %w", folderID, err)
	}
	warmed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return warmed, ctx.Err()
		}
		if _, err := c.PreWarm(ctx, id); err != nil {
			c.logger.Warn().Int64("folderId", id).Err(err).Msg("failed to warm listing")
			continue
		}
		warmed++
	}
	return warmed, nil
}

func (c *Cache) build(ctx context.Context, folderID int64) ([]byte, error) {
	listing := Listing{
		FolderID: folderID,
		Folders:  []FolderEntry{},
		Lists:    []ListEntry{},
		WarmedAt: time.Now(),
	}

	folders, err := c.store.ListFolders(ctx, &folderID)
	if err != nil {
		return nil, fmt.Errorf("listing child folders of %d: %w", folderID, err)
	}
	for _, f := range folders {
		listing.Folders = append(listing.Folders, FolderEntry{
			ID:          f.ID,
			Name:        f.Name,
			ImportOwned: f.ImportOwned,
		})
	}

	lists, err := c.store.ListLists(ctx, &folderID)
	if err != nil {
		return nil, fmt.Errorf("listing lists of folder %d: %w", folderID, err)
	}
	for _, l := range lists {
		count, err := c.store.CountListItems(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("counting items of list %d: %w", l.ID, err)
		}
		listing.Lists = append(listing.Lists, ListEntry{
			ID:          l.ID,
			Name:        l.Name,
			ImportOwned: l.ImportOwned,
			ItemCount:   count,
		})
	}

	return json.Marshal(listing)
}
