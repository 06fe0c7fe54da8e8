package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/reelcat/reelcat/internal/nfo"
)

// Memory is an in-memory catalog repository with the same semantics as
// Store. It backs tests and keeps the pipeline independent of a concrete
// storage engine.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	Folders map[int64]*Folder
	Lists   map[int64]*List
	Items   map[int64]*Item
	Links   map[int64][]int64 // listID -> itemIDs in link order
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		Folders: make(map[int64]*Folder),
		Lists:   make(map[int64]*List),
		Items:   make(map[int64]*Item),
		Links:   make(map[int64][]int64),
	}
}

func (m *Memory) nextSeq() int64 {
	m.nextID++
	return m.nextID
}

// FindOrCreateFolder resolves a folder by (name, parent), creating it when absent.
func (m *Memory) FindOrCreateFolder(_ context.Context, name string, parentID *int64, importSource string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.Folders {
		if f.Name == name && sameParent(f.ParentID, parentID) {
			return f.ID, false, nil
		}
	}

	id := m.nextSeq()
	m.Folders[id] = &Folder{
		ID:           id,
		Name:         name,
		ParentID:     parentID,
		ImportOwned:  importSource != "",
		ImportSource: importSource,
		CreatedAt:    time.Now(),
	}
	return id, true, nil
}

// FindOrCreateList resolves a list by (name, folder), creating it when absent.
func (m *Memory) FindOrCreateList(_ context.Context, name string, folderID *int64, importSource string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.Lists {
		if l.Name == name && sameParent(l.FolderID, folderID) {
			return l.ID, false, nil
		}
	}

	id := m.nextSeq()
	m.Lists[id] = &List{
		ID:           id,
		Name:         name,
		FolderID:     folderID,
		ImportOwned:  importSource != "",
		ImportSource: importSource,
		CreatedAt:    time.Now(),
	}
	return id, true, nil
}

// UpsertItem creates or updates an item keyed by (filePath, mediaType).
func (m *Memory) UpsertItem(_ context.Context, filePath, mediaType string, meta *nfo.Metadata, art map[string]string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if meta == nil {
		meta = &nfo.Metadata{}
	}

	for _, it := range m.Items {
		if it.FilePath == filePath && it.MediaType == mediaType {
			it.Meta = mergeMetadata(&it.Meta, meta)
			it.Art = mergeArt(it.Art, art)
			it.UpdatedAt = time.Now()
			return it.ID, false, nil
		}
	}

	id := m.nextSeq()
	now := time.Now()
	m.Items[id] = &Item{
		ID:        id,
		FilePath:  filePath,
		MediaType: mediaType,
		Meta:      *meta,
		Art:       art,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, true, nil
}

// LinkItemToList appends an item to a list; a no-op if already linked.
func (m *Memory) LinkItemToList(_ context.Context, listID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, linked := range m.Links[listID] {
		if linked == itemID {
			return nil
		}
	}
	m.Links[listID] = append(m.Links[listID], itemID)
	return nil
}

// ItemByKey returns a stored item for assertions.
func (m *Memory) ItemByKey(filePath, mediaType string) *Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range m.Items {
		if it.FilePath == filePath && it.MediaType == mediaType {
			return it
		}
	}
	return nil
}

// FolderByName returns a stored folder for assertions.
func (m *Memory) FolderByName(name string) *Folder {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.Folders {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ListByName returns a stored list for assertions.
func (m *Memory) ListByName(name string) *List {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.Lists {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
