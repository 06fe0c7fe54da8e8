package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelcat/reelcat/internal/nfo"
)

// Store is the SQLite-backed catalog repository. Find-or-create operations
// run inside a transaction so the check-then-act step is atomic; two
// concurrent imports targeting the same (name, parent) pair cannot produce
// duplicates.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a catalog store on an open database connection.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// FindOrCreateFolder resolves a folder by (name, parent), creating it when
// absent. The created flag reports whether this call created the folder;
// importSource is recorded only at creation, reused folders keep their
// original ownership.
func (s *Store) FindOrCreateFolder(ctx context.Context, name string, parentID *int64, importSource string) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin folder tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM folders WHERE name = ? AND IFNULL(parent_id, 0) = IFNULL(?, 0)`,
		name, parentID,
	).Scan(&id)
	if err == nil {
		return id, false, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("find folder %q: %w", name, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO folders (name, parent_id, import_owned, import_source) VALUES (?, ?, ?, ?)`,
		name, parentID, importSource != "", nullString(importSource),
	)
	if err != nil {
		return 0, false, fmt.Errorf("create folder %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, tx.Commit()
}

// FindOrCreateList resolves a list by (name, folder), creating it when absent.
func (s *Store) FindOrCreateList(ctx context.Context, name string, folderID *int64, importSource string) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM lists WHERE name = ? AND IFNULL(folder_id, 0) = IFNULL(?, 0)`,
		name, folderID,
	).Scan(&id)
	if err == nil {
		return id, false, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("find list %q: %w", name, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO lists (name, folder_id, import_owned, import_source) VALUES (?, ?, ?, ?)`,
		name, folderID, importSource != "", nullString(importSource),
	)
	if err != nil {
		return 0, false, fmt.Errorf("create list %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, tx.Commit()
}

// UpsertItem creates or updates an item keyed by (filePath, mediaType).
// On update, only fields present in the new data overwrite; previously
// populated fields are never blanked by absent ones. The created flag
// reports whether a new item was inserted.
func (s *Store) UpsertItem(ctx context.Context, filePath, mediaType string, meta *nfo.Metadata, art map[string]string) (int64, bool, error) {
	if meta == nil {
		meta = &nfo.Metadata{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin item tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := itemByKey(ctx, tx, filePath, mediaType)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		return 0, false, err
	}

	if existing == nil {
		id, err := insertItem(ctx, tx, filePath, mediaType, meta, art)
		if err != nil {
			return 0, false, err
		}
		return id, true, tx.Commit()
	}

	merged := mergeMetadata(&existing.Meta, meta)
	mergedArt := mergeArt(existing.Art, art)
	if err := updateItem(ctx, tx, existing.ID, &merged, mergedArt); err != nil {
		return 0, false, err
	}
	return existing.ID, false, tx.Commit()
}

// LinkItemToList appends an item to a list; a no-op if already linked.
func (s *Store) LinkItemToList(ctx context.Context, listID, itemID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO list_items (list_id, item_id, position)
		 VALUES (?, ?, (SELECT IFNULL(MAX(position), 0) + 1 FROM list_items WHERE list_id = ?))`,
		listID, itemID, listID,
	)
	if err != nil {
		return fmt.Errorf("link item %d to list %d: %w", itemID, listID, err)
	}
	return nil
}

// ListFolders returns the folders under a parent; nil lists top-level folders.
func (s *Store) ListFolders(ctx context.Context, parentID *int64) ([]*Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, parent_id, import_owned, import_source, created_at
		 FROM folders WHERE IFNULL(parent_id, 0) = IFNULL(?, 0) ORDER BY name`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		f := &Folder{}
		var source sql.NullString
		var created string
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.ImportOwned, &source, &created); err != nil {
			return nil, err
		}
		f.ImportSource = source.String
		f.CreatedAt = parseTime(created)
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// ListLists returns the lists inside a folder; nil lists root-level lists.
func (s *Store) ListLists(ctx context.Context, folderID *int64) ([]*List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, folder_id, import_owned, import_source, created_at
		 FROM lists WHERE IFNULL(folder_id, 0) = IFNULL(?, 0) ORDER BY name`,
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []*List
	for rows.Next() {
		l := &List{}
		var source sql.NullString
		var created string
		if err := rows.Scan(&l.ID, &l.Name, &l.FolderID, &l.ImportOwned, &source, &created); err != nil {
			return nil, err
		}
		l.ImportSource = source.String
		l.CreatedAt = parseTime(created)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// ListItems returns a list's items in link order.
func (s *Store) ListItems(ctx context.Context, listID int64) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		itemColumns+` FROM items i
		 JOIN list_items li ON li.item_id = i.id
		 WHERE li.list_id = ? ORDER BY li.position`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem returns one item by key.
func (s *Store) GetItem(ctx context.Context, filePath, mediaType string) (*Item, error) {
	return itemByKey(ctx, s.db, filePath, mediaType)
}

// CountListItems returns the number of items linked into a list.
func (s *Store) CountListItems(ctx context.Context, listID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM list_items WHERE list_id = ?`, listID,
	).Scan(&n)
	return n, err
}

// FolderSubtree returns a folder's ID plus the IDs of every descendant
// folder, depth-first.
func (s *Store) FolderSubtree(ctx context.Context, folderID int64) ([]int64, error) {
	ids := []int64{folderID}
	queue := []int64{folderID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rows, err := s.db.QueryContext(ctx, `SELECT id FROM folders WHERE parent_id = ?`, current)
		if err != nil {
			return nil, fmt.Errorf("folder subtree: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			ids = append(ids, id)
			queue = append(queue, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return ids, nil
}

// DeleteListingCache drops cached listings for the given folders.
func (s *Store) DeleteListingCache(ctx context.Context, folderIDs []int64) error {
	for _, id := range folderIDs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM listing_cache WHERE folder_id = ?`, id); err != nil {
			return fmt.Errorf("invalidate listing cache for folder %d: %w", id, err)
		}
	}
	return nil
}

// PutListingCache stores a pre-warmed listing payload for a folder.
func (s *Store) PutListingCache(ctx context.Context, folderID int64, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listing_cache (folder_id, payload, warmed_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT (folder_id) DO UPDATE SET payload = excluded.payload, warmed_at = excluded.warmed_at`,
		folderID, payload,
	)
	if err != nil {
		return fmt.Errorf("put listing cache for folder %d: %w", folderID, err)
	}
	return nil
}

// Row scanning and persistence helpers.

const itemColumns = `SELECT i.id, i.file_path, i.media_type, i.title, i.original_title,
	i.year, i.plot, i.tagline, i.mpaa, i.runtime_minutes, i.rating, i.votes,
	i.season, i.episode, i.show_title, i.aired, i.genres, i.studios, i.countries,
	i.directors, i.writers, i.unique_ids, i.art, i.actors, i.created_at, i.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func itemByKey(ctx context.Context, q querier, filePath, mediaType string) (*Item, error) {
	row := q.QueryRowContext(ctx,
		itemColumns+` FROM items i WHERE i.file_path = ? AND i.media_type = ?`,
		filePath, mediaType,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	return item, err
}

func scanItem(row rowScanner) (*Item, error) {
	item := &Item{}
	var (
		title, originalTitle, plot, tagline, mpaa sql.NullString
		showTitle, aired                          sql.NullString
		year, season, episode                     sql.NullInt64
		runtime, votes                            sql.NullInt64
		rating                                    sql.NullFloat64
		genres, studios, countries                sql.NullString
		directors, writers                        sql.NullString
		uniqueIDs, art, cast                      sql.NullString
		created, updated                          string
	)

	err := row.Scan(
		&item.ID, &item.FilePath, &item.MediaType, &title, &originalTitle,
		&year, &plot, &tagline, &mpaa, &runtime, &rating, &votes,
		&season, &episode, &showTitle, &aired, &genres, &studios, &countries,
		&directors, &writers, &uniqueIDs, &art, &cast, &created, &updated,
	)
	if err != nil {
		return nil, err
	}

	item.Meta = nfo.Metadata{
		Title:          strPtr(title),
		OriginalTitle:  strPtr(originalTitle),
		Year:           intPtr(year),
		Plot:           strPtr(plot),
		Tagline:        strPtr(tagline),
		MPAA:           strPtr(mpaa),
		RuntimeMinutes: int64Ptr(runtime),
		Rating:         floatPtr(rating),
		Votes:          int64Ptr(votes),
		Season:         intPtr(season),
		Episode:        intPtr(episode),
		ShowTitle:      strPtr(showTitle),
		Aired:          strPtr(aired),
	}
	unmarshalInto(genres, &item.Meta.Genres)
	unmarshalInto(studios, &item.Meta.Studios)
	unmarshalInto(countries, &item.Meta.Countries)
	unmarshalInto(directors, &item.Meta.Directors)
	unmarshalInto(writers, &item.Meta.Writers)
	unmarshalInto(uniqueIDs, &item.Meta.UniqueIDs)
	unmarshalInto(cast, &item.Meta.Cast)
	unmarshalInto(art, &item.Art)
	item.CreatedAt = parseTime(created)
	item.UpdatedAt = parseTime(updated)

	return item, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertItem(ctx context.Context, tx execer, filePath, mediaType string, meta *nfo.Metadata, art map[string]string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (file_path, media_type, title, original_title, year, plot,
			tagline, mpaa, runtime_minutes, rating, votes, season, episode,
			show_title, aired, genres, studios, countries, directors, writers,
			unique_ids, art, actors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filePath, mediaType, meta.Title, meta.OriginalTitle, meta.Year, meta.Plot,
		meta.Tagline, meta.MPAA, meta.RuntimeMinutes, meta.Rating, meta.Votes,
		meta.Season, meta.Episode, meta.ShowTitle, meta.Aired,
		marshalJSON(meta.Genres), marshalJSON(meta.Studios), marshalJSON(meta.Countries),
		marshalJSON(meta.Directors), marshalJSON(meta.Writers),
		marshalJSON(meta.UniqueIDs), marshalJSON(art), marshalJSON(meta.Cast),
	)
	if err != nil {
		return 0, fmt.Errorf("insert item %s: %w", filePath, err)
	}
	return res.LastInsertId()
}

func updateItem(ctx context.Context, tx execer, id int64, meta *nfo.Metadata, art map[string]string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE items SET title = ?, original_title = ?, year = ?, plot = ?,
			tagline = ?, mpaa = ?, runtime_minutes = ?, rating = ?, votes = ?,
			season = ?, episode = ?, show_title = ?, aired = ?, genres = ?,
			studios = ?, countries = ?, directors = ?, writers = ?,
			unique_ids = ?, art = ?, actors = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		meta.Title, meta.OriginalTitle, meta.Year, meta.Plot,
		meta.Tagline, meta.MPAA, meta.RuntimeMinutes, meta.Rating, meta.Votes,
		meta.Season, meta.Episode, meta.ShowTitle, meta.Aired,
		marshalJSON(meta.Genres), marshalJSON(meta.Studios), marshalJSON(meta.Countries),
		marshalJSON(meta.Directors), marshalJSON(meta.Writers),
		marshalJSON(meta.UniqueIDs), marshalJSON(art), marshalJSON(meta.Cast),
		id,
	)
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

func marshalJSON(v any) any {
	switch vv := v.(type) {
	case []string:
		if len(vv) == 0 {
			return nil
		}
	case map[string]string:
		if len(vv) == 0 {
			return nil
		}
	case []nfo.Actor:
		if len(vv) == 0 {
			return nil
		}
	case nil:
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalInto[T any](col sql.NullString, dst *T) {
	if !col.Valid || col.String == "" {
		return
	}
	_ = json.Unmarshal([]byte(col.String), dst)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func parseTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
