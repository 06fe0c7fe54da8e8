// Package nfo parses Kodi-compatible NFO sidecar documents into canonical,
// type-normalized metadata records.
package nfo

// Metadata is the canonical form of a parsed NFO document. Absent fields are
// nil or empty, never placeholder values; numeric fields stay nil when the
// source omits them, since zero is a legitimate value for some of them.
type Metadata struct {
	Title          *string
	OriginalTitle  *string
	Year           *int
	Plot           *string
	Tagline        *string
	MPAA           *string
	RuntimeMinutes *int64
	Rating         *float64
	Votes          *int64

	Genres    []string
	Studios   []string
	Countries []string
	Directors []string
	Writers   []string

	// UniqueIDs maps a provider name ("imdb", "tmdb", "tvdb") to its ID.
	UniqueIDs map[string]string

	// Art maps an art type name to a URL embedded in the document.
	Art map[string]string

	Cast []Actor

	// Episode-only fields.
	ShowTitle *string
	Season    *int
	Episode   *int
	Aired     *string
}

// Actor is one cast entry from an NFO document.
type Actor struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Thumb string `json:"thumb,omitempty"`
}

// ProviderID returns the unique ID for a provider, or "" when absent.
func (m *Metadata) ProviderID(provider string) string {
	if m == nil || m.UniqueIDs == nil {
		return ""
	}
	return m.UniqueIDs[provider]
}

// DisplayTitle returns the title, or "" when absent.
func (m *Metadata) DisplayTitle() string {
	if m == nil || m.Title == nil {
		return ""
	}
	return *m.Title
}
