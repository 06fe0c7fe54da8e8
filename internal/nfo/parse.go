package nfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrWrongRoot is returned when a document's root element does not match
	// the expected kind. A wrong-rooted document is treated as absent by
	// callers; no partial record is fabricated from it.
	ErrWrongRoot = errors.New("unexpected NFO root element")
)

// DefaultActorLimit caps how many cast entries are kept per document.
const DefaultActorLimit = 50

// Parser parses NFO documents into Metadata records.
type Parser struct {
	// ActorLimit caps cast extraction; <= 0 falls back to DefaultActorLimit.
	ActorLimit int
}

// NewParser returns a Parser with default settings.
func NewParser() *Parser {
	return &Parser{ActorLimit: DefaultActorLimit}
}

// document is the superset of fields across the movie, tvshow, and
// episodedetails roots. Every leaf decodes into []value so the scalar and
// repeatable normalization routines accept all equivalent document shapes.
type document struct {
	XMLName xml.Name

	Title         []value `xml:"title"`
	OriginalTitle []value `xml:"originaltitle"`
	Year          []value `xml:"year"`
	Plot          []value `xml:"plot"`
	Tagline       []value `xml:"tagline"`
	MPAA          []value `xml:"mpaa"`
	Runtime       []value `xml:"runtime"`
	Votes         []value `xml:"votes"`

	Genres    []value `xml:"genre"`
	Studios   []value `xml:"studio"`
	Countries []value `xml:"country"`
	Directors []value `xml:"director"`
	Credits   []value `xml:"credits"`

	Actors    []actorNode  `xml:"actor"`
	UniqueIDs []uniqueID   `xml:"uniqueid"`
	Rating    *ratingNode  `xml:"rating"`
	Ratings   *ratingsNode `xml:"ratings"`

	Thumbs []value     `xml:"thumb"`
	Fanart *fanartNode `xml:"fanart"`

	// Legacy single-ID fields, last-resort populators of the imdb key.
	IMDB []value `xml:"imdb"`
	ID   []value `xml:"id"`

	ShowTitle []value `xml:"showtitle"`
	Season    []value `xml:"season"`
	Episode   []value `xml:"episode"`
	Aired     []value `xml:"aired"`
}

type actorNode struct {
	Name  string `xml:"name"`
	Role  string `xml:"role"`
	Thumb string `xml:"thumb"`
}

type uniqueID struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// ratingNode is the legacy direct rating shape: either a bare float as
// character data or a nested <value> element.
type ratingNode struct {
	Text  string `xml:",chardata"`
	Value string `xml:"value"`
	Votes string `xml:"votes"`
}

type ratingsNode struct {
	Ratings []ratingEntry `xml:"rating"`
}

type ratingEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
	Votes string `xml:"votes"`
}

type fanartNode struct {
	Thumbs []value `xml:"thumb"`
}

// ParseMovie parses a movie NFO document. It returns ErrWrongRoot when the
// root element is not <movie>; malformed fields inside a well-rooted document
// degrade to nil per-field instead of failing the document.
func (p *Parser) ParseMovie(data []byte) (*Metadata, error) {
	doc, err := decode(data, "movie")
	if err != nil {
		return nil, err
	}
	return p.toMetadata(doc), nil
}

// ParseShow parses a tvshow.nfo document.
func (p *Parser) ParseShow(data []byte) (*Metadata, error) {
	doc, err := decode(data, "tvshow")
	if err != nil {
		return nil, err
	}
	return p.toMetadata(doc), nil
}

// ParseEpisodes parses an episode NFO document. A single document may carry
// several <episodedetails> entries, either repeated at the top level or
// wrapped in a <multiepisodenfo> container; one Metadata record is produced
// per entry, preserving document order.
func (p *Parser) ParseEpisodes(data []byte) ([]*Metadata, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []*Metadata

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(out) > 0 {
				// Trailing garbage after valid entries is tolerated.
				break
			}
			return nil, fmt.Errorf("decode episode NFO: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "episodedetails":
			var doc document
			if err := dec.DecodeElement(&doc, &se); err != nil {
				continue
			}
			out = append(out, p.toMetadata(&doc))
		case "multiepisodenfo":
			// Container element; keep walking into its children.
		default:
			if err := dec.Skip(); err != nil && len(out) == 0 {
				return nil, ErrWrongRoot
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrWrongRoot
	}
	return out, nil
}

func decode(data []byte, root string) (*document, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode NFO: %w", err)
	}
	if !strings.EqualFold(doc.XMLName.Local, root) {
		return nil, fmt.Errorf("%w: got <%s>, want <%s>", ErrWrongRoot, doc.XMLName.Local, root)
	}
	return &doc, nil
}

func (p *Parser) toMetadata(doc *document) *Metadata {
	m := &Metadata{
		Title:          scalar(doc.Title),
		OriginalTitle:  scalar(doc.OriginalTitle),
		Year:           scalarInt(doc.Year),
		Plot:           scalar(doc.Plot),
		Tagline:        scalar(doc.Tagline),
		MPAA:           scalar(doc.MPAA),
		RuntimeMinutes: scalarInt64(doc.Runtime),
		Genres:         list(doc.Genres),
		Studios:        list(doc.Studios),
		Countries:      list(doc.Countries),
		Directors:      list(doc.Directors),
		Writers:        list(doc.Credits),
		ShowTitle:      scalar(doc.ShowTitle),
		Season:         scalarInt(doc.Season),
		Episode:        scalarInt(doc.Episode),
		Aired:          scalar(doc.Aired),
	}

	m.Rating, m.Votes = extractRating(doc)
	if m.Votes == nil {
		m.Votes = scalarInt64(doc.Votes)
	}
	m.UniqueIDs = extractUniqueIDs(doc)
	m.Art = extractArt(doc)
	m.Cast = p.extractCast(doc.Actors)

	return m
}

// extractRating tries the legacy direct <rating> shape first, then the
// newer <ratings><rating><value> nesting.
func extractRating(doc *document) (*float64, *int64) {
	if doc.Rating != nil {
		raw := doc.Rating.Value
		if strings.TrimSpace(raw) == "" {
			raw = doc.Rating.Text
		}
		if f := parseFloat(raw); f != nil {
			return f, parseInt64(doc.Rating.Votes)
		}
	}

	if doc.Ratings != nil {
		for _, entry := range doc.Ratings.Ratings {
			if f := parseFloat(entry.Value); f != nil {
				return f, parseInt64(entry.Votes)
			}
		}
	}

	return nil, nil
}

func extractUniqueIDs(doc *document) map[string]string {
	ids := make(map[string]string)
	for _, uid := range doc.UniqueIDs {
		typ := strings.ToLower(strings.TrimSpace(uid.Type))
		val := strings.TrimSpace(uid.Value)
		if typ == "" || val == "" {
			continue
		}
		ids[typ] = val
	}

	// A bare <imdb> or ttXXXX / numeric <id> may stand in for the imdb key,
	// but never overrides a typed node.
	if _, ok := ids["imdb"]; !ok {
		if s := scalar(doc.IMDB); s != nil {
			ids["imdb"] = *s
		} else if s := scalar(doc.ID); s != nil && looksLikeID(*s) {
			ids["imdb"] = *s
		}
	}

	if len(ids) == 0 {
		return nil
	}
	return ids
}

func looksLikeID(s string) bool {
	if strings.HasPrefix(s, "tt") {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// knownArtAspects is the closed set of art type names a thumb aspect may name.
var knownArtAspects = map[string]bool{
	"poster": true, "fanart": true, "thumb": true, "banner": true,
	"clearart": true, "clearlogo": true, "landscape": true,
	"discart": true, "characterart": true,
}

// extractArt collects embedded art URLs. <thumb> nodes carry an aspect
// attribute naming the art type; an aspect-less thumb is a plain thumb.
// Fanart has its own nested container shape (<fanart><thumb>url).
func extractArt(doc *document) map[string]string {
	art := make(map[string]string)

	for _, t := range doc.Thumbs {
		url := t.trimmed()
		if url == "" {
			continue
		}
		aspect := strings.ToLower(strings.TrimSpace(t.Aspect))
		if aspect == "" {
			aspect = "thumb"
		}
		if !knownArtAspects[aspect] {
			continue
		}
		if _, ok := art[aspect]; !ok {
			art[aspect] = url
		}
	}

	if doc.Fanart != nil {
		for _, t := range doc.Fanart.Thumbs {
			if url := t.trimmed(); url != "" {
				if _, ok := art["fanart"]; !ok {
					art["fanart"] = url
				}
				break
			}
		}
	}

	if len(art) == 0 {
		return nil
	}
	return art
}

// extractCast caps the actor list but preserves declaration order. Entries
// without a name are dropped; a role or thumbnail alone is not useful.
func (p *Parser) extractCast(actors []actorNode) []Actor {
	limit := p.ActorLimit
	if limit <= 0 {
		limit = DefaultActorLimit
	}

	var cast []Actor
	for _, a := range actors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		cast = append(cast, Actor{
			Name:  name,
			Role:  strings.TrimSpace(a.Role),
			Thumb: strings.TrimSpace(a.Thumb),
		})
		if len(cast) >= limit {
			break
		}
	}
	return cast
}
