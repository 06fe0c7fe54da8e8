// Package artwork resolves sidecar and embedded artwork into a canonical
// art-type to location mapping with defined precedence.
package artwork

import (
	"strings"

	"github.com/reelcat/reelcat/internal/nfo"
	"github.com/reelcat/reelcat/internal/pathutil"
)

// Type is one of the closed set of artwork roles.
type Type string

const (
	Poster       Type = "poster"
	Fanart       Type = "fanart"
	Thumb        Type = "thumb"
	Banner       Type = "banner"
	Clearart     Type = "clearart"
	Clearlogo    Type = "clearlogo"
	Landscape    Type = "landscape"
	Discart      Type = "discart"
	Characterart Type = "characterart"
)

// Types lists every known art type.
var Types = []Type{
	Poster, Fanart, Thumb, Banner, Clearart,
	Clearlogo, Landscape, Discart, Characterart,
}

// IsKnown reports whether name is a member of the closed art-type set.
func IsKnown(name string) bool {
	switch Type(strings.ToLower(name)) {
	case Poster, Fanart, Thumb, Banner, Clearart, Clearlogo, Landscape, Discart, Characterart:
		return true
	}
	return false
}

// fileExtensions is the fixed set of art file extensions.
var fileExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".tbn":  true,
}

// Art maps art types to file paths or URLs.
type Art map[Type]string

// ResolveForVideo resolves artwork for a single video. Precedence, highest
// to lowest: file-specific sidecar art ("<video-basename>-<type>.<ext>"),
// URLs embedded in the video's parsed metadata, folder-level stem art
// (including the legacy "folder" alias for poster), then parent art supplied
// by the caller. After merging, a missing poster falls back to the thumb.
func ResolveForVideo(videoPath string, artFiles []string, meta *nfo.Metadata, parentArt Art) Art {
	resolved := sidecarArt(videoPath, artFiles)
	resolved = Merge(resolved, embeddedArt(meta))
	resolved = Merge(resolved, stemArt(artFiles))
	resolved = Merge(resolved, parentArt)
	return applyPosterFallback(resolved)
}

// ResolveForFolder resolves folder-level artwork. A folder is not itself a
// video, so only the stem-matching tier applies.
func ResolveForFolder(artFiles []string) Art {
	return applyPosterFallback(stemArt(artFiles))
}

// Merge combines two art maps. Primary entries win on key conflict; fallback
// entries only fill gaps.
func Merge(primary, fallback Art) Art {
	if len(fallback) == 0 {
		return primary
	}
	merged := make(Art, len(primary)+len(fallback))
	for t, loc := range fallback {
		merged[t] = loc
	}
	for t, loc := range primary {
		merged[t] = loc
	}
	return merged
}

// sidecarArt matches art files named "<video-basename>-<artType>".
func sidecarArt(videoPath string, artFiles []string) Art {
	prefix := strings.ToLower(pathutil.Stem(videoPath)) + "-"

	art := make(Art)
	for _, f := range artFiles {
		if !fileExtensions[pathutil.Ext(f)] {
			continue
		}
		stem := strings.ToLower(pathutil.Stem(f))
		if !strings.HasPrefix(stem, prefix) {
			continue
		}
		typ := strings.TrimPrefix(stem, prefix)
		if IsKnown(typ) {
			if _, ok := art[Type(typ)]; !ok {
				art[Type(typ)] = f
			}
		}
	}
	return art
}

// stemArt matches art files whose stem equals an art-type name, plus the
// legacy alias where a file literally named "folder" counts as the poster.
func stemArt(artFiles []string) Art {
	art := make(Art)
	var folderAlias string

	for _, f := range artFiles {
		if !fileExtensions[pathutil.Ext(f)] {
			continue
		}
		stem := strings.ToLower(pathutil.Stem(f))
		if stem == "folder" {
			folderAlias = f
			continue
		}
		if IsKnown(stem) {
			if _, ok := art[Type(stem)]; !ok {
				art[Type(stem)] = f
			}
		}
	}

	if folderAlias != "" {
		if _, ok := art[Poster]; !ok {
			art[Poster] = folderAlias
		}
	}
	return art
}

// FromMetadata lifts art URLs out of a parsed metadata document, for use as
// a fallback tier when resolving descendants.
func FromMetadata(meta *nfo.Metadata) Art {
	return embeddedArt(meta)
}

// embeddedArt lifts art URLs out of a parsed metadata document.
func embeddedArt(meta *nfo.Metadata) Art {
	if meta == nil || len(meta.Art) == 0 {
		return nil
	}
	art := make(Art, len(meta.Art))
	for name, url := range meta.Art {
		if IsKnown(name) {
			art[Type(strings.ToLower(name))] = url
		}
	}
	return art
}

// applyPosterFallback sets poster = thumb when no poster was found in any
// source; legacy folders often carry only a thumb.
func applyPosterFallback(art Art) Art {
	if art == nil {
		return art
	}
	if _, ok := art[Poster]; !ok {
		if thumb, ok := art[Thumb]; ok {
			art[Poster] = thumb
		}
	}
	return art
}

// Strings converts an art map to plain string keys for persistence.
func (a Art) Strings() map[string]string {
	if len(a) == 0 {
		return nil
	}
	out := make(map[string]string, len(a))
	for t, loc := range a {
		out[string(t)] = loc
	}
	return out
}
