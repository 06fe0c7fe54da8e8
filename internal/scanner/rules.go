package scanner

import (
	"strings"

	"github.com/reelcat/reelcat/internal/pathutil"
)

// VideoExtensions contains supported video file extensions. Disc images are
// deliberately excluded; they are handled by optical-disc detection.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".ts":   true,
	".wmv":  true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
	".m2ts": true,
	".vob":  true,
}

// MetadataExtensions contains sidecar metadata document extensions.
var MetadataExtensions = map[string]bool{
	".nfo": true,
}

// ArtExtensions contains sidecar artwork extensions.
var ArtExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".tbn":  true,
}

// ignoreIndicators are substrings that mark a file or directory as
// extras/sample content to be skipped during passive scans.
var ignoreIndicators = []string{
	"sample",
	"trailer",
	"proof",
}

// ignoreExtensions are subtitle-family and other sidecar extensions that
// never contribute to a directory's content.
var ignoreExtensions = map[string]bool{
	".srt": true,
	".sub": true,
	".idx": true,
	".ass": true,
	".ssa": true,
	".smi": true,
	".vtt": true,
	".txt": true,
}

// reservedDirNames is the fixed set of extras folder names.
var reservedDirNames = map[string]bool{
	"extras":            true,
	"sample":            true,
	"samples":           true,
	"trailers":          true,
	"featurettes":       true,
	"interviews":        true,
	"behind the scenes": true,
	"deleted scenes":    true,
	"extrafanart":       true,
	"extrathumbs":       true,
}

// discFolderNames are reserved optical-disc layout folder names.
var discFolderNames = map[string]string{
	"VIDEO_TS": DiscKindDVD,
	"BDMV":     DiscKindBluRay,
}

// discImageExtensions are disc image file extensions.
var discImageExtensions = map[string]bool{
	".iso": true,
	".img": true,
}

// IsVideoFile checks if a filename has a video extension.
func IsVideoFile(name string) bool {
	return VideoExtensions[pathutil.Ext(name)]
}

// ignoredName reports whether name contains any extras/sample indicator.
func ignoredName(name string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range ignoreIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ignoredEntry applies the fixed ignore rules to one directory entry.
func ignoredEntry(e Entry) bool {
	if e.IsDir {
		return reservedDirNames[strings.ToLower(e.Name)] || ignoredName(e.Name)
	}
	return ignoredName(e.Name) || ignoreExtensions[pathutil.Ext(e.Name)]
}
