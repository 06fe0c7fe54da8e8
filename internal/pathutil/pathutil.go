package pathutil

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts all path separators to forward slashes.
// Go's os.Open/os.Stat accept forward slashes on all platforms.
func NormalizePath(p string) string {
	return filepath.ToSlash(p)
}

// Stem returns the base name of a path with its extension removed.
func Stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ext returns the lowercased extension of a path, including the leading dot.
func Ext(p string) string {
	return strings.ToLower(filepath.Ext(p))
}
