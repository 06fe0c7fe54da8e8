package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ParsedName holds media info extracted from a filename. It is the fallback
// metadata source for videos without a sidecar document.
type ParsedName struct {
	Title      string
	Year       int
	Season     int
	Episode    int
	EndEpisode int
	IsTV       bool
}

var (
	// TV patterns: Show.S01E02 or Show.1x02
	tvPatternSE = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+[Ss](\d{1,2})[Ee](\d{1,3})(?:[Ee](\d{1,3}))?[\.\s_-]*(.*)$`)
	tvPatternX  = regexp.MustCompile(`(?i)^(.+?)[\.\s_-]+(\d{1,2})[xX](\d{1,3})[\.\s_-]*(.*)$`)

	// Movie patterns: Title.Year or Title (Year)
	moviePatternParen  = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)\s*(.*)$`)
	moviePatternDot    = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})[\.\s_-]+(.*)$`)
	moviePatternSimple = regexp.MustCompile(`^(.+?)[\.\s_-]+(\d{4})$`)

	cleanupPattern = regexp.MustCompile(`[\.\s_-]+`)
)

// ParseFilename parses a media filename into structured data.
func ParseFilename(filename string) *ParsedName {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	parsed := &ParsedName{}

	if match := tvPatternSE.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		if match[4] != "" {
			parsed.EndEpisode, _ = strconv.Atoi(match[4])
		}
		return parsed
	}

	if match := tvPatternX.FindStringSubmatch(name); match != nil {
		parsed.IsTV = true
		parsed.Title = cleanTitle(match[1])
		parsed.Season, _ = strconv.Atoi(match[2])
		parsed.Episode, _ = strconv.Atoi(match[3])
		return parsed
	}

	if match := moviePatternParen.FindStringSubmatch(name); match != nil {
		parsed.Title = cleanTitle(match[1])
		parsed.Year, _ = strconv.Atoi(match[2])
		return parsed
	}

	if match := moviePatternDot.FindStringSubmatch(name); match != nil {
		if year, _ := strconv.Atoi(match[2]); plausibleYear(year) {
			parsed.Title = cleanTitle(match[1])
			parsed.Year = year
			return parsed
		}
	}

	if match := moviePatternSimple.FindStringSubmatch(name); match != nil {
		if year, _ := strconv.Atoi(match[2]); plausibleYear(year) {
			parsed.Title = cleanTitle(match[1])
			parsed.Year = year
			return parsed
		}
	}

	// Fallback: the whole stem is the title.
	parsed.Title = cleanTitle(name)
	return parsed
}

// IsEpisodeName reports whether a filename matches an episode-numbering
// pattern (SxxEyy-style or NxNN).
func IsEpisodeName(filename string) bool {
	parsed := ParseFilename(filename)
	return parsed.IsTV && parsed.Episode > 0
}

func cleanTitle(title string) string {
	return strings.TrimSpace(cleanupPattern.ReplaceAllString(title, " "))
}

func plausibleYear(year int) bool {
	return year >= 1900 && year <= 2100
}
