package library

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tokens that describe encoding quality rather than the song itself.
// They pollute search queries and similarity scores alike.
var (
	bitratePattern  = regexp.MustCompile(`(?i)\s*\b\d+k\b\s*`)
	formatPattern   = regexp.MustCompile(`(?i)\s*\b(flac|mp3|wav|aac|ogg|opus)\b\s*`)
	bracketPattern  = regexp.MustCompile(`\s*[(\[（【][^)\]）】]*(?i:lossless|flac|mp3|hq|\d+k|无损)[^)\]）】]*[)\]）】]\s*`)
	losslessPattern = regexp.MustCompile(`\s*无损\s*`)
)

// CleanForSearch strips the extension and quality or format markers from
// a track filename, leaving text suitable for a search query. The result
// is NFC-normalized so that tracks tagged on different platforms compare
// consistently.
func CleanForSearch(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = norm.NFC.String(name)
	name = bracketPattern.ReplaceAllString(name, " ")
	name = bitratePattern.ReplaceAllString(name, " ")
	name = formatPattern.ReplaceAllString(name, " ")
	name = losslessPattern.ReplaceAllString(name, " ")
	return strings.Join(strings.Fields(name), " ")
}

// QueryEscape prepares a cleaned name for the remote search syntax, which
// treats ampersands as separators.
func QueryEscape(name string) string {
	return strings.ReplaceAll(name, "&", ",")
}
