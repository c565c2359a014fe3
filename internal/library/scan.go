package library

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// trackExtensions are the lossy formats worth upgrading. Lossless files
// are deliberately absent; they are the upgrade target, not an input.
var trackExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".aac":  {},
	".m4a":  {},
	".ogg":  {},
	".wma":  {},
	".ape":  {},
	".opus": {},
}

const losslessExtension = ".flac"

// IsTrack reports whether path names a supported lossy audio file.
func IsTrack(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == losslessExtension {
		return false
	}
	_, ok := trackExtensions[ext]
	return ok
}

// ScanTracks walks dir recursively and returns the supported audio files
// in sorted path order. Lossless files are skipped. A missing directory
// is an error.
func ScanTracks(dir string) ([]string, error) {
	var tracks []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if IsTrack(path) {
			tracks = append(tracks, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", dir, err)
	}
	sort.Strings(tracks)
	return tracks, nil
}
