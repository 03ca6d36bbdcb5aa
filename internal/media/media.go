// Package media handles media file identity and discovery: path
// normalization so one file never gets tracked under two spellings,
// the playable-extension allow-list, and natural-order listing.
package media

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// playableExtensions is the allow-list of file extensions treated as media.
var playableExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".wav":  true,
}

// IsPlayable returns true if the path has a recognized media extension.
func IsPlayable(path string) bool {
	return playableExtensions[strings.ToLower(filepath.Ext(path))]
}

// NormalizePath converts a path into its canonical identity form:
// absolute, cleaned, and case-folded on case-insensitive filesystems.
// Records keyed by the result are stable across different spellings
// of the same file.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		abs = strings.ToLower(abs)
	}
	return abs, nil
}

// ListPlayable returns the playable files under dir in natural sort order.
// Hidden entries are skipped. With recursive set, subdirectories are
// walked; otherwise only direct children are considered.
func ListPlayable(dir string, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				if path == dir {
					return walkErr
				}
				return nil //nolint:nilerr // skip unreadable subtrees
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") && path != dir {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && IsPlayable(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if e.IsDir() || !IsPlayable(name) {
				continue
			}
			files = append(files, filepath.Join(dir, name))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return NaturalLess(files[i], files[j])
	})
	return files, nil
}
