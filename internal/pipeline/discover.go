package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported media file extensions (lowercase, with leading dot).
var mediaExtensions = map[string]bool{
	".flv":  true,
	".f4v":  true,
	".mkv":  true,
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".avi":  true,
	".wmv":  true,
	".webm": true,
	".ts":   true,
	".m2ts": true,
	".mpg":  true,
	".mpeg": true,
	".3gp":  true,
	".ogv":  true,
}

// IsMedia reports whether path has a supported media extension.
func IsMedia(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover expands inputs into media files. Files named explicitly are
// kept whatever their extension; directories are walked recursively for
// media extensions, pruning directories named "extras" (case-insensitive).
// The result is deduplicated and sorted for deterministic processing order.
func Discover(inputs ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, input := range inputs {
		fi, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		if !fi.IsDir() {
			add(filepath.Clean(input))
			continue
		}
		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != input && strings.EqualFold(d.Name(), "extras") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsMedia(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", input, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
