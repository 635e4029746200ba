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
	".mkv":  true,
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".ts":   true,
	".m2ts": true,
	".avi":  true,
	".mpg":  true,
	".mpeg": true,
	".ogv":  true,
}

// IsMedia reports whether path has a supported media extension.
func IsMedia(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// Discover expands inputs into media files. A file argument is taken as-is,
// whatever its extension. A directory is walked recursively, pruning
// directories named "extras" (case-insensitive), and its files are sorted
// lexicographically. Inputs keep their command-line order and a file
// reached twice is listed once.
func Discover(inputs []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, input := range inputs {
		fi, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", input, err)
		}
		if !fi.IsDir() {
			add(filepath.Clean(input))
			continue
		}
		found, err := walkDir(input)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", input, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

func walkDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.EqualFold(d.Name(), "extras") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsMedia(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
