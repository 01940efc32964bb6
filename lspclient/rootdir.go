package lspclient

import (
	"os"
	"path/filepath"
)

var rootMarkers = []string{".git", ".hg", ".svn"}

// DetectRootDir returns the workspace root for a file or directory: the closest ancestor containing a version
// control directory, or the file's own directory when there isn't one.
func DetectRootDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	fallback := dir
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}
		dir = parent
	}
}
