// Package sqlitepath finds an existing sift SQLite database for commands
// that read previously ingested events.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no database file exists at any candidate path.
var ErrNotFound = errors.New("could not find sift SQLite database; pass --sqlite")

// ResolveSQLitePath returns override when set, otherwise the first existing
// candidate: ./.sift, then $XDG_DATA_HOME/sift, then ~/.sift.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	for _, candidate := range sqliteCandidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", ErrNotFound
}

// dbNames are the file names tried in each directory, in order.
var dbNames = []string{"sift.sqlite", "sift.db"}

func sqliteCandidates() []string {
	dirs := []string{".sift"}
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "sift"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".sift"))
	}

	candidates := make([]string, 0, len(dirs)*len(dbNames))
	for _, dir := range dirs {
		for _, name := range dbNames {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	return candidates
}
