// Package dotdir manages the .sift/ and ~/.sift directories.
//
// The directory holds config.toml, the default SQLite database and the state
// kept by "sift watch" about spool files it has already ingested.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".sift"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .sift/ directory to use:
//  1. overrideDir, created when missing
//  2. ./.sift
//  3. ~/.sift
//
// Without an override and with neither directory present, Target returns ""
// and callers fall back to defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating sift directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	for _, parent := range []struct {
		name string
		fn   func() (string, error)
	}{
		{"current directory", os.Getwd},
		{"home directory", os.UserHomeDir},
	} {
		base, err := parent.fn()
		if err != nil {
			return "", fmt.Errorf("getting %s: %w", parent.name, err)
		}

		dir := filepath.Join(base, dirName)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return filepath.Abs(dir)
		}
	}

	return "", nil
}

// Init creates a .sift/ directory under parent and returns its absolute path.
func (m *Manager) Init(parent string) (string, error) {
	dir := filepath.Join(parent, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating sift directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}
