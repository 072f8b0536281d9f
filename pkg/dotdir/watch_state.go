package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

const (
	watchStateFile = "watch.json"
)

// WatchState records the spool files "sift watch" has already ingested so a
// restarted watcher does not ingest them twice.
type WatchState struct {
	// Files is keyed by the absolute path of the spool file.
	Files map[string]WatchedFile `json:"files"`
}

// WatchedFile is the outcome of ingesting one spool file.
type WatchedFile struct {
	Stream     string    `json:"stream"`
	Events     int       `json:"events"`
	Size       int64     `json:"size"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Seen reports whether path was ingested at the given size.
func (s *WatchState) Seen(path string, size int64) bool {
	if s == nil {
		return false
	}
	f, ok := s.Files[path]
	return ok && f.Size == size
}

// Record marks path as ingested.
func (s *WatchState) Record(path string, f WatchedFile) {
	if s.Files == nil {
		s.Files = make(map[string]WatchedFile)
	}
	s.Files[path] = f
}

// LoadWatchState loads the watch state from a target .sift/watch.json.
// Returns an empty state if none exists yet.
func (m *Manager) LoadWatchState(overrideDir string) (*WatchState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &WatchState{}, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, watchStateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &WatchState{}, nil
		}
		return nil, fmt.Errorf("reading watch state: %w", err)
	}

	state := &WatchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing watch state: %w", err)
	}

	return state, nil
}

// SaveWatchState persists the watch state to a target .sift/watch.json.
func (m *Manager) SaveWatchState(state *WatchState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil watch state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return errors.New("no .sift directory found; run \"sift init\" or pass --config-dir")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling watch state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, watchStateFile), data, 0o600); err != nil {
		return fmt.Errorf("writing watch state: %w", err)
	}

	return nil
}

// ClearWatchState removes the watch state file. Returns nil if the file
// doesn't exist.
func (m *Manager) ClearWatchState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, watchStateFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing watch state: %w", err)
	}

	return nil
}
