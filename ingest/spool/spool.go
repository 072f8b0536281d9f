// Package spool ingests result files dropped into a directory. Files are
// picked up once they stop changing and remembered in a WatchState so a
// restarted watcher skips what it already ingested.
package spool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/pkg/dotdir"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
)

const defaultDebounce = 500 * time.Millisecond

// StateStore loads and saves the watch state.
type StateStore interface {
	Load() (*dotdir.WatchState, error)
	Save(state *dotdir.WatchState) error
}

// DirState keeps the watch state in a .sift directory.
type DirState struct {
	Manager *dotdir.Manager

	// ConfigDir overrides .sift directory resolution when set.
	ConfigDir string
}

func (d DirState) Load() (*dotdir.WatchState, error) {
	return d.Manager.LoadWatchState(d.ConfigDir)
}

func (d DirState) Save(state *dotdir.WatchState) error {
	return d.Manager.SaveWatchState(state, d.ConfigDir)
}

// Config configures a Watcher.
type Config struct {
	// Dir is the spool directory.
	Dir string

	Ingester *ingest.Ingester

	// Format is used for files whose extension does not name one.
	Format  results.Format
	Export  bool
	AllSets bool

	// State persists ingested files. When nil the state lives in memory.
	State StateStore

	// Debounce is how long a file must stay unchanged before it is
	// ingested. Defaults to 500ms.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher ingests the files of one spool directory.
type Watcher struct {
	dir      string
	config   Config
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	state  *dotdir.WatchState
	timers map[string]*time.Timer
}

// New creates a Watcher and loads its state.
func New(c Config) (*Watcher, error) {
	if c.Ingester == nil {
		return nil, errors.New("spool watcher needs an ingester")
	}

	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving spool dir: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spool dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spool dir %s is not a directory", dir)
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	debounce := c.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	state := &dotdir.WatchState{}
	if c.State != nil {
		state, err = c.State.Load()
		if err != nil {
			return nil, err
		}
	}

	return &Watcher{
		dir:      dir,
		config:   c,
		logger:   l.With("spool", dir),
		debounce: debounce,
		state:    state,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Scan ingests every file in the spool directory not ingested before and
// returns how many files it ingested. Files that fail to decode are logged
// and left for a later attempt.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("reading spool dir: %w", err)
	}

	ingested := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		if entry.IsDir() || !candidate(entry.Name()) {
			continue
		}

		ok, err := w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
		if err != nil {
			return ingested, err
		}
		if ok {
			ingested++
		}
	}

	return ingested, nil
}

// Run scans the directory, then ingests new or rewritten files until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating spool watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching spool dir: %w", err)
	}

	if _, err := w.Scan(ctx); err != nil {
		return ignoreCanceled(err)
	}

	ready := make(chan string, 64)
	done := make(chan struct{})
	defer close(done)
	defer w.stopTimers()

	w.logger.Info("watching spool directory")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !candidate(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(ctx, event.Name, ready, done)

		case path := <-ready:
			if _, err := w.ingestFile(ctx, path); err != nil {
				return ignoreCanceled(err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("spool watcher error: %w", err)
		}
	}
}

// schedule (re)starts the debounce timer for path. done is closed when Run
// returns.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		deliver(ctx, path, ready, done)
	})
}

// deliver hands path to Run. It gives up once ctx is done or Run has
// returned.
func deliver(ctx context.Context, path string, ready chan<- string, done <-chan struct{}) bool {
	select {
	case ready <- path:
		return true
	case <-ctx.Done():
	case <-done:
	}
	return false
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// ingestFile ingests path unless the state already holds it at its current
// size. It reports whether the file was ingested. Only context errors are
// returned; decode failures are logged.
func (w *Watcher) ingestFile(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return false, nil
	}

	w.mu.Lock()
	seen := w.state.Seen(path, info.Size())
	w.mu.Unlock()
	if seen {
		w.logger.Debug("skipping ingested spool file", "file", path)
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		w.logger.Warn("could not open spool file", "file", path, "error", err)
		return false, nil
	}

	summary, err := w.config.Ingester.Ingest(ctx, ingest.Source{
		Name:    filepath.Base(path),
		Format:  results.DetectFormat(path, w.config.Format),
		Export:  w.config.Export,
		AllSets: w.config.AllSets,
		Body:    f,
	})
	_ = f.Close()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		w.logger.Warn("could not ingest spool file", "file", path, "error", err)
		return false, nil
	}

	w.mu.Lock()
	w.state.Record(path, dotdir.WatchedFile{
		Stream:     summary.Stream,
		Events:     summary.Events,
		Size:       info.Size(),
		IngestedAt: time.Now().UTC(),
	})
	w.mu.Unlock()

	if err := w.saveState(); err != nil {
		w.logger.Warn("could not save watch state", "error", err)
	}

	w.logger.Info("ingested spool file",
		"file", filepath.Base(path),
		"sets", summary.Sets,
		"events", summary.Events,
	)
	return true, nil
}

func (w *Watcher) saveState() error {
	if w.config.State == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config.State.Save(w.state)
}

// Ingested returns the paths recorded in the state, sorted.
func (w *Watcher) Ingested() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.state.Files))
	for p := range w.state.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// candidate filters out hidden and partially written files.
func candidate(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".swp":
		return false
	}
	return true
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
