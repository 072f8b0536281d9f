// Package worker persists decoded records and announces them on an event
// stream from a fixed set of goroutines, so a slow database or broker never
// stalls the reader feeding it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/sift/pkg/eventstream"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Job carries one record plus the provenance of its stream, which ends up in
// the published event.
type Job struct {
	Record *storage.Record
	Format results.Format
	Export bool
}

type Config struct {
	Driver storage.Driver

	// Publisher is optional. Records are only stored without it.
	Publisher eventstream.Publisher

	// NumWorkers defaults to 3 and QueueSize to 256.
	NumWorkers uint
	QueueSize  uint

	Logger *slog.Logger
}

// Stats counts job outcomes since the pool started.
type Stats struct {
	Persisted uint64 `json:"persisted"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

type Pool struct {
	config *Config
	logger *slog.Logger

	queue   chan Job
	running sync.WaitGroup

	// mu is held for reading while sending on queue and for writing while
	// closing it.
	mu     sync.RWMutex
	closed bool

	persisted atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPool validates c, fills in its defaults and starts the workers.
func NewPool(c *Config) (*Pool, error) {
	switch {
	case c.Driver == nil:
		return nil, errors.New("worker pool needs a storage driver")
	case c.NumWorkers > uint(math.MaxInt):
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	cfg := *c
	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = defaultNumWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultJobQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	p := &Pool{
		config: &cfg,
		logger: cfg.Logger,
		queue:  make(chan Job, cfg.QueueSize),
	}

	p.running.Add(int(cfg.NumWorkers))
	for id := range cfg.NumWorkers {
		go p.run(id)
	}
	return p, nil
}

// Enqueue queues job without blocking. It reports false, dropping the job,
// when the queue is full or the pool is closed.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- job:
		return true
	default:
		p.logger.Error("ingest queue full, dropping record",
			"stream", job.Record.Stream,
			"seq", job.Record.Seq,
		)
		return false
	}
}

// Submit queues job, waiting for room until ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stats() Stats {
	return Stats{
		Persisted: p.persisted.Load(),
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close stops accepting jobs and returns once every queued job is done.
// Later calls return immediately.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.running.Wait()
}

func (p *Pool) run(id uint) {
	defer p.running.Done()

	log := p.logger.With("worker_id", id)
	log.Debug("ingest worker started")
	for job := range p.queue {
		p.handle(log, job)
	}
	log.Debug("ingest worker stopped")
}

// handle stores the record, then publishes it. A record that failed to
// store is not published; a failed publish leaves the record stored.
func (p *Pool) handle(log *slog.Logger, job Job) {
	ctx := context.Background()
	rec := job.Record
	log = log.With("stream", rec.Stream, "id", rec.ID)

	if err := p.config.Driver.Put(ctx, rec); err != nil {
		p.failed.Add(1)
		log.Error("storing record failed", "error", err)
		return
	}
	p.persisted.Add(1)
	log.Debug("record stored", "set", rec.SetIndex, "seq", rec.Seq)

	if p.config.Publisher == nil {
		return
	}

	if err := p.config.Publisher.PublishResult(ctx, eventstream.NewResultDecodedEvent(rec, job.Format, job.Export)); err != nil {
		log.Warn("publishing result event failed", "error", err)
		return
	}
	p.published.Add(1)
}
