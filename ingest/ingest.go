// Package ingest decodes result streams into numbered records and hands them
// to a worker pool for storage and publishing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/sift/ingest/worker"
	"github.com/papercomputeco/sift/pkg/compress"
	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

// Source is one stream to ingest.
type Source struct {
	// Name identifies the stream in stored records.
	Name string

	Format results.Format

	// Export marks the body as an export stream.
	Export bool

	// AllSets keeps every result set, previews included. Otherwise the
	// reader's default policy applies: leading previews of export streams
	// are skipped and consecutive final sets are concatenated.
	AllSets bool

	// Limit stops the ingest after this many events when positive.
	Limit int

	// Body is closed when ingest finishes if it implements io.Closer.
	Body io.Reader
}

// Summary reports what an ingest produced.
type Summary struct {
	Stream   string `json:"stream"`
	Sets     int    `json:"sets"`
	Events   int    `json:"events"`
	Previews int    `json:"previews"`
	Dropped  int    `json:"dropped"`

	// Truncated is set when Source.Limit cut the stream short.
	Truncated bool `json:"truncated,omitempty"`
}

// errLimitReached unwinds the read loops once Source.Limit events were emitted.
var errLimitReached = errors.New("event limit reached")

// VisitFunc is called for every decoded record in stream order, before the
// record is queued. Returning an error stops the ingest.
type VisitFunc func(rec *storage.Record) error

// Config configures an Ingester.
type Config struct {
	// Pool receives the records. When nil, records are only visited.
	Pool *worker.Pool

	// DropWhenFull drops records the pool has no room for instead of
	// waiting. Dropped records are counted in the Summary.
	DropWhenFull bool

	Logger *slog.Logger
}

// Ingester turns result streams into records.
type Ingester struct {
	pool         *worker.Pool
	dropWhenFull bool
	logger       *slog.Logger
}

// New creates an Ingester.
func New(c Config) *Ingester {
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Ingester{
		pool:         c.Pool,
		dropWhenFull: c.DropWhenFull,
		logger:       l,
	}
}

// Ingest decodes src and queues one record per event.
func (i *Ingester) Ingest(ctx context.Context, src Source) (Summary, error) {
	return i.IngestFunc(ctx, src, nil)
}

// IngestFunc is Ingest with a visitor called for each record.
func (i *Ingester) IngestFunc(ctx context.Context, src Source, visit VisitFunc) (Summary, error) {
	if src.Body == nil {
		return Summary{}, errors.New("ingest source has no body")
	}
	src.Export = src.Export || results.IsExport(src.Body)

	body, codec, err := compress.NewReader(src.Body)
	if err != nil {
		return Summary{Stream: src.Name}, fmt.Errorf("open %s: %w", src.Name, err)
	}
	src.Body = body

	run := &run{
		ingester: i,
		src:      src,
		visit:    visit,
		summary:  Summary{Stream: src.Name},
		lastSet:  -1,
		logger:   i.logger.With("stream", src.Name, "format", src.Format.String()),
	}

	if codec != compress.None {
		run.logger.Debug("decompressing stream", "codec", codec.String())
	}

	opts := []results.Option{results.WithLogger(run.logger)}
	if src.Export {
		opts = append(opts, results.WithExport(true))
	}

	if src.AllSets {
		err = run.allSets(ctx, opts)
	} else {
		err = run.defaultPolicy(ctx, opts)
	}
	if errors.Is(err, errLimitReached) {
		run.summary.Truncated = true
		err = nil
	}

	run.logger.Info("stream ingested",
		"sets", run.summary.Sets,
		"events", run.summary.Events,
		"dropped", run.summary.Dropped,
	)

	return run.summary, err
}

type run struct {
	ingester *Ingester
	src      Source
	visit    VisitFunc
	summary  Summary
	lastSet  int
	logger   *slog.Logger
}

func (r *run) allSets(ctx context.Context, opts []results.Option) error {
	m, err := results.NewMultiReader(r.src.Format, r.src.Body, opts...)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.src.Name, err)
	}
	defer m.Close()

	for set, err := range m.All() {
		if err != nil {
			return fmt.Errorf("read %s: %w", r.src.Name, err)
		}

		preview := previewOf(set.IsPreview())
		r.countSet(set.Index(), preview)

		for ev, err := range set.Events().Seq() {
			if err != nil {
				return fmt.Errorf("read %s set %d: %w", r.src.Name, set.Index(), err)
			}
			if err := r.emit(ctx, set.Index(), preview, ev); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *run) defaultPolicy(ctx context.Context, opts []results.Option) error {
	reader, err := results.NewReader(r.src.Format, r.src.Body, opts...)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.src.Name, err)
	}
	defer reader.Close()

	for ev, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("read %s: %w", r.src.Name, err)
		}

		set := reader.SetIndex()
		preview := previewOf(reader.IsPreview())
		if set != r.lastSet {
			r.countSet(set, preview)
		}

		if err := r.emit(ctx, set, preview, ev); err != nil {
			return err
		}
	}

	return nil
}

func (r *run) countSet(index int, preview bool) {
	r.lastSet = index
	r.summary.Sets++
	if preview {
		r.summary.Previews++
	}
}

func (r *run) emit(ctx context.Context, set int, preview bool, ev results.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.src.Limit > 0 && r.summary.Events >= r.src.Limit {
		return errLimitReached
	}

	rec := &storage.Record{
		ID:        uuid.NewString(),
		Stream:    r.src.Name,
		SetIndex:  set,
		Preview:   preview,
		Seq:       r.summary.Events,
		Event:     ev,
		CreatedAt: time.Now().UTC(),
	}
	r.summary.Events++

	if r.visit != nil {
		if err := r.visit(rec); err != nil {
			return err
		}
	}

	pool := r.ingester.pool
	if pool == nil {
		return nil
	}

	job := worker.Job{Record: rec, Format: r.src.Format, Export: r.src.Export}
	if r.ingester.dropWhenFull {
		if !pool.Enqueue(job) {
			r.summary.Dropped++
		}
		return nil
	}

	return pool.Submit(ctx, job)
}

// previewOf treats an unknown preview flag as final.
func previewOf(preview bool, err error) bool {
	return err == nil && preview
}
