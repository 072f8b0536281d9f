// Package storage persists decoded result events.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/sift/pkg/results"
)

// Record is one decoded event together with where it came from in its
// stream.
type Record struct {
	// ID is a UUID assigned at ingest.
	ID string

	// Stream names the source the event was decoded from (file name, URL or
	// the name given to the API).
	Stream string

	// SetIndex is the position of the event's result set within the stream.
	SetIndex int

	// Preview is true when the set was a preview of an unfinished search.
	Preview bool

	// Seq is the event's position within the stream, counted across sets.
	Seq int

	Event     results.Event
	CreatedAt time.Time
}

// Query filters records returned by Driver.List.
type Query struct {
	Stream string

	// Preview restricts results to preview (true) or final (false) sets
	// when non-nil.
	Preview *bool

	Limit  int
	Offset int
}

// StreamStats summarizes the records stored for one stream.
type StreamStats struct {
	Stream   string    `json:"stream"`
	Sets     int       `json:"sets"`
	Events   int       `json:"events"`
	Previews int       `json:"previews"`
	LastSeen time.Time `json:"last_seen"`
}

// Driver defines the interface for persisting and retrieving records in a
// storage backend.
type Driver interface {
	// Put stores a record. Storing a record whose ID already exists is a no-op.
	Put(ctx context.Context, record *Record) error

	// Get retrieves a record by its ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records matching q ordered by stream, then Seq.
	List(ctx context.Context, q Query) ([]*Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Streams summarizes every stored stream, ordered by name.
	Streams(ctx context.Context) ([]StreamStats, error)

	// Close closes the store and releases any resources.
	Close() error
}
