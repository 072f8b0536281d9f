package testutils

import (
	"time"

	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

// NewTestEvent builds an event from alternating name/value pairs.
func NewTestEvent(pairs ...string) results.Event {
	fields := make([]results.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, results.Field{Name: pairs[i], Value: results.NewValue(pairs[i+1])})
	}
	return results.NewEvent(fields...)
}

// NewTestRecord creates a record in stream at position seq of set 0.
func NewTestRecord(id, stream string, seq int, ev results.Event) *storage.Record {
	return &storage.Record{
		ID:        id,
		Stream:    stream,
		Seq:       seq,
		Event:     ev,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(seq) * time.Second),
	}
}
