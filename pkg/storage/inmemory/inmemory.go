// Package inmemory is a storage.Driver kept entirely in process memory.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/sift/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	// records is keyed by record ID
	records map[string]*storage.Record
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.Record),
	}
}

// Put stores a record. An existing ID is left untouched.
func (s *Driver) Put(_ context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return nil
	}

	c := *record
	s.records[record.ID] = &c
	return nil
}

// Get retrieves a record by its ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	c := *record
	return &c, nil
}

// List returns the records matching q.
func (s *Driver) List(_ context.Context, q storage.Query) ([]*storage.Record, error) {
	s.mu.RLock()
	matched := make([]*storage.Record, 0, len(s.records))
	for _, r := range s.records {
		if q.Stream != "" && r.Stream != q.Stream {
			continue
		}
		if q.Preview != nil && r.Preview != *q.Preview {
			continue
		}
		c := *r
		matched = append(matched, &c)
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *storage.Record) int {
		return cmp.Or(cmp.Compare(a.Stream, b.Stream), cmp.Compare(a.Seq, b.Seq))
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*storage.Record{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	return matched, nil
}

// Count returns the number of stored records.
func (s *Driver) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records), nil
}

// Streams summarizes stored records per stream.
func (s *Driver) Streams(_ context.Context) ([]storage.StreamStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStream := make(map[string]*storage.StreamStats)
	sets := make(map[string]map[int]struct{})

	for _, r := range s.records {
		st, ok := byStream[r.Stream]
		if !ok {
			st = &storage.StreamStats{Stream: r.Stream}
			byStream[r.Stream] = st
			sets[r.Stream] = make(map[int]struct{})
		}

		st.Events++
		if r.Preview {
			st.Previews++
		}
		if r.CreatedAt.After(st.LastSeen) {
			st.LastSeen = r.CreatedAt
		}
		sets[r.Stream][r.SetIndex] = struct{}{}
	}

	stats := make([]storage.StreamStats, 0, len(byStream))
	for name, st := range byStream {
		st.Sets = len(sets[name])
		stats = append(stats, *st)
	}
	slices.SortFunc(stats, func(a, b storage.StreamStats) int {
		return cmp.Compare(a.Stream, b.Stream)
	})

	return stats, nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}
