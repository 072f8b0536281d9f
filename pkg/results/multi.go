package results

import (
	"io"
	"iter"
)

// MultiReader exposes every result set of a stream separately, preview sets
// included.
//
//	m, err := results.NewMultiReader(results.FormatJSON, body)
//	...
//	for m.Next() {
//	    set := m.Value()
//	    preview, _ := set.IsPreview()
//	    events, err := results.Collect(set.Events())
//	}
type MultiReader struct {
	reader *Reader
	gen    int
	set    *ResultSet
	err    error
	done   bool
}

// NewMultiReader returns a MultiReader over r. Nothing is read until the
// first call to Next.
func NewMultiReader(format Format, r io.Reader, opts ...Option) (*MultiReader, error) {
	reader, err := NewReader(format, r, append(opts, WithMultiSet())...)
	if err != nil {
		return nil, err
	}
	return &MultiReader{reader: reader}, nil
}

// Next moves to the next result set. The previous ResultSet becomes stale.
func (m *MultiReader) Next() bool {
	if m.done {
		return false
	}

	m.gen++
	m.set = nil

	ok, err := m.reader.AdvanceToNextSet()
	if err != nil {
		m.err = err
		m.done = true
		return false
	}
	if !ok {
		m.done = true
		return false
	}

	m.set = &ResultSet{m: m, gen: m.gen, index: m.reader.SetIndex()}
	return true
}

// Value returns the current result set.
func (m *MultiReader) Value() *ResultSet {
	return m.set
}

// Err returns the error that stopped iteration, if any.
func (m *MultiReader) Err() error {
	return m.err
}

// All adapts the reader to range-over-func.
func (m *MultiReader) All() iter.Seq2[*ResultSet, error] {
	return func(yield func(*ResultSet, error) bool) {
		for m.Next() {
			if !yield(m.Value(), nil) {
				return
			}
		}
		if err := m.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Close releases the underlying reader and its source.
func (m *MultiReader) Close() error {
	m.done = true
	m.gen++
	return m.reader.Close()
}

// ResultSet is one set of a MultiReader. It is valid until the next call
// to MultiReader.Next; after that its methods fail with ErrStaleSet.
type ResultSet struct {
	m     *MultiReader
	gen   int
	index int
}

// Index returns the set's position in the stream.
func (s *ResultSet) Index() int {
	return s.index
}

// Fields returns the set's field names.
func (s *ResultSet) Fields() ([]string, error) {
	if s.stale() {
		return nil, ErrStaleSet
	}
	return s.m.reader.Fields()
}

// IsPreview reports whether the set previews an unfinished search.
func (s *ResultSet) IsPreview() (bool, error) {
	if s.stale() {
		return false, ErrStaleSet
	}
	return s.m.reader.IsPreview()
}

// Events returns the set's unread events. Once the set is stale the
// iterator ends and its Err reports ErrStaleSet, including for iterators
// taken before the MultiReader moved on.
func (s *ResultSet) Events() *EventIterator {
	if s.stale() {
		return failedIterator(ErrStaleSet)
	}

	return newEventIterator(func() (Event, bool, error) {
		if s.stale() {
			return Event{}, false, ErrStaleSet
		}
		return s.m.reader.nextInCurrentSet()
	})
}

func (s *ResultSet) stale() bool {
	return s.gen != s.m.gen
}
