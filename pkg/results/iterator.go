package results

import "iter"

// EventIterator is a single-pass cursor over events.
//
//	it := reader.Events()
//	for it.Next() {
//	    ev := it.Value()
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
type EventIterator struct {
	next  func() (Event, bool, error)
	value Event
	err   error
	done  bool
}

func newEventIterator(next func() (Event, bool, error)) *EventIterator {
	return &EventIterator{next: next}
}

func failedIterator(err error) *EventIterator {
	return &EventIterator{err: err, done: true}
}

// Next advances to the next event. It returns false at the end of the
// sequence or on error; check Err afterwards.
func (it *EventIterator) Next() bool {
	if it.done {
		return false
	}

	ev, ok, err := it.next()
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}

	it.value = ev
	return true
}

// Value returns the event produced by the last successful Next.
func (it *EventIterator) Value() Event {
	return it.value
}

// Err returns the error that stopped iteration, if any.
func (it *EventIterator) Err() error {
	return it.err
}

// Close stops the iterator. The owning Reader stays open; closing the
// Reader releases the underlying stream.
func (it *EventIterator) Close() error {
	it.done = true
	return nil
}

// Seq adapts the iterator to range-over-func. Iteration stops after the
// first error is yielded.
func (it *EventIterator) Seq() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer it.Close()

		for it.Next() {
			if !yield(it.Value(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Event{}, err)
		}
	}
}

// Collect drains it into a slice.
func Collect(it *EventIterator) ([]Event, error) {
	defer it.Close()

	var events []Event
	for it.Next() {
		events = append(events, it.Value())
	}
	return events, it.Err()
}
