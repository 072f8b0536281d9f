package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/sift/pkg/eventstream"
)

// ErrMockPublish is returned by MockPublisher when FailPublish is set.
var ErrMockPublish = errors.New("mock publish failure")

// MockPublisher records published events.
type MockPublisher struct {
	mu          sync.Mutex
	events      []*eventstream.ResultDecodedEvent
	FailPublish bool
	Closed      bool
}

func (p *MockPublisher) PublishResult(_ context.Context, event *eventstream.ResultDecodedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailPublish {
		return ErrMockPublish
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of what was published so far.
func (p *MockPublisher) Events() []*eventstream.ResultDecodedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.ResultDecodedEvent(nil), p.events...)
}

func (p *MockPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}
