// Package nop provides the publisher used when no event stream is
// configured. Events are checked and counted, then dropped.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/sift/pkg/eventstream"
)

type Publisher struct {
	dropped atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishResult(_ context.Context, event *eventstream.ResultDecodedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.dropped.Add(1)
	return nil
}

// Dropped returns how many events were accepted and discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}
