package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/sift/pkg/storage"
	"github.com/papercomputeco/sift/pkg/storage/inmemory"
)

// ErrMockPut is returned by MockDriver.Put when FailPut is set.
var ErrMockPut = errors.New("mock put failure")

// MockDriver wraps an in-memory driver and can be told to fail writes.
type MockDriver struct {
	*inmemory.Driver

	mu      sync.Mutex
	FailPut bool
	puts    int
}

func NewMockDriver() *MockDriver {
	return &MockDriver{Driver: inmemory.NewDriver()}
}

func (m *MockDriver) Put(ctx context.Context, r *storage.Record) error {
	m.mu.Lock()
	m.puts++
	fail := m.FailPut
	m.mu.Unlock()

	if fail {
		return ErrMockPut
	}
	return m.Driver.Put(ctx, r)
}

// Puts returns how many times Put was called.
func (m *MockDriver) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
