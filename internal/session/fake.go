package session

import (
	"context"
	"sync"
)

// FakeSource always reports Current, or Err when set.
type FakeSource struct {
	mu      sync.Mutex
	Current State
	Err     error
	calls   int
}

func (f *FakeSource) State(context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.Err != nil {
		return Offline, f.Err
	}

	return f.Current, nil
}

func (f *FakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}
