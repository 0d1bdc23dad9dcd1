package power

import (
	"context"
	"sync"
)

// FakeSource answers OnBattery from a script, one entry per call. The last
// entry repeats. Err, when set, is returned from call number ErrAt (1-based).
type FakeSource struct {
	mu     sync.Mutex
	Script []bool
	Err    error
	ErrAt  int
	calls  int
}

func (f *FakeSource) OnBattery(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.Err != nil && f.calls >= f.ErrAt {
		return false, f.Err
	}
	if len(f.Script) == 0 {
		return false, nil
	}

	i := f.calls - 1
	if i >= len(f.Script) {
		i = len(f.Script) - 1
	}

	return f.Script[i], nil
}

func (f *FakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}
