package profiles

import (
	"context"
	"sync"

	"codeberg.org/mutker/profilectl/internal/errors"
)

// FakeService records requests in memory. Setting one of the Err fields makes
// the matching call fail with it.
type FakeService struct {
	mu sync.Mutex

	Active    Profile
	Available []Profile

	SetErr     error
	HoldErr    error
	ReleaseErr error

	Sets     []Profile
	Holds    []Profile
	Releases []Cookie

	nextCookie Cookie
	held       map[Cookie]Profile
	before     Profile
}

func NewFakeService() *FakeService {
	return &FakeService{
		Active:    Balanced,
		Available: []Profile{PowerSaver, Balanced, Performance},
		held:      make(map[Cookie]Profile),
	}
}

func (f *FakeService) SetActiveProfile(_ context.Context, p Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Sets = append(f.Sets, p)
	if f.SetErr != nil {
		return f.SetErr
	}
	f.Active = p

	return nil
}

func (f *FakeService) ActiveProfile(context.Context) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Active, nil
}

func (f *FakeService) Profiles(context.Context) ([]Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Available, nil
}

func (f *FakeService) HoldProfile(_ context.Context, p Profile, _, _ string) (Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Holds = append(f.Holds, p)
	if f.HoldErr != nil {
		return 0, f.HoldErr
	}

	if len(f.held) == 0 {
		f.before = f.Active
	}
	f.nextCookie++
	f.held[f.nextCookie] = p
	f.Active = p

	return f.nextCookie, nil
}

func (f *FakeService) ReleaseProfile(_ context.Context, c Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Releases = append(f.Releases, c)
	if f.ReleaseErr != nil {
		return f.ReleaseErr
	}

	if _, ok := f.held[c]; !ok {
		return errors.New().WithData(ErrReleaseFailed, c)
	}
	delete(f.held, c)
	if len(f.held) == 0 {
		f.Active = f.before
	}

	return nil
}

// Calls returns the total number of profile-changing requests seen.
func (f *FakeService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.Sets) + len(f.Holds) + len(f.Releases)
}
