package sensor

import (
	"sync"

	"codeberg.org/mutker/profilectl/internal/errors"
)

// FakeSource replays a fixed series of readings, then fails with
// ErrReadFailed.
type FakeSource struct {
	mu       sync.Mutex
	readings []float64
	next     int
}

func NewFakeSource(readings ...float64) *FakeSource {
	return &FakeSource{readings: readings}
}

func (s *FakeSource) Value() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.readings) {
		return 0, errors.New().WithMessage(ErrReadFailed, "fake source exhausted")
	}
	v := s.readings[s.next]
	s.next++

	return v, nil
}

func (*FakeSource) Name() string {
	return "fake/temp1/temp1_input"
}

// Reads returns how many readings have been consumed.
func (s *FakeSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.next
}

// FakeFinder serves a fixed set of sub-features. Find returns a FakeSource
// replaying the matched feature's value once.
type FakeFinder struct {
	Features []SubFeature
	Closed   bool
}

func (f *FakeFinder) Find(m Matcher) (Source, error) {
	for _, sf := range f.Features {
		if m.Matches([]string{sf.Chip}, sf) && sf.Readable {
			return NewFakeSource(sf.Value), nil
		}
	}

	return nil, errors.New().WithData(ErrSubFeatureNotFound, m.String())
}

func (f *FakeFinder) List() ([]SubFeature, error) {
	return f.Features, nil
}

func (f *FakeFinder) Close() error {
	f.Closed = true
	return nil
}
