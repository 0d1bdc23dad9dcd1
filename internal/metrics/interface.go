package metrics

import (
	"context"
	"time"
)

// Recorder stores controller transitions. The disabled recorder accepts and
// drops everything.
type Recorder interface {
	Record(ctx context.Context, t *Transition) error
	Close() error
	Enabled() bool
}

// Repository is the storage behind an enabled Recorder.
type Repository interface {
	Insert(t *Transition) error
	// Recent returns up to limit transitions, newest first.
	Recent(limit int) ([]Transition, error)
	Close() error
}

// Transition is one committed change of controller phase.
type Transition struct {
	Timestamp time.Time
	Reading   float64
	From      string
	To        string
	Cause     string
	Strategy  string
	// Tolerated is set when the profile call for this edge failed and the
	// failure was ignored because the user session was active.
	Tolerated bool
}
