// Package control holds the temperature hysteresis state machine and the loop
// that drives it against the sensor, battery and profile services.
package control

import (
	"time"

	"codeberg.org/mutker/profilectl/internal/profiles"
)

// Phase is the controller's position in the hysteresis cycle.
type Phase int

const (
	Inactive Phase = iota
	// Armed means the reading has crossed the threshold and the elevated
	// profile will be applied at Deadline if it is still hot.
	Armed
	// Active means the elevated profile is applied.
	Active
)

func (p Phase) String() string {
	switch p {
	case Inactive:
		return "inactive"
	case Armed:
		return "armed"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// State is the full controller state. Deadline is only meaningful when Armed
// and Hold only when Active.
type State struct {
	Phase    Phase
	Deadline time.Time
	Hold     profiles.Hold
}

func (s State) String() string {
	return s.Phase.String()
}
