package control

import "time"

// Action is the profile call a transition requires.
type Action int

const (
	ActionNone Action = iota
	ActionActivate
	ActionDeactivate
)

func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionDeactivate:
		return "deactivate"
	default:
		return "none"
	}
}

// Params are the hysteresis settings.
type Params struct {
	Threshold float64
	Debounce  time.Duration
}

// Hot reports whether reading is strictly above the threshold.
func (p Params) Hot(reading float64) bool {
	return reading > p.Threshold
}

// Step applies one sample to s. The returned Active state carries no hold;
// the caller fills it in once the activation succeeds.
func Step(s State, reading float64, now time.Time, p Params) (State, Action) {
	hot := p.Hot(reading)

	switch s.Phase {
	case Inactive:
		if hot {
			return State{Phase: Armed, Deadline: now.Add(p.Debounce)}, ActionNone
		}
		return s, ActionNone

	case Armed:
		if now.Before(s.Deadline) {
			return s, ActionNone
		}
		if hot {
			return State{Phase: Active}, ActionActivate
		}
		return State{Phase: Inactive}, ActionNone

	case Active:
		if !hot {
			return State{Phase: Inactive}, ActionDeactivate
		}
		return s, ActionNone
	}

	return s, ActionNone
}

// BatteryOverride forces Inactive, dropping any pending deadline.
func BatteryOverride(s State) (State, Action) {
	if s.Phase == Active {
		return State{Phase: Inactive}, ActionDeactivate
	}

	return State{Phase: Inactive}, ActionNone
}
