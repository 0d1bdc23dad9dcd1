package control_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/profilectl/internal/control"
	"github.com/stretchr/testify/assert"
)

var (
	t0     = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	params = control.Params{Threshold: 65.0, Debounce: 5 * time.Second}
)

func TestStepTable(t *testing.T) {
	armed := control.State{Phase: control.Armed, Deadline: t0.Add(5 * time.Second)}
	active := control.State{Phase: control.Active}

	tests := []struct {
		name       string
		state      control.State
		reading    float64
		now        time.Time
		wantPhase  control.Phase
		wantAction control.Action
	}{
		{"inactive hot arms", control.State{}, 70, t0, control.Armed, control.ActionNone},
		{"inactive at threshold stays", control.State{}, 65, t0, control.Inactive, control.ActionNone},
		{"inactive cool stays", control.State{}, 40, t0, control.Inactive, control.ActionNone},
		{"armed before deadline hot", armed, 70, t0.Add(4 * time.Second), control.Armed, control.ActionNone},
		{"armed before deadline cool", armed, 60, t0.Add(4 * time.Second), control.Armed, control.ActionNone},
		{"armed at deadline hot activates", armed, 70, t0.Add(5 * time.Second), control.Active, control.ActionActivate},
		{"armed past deadline cool disarms", armed, 60, t0.Add(6 * time.Second), control.Inactive, control.ActionNone},
		{"active cool deactivates", active, 65, t0, control.Inactive, control.ActionDeactivate},
		{"active hot stays", active, 90, t0, control.Active, control.ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, action := control.Step(tt.state, tt.reading, tt.now, params)
			assert.Equal(t, tt.wantPhase, next.Phase)
			assert.Equal(t, tt.wantAction, action)
		})
	}
}

func TestStepDeadlineNeverExtended(t *testing.T) {
	s, _ := control.Step(control.State{}, 70, t0, params)
	deadline := s.Deadline
	assert.Equal(t, t0.Add(5*time.Second), deadline)

	for i := 1; i < 5; i++ {
		s, _ = control.Step(s, 80, t0.Add(time.Duration(i)*time.Second), params)
		assert.Equal(t, deadline, s.Deadline)
	}
}

func TestBatteryOverride(t *testing.T) {
	next, action := control.BatteryOverride(control.State{Phase: control.Active})
	assert.Equal(t, control.Inactive, next.Phase)
	assert.Equal(t, control.ActionDeactivate, action)

	next, action = control.BatteryOverride(control.State{Phase: control.Armed, Deadline: t0})
	assert.Equal(t, control.Inactive, next.Phase)
	assert.True(t, next.Deadline.IsZero())
	assert.Equal(t, control.ActionNone, action)

	_, action = control.BatteryOverride(control.State{})
	assert.Equal(t, control.ActionNone, action)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "inactive", control.Inactive.String())
	assert.Equal(t, "armed", control.Armed.String())
	assert.Equal(t, "active", control.Active.String())
	assert.Equal(t, "activate", control.ActionActivate.String())
}
