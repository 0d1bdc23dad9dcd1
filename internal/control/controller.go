package control

import (
	"context"
	"time"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	"codeberg.org/mutker/profilectl/internal/metrics"
	"codeberg.org/mutker/profilectl/internal/profiles"
	"codeberg.org/mutker/profilectl/internal/sensor"
	"codeberg.org/mutker/profilectl/internal/session"
	"codeberg.org/mutker/profilectl/internal/shutdown"
)

const (
	causeHot       = "threshold"
	causeSustain   = "debounce"
	causeTransient = "transient"
	causeCooled    = "cooled"
	causeBattery   = "battery"
	causeShutdown  = "shutdown"
	causeSensor    = "sensor"
)

// BatterySource reports whether the machine runs on battery.
type BatterySource interface {
	OnBattery(ctx context.Context) (bool, error)
}

// SessionSource reports the user's login state.
type SessionSource interface {
	State(ctx context.Context) (session.State, error)
}

// Deps are the collaborators of a Controller. Session and Recorder may be nil.
type Deps struct {
	Sensor   sensor.Source
	Switcher profiles.Switcher
	Battery  BatterySource
	Session  SessionSource
	Shutdown *shutdown.Coordinator
	Recorder metrics.Recorder
	Logger   logger.Logger
}

// Controller runs the hysteresis loop. It is not safe for concurrent use.
type Controller struct {
	params Params
	deps   Deps
	state  State
	log    logger.Logger
}

func New(params Params, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Shutdown == nil {
		deps.Shutdown = shutdown.New()
	}

	return &Controller{
		params: params,
		deps:   deps,
		state:  State{Phase: Inactive},
		log:    deps.Logger,
	}
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.state
}

// Run samples the sensor once per tick until shutdown is requested, the
// sensor becomes unreadable or a service call fails unrecoverably. The first
// two end with the elevated profile reverted and a nil error.
func (c *Controller) Run(ctx context.Context, tick <-chan time.Time) error {
	c.log.Info().
		Float64("threshold", c.params.Threshold).
		Dur("debounce", c.params.Debounce).
		Str("strategy", c.deps.Switcher.Name()).
		Str("sensor", c.deps.Sensor.Name()).
		Msg("Control loop started")

	var last float64
	for {
		reading, err := c.deps.Sensor.Value()
		if err != nil {
			c.log.Warn().Err(err).Str("sensor", c.deps.Sensor.Name()).Msg("Sensor unreadable, stopping")
			return c.stop(ctx, last, causeSensor)
		}
		last = reading

		var now time.Time
		select {
		case now = <-tick:
		case <-c.deps.Shutdown.Done():
			return c.stop(ctx, reading, causeShutdown)
		case <-ctx.Done():
			return c.stop(ctx, reading, causeShutdown)
		}

		if c.deps.Shutdown.Requested() {
			return c.stop(ctx, reading, causeShutdown)
		}

		if err := c.tick(ctx, reading, now); err != nil {
			return err
		}
	}
}

func (c *Controller) tick(ctx context.Context, reading float64, now time.Time) error {
	errFactory := errors.New()

	onBattery, err := c.deps.Battery.OnBattery(ctx)
	if err != nil {
		return errFactory.Wrap(ErrBatteryQuery, err)
	}

	c.log.Debug().
		Float64("temp", reading).
		Bool("on_battery", onBattery).
		Str("state", c.state.String()).
		Msg("Tick")

	var (
		next   State
		action Action
		cause  string
	)

	if onBattery {
		next, action = BatteryOverride(c.state)
		cause = causeBattery
	} else {
		next, action = Step(c.state, reading, now, c.params)
		cause = c.causeOf(next, reading)
	}

	return c.apply(ctx, next, action, reading, cause)
}

func (c *Controller) causeOf(next State, reading float64) string {
	switch {
	case next.Phase == Armed:
		return causeHot
	case next.Phase == Active:
		return causeSustain
	case c.state.Phase == Armed:
		return causeTransient
	case c.params.Hot(reading):
		return causeHot
	default:
		return causeCooled
	}
}

// apply performs action and commits next. A failed activation leaves the
// state untouched. A failed deactivation commits next when tolerated, and
// also when it was a hold release, so a lost hold cannot pin the state.
func (c *Controller) apply(ctx context.Context, next State, action Action, reading float64, cause string) error {
	errFactory := errors.New()
	tolerated := false

	switch action {
	case ActionActivate:
		hold, err := c.deps.Switcher.Activate(ctx)
		if err != nil {
			return errFactory.Wrap(ErrActivateFailed, err)
		}
		next.Hold = hold

	case ActionDeactivate:
		if err := c.deps.Switcher.Deactivate(ctx, c.state.Hold); err != nil {
			ok, qerr := c.tolerate(ctx, err)
			if !ok && errors.HasCode(err, profiles.ErrReleaseFailed) {
				c.commit(next, reading, cause, false)
			}
			if qerr != nil {
				return qerr
			}
			if !ok {
				return errFactory.Wrap(ErrDeactivateFailed, err)
			}
			tolerated = true
		}
	}

	c.commit(next, reading, cause, tolerated)

	return nil
}

// tolerate decides whether a failed deactivation can be ignored: only when
// the user session is active.
func (c *Controller) tolerate(ctx context.Context, cause error) (bool, error) {
	if c.deps.Session == nil {
		return false, nil
	}

	st, err := c.deps.Session.State(ctx)
	if err != nil {
		return false, errors.New().Wrap(ErrSessionQuery, err)
	}

	if st != session.Active {
		return false, nil
	}

	c.log.Warn().
		Err(cause).
		Str("session", st.String()).
		Msg("Failed to revert profile, ignoring while session is active")

	return true, nil
}

func (c *Controller) commit(next State, reading float64, cause string, tolerated bool) {
	prev := c.state
	c.state = next

	if prev.Phase == next.Phase {
		return
	}

	ev := c.log.Info().
		Float64("temp", reading).
		Str("from", prev.Phase.String()).
		Str("to", next.Phase.String()).
		Str("cause", cause)
	if next.Phase == Armed {
		ev.Time("deadline", next.Deadline)
	}
	if tolerated {
		ev.Bool("tolerated", true)
	}
	ev.Msg("State changed")

	if c.deps.Recorder == nil {
		return
	}

	err := c.deps.Recorder.Record(context.Background(), &metrics.Transition{
		Timestamp: time.Now(),
		Reading:   reading,
		From:      prev.Phase.String(),
		To:        next.Phase.String(),
		Cause:     cause,
		Strategy:  c.deps.Switcher.Name(),
		Tolerated: tolerated,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to record transition")
	}
}

// stop reverts the elevated profile, if applied, and ends the loop.
func (c *Controller) stop(ctx context.Context, reading float64, cause string) error {
	ctx = context.WithoutCancel(ctx)

	if c.deps.Shutdown.Requested() {
		c.log.Info().Str("reason", c.deps.Shutdown.Reason()).Msg("Shutdown requested")
	}

	if c.state.Phase == Active {
		if err := c.apply(ctx, State{Phase: Inactive}, ActionDeactivate, reading, cause); err != nil {
			return err
		}
	} else {
		c.commit(State{Phase: Inactive}, reading, cause, false)
	}

	c.log.Info().Msg("Control loop stopped")

	return nil
}
