// Package session reports the login state of the user running the daemon.
package session

import (
	"context"

	"codeberg.org/mutker/profilectl/internal/bus"
	"codeberg.org/mutker/profilectl/internal/errors"
	"github.com/godbus/dbus/v5"
)

const (
	BusName    = "org.freedesktop.login1"
	ObjectPath = dbus.ObjectPath("/org/freedesktop/login1/user/self")
	Interface  = "org.freedesktop.login1.User"

	ErrQueryFailed  = errors.ErrorCode("session_query_failed")
	ErrUnknownState = errors.ErrorCode("session_unknown_state")
)

// State is a logind user state.
type State int

const (
	Offline State = iota
	Lingering
	Online
	Active
	Closing
)

var stateNames = map[State]string{
	Offline:   "offline",
	Lingering: "lingering",
	Online:    "online",
	Active:    "active",
	Closing:   "closing",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// ParseState maps logind's state string to a State.
//
// "closing" is reported as Lingering, not Closing. Closing is never
// produced here.
func ParseState(s string) (State, error) {
	switch s {
	case "offline":
		return Offline, nil
	case "lingering", "closing":
		return Lingering, nil
	case "online":
		return Online, nil
	case "active":
		return Active, nil
	default:
		return Offline, errors.New().WithData(ErrUnknownState, s)
	}
}

// Client reads the State property of the caller's logind user object.
type Client struct {
	obj *bus.Object
}

func NewClient(obj *bus.Object) *Client {
	return &Client{obj: obj}
}

func (c *Client) State(ctx context.Context) (State, error) {
	var raw string
	if err := c.obj.Get(ctx, Interface, "State", &raw); err != nil {
		return Offline, errors.New().Wrap(ErrQueryFailed, err)
	}

	return ParseState(raw)
}
