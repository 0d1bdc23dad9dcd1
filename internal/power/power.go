// Package power reports whether the machine is running on battery.
package power

import (
	"context"

	"codeberg.org/mutker/profilectl/internal/bus"
	"codeberg.org/mutker/profilectl/internal/errors"
	"github.com/godbus/dbus/v5"
)

const (
	BusName    = "org.freedesktop.UPower"
	ObjectPath = dbus.ObjectPath("/org/freedesktop/UPower")
	Interface  = "org.freedesktop.UPower"

	ErrQueryFailed = errors.ErrorCode("power_query_failed")
)

// Client reads UPower's OnBattery property.
type Client struct {
	obj *bus.Object
}

func NewClient(obj *bus.Object) *Client {
	return &Client{obj: obj}
}

func (c *Client) OnBattery(ctx context.Context) (bool, error) {
	var onBattery bool
	if err := c.obj.Get(ctx, Interface, "OnBattery", &onBattery); err != nil {
		return false, errors.New().Wrap(ErrQueryFailed, err)
	}

	return onBattery, nil
}
