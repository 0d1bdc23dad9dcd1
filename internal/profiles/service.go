package profiles

import (
	"context"
	"strings"

	"codeberg.org/mutker/profilectl/internal/bus"
	"codeberg.org/mutker/profilectl/internal/errors"
	"github.com/godbus/dbus/v5"
)

const (
	LegacyBusName = "net.hadess.PowerProfiles"
	UPowerBusName = "org.freedesktop.UPower.PowerProfiles"
)

// Cookie identifies a hold taken with HoldProfile.
type Cookie uint32

// Service is the power-profiles daemon.
type Service interface {
	SetActiveProfile(ctx context.Context, p Profile) error
	ActiveProfile(ctx context.Context) (Profile, error)
	Profiles(ctx context.Context) ([]Profile, error)
	HoldProfile(ctx context.Context, p Profile, reason, appID string) (Cookie, error)
	ReleaseProfile(ctx context.Context, c Cookie) error
}

// Client is a Service over D-Bus. Both daemon bus names export the same
// interface under a path derived from the name.
type Client struct {
	obj   *bus.Object
	iface string
}

// ObjectPath returns the object path the daemon registers under name.
func ObjectPath(name string) (dbus.ObjectPath, error) {
	switch name {
	case LegacyBusName, UPowerBusName:
		return dbus.ObjectPath("/" + strings.ReplaceAll(name, ".", "/")), nil
	default:
		return "", errors.New().WithData(ErrUnknownService, name)
	}
}

// NewClient returns a client for the daemon owning name, reached through obj.
func NewClient(obj *bus.Object, name string) (*Client, error) {
	if _, err := ObjectPath(name); err != nil {
		return nil, err
	}

	return &Client{obj: obj, iface: name}, nil
}

func (c *Client) SetActiveProfile(ctx context.Context, p Profile) error {
	if err := c.obj.Set(ctx, c.iface, "ActiveProfile", string(p)); err != nil {
		return errors.New().Wrap(ErrSetFailed, err)
	}

	return nil
}

func (c *Client) ActiveProfile(ctx context.Context) (Profile, error) {
	var name string
	if err := c.obj.Get(ctx, c.iface, "ActiveProfile", &name); err != nil {
		return "", errors.New().Wrap(ErrQueryFailed, err)
	}

	return Profile(name), nil
}

// Profiles lists the profiles the daemon offers on this machine.
func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var entries []map[string]dbus.Variant
	if err := c.obj.Get(ctx, c.iface, "Profiles", &entries); err != nil {
		return nil, errors.New().Wrap(ErrQueryFailed, err)
	}

	out := make([]Profile, 0, len(entries))
	for _, e := range entries {
		if v, ok := e["Profile"]; ok {
			if name, ok := v.Value().(string); ok {
				out = append(out, Profile(name))
			}
		}
	}

	return out, nil
}

func (c *Client) HoldProfile(ctx context.Context, p Profile, reason, appID string) (Cookie, error) {
	var cookie uint32
	err := c.obj.Call(ctx, c.iface+".HoldProfile", []interface{}{&cookie}, string(p), reason, appID)
	if err != nil {
		return 0, errors.New().Wrap(ErrHoldFailed, err)
	}

	return Cookie(cookie), nil
}

func (c *Client) ReleaseProfile(ctx context.Context, cookie Cookie) error {
	if err := c.obj.Call(ctx, c.iface+".ReleaseProfile", nil, uint32(cookie)); err != nil {
		return errors.New().Wrap(ErrReleaseFailed, err)
	}

	return nil
}

// CheckAvailable fails with ErrUnknownProfile if any of want is not offered.
func CheckAvailable(ctx context.Context, svc Service, want ...Profile) error {
	have, err := svc.Profiles(ctx)
	if err != nil {
		return err
	}

	offered := make(map[Profile]bool, len(have))
	for _, p := range have {
		offered[p] = true
	}

	for _, p := range want {
		if !offered[p] {
			return errors.New().WithData(ErrUnknownProfile, p)
		}
	}

	return nil
}
