package profiles_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/profilectl/internal/bus"
	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/profiles"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, name string) (*profiles.Client, *bus.FakeObject) {
	t.Helper()
	fake := bus.NewFakeObject()
	c, err := profiles.NewClient(bus.NewObject(fake, time.Second), name)
	require.NoError(t, err)

	return c, fake
}

func TestObjectPath(t *testing.T) {
	p, err := profiles.ObjectPath(profiles.LegacyBusName)
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/net/hadess/PowerProfiles"), p)

	p, err = profiles.ObjectPath(profiles.UPowerBusName)
	require.NoError(t, err)
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/UPower/PowerProfiles"), p)

	_, err = profiles.ObjectPath("org.example.Power")
	assert.True(t, errors.HasCode(err, profiles.ErrUnknownService))
}

func TestClientActiveProfile(t *testing.T) {
	for _, name := range []string{profiles.LegacyBusName, profiles.UPowerBusName} {
		t.Run(name, func(t *testing.T) {
			c, fake := newClient(t, name)
			fake.Props[name+".ActiveProfile"] = "balanced"
			ctx := context.Background()

			got, err := c.ActiveProfile(ctx)
			require.NoError(t, err)
			assert.Equal(t, profiles.Balanced, got)

			require.NoError(t, c.SetActiveProfile(ctx, profiles.Performance))
			assert.Equal(t, "performance", fake.Props[name+".ActiveProfile"])
		})
	}
}

func TestClientProfiles(t *testing.T) {
	c, fake := newClient(t, profiles.LegacyBusName)
	fake.Props[profiles.LegacyBusName+".Profiles"] = []map[string]dbus.Variant{
		{"Profile": dbus.MakeVariant("power-saver"), "Driver": dbus.MakeVariant("placeholder")},
		{"Profile": dbus.MakeVariant("balanced"), "Driver": dbus.MakeVariant("placeholder")},
	}

	got, err := c.Profiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []profiles.Profile{profiles.PowerSaver, profiles.Balanced}, got)

	err = profiles.CheckAvailable(context.Background(), c, profiles.Performance)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, profiles.ErrUnknownProfile))
	assert.NoError(t, profiles.CheckAvailable(context.Background(), c, profiles.Balanced, profiles.PowerSaver))
}

func TestClientHoldRelease(t *testing.T) {
	c, fake := newClient(t, profiles.LegacyBusName)
	fake.Handlers[profiles.LegacyBusName+".HoldProfile"] = func(args []interface{}) ([]interface{}, error) {
		return []interface{}{uint32(7)}, nil
	}
	fake.Handlers[profiles.LegacyBusName+".ReleaseProfile"] = func(args []interface{}) ([]interface{}, error) {
		if args[0].(uint32) != 7 {
			return nil, dbus.Error{Name: "org.freedesktop.DBus.Error.InvalidArgs"}
		}
		return nil, nil
	}
	ctx := context.Background()

	cookie, err := c.HoldProfile(ctx, profiles.Performance, "hot", "profilectl")
	require.NoError(t, err)
	assert.Equal(t, profiles.Cookie(7), cookie)

	holds := fake.Calls(profiles.LegacyBusName + ".HoldProfile")
	require.Len(t, holds, 1)
	assert.Equal(t, []interface{}{"performance", "hot", "profilectl"}, holds[0].Args)

	require.NoError(t, c.ReleaseProfile(ctx, cookie))

	err = c.ReleaseProfile(ctx, 8)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, profiles.ErrReleaseFailed))
}

func TestClientSetTimeout(t *testing.T) {
	fake := bus.NewFakeObject()
	fake.Block = true
	c, err := profiles.NewClient(bus.NewObject(fake, 10*time.Millisecond), profiles.UPowerBusName)
	require.NoError(t, err)

	err = c.SetActiveProfile(context.Background(), profiles.Performance)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, profiles.ErrSetFailed))
	assert.True(t, errors.HasCode(err, bus.ErrCallTimeout))
}

func TestProfileText(t *testing.T) {
	var p profiles.Profile
	require.NoError(t, p.UnmarshalText([]byte("power-saver")))
	assert.Equal(t, profiles.PowerSaver, p)

	err := p.UnmarshalText([]byte("turbo"))
	assert.True(t, errors.HasCode(err, profiles.ErrInvalidProfile))

	assert.True(t, profiles.Performance.Holdable())
	assert.False(t, profiles.Balanced.Holdable())
}
