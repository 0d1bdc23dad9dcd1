package profiles_test

import (
	"context"
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectSwitcher(t *testing.T) {
	svc := profiles.NewFakeService()
	sw := profiles.NewDirectSwitcher(svc, profiles.Performance, profiles.PowerSaver)
	ctx := context.Background()

	h, err := sw.Activate(ctx)
	require.NoError(t, err)
	assert.False(t, h.Valid)
	assert.Equal(t, profiles.Performance, svc.Active)

	require.NoError(t, sw.Deactivate(ctx, h))
	assert.Equal(t, profiles.PowerSaver, svc.Active)
	assert.Equal(t, []profiles.Profile{profiles.Performance, profiles.PowerSaver}, svc.Sets)
	assert.Equal(t, "set", sw.Name())
	assert.Equal(t, []profiles.Profile{profiles.Performance, profiles.PowerSaver}, sw.Uses())
}

func TestHoldSwitcherRestoresPrevious(t *testing.T) {
	svc := profiles.NewFakeService()
	sw := profiles.NewHoldSwitcher(svc, profiles.Performance, "hot", "profilectl")
	ctx := context.Background()

	h, err := sw.Activate(ctx)
	require.NoError(t, err)
	assert.True(t, h.Valid)
	assert.Equal(t, profiles.Performance, svc.Active)

	require.NoError(t, sw.Deactivate(ctx, h))
	assert.Equal(t, profiles.Balanced, svc.Active)
	assert.Equal(t, []profiles.Cookie{h.Cookie}, svc.Releases)
}

func TestHoldSwitcherReleaseFailure(t *testing.T) {
	svc := profiles.NewFakeService()
	svc.ReleaseErr = stderrors.New("no such hold")
	sw := profiles.NewHoldSwitcher(svc, profiles.Performance, "hot", "profilectl")
	ctx := context.Background()

	h, err := sw.Activate(ctx)
	require.NoError(t, err)

	err = sw.Deactivate(ctx, h)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, profiles.ErrReleaseFailed))
}

func TestHoldSwitcherInvalidHold(t *testing.T) {
	svc := profiles.NewFakeService()
	sw := profiles.NewHoldSwitcher(svc, profiles.Performance, "hot", "profilectl")

	require.NoError(t, sw.Deactivate(context.Background(), profiles.Hold{}))
	assert.Empty(t, svc.Releases)
}
