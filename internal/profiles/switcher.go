package profiles

import (
	"context"

	"codeberg.org/mutker/profilectl/internal/errors"
)

// Hold is what an activation leaves behind for the matching deactivation.
type Hold struct {
	Cookie Cookie
	Valid  bool
}

// Switcher moves the machine into and out of the elevated profile.
type Switcher interface {
	Activate(ctx context.Context) (Hold, error)
	Deactivate(ctx context.Context, h Hold) error
	// Uses lists the profiles the switcher will request.
	Uses() []Profile
	Name() string
}

// DirectSwitcher sets ActiveProfile on both edges.
type DirectSwitcher struct {
	svc      Service
	active   Profile
	inactive Profile
}

func NewDirectSwitcher(svc Service, active, inactive Profile) *DirectSwitcher {
	return &DirectSwitcher{svc: svc, active: active, inactive: inactive}
}

func (s *DirectSwitcher) Activate(ctx context.Context) (Hold, error) {
	return Hold{}, s.svc.SetActiveProfile(ctx, s.active)
}

func (s *DirectSwitcher) Deactivate(ctx context.Context, _ Hold) error {
	return s.svc.SetActiveProfile(ctx, s.inactive)
}

func (s *DirectSwitcher) Uses() []Profile {
	return []Profile{s.active, s.inactive}
}

func (*DirectSwitcher) Name() string {
	return "set"
}

// HoldSwitcher takes a hold on activation and releases it on deactivation,
// letting the daemon restore whatever was active before.
type HoldSwitcher struct {
	svc     Service
	profile Profile
	reason  string
	appID   string
}

func NewHoldSwitcher(svc Service, profile Profile, reason, appID string) *HoldSwitcher {
	return &HoldSwitcher{svc: svc, profile: profile, reason: reason, appID: appID}
}

func (s *HoldSwitcher) Activate(ctx context.Context) (Hold, error) {
	cookie, err := s.svc.HoldProfile(ctx, s.profile, s.reason, s.appID)
	if err != nil {
		return Hold{}, err
	}

	return Hold{Cookie: cookie, Valid: true}, nil
}

// Deactivate releases h. Any failure carries ErrReleaseFailed.
func (s *HoldSwitcher) Deactivate(ctx context.Context, h Hold) error {
	if !h.Valid {
		return nil
	}

	if err := s.svc.ReleaseProfile(ctx, h.Cookie); err != nil {
		if errors.HasCode(err, ErrReleaseFailed) {
			return err
		}
		return errors.New().Wrap(ErrReleaseFailed, err)
	}

	return nil
}

func (s *HoldSwitcher) Uses() []Profile {
	return []Profile{s.profile}
}

func (*HoldSwitcher) Name() string {
	return "hold"
}
