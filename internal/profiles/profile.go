// Package profiles talks to the power-profiles daemon and implements the two
// ways of switching to an elevated profile: setting ActiveProfile directly,
// or taking a hold that the daemon reverts on release.
package profiles

import "codeberg.org/mutker/profilectl/internal/errors"

// Profile is a power-profiles-daemon profile name.
type Profile string

const (
	PowerSaver  Profile = "power-saver"
	Balanced    Profile = "balanced"
	Performance Profile = "performance"
)

func (p Profile) IsValid() bool {
	switch p {
	case PowerSaver, Balanced, Performance:
		return true
	default:
		return false
	}
}

// Holdable reports whether the daemon accepts a hold on p.
func (p Profile) Holdable() bool {
	return p == PowerSaver || p == Performance
}

func (p Profile) String() string {
	return string(p)
}

func (p *Profile) UnmarshalText(text []byte) error {
	v := Profile(text)
	if !v.IsValid() {
		return errors.New().WithData(ErrInvalidProfile, string(text))
	}
	*p = v

	return nil
}

func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p), nil
}
