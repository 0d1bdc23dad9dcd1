package sensor

import "codeberg.org/mutker/profilectl/internal/errors"

const (
	SourceHwmon = "hwmon"
	SourceNVML  = "nvml"
)

// Open returns the finder for the named source. sysRoot only applies to
// hwmon.
func Open(source, sysRoot string) (Finder, error) {
	switch source {
	case SourceHwmon, "":
		return NewHwmonFinder(sysRoot), nil
	case SourceNVML:
		return NewNVMLFinder()
	default:
		return nil, errors.New().WithData(ErrUnknownSource, source)
	}
}
