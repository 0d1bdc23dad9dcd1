// Package sensor locates and reads a single hardware-monitoring sub-feature.
//
// Chips are named the way libsensors names them (coretemp-isa-0000,
// nvme-pci-0300, acpitz-acpi-0), so a matcher copied from `sensors -u`
// output works unchanged.
package sensor

// Matcher identifies one sub-feature in the chip/feature hierarchy.
type Matcher struct {
	ChipName    string `mapstructure:"chip_name" toml:"chip_name"`
	FeatName    string `mapstructure:"feat_name" toml:"feat_name"`
	FeatLabel   string `mapstructure:"feat_label" toml:"feat_label,omitempty"`
	SubFeatName string `mapstructure:"sub_feat_name" toml:"sub_feat_name"`
}

// Source is a located sub-feature that can be sampled.
type Source interface {
	// Value returns the current reading in sensor-native scaled units
	// (degrees Celsius for temperatures).
	Value() (float64, error)
	// Name returns "chip/feature/sub-feature" for logging.
	Name() string
}

// Finder resolves matchers against the sensors present on this host.
type Finder interface {
	// Find returns the matching sub-feature, or an error carrying
	// ErrSubFeatureNotFound.
	Find(m Matcher) (Source, error)
	// List enumerates every sub-feature the finder can resolve.
	List() ([]SubFeature, error)
	Close() error
}

// SubFeature describes one enumerable reading.
type SubFeature struct {
	Chip       string
	Feature    string
	Label      string
	SubFeature string
	Value      float64
	Readable   bool
}

// Matches reports whether m selects sf.
func (m Matcher) Matches(chipNames []string, sf SubFeature) bool {
	chipOK := false
	for _, name := range chipNames {
		if name == m.ChipName {
			chipOK = true
			break
		}
	}
	if !chipOK || sf.Feature != m.FeatName || sf.SubFeature != m.SubFeatName {
		return false
	}

	return m.FeatLabel == "" || m.FeatLabel == sf.Label
}

func (m Matcher) String() string {
	if m.FeatLabel != "" {
		return m.ChipName + "/" + m.FeatName + "[" + m.FeatLabel + "]/" + m.SubFeatName
	}

	return m.ChipName + "/" + m.FeatName + "/" + m.SubFeatName
}
