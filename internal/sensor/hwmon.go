package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/profilectl/internal/errors"
)

const defaultSysRoot = "/sys"

var subFeatureRe = regexp.MustCompile(`^(temp|in|fan|pwm|curr|power|energy|humidity|intrusion)(\d+)_([a-z_]+)$`)

// HwmonFinder resolves matchers against /sys/class/hwmon.
type HwmonFinder struct {
	root string
}

type hwmonChip struct {
	name   string // libsensors-style, e.g. coretemp-isa-0000
	driver string // contents of the hwmon name attribute
	dirs   []string
}

type hwmonSource struct {
	path  string
	scale float64
	name  string
}

// NewHwmonFinder returns a finder rooted at sysRoot ("/sys" when empty).
func NewHwmonFinder(sysRoot string) *HwmonFinder {
	if sysRoot == "" {
		sysRoot = defaultSysRoot
	}

	return &HwmonFinder{root: sysRoot}
}

func (f *HwmonFinder) Find(m Matcher) (Source, error) {
	errFactory := errors.New()

	chips, err := f.chips()
	if err != nil {
		return nil, err
	}

	for _, c := range chips {
		names := []string{c.name, c.driver}
		for _, sf := range c.subFeatures() {
			if !m.Matches(names, sf.info) {
				continue
			}

			return &hwmonSource{
				path:  sf.path,
				scale: scaleFor(sf.info.Feature, sf.info.SubFeature),
				name:  c.name + "/" + sf.info.Feature + "/" + sf.info.SubFeature,
			}, nil
		}
	}

	return nil, errFactory.WithData(ErrSubFeatureNotFound, m.String())
}

func (f *HwmonFinder) List() ([]SubFeature, error) {
	chips, err := f.chips()
	if err != nil {
		return nil, err
	}

	var out []SubFeature
	for _, c := range chips {
		for _, sf := range c.subFeatures() {
			v, err := readScaled(sf.path, scaleFor(sf.info.Feature, sf.info.SubFeature))
			sf.info.Value = v
			sf.info.Readable = err == nil
			out = append(out, sf.info)
		}
	}

	return out, nil
}

func (*HwmonFinder) Close() error {
	return nil
}

func (f *HwmonFinder) chips() ([]hwmonChip, error) {
	errFactory := errors.New()
	base := filepath.Join(f.root, "class", "hwmon")

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, errFactory.Wrap(ErrEnumerateFailed, err)
	}

	chips := make([]hwmonChip, 0, len(entries))
	for _, e := range entries {
		dir := filepath.Join(base, e.Name())
		dirs := []string{dir}

		// Older drivers keep their attributes on the parent device.
		devDir := filepath.Join(dir, "device")
		if info, err := os.Stat(devDir); err == nil && info.IsDir() {
			dirs = append(dirs, devDir)
		}

		driver := ""
		for _, d := range dirs {
			if s, err := readTrimmed(filepath.Join(d, "name")); err == nil {
				driver = s
				break
			}
		}
		if driver == "" {
			continue
		}

		chips = append(chips, hwmonChip{
			name:   driver + "-" + busSuffix(dir),
			driver: driver,
			dirs:   dirs,
		})
	}

	return chips, nil
}

type located struct {
	info SubFeature
	path string
}

func (c hwmonChip) subFeatures() []located {
	seen := make(map[string]bool)
	var out []located

	for _, dir := range c.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, e := range entries {
			m := subFeatureRe.FindStringSubmatch(e.Name())
			if m == nil || m[3] == "label" || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true

			feature := m[1] + m[2]
			label, err := readTrimmed(filepath.Join(dir, feature+"_label"))
			if err != nil {
				label = feature
			}

			out = append(out, located{
				info: SubFeature{
					Chip:       c.name,
					Feature:    feature,
					Label:      label,
					SubFeature: e.Name(),
				},
				path: filepath.Join(dir, e.Name()),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].info.SubFeature < out[j].info.SubFeature
	})

	return out
}

// busSuffix derives the "<bus>-<address>" part of a libsensors chip name
// from the hwmon device's parent.
func busSuffix(hwmonDir string) string {
	devLink := filepath.Join(hwmonDir, "device")

	target, err := filepath.EvalSymlinks(devLink)
	if err != nil {
		return "virtual-0"
	}

	subsys, err := filepath.EvalSymlinks(filepath.Join(devLink, "subsystem"))
	if err != nil {
		return "virtual-0"
	}

	devName := filepath.Base(target)

	switch filepath.Base(subsys) {
	case "pci":
		var domain, bus, slot, fn int
		if _, err := fmt.Sscanf(devName, "%x:%x:%x.%x", &domain, &bus, &slot, &fn); err == nil {
			return fmt.Sprintf("pci-%04x", (domain<<16)+(bus<<8)+(slot<<3)+fn)
		}
	case "platform", "of_platform":
		addr := 0
		if i := strings.LastIndexByte(devName, '.'); i >= 0 {
			if n, err := strconv.Atoi(devName[i+1:]); err == nil {
				addr = n
			}
		}
		return fmt.Sprintf("isa-%04x", addr)
	case "i2c":
		var bus, addr int
		if _, err := fmt.Sscanf(devName, "%d-%x", &bus, &addr); err == nil {
			return fmt.Sprintf("i2c-%d-%02x", bus, addr)
		}
	case "spi":
		var bus, cs int
		if _, err := fmt.Sscanf(devName, "spi%d.%d", &bus, &cs); err == nil {
			return fmt.Sprintf("spi-%d-%x", bus, cs)
		}
	case "scsi":
		var host, channel, id, lun int
		if _, err := fmt.Sscanf(devName, "%d:%d:%d:%d", &host, &channel, &id, &lun); err == nil {
			return fmt.Sprintf("scsi-%d-%x", host, lun)
		}
	case "acpi":
		return "acpi-0"
	case "hid":
		addr := 0
		if i := strings.LastIndexByte(devName, '.'); i >= 0 {
			if n, err := strconv.ParseInt(devName[i+1:], 16, 32); err == nil {
				addr = int(n)
			}
		}
		return fmt.Sprintf("hid-0-%x", addr)
	}

	return "virtual-0"
}

// scaleFor returns the divisor that converts a raw sysfs value into
// libsensors units. Flags and enumerations are reported as-is.
func scaleFor(feature, subFeature string) float64 {
	switch suffix := strings.TrimPrefix(subFeature, feature+"_"); {
	case suffix == "alarm", strings.HasSuffix(suffix, "_alarm"),
		suffix == "beep", suffix == "fault", suffix == "type",
		suffix == "enable", suffix == "pulses", suffix == "div":
		return 1
	}

	switch {
	case strings.HasPrefix(feature, "intrusion"):
		return 1
	case strings.HasPrefix(feature, "temp"),
		strings.HasPrefix(feature, "in"),
		strings.HasPrefix(feature, "curr"),
		strings.HasPrefix(feature, "humidity"):
		return 1000
	case strings.HasPrefix(feature, "power"),
		strings.HasPrefix(feature, "energy"):
		return 1000000
	default:
		return 1
	}
}

func (s *hwmonSource) Value() (float64, error) {
	return readScaled(s.path, s.scale)
}

func (s *hwmonSource) Name() string {
	return s.name
}

func readScaled(path string, scale float64) (float64, error) {
	errFactory := errors.New()

	raw, err := readTrimmed(path)
	if err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrParseFailed, err)
	}

	return v / scale, nil
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}
