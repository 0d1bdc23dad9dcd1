package sensor

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	nvmlChipPrefix  = "nvidia-gpu-"
	nvmlFeature     = "temp1"
	nvmlSubFeature  = "temp1_input"
	nvmlFeatureName = "GPU Temp"
)

// NVMLFinder exposes the core temperature of each NVIDIA GPU as chip
// "nvidia-gpu-<index>", feature "temp1", sub-feature "temp1_input".
type NVMLFinder struct {
	initialized bool
}

type nvmlSource struct {
	device nvml.Device
	name   string
}

// NewNVMLFinder initializes NVML. Close must be called to release it.
func NewNVMLFinder() (*NVMLFinder, error) {
	errFactory := errors.New()

	if ret := nvml.Init(); !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrNVMLInitFailed, newNVMLError(ret))
	}

	return &NVMLFinder{initialized: true}, nil
}

func (f *NVMLFinder) Find(m Matcher) (Source, error) {
	errFactory := errors.New()

	index, ok := parseNVMLChip(m.ChipName)
	if !ok || m.FeatName != nvmlFeature || m.SubFeatName != nvmlSubFeature ||
		(m.FeatLabel != "" && m.FeatLabel != nvmlFeatureName) {
		return nil, errFactory.WithData(ErrSubFeatureNotFound, m.String())
	}

	count, ret := nvml.DeviceGetCount()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrEnumerateFailed, newNVMLError(ret))
	}
	if index >= count {
		return nil, errFactory.WithData(ErrSubFeatureNotFound, m.String())
	}

	device, ret := nvml.DeviceGetHandleByIndex(index)
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrNVMLDeviceFailed, newNVMLError(ret))
	}

	if name, ret := device.GetName(); IsNVMLSuccess(ret) {
		logger.Debug().Int("index", index).Str("name", name).Msg("Detected GPU")
	}

	return &nvmlSource{
		device: device,
		name:   fmt.Sprintf("%s%d/%s/%s", nvmlChipPrefix, index, nvmlFeature, nvmlSubFeature),
	}, nil
}

func (f *NVMLFinder) List() ([]SubFeature, error) {
	errFactory := errors.New()

	count, ret := nvml.DeviceGetCount()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrEnumerateFailed, newNVMLError(ret))
	}

	out := make([]SubFeature, 0, count)
	for i := 0; i < count; i++ {
		sf := SubFeature{
			Chip:       fmt.Sprintf("%s%d", nvmlChipPrefix, i),
			Feature:    nvmlFeature,
			Label:      nvmlFeatureName,
			SubFeature: nvmlSubFeature,
		}

		if device, ret := nvml.DeviceGetHandleByIndex(i); IsNVMLSuccess(ret) {
			if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); IsNVMLSuccess(ret) {
				sf.Value = float64(temp)
				sf.Readable = true
			}
		}

		out = append(out, sf)
	}

	return out, nil
}

func (f *NVMLFinder) Close() error {
	errFactory := errors.New()
	if !f.initialized {
		return nil
	}

	if ret := nvml.Shutdown(); !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrNVMLShutdownFailed, newNVMLError(ret))
	}
	f.initialized = false

	return nil
}

func (s *nvmlSource) Value() (float64, error) {
	errFactory := errors.New()

	temp, ret := s.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrReadFailed, newNVMLError(ret))
	}

	return float64(temp), nil
}

func (s *nvmlSource) Name() string {
	return s.name
}

// parseNVMLChip accepts "nvidia-gpu-<n>" and the bare "nvidia" (GPU 0).
func parseNVMLChip(chip string) (int, bool) {
	if chip == "nvidia" {
		return 0, true
	}

	rest, ok := strings.CutPrefix(chip, nvmlChipPrefix)
	if !ok {
		return 0, false
	}

	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}
