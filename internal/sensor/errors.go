package sensor

import (
	"codeberg.org/mutker/profilectl/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	// Discovery Errors
	ErrUnknownSource      = errors.ErrorCode("sensor_unknown_source")
	ErrEnumerateFailed    = errors.ErrorCode("sensor_enumerate_failed")
	ErrSubFeatureNotFound = errors.ErrorCode("sensor_sub_feature_not_found")

	// Read Errors
	ErrReadFailed  = errors.ErrorCode("sensor_read_failed")
	ErrParseFailed = errors.ErrorCode("sensor_parse_failed")

	// NVML Errors
	ErrNVMLInitFailed     = errors.ErrorCode("sensor_nvml_init_failed")
	ErrNVMLShutdownFailed = errors.ErrorCode("sensor_nvml_shutdown_failed")
	ErrNVMLDeviceFailed   = errors.ErrorCode("sensor_nvml_device_failed")
)

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// newNVMLError creates an error from an NVML return code
func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

// IsNVMLSuccess checks if a Return value indicates success
func IsNVMLSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}
