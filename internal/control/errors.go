package control

import "codeberg.org/mutker/profilectl/internal/errors"

const (
	ErrActivateFailed   = errors.ErrorCode("control_activate_failed")
	ErrDeactivateFailed = errors.ErrorCode("control_deactivate_failed")
	ErrBatteryQuery     = errors.ErrorCode("control_battery_query_failed")
	ErrSessionQuery     = errors.ErrorCode("control_session_query_failed")
)
