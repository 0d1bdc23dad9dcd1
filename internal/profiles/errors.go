package profiles

import "codeberg.org/mutker/profilectl/internal/errors"

const (
	ErrInvalidProfile = errors.ErrorCode("profiles_invalid_profile")
	ErrUnknownProfile = errors.ErrorCode("profiles_unknown_profile")
	ErrUnknownService = errors.ErrorCode("profiles_unknown_service")
	ErrQueryFailed    = errors.ErrorCode("profiles_query_failed")
	ErrSetFailed      = errors.ErrorCode("profiles_set_failed")
	ErrHoldFailed     = errors.ErrorCode("profiles_hold_failed")
	ErrReleaseFailed  = errors.ErrorCode("profiles_release_failed")
)
