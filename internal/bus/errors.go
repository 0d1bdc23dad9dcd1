package bus

import "codeberg.org/mutker/profilectl/internal/errors"

const (
	ErrConnectFailed = errors.ErrorCode("bus_connect_failed")
	ErrCallFailed    = errors.ErrorCode("bus_call_failed")
	ErrCallTimeout   = errors.ErrorCode("bus_call_timeout")
	ErrDecodeFailed  = errors.ErrorCode("bus_decode_failed")
)
