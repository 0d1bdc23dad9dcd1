package errors

// ErrorCode identifies a failure class. Codes are stable strings so they can
// be logged and matched across package boundaries.
type ErrorCode string

// Coder is implemented by any error that carries an ErrorCode.
type Coder interface {
	Code() ErrorCode
}

// Error is a coded error with optional message, payload and cause.
type Error interface {
	error
	Coder
	WithMessage(msg string) Error
	WithData(data any) Error
	Unwrap() error
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
