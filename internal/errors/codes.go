package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrMissingConfig ErrorCode = "missing_configuration"
	ErrConfigDir     ErrorCode = "config_dir_unresolved"
	ErrBindFlags     ErrorCode = "bind_flags_failed"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrAlreadyRunning ErrorCode = "already_running"

	// Application errors
	ErrMainLoop ErrorCode = "main_loop_failed"

	// Metrics errors
	ErrInitMetrics  ErrorCode = "init_metrics_failed"
	ErrCloseMetrics ErrorCode = "close_metrics_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrInvalidConfig:   "Invalid configuration",
	ErrMissingConfig:   "Missing configuration",
	ErrConfigDir:       "Cannot resolve configuration directory",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read config file",
	ErrInvalidLogLevel: "Invalid log level",
	ErrAlreadyRunning:  "Another instance is already running",
	ErrMainLoop:        "Error in main loop",
	ErrInitMetrics:     "Failed to initialize metrics",
	ErrCloseMetrics:    "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
