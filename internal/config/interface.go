package config

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/profilectl/internal/errors"
)

// Option adjusts how Load finds its inputs.
type Option func(*options) error

type options struct {
	configPath string
}

// WithConfigFile specifies an explicit configuration file path. It takes
// precedence over --config and the environment.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New().WithMessage(errors.ErrInvalidArgument, "empty config path")
		}
		o.configPath = path
		return nil
	}
}

// Strategy selects how the elevated profile is applied.
type Strategy string

const (
	// StrategySet writes ActiveProfile on both edges.
	StrategySet Strategy = "set"
	// StrategyHold takes a hold and releases it.
	StrategyHold Strategy = "hold"
)

func (s Strategy) IsValid() bool {
	return s == StrategySet || s == StrategyHold
}

func (s Strategy) String() string {
	return string(s)
}

func (s *Strategy) UnmarshalText(text []byte) error {
	v := Strategy(strings.ToLower(string(text)))
	if !v.IsValid() {
		return errors.New().WithData(errors.ErrInvalidArgument, string(text))
	}
	*s = v

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError interface {
	error
	// Field returns the name of the invalid field
	Field() string
	// Value returns the invalid value
	Value() interface{}
	// Reason returns why the value is invalid
	Reason() string
}

type fieldError struct {
	field  string
	value  interface{}
	reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.field, e.reason, e.value)
}

func (e *fieldError) Field() string      { return e.field }
func (e *fieldError) Value() interface{} { return e.value }
func (e *fieldError) Reason() string     { return e.reason }

// ValidationErrors is every problem found in one configuration.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}

	return strings.Join(parts, "; ")
}
