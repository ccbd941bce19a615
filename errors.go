package webaudio

import (
	"errors"
	"fmt"
	"strings"

	"pipelined.dev/webaudio/internal/state"
)

var (
	// ErrConfiguration matches every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidState is returned if context method cannot be executed at
	// this moment, e.g. after the context is closed.
	ErrInvalidState = state.ErrInvalidState
	// ErrQueryTimeout is returned when render goroutine didn't answer a
	// query in time.
	ErrQueryTimeout = errors.New("query timeout")
)

// ConfigurationError is returned at the call site when a graph mutation
// or a param automation has invalid arguments. Such calls never reach
// the render goroutine.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrConfiguration.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

func configurationError(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

// closeErrors wraps errors that might occure when multiple components
// fail to close.
type closeErrors []error

func (e closeErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Is checks if any of errors match provided sentinel error.
func (e closeErrors) Is(err error) bool {
	for _, se := range e {
		if errors.Is(se, err) {
			return true
		}
	}
	return false
}

// ret returns untyped nil if error is list is empty.
func (e closeErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
