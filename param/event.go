// Package param implements automation of audio params: the event
// timeline evaluated on the render goroutine and the param processor
// that renders one quantum of values into the graph.
package param

import (
	"errors"
	"fmt"
	"math"
)

// Kind defines the automation event type.
type Kind int

const (
	// SetValue holds Value from Time onward.
	SetValue Kind = iota
	// LinearRamp interpolates linearly from the previous value to Value
	// at Time.
	LinearRamp
	// ExponentialRamp interpolates exponentially from the previous value
	// to Value at Time.
	ExponentialRamp
	// SetTarget approaches Value exponentially starting at Time with
	// TimeConstant.
	SetTarget
	// ValueCurve resamples Curve linearly over [Time, Time+Duration].
	ValueCurve
)

func (k Kind) String() string {
	switch k {
	case SetValue:
		return "set-value"
	case LinearRamp:
		return "linear-ramp"
	case ExponentialRamp:
		return "exponential-ramp"
	case SetTarget:
		return "set-target"
	case ValueCurve:
		return "value-curve"
	}
	return "unknown"
}

// Event is a single automation instruction. Time is the start time for
// SetValue, SetTarget and ValueCurve and the end time for ramps.
type Event struct {
	Kind         Kind
	Time         float64
	Value        float64
	TimeConstant float64
	Duration     float64
	Curve        []float64

	// from is the render time when a ramp was inserted. Ramp never
	// starts before it.
	from float64
}

// ErrInvalidEvent is returned when automation event arguments are out
// of range.
var ErrInvalidEvent = errors.New("invalid automation event")

// Validate checks event arguments.
func (e Event) Validate() error {
	if !finite(e.Time) || e.Time < 0 {
		return fmt.Errorf("%w: %v time %v", ErrInvalidEvent, e.Kind, e.Time)
	}
	switch e.Kind {
	case SetValue, LinearRamp, ExponentialRamp:
		if !finite(e.Value) {
			return fmt.Errorf("%w: %v value %v", ErrInvalidEvent, e.Kind, e.Value)
		}
	case SetTarget:
		if !finite(e.Value) {
			return fmt.Errorf("%w: %v value %v", ErrInvalidEvent, e.Kind, e.Value)
		}
		if !finite(e.TimeConstant) || e.TimeConstant < 0 {
			return fmt.Errorf("%w: time constant %v", ErrInvalidEvent, e.TimeConstant)
		}
	case ValueCurve:
		if len(e.Curve) < 2 {
			return fmt.Errorf("%w: curve needs at least 2 points, got %d", ErrInvalidEvent, len(e.Curve))
		}
		if !finite(e.Duration) || e.Duration <= 0 {
			return fmt.Errorf("%w: curve duration %v", ErrInvalidEvent, e.Duration)
		}
		for _, v := range e.Curve {
			if !finite(v) {
				return fmt.Errorf("%w: curve value %v", ErrInvalidEvent, v)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, e.Kind)
	}
	return nil
}

func (e Event) end() float64 {
	if e.Kind == ValueCurve {
		return e.Time + e.Duration
	}
	return e.Time
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
