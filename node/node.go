// Package node provides the node types of a webaudio context. Every
// type is a control-side handle over a processor that runs on the
// render goroutine. Handles only talk to processors through params,
// atomics and bounded request channels.
package node

import (
	"fmt"
	"math"
	"sync/atomic"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/signal"
)

var mono = graph.ChannelConfig{
	Count:          1,
	Mode:           graph.Max,
	Interpretation: signal.Speakers,
}

// detune limits in cents.
const maxDetune = 153600

func configurationError(op string, err error) error {
	return &webaudio.ConfigurationError{Op: op, Err: err}
}

// computedFrequency applies detune in cents to the frequency.
func computedFrequency(frequency, detune float64) float64 {
	if detune == 0 {
		return frequency
	}
	return frequency * math.Pow(2, detune/1200)
}

// schedule holds start and stop times of a source node. Times are
// written by control goroutine and read by render goroutine.
type schedule struct {
	start atomic.Uint64
	stop  atomic.Uint64
}

func newSchedule() *schedule {
	var s schedule
	s.start.Store(math.Float64bits(math.Inf(1)))
	s.stop.Store(math.Float64bits(math.Inf(1)))
	return &s
}

func (s *schedule) startTime() float64 {
	return math.Float64frombits(s.start.Load())
}

func (s *schedule) stopTime() float64 {
	return math.Float64frombits(s.stop.Load())
}

// Start plays the source from time when. A source can only be started
// once.
func (s *schedule) Start(when float64) error {
	if math.IsNaN(when) || math.IsInf(when, 0) || when < 0 {
		return configurationError("start", fmt.Errorf("invalid time %v", when))
	}
	if !s.start.CompareAndSwap(math.Float64bits(math.Inf(1)), math.Float64bits(when)) {
		return fmt.Errorf("start: already started: %w", webaudio.ErrInvalidState)
	}
	return nil
}

// Stop silences the source from time when. Stopping a source that
// isn't started fails.
func (s *schedule) Stop(when float64) error {
	if math.IsNaN(when) || math.IsInf(when, 0) || when < 0 {
		return configurationError("stop", fmt.Errorf("invalid time %v", when))
	}
	if math.IsInf(s.startTime(), 1) {
		return fmt.Errorf("stop: not started: %w", webaudio.ErrInvalidState)
	}
	s.stop.Store(math.Float64bits(when))
	return nil
}

// window returns the frames of the quantum where the source plays.
// ended is true once the stop time is reached.
func (s *schedule) window(timestamp, sampleRate float64) (from, to int, ended bool) {
	start, stop := s.startTime(), s.stopTime()
	from = frameOf(start, timestamp, sampleRate)
	to = frameOf(stop, timestamp, sampleRate)
	if to < from {
		to = from
	}
	return from, to, stop <= timestamp+signal.QuantumSize/sampleRate
}

// frameOf returns the first frame of the quantum at or after t, clamped
// to the quantum.
func frameOf(t, timestamp, sampleRate float64) int {
	f := math.Ceil((t - timestamp) * sampleRate)
	switch {
	case f <= 0:
		return 0
	case f >= signal.QuantumSize || math.IsInf(f, 1):
		return signal.QuantumSize
	}
	return int(f)
}
