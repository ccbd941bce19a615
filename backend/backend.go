// Package backend defines audio hardware abstractions and the adapters
// that connect them to the render goroutine with a defined backpressure
// policy.
//
// Playback: the renderer pushes one quantum per demand token, the
// hardware pulls. Underrun is compensated with silence, overrun drops
// the newest frame.
//
// Capture: the hardware pushes one quantum per callback, the graph reads
// once per quantum. A full queue drops the newest frame, an empty queue
// reads as silence and a closed queue reads as end of stream.
package backend

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a closed backend is used.
var ErrClosed = errors.New("backend is closed")

// Error is a device or OS failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil if err is nil and *Error otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Kind defines the direction of a device.
type Kind int

const (
	// Output devices play audio.
	Output Kind = iota
	// Input devices capture audio.
	Input
)

func (k Kind) String() string {
	if k == Input {
		return "input"
	}
	return "output"
}

// Device describes an audio device.
type Device struct {
	ID    string
	Label string
	Kind  Kind
}

// Stream is the lifecycle of a running hardware stream. Close is
// terminal and idempotent.
type Stream interface {
	SampleRate() float64
	NumberOfChannels() int
	Suspend() error
	Resume() error
	Close() error
}

// Sink is an output device stream. Start begins pulling frames from the
// playback adapter.
type Sink interface {
	Stream
	Start(*Playback) error
}

// Source is an input device stream. Start begins pushing frames into
// the capture adapter.
type Source interface {
	Stream
	Start(*Capture) error
}
