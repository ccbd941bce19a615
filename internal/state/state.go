// Package state implements the lifecycle of an audio context. A single
// control goroutine runs the state machine: it toggles the device stream
// and recycles ids of nodes retired by the render goroutine.
package state

import (
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/graph"
)

var (
	// ErrInvalidState is returned if context method cannot be executed at this moment.
	ErrInvalidState = errors.New("invalid state")
)

// Stream is the device stream toggled by state transitions.
type Stream interface {
	Suspend() error
	Resume() error
}

// StopFunc releases all resources of the context. It's called once,
// when the context is closed.
type StopFunc func() error

// RecycleFunc returns the id of a retired node to the allocator.
type RecycleFunc func(graph.NodeID)

// Handle manages the lifecycle of the context.
type Handle struct {
	// eventc is used to handle new events for state machine.
	// created in constructor, never closed.
	eventc chan event
	// retiredc delivers ids of nodes removed by the render goroutine.
	retiredc <-chan graph.NodeID
	// done is closed when the loop is over.
	done      chan struct{}
	current   atomic.Value
	stream    Stream
	stopFn    StopFunc
	recycleFn RecycleFunc
	logger    logrus.FieldLogger
}

// State identifies one of the possible states context can be in.
type State interface {
	transition(*Handle, event) (State, error)
	String() string
}

// states
type (
	running   struct{}
	suspended struct{}
	closed    struct{}
)

// states variables
var (
	Running   running   // Running means that device pulls rendered audio.
	Suspended suspended // Suspended means that device stream is paused and can be resumed.
	Closed    closed    // Closed means that resources are released.
)

// NewHandle returns new initalized handle that can be used to manage
// lifecycle. Initial state is either Running or Suspended.
func NewHandle(stream Stream, initial State, retiredc <-chan graph.NodeID, stop StopFunc, recycle RecycleFunc, logger logrus.FieldLogger) *Handle {
	h := Handle{
		eventc:    make(chan event),
		retiredc:  retiredc,
		done:      make(chan struct{}),
		stream:    stream,
		stopFn:    stop,
		recycleFn: recycle,
		logger:    logger,
	}
	h.current.Store(stateValue{initial})
	return &h
}

// stateValue keeps atomic.Value type consistent across states.
type stateValue struct {
	State
}

// Loop listens until the context is closed.
func Loop(h *Handle) {
	defer close(h.done)
	s := h.State()
	for s != Closed {
		select {
		case e := <-h.eventc:
			newState, err := s.transition(h, e)
			if err != nil {
				h.logger.Errorf("%v failed in %v state: %v", e, s, err)
			} else if newState != s {
				h.logger.Infof("%v: %v -> %v", e, s, newState)
			}
			s = newState
			h.current.Store(stateValue{s})
			e.feedback() <- err
		case id := <-h.retiredc:
			h.recycleFn(id)
			h.logger.Debugf("node %v retired", id)
		}
	}
}

// State returns the current state.
func (h *Handle) State() State {
	return h.current.Load().(stateValue).State
}

// Done is closed when the context is closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Suspend pauses the device stream. It's no-op if already suspended.
func (h *Handle) Suspend() error {
	return h.send(suspend{make(errs, 1)})
}

// Resume continues the device stream. It's no-op if already running.
func (h *Handle) Resume() error {
	return h.send(resume{make(errs, 1)})
}

// Close releases all resources. Subsequent calls are no-op.
func (h *Handle) Close() error {
	err := h.send(stop{make(errs, 1)})
	if errors.Is(err, ErrInvalidState) {
		return nil
	}
	return err
}

func (h *Handle) send(e event) error {
	select {
	case h.eventc <- e:
		return <-e.feedback()
	case <-h.done:
		return ErrInvalidState
	}
}

func (running) String() string {
	return "running"
}

func (s running) transition(h *Handle, e event) (State, error) {
	switch e.(type) {
	case stop:
		return Closed, h.stopFn()
	case suspend:
		if err := h.stream.Suspend(); err != nil {
			return s, err
		}
		return Suspended, nil
	case resume:
		return s, nil
	}
	return s, ErrInvalidState
}

func (suspended) String() string {
	return "suspended"
}

func (s suspended) transition(h *Handle, e event) (State, error) {
	switch e.(type) {
	case stop:
		return Closed, h.stopFn()
	case resume:
		if err := h.stream.Resume(); err != nil {
			return s, err
		}
		return Running, nil
	case suspend:
		return s, nil
	}
	return s, ErrInvalidState
}

func (closed) String() string {
	return "closed"
}

func (s closed) transition(*Handle, event) (State, error) {
	return s, ErrInvalidState
}
