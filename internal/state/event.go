package state

import "fmt"

type (
	// event triggers the state change.
	// Use imperative verbs for implementations.
	//
	// feedback is used to provide errors to the caller.
	event interface {
		feedback() chan error
		fmt.Stringer
	}

	// errs is a wrapper for error channels. It's used to return errs
	// of state transition.
	errs chan error
)

type (
	// suspend event is sent to pause the device stream.
	suspend struct {
		errs
	}

	// resume event is sent to continue the device stream.
	resume struct {
		errs
	}

	// stop event is sent to close the context.
	stop struct {
		errs
	}
)

// feedback exposes error channel and used to satisfy event interface.
func (f errs) feedback() chan error {
	return f
}

func (suspend) String() string {
	return "event.Suspend"
}

func (resume) String() string {
	return "event.Resume"
}

func (stop) String() string {
	return "event.Stop"
}
