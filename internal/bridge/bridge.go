// Package bridge connects the control goroutine with the render
// goroutine. All channels are bounded. The render side only uses
// non-blocking receives and sends.
package bridge

import (
	"context"
	"errors"

	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/param"
)

// ErrClosed is returned when message is sent into closed channel.
var ErrClosed = errors.New("bridge is closed")

// Kind defines the type of message.
type Kind int

const (
	// AddNode hands the node over to the render goroutine.
	AddNode Kind = iota
	// RemoveNode removes the node at the next quantum boundary.
	RemoveNode
	// ReleaseNode lets the node retire once it's finished.
	ReleaseNode
	// Connect adds an edge.
	Connect
	// Disconnect removes edges matching the pattern.
	Disconnect
	// Automation schedules a param event.
	Automation
	// CancelAutomation cancels param events from Time onward.
	CancelAutomation
)

func (k Kind) String() string {
	switch k {
	case AddNode:
		return "add-node"
	case RemoveNode:
		return "remove-node"
	case ReleaseNode:
		return "release-node"
	case Connect:
		return "connect"
	case Disconnect:
		return "disconnect"
	case Automation:
		return "automation"
	case CancelAutomation:
		return "cancel-automation"
	}
	return "unknown"
}

// Message is a graph mutation sent from the control goroutine.
type Message struct {
	Kind Kind
	// Nodes is set for AddNode: the node followed by its params. They
	// are added to the graph together.
	Nodes []*graph.Node
	// ID is the target of RemoveNode, ReleaseNode and automation.
	ID graph.NodeID
	// Edge is set for Connect and Disconnect.
	Edge  graph.Edge
	Event param.Event
	Time  float64
}

// Channel is a bounded FIFO of messages.
type Channel struct {
	c    chan Message
	done chan struct{}
}

// NewChannel returns a channel with provided capacity.
func NewChannel(capacity int) *Channel {
	return &Channel{
		c:    make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

// Send puts the message into channel. It blocks the control goroutine
// if the channel is full until there is capacity, ctx is done or the
// channel is closed.
func (ch *Channel) Send(ctx context.Context, m Message) error {
	select {
	case <-ch.done:
		return ErrClosed
	default:
	}
	select {
	case ch.c <- m:
		return nil
	case <-ch.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns number of queued messages. The render goroutine
// receives at most this many messages per quantum.
func (ch *Channel) Pending() int {
	return len(ch.c)
}

// TryReceive returns the next message if there is one.
func (ch *Channel) TryReceive() (Message, bool) {
	select {
	case m := <-ch.c:
		return m, true
	default:
		return Message{}, false
	}
}

// Close unblocks pending senders. Queued messages can still be
// received.
func (ch *Channel) Close() {
	select {
	case <-ch.done:
	default:
		close(ch.done)
	}
}

// Requests is a bounded rendezvous for queries answered by the render
// goroutine.
type Requests[Q, R any] struct {
	c chan Request[Q, R]
}

// Request is a pending query with its reply channel.
type Request[Q, R any] struct {
	Query Q
	reply chan R
}

// NewRequests returns a rendezvous with provided capacity.
func NewRequests[Q, R any](capacity int) *Requests[Q, R] {
	return &Requests[Q, R]{
		c: make(chan Request[Q, R], capacity),
	}
}

// Ask sends the query and waits for the reply until ctx is done. An
// abandoned request is still answered by the render goroutine, the
// reply is dropped.
func (r *Requests[Q, R]) Ask(ctx context.Context, q Q) (R, error) {
	var zero R
	req := Request[Q, R]{
		Query: q,
		reply: make(chan R, 1),
	}
	select {
	case r.c <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-req.reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Poll returns the next pending request if there is one.
func (r *Requests[Q, R]) Poll() (Request[Q, R], bool) {
	select {
	case req := <-r.c:
		return req, true
	default:
		return Request[Q, R]{}, false
	}
}

// Incoming returns the channel of pending requests. It allows an idle
// render goroutine to wait for queries.
func (r *Requests[Q, R]) Incoming() <-chan Request[Q, R] {
	return r.c
}

// Pending returns number of queued requests.
func (r *Requests[Q, R]) Pending() int {
	return len(r.c)
}

// Reply answers the request. It never blocks.
func (req Request[Q, R]) Reply(v R) {
	select {
	case req.reply <- v:
	default:
	}
}
