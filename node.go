package webaudio

import (
	"fmt"

	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/bridge"
	"pipelined.dev/webaudio/signal"
)

// Node is the control-side handle of a graph node.
type Node struct {
	ctx        *Context
	id         graph.NodeID
	numInputs  int
	numOutputs int
	params     []*Param
}

// ID returns the node id.
func (n *Node) ID() graph.NodeID {
	return n.id
}

// Context returns the context that owns the node.
func (n *Node) Context() *Context {
	return n.ctx
}

// NumberOfInputs returns number of node inputs.
func (n *Node) NumberOfInputs() int {
	return n.numInputs
}

// NumberOfOutputs returns number of node outputs.
func (n *Node) NumberOfOutputs() int {
	return n.numOutputs
}

// Param returns the i-th param of the node or nil.
func (n *Node) Param(i int) *Param {
	if i < 0 || i >= len(n.params) {
		return nil
	}
	return n.params[i]
}

// Params returns all params of the node.
func (n *Node) Params() []*Param {
	return n.params
}

// Connect connects the output of n to the input of dst.
func (n *Node) Connect(dst *Node, output, input int) error {
	if err := n.validate("connect", dst, output); err != nil {
		return err
	}
	if input < 0 || input >= dst.numInputs {
		return configurationError("connect", fmt.Errorf("%w: input %d of %v", graph.ErrInvalidPort, input, dst.id))
	}
	return n.ctx.send(bridge.Message{
		Kind: bridge.Connect,
		Edge: graph.Edge{Src: n.id, SrcOutput: output, Dst: dst.id, DstInput: input},
	})
}

// ConnectParam connects the output of n to the param. Connected audio
// is added to the automated param value.
func (n *Node) ConnectParam(p *Param, output int) error {
	if p == nil {
		return configurationError("connect param", graph.ErrUnknownNode)
	}
	if err := n.validate("connect param", p.owner, output); err != nil {
		return err
	}
	if err := n.ctx.live("connect param", p.id); err != nil {
		return err
	}
	return n.ctx.send(bridge.Message{
		Kind: bridge.Connect,
		Edge: graph.Edge{Src: n.id, SrcOutput: output, Dst: p.id, DstInput: 0},
	})
}

// Disconnect removes all outgoing edges of n.
func (n *Node) Disconnect() error {
	if err := n.ctx.live("disconnect", n.id); err != nil {
		return err
	}
	return n.ctx.send(bridge.Message{
		Kind: bridge.Disconnect,
		Edge: graph.Edge{Src: n.id, SrcOutput: -1, DstInput: -1},
	})
}

// DisconnectFrom removes the edge between the output of n and the input
// of dst. Negative output or input matches any port. Disconnecting
// nodes that aren't connected is a no-op.
func (n *Node) DisconnectFrom(dst *Node, output, input int) error {
	// any output is validated as the first one.
	if err := n.validate("disconnect", dst, max(output, 0)); err != nil {
		return err
	}
	if output >= n.numOutputs || input >= dst.numInputs {
		return configurationError("disconnect", fmt.Errorf("%w: output %d, input %d", graph.ErrInvalidPort, output, input))
	}
	return n.ctx.send(bridge.Message{
		Kind: bridge.Disconnect,
		Edge: graph.Edge{Src: n.id, SrcOutput: output, Dst: dst.id, DstInput: input},
	})
}

// DisconnectParam removes the edge between the output of n and the
// param.
func (n *Node) DisconnectParam(p *Param, output int) error {
	if p == nil {
		return configurationError("disconnect param", graph.ErrUnknownNode)
	}
	if err := n.ctx.live("disconnect param", n.id); err != nil {
		return err
	}
	if err := n.ctx.live("disconnect param", p.id); err != nil {
		return err
	}
	return n.ctx.send(bridge.Message{
		Kind: bridge.Disconnect,
		Edge: graph.Edge{Src: n.id, SrcOutput: output, Dst: p.id, DstInput: 0},
	})
}

// Release hands the node over for retirement. The node keeps rendering
// while it has inputs or reports a tail and is removed afterwards. The
// handle can't be used after Release.
func (n *Node) Release() error {
	if n == n.ctx.destination {
		return configurationError("release", fmt.Errorf("destination can't be released"))
	}
	if err := n.ctx.drop("release", n); err != nil {
		return err
	}
	return n.ctx.send(bridge.Message{Kind: bridge.ReleaseNode, ID: n.id})
}

func (n *Node) validate(op string, dst *Node, output int) error {
	if dst == nil || dst.ctx != n.ctx {
		return configurationError(op, fmt.Errorf("%w: destination of another context", graph.ErrUnknownNode))
	}
	if err := n.ctx.live(op, n.id); err != nil {
		return err
	}
	if err := n.ctx.live(op, dst.id); err != nil {
		return err
	}
	if output < 0 || output >= n.numOutputs {
		return configurationError(op, fmt.Errorf("%w: output %d of %v", graph.ErrInvalidPort, output, n.id))
	}
	return nil
}

// destination copies its mixed input to the sink.
type destination struct{}

func (destination) Process(inputs, outputs []*signal.Buffer, _ graph.ParamValues, _, _ float64) bool {
	outputs[0].CopyFrom(inputs[0])
	return true
}
