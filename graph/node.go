package graph

import (
	"pipelined.dev/webaudio/pool"
	"pipelined.dev/webaudio/signal"
)

// ParamInput is the destination input of the hidden edge between a
// param node and its owner.
const ParamInput = -1

type (
	// Node is the render-side state of a graph node. It is created on the
	// control goroutine with NewNode and exclusively owned by the render
	// goroutine once added to the graph.
	Node struct {
		ID        NodeID
		Processor Processor
		Config    ChannelConfig
		// Terminal nodes are the roots of reachability, e.g. destination.
		Terminal bool
		// Owner is set for param nodes.
		Owner NodeID
		// Params owned by this node. They're removed together with it.
		Params []NodeID

		inputs   []*signal.Buffer
		outputs  []*signal.Buffer
		incoming []Edge
		outgoing []link
		pool     *pool.Pool

		// ownerDelayed is set when the hidden param edge closes a cycle.
		ownerDelayed bool
		released     bool
		reachable    bool
		tail         bool
		idle         int
	}

	// Options define the shape of a node.
	Options struct {
		Inputs   int
		Outputs  int
		Config   ChannelConfig
		Terminal bool
		Owner    NodeID
		Params   []NodeID
	}

	// Edge connects an output of source node to an input of destination
	// node.
	Edge struct {
		Src       NodeID
		SrcOutput int
		Dst       NodeID
		DstInput  int
	}

	link struct {
		Edge
		delayed bool
	}
)

// edgeCapacity is the number of edges pre-allocated per node.
const edgeCapacity = 8

// NewNode allocates node state and its buffers. It must be called on
// the control goroutine.
func NewNode(id NodeID, p Processor, opts Options) *Node {
	bp := pool.Get(opts.Config.Count)
	n := &Node{
		ID:        id,
		Processor: p,
		Config:    opts.Config,
		Terminal:  opts.Terminal,
		Owner:     opts.Owner,
		Params:    opts.Params,
		inputs:    make([]*signal.Buffer, opts.Inputs),
		outputs:   make([]*signal.Buffer, opts.Outputs),
		incoming:  make([]Edge, 0, edgeCapacity),
		outgoing:  make([]link, 0, edgeCapacity),
		pool:      bp,
		tail:      true,
	}
	for i := range n.inputs {
		n.inputs[i] = bp.Get()
	}
	for i := range n.outputs {
		n.outputs[i] = bp.Get()
	}
	return n
}

// NumInputs returns number of node inputs.
func (n *Node) NumInputs() int {
	return len(n.inputs)
}

// NumOutputs returns number of node outputs.
func (n *Node) NumOutputs() int {
	return len(n.outputs)
}

// Input returns the mixed input buffer of the last rendered quantum.
func (n *Node) Input(i int) *signal.Buffer {
	return n.inputs[i]
}

// Output returns the output buffer of the last rendered quantum.
func (n *Node) Output(i int) *signal.Buffer {
	return n.outputs[i]
}

// Incoming returns number of edges connected to node inputs.
func (n *Node) Incoming() int {
	return len(n.incoming)
}

// Tail returns the tail-time flag reported by the last Process call.
func (n *Node) Tail() bool {
	return n.tail
}

// Reachable returns true if there is a path from node to a terminal
// node.
func (n *Node) Reachable() bool {
	return n.reachable
}

// Released returns true if the control side released the node.
func (n *Node) Released() bool {
	return n.released
}

// free returns buffers to the pool.
func (n *Node) free() {
	for i, b := range n.inputs {
		n.pool.Put(b)
		n.inputs[i] = nil
	}
	for i, b := range n.outputs {
		n.pool.Put(b)
		n.outputs[i] = nil
	}
}

// skip returns true if node doesn't need to be processed this quantum.
// Param nodes are always processed because their owner may be.
func (n *Node) skip() bool {
	return n.Owner.IsZero() && !n.reachable && !n.tail && len(n.incoming) == 0
}

// mix sums all incoming connections into node inputs.
func (n *Node) mix(g *Graph) {
	for i, in := range n.inputs {
		connected := 0
		for _, e := range n.incoming {
			if e.DstInput != i {
				continue
			}
			if src := g.Node(e.Src); src != nil {
				if c := src.outputs[e.SrcOutput].NumberOfChannels(); c > connected {
					connected = c
				}
			}
		}
		in.SetNumberOfChannels(n.Config.computed(connected))
		in.Silence()
		for _, e := range n.incoming {
			if e.DstInput != i {
				continue
			}
			if src := g.Node(e.Src); src != nil {
				signal.MixInto(in, src.outputs[e.SrcOutput], n.Config.Interpretation)
			}
		}
	}
}

// prepareOutputs sets output channel count to the count of the first
// input.
func (n *Node) prepareOutputs() {
	numChannels := 1
	if len(n.inputs) > 0 {
		numChannels = n.inputs[0].NumberOfChannels()
	}
	for _, out := range n.outputs {
		out.SetNumberOfChannels(numChannels)
	}
}

func (n *Node) silenceOutputs() {
	for _, out := range n.outputs {
		out.Silence()
	}
}

func (e Edge) less(other Edge) bool {
	if e.Dst != other.Dst {
		return e.Dst.Less(other.Dst)
	}
	if e.Src != other.Src {
		return e.Src.Less(other.Src)
	}
	if e.SrcOutput != other.SrcOutput {
		return e.SrcOutput < other.SrcOutput
	}
	return e.DstInput < other.DstInput
}

// matches returns true if e matches the pattern. Pattern fields with
// negative ports or zero ids match anything.
func (e Edge) matches(pattern Edge) bool {
	return e.Src == pattern.Src &&
		(pattern.SrcOutput < 0 || e.SrcOutput == pattern.SrcOutput) &&
		(pattern.Dst.IsZero() || e.Dst == pattern.Dst) &&
		(pattern.DstInput < 0 || e.DstInput == pattern.DstInput)
}

func insertEdge(edges []Edge, e Edge) []Edge {
	i := 0
	for i < len(edges) && edges[i].less(e) {
		i++
	}
	edges = append(edges, Edge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = e
	return edges
}

func insertLink(links []link, e Edge) []link {
	i := 0
	for i < len(links) && links[i].Edge.less(e) {
		i++
	}
	links = append(links, link{})
	copy(links[i+1:], links[i:])
	links[i] = link{Edge: e}
	return links
}

func removeEdge(edges []Edge, e Edge) []Edge {
	for i := range edges {
		if edges[i] == e {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

func removeLink(links []link, e Edge) []link {
	for i := range links {
		if links[i].Edge == e {
			return append(links[:i], links[i+1:]...)
		}
	}
	return links
}

func containsEdge(edges []Edge, e Edge) bool {
	for i := range edges {
		if edges[i] == e {
			return true
		}
	}
	return false
}
