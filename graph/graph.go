// Package graph implements the render-side audio graph: an arena of
// nodes addressed by generation-tagged ids, audio edges between node
// ports, the processing order and per-quantum rendering.
//
// Graph is not safe for concurrent use. It's owned by the render
// goroutine, the control goroutine only creates nodes with NewNode and
// hands them over.
package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNode is returned when id doesn't resolve to a live node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidPort is returned when input or output index is out of
	// range.
	ErrInvalidPort = errors.New("invalid port")
	// ErrSlotTaken is returned when a node is added into an occupied slot.
	ErrSlotTaken = errors.New("slot is taken")
)

// Graph holds nodes, edges and the cached processing order.
type Graph struct {
	nodes   []*Node
	order   []NodeID
	delayed []Edge
	dirty   bool

	// scratch space for ordering.
	color    []uint8
	indegree []int
	stack    []frame
	ready    idHeap
	queue    []NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// Node returns the node for provided id or nil if id is stale or unknown.
func (g *Graph) Node(id NodeID) *Node {
	if id.IsZero() || int(id.Index) >= len(g.nodes) {
		return nil
	}
	if n := g.nodes[id.Index]; n != nil && n.ID == id {
		return n
	}
	return nil
}

// Len returns number of nodes in the graph.
func (g *Graph) Len() int {
	l := 0
	for _, n := range g.nodes {
		if n != nil {
			l++
		}
	}
	return l
}

// AddNode puts the node into the arena slot addressed by its id.
func (g *Graph) AddNode(n *Node) error {
	return g.AddNodes(n)
}

// AddNodes puts a node together with its params into the arena. Either
// all nodes are added or none.
func (g *Graph) AddNodes(nodes ...*Node) error {
	for i, n := range nodes {
		if n == nil || n.ID.IsZero() {
			return fmt.Errorf("add node: %w", ErrUnknownNode)
		}
		if int(n.ID.Index) < len(g.nodes) && g.nodes[n.ID.Index] != nil {
			return fmt.Errorf("add node %v: %w", n.ID, ErrSlotTaken)
		}
		for _, prev := range nodes[:i] {
			if prev.ID.Index == n.ID.Index {
				return fmt.Errorf("add node %v: %w", n.ID, ErrSlotTaken)
			}
		}
	}
	for _, n := range nodes {
		for int(n.ID.Index) >= len(g.nodes) {
			g.nodes = append(g.nodes, nil)
		}
		g.nodes[n.ID.Index] = n
	}
	g.dirty = true
	return nil
}

// owner returns the node that owns the param node n. It's nil if n is
// not a param or the owner is not in the graph.
func (g *Graph) owner(n *Node) *Node {
	if n.Owner.IsZero() {
		return nil
	}
	return g.Node(n.Owner)
}

// RemoveNode removes the node, its params and all connected edges. Ids
// of removed nodes are appended to removed.
func (g *Graph) RemoveNode(id NodeID, removed []NodeID) []NodeID {
	n := g.Node(id)
	if n == nil {
		return removed
	}
	for _, p := range n.Params {
		removed = g.RemoveNode(p, removed)
	}
	for _, e := range n.incoming {
		if src := g.Node(e.Src); src != nil {
			src.outgoing = removeLink(src.outgoing, e)
		}
	}
	for _, l := range n.outgoing {
		if dst := g.Node(l.Dst); dst != nil {
			dst.incoming = removeEdge(dst.incoming, l.Edge)
		}
	}
	n.incoming = n.incoming[:0]
	n.outgoing = n.outgoing[:0]
	n.free()
	g.nodes[id.Index] = nil
	g.dirty = true
	return append(removed, id)
}

// Release marks the node as no longer referenced by the control side.
// Released nodes are retired once they have no inputs and no tail.
func (g *Graph) Release(id NodeID) error {
	n := g.Node(id)
	if n == nil {
		return fmt.Errorf("release node %v: %w", id, ErrUnknownNode)
	}
	n.released = true
	return nil
}

// Connect adds the edge. Connecting an existing edge is a no-op.
func (g *Graph) Connect(e Edge) error {
	src, dst, err := g.endpoints(e)
	if err != nil {
		return fmt.Errorf("connect %v: %w", e, err)
	}
	if containsEdge(dst.incoming, e) {
		return nil
	}
	src.outgoing = insertLink(src.outgoing, e)
	dst.incoming = insertEdge(dst.incoming, e)
	g.dirty = true
	return nil
}

// Disconnect removes all edges that match the pattern: negative ports
// and zero destination match anything. Number of removed edges is
// returned.
func (g *Graph) Disconnect(pattern Edge) int {
	src := g.Node(pattern.Src)
	if src == nil {
		return 0
	}
	removed := 0
	for i := 0; i < len(src.outgoing); {
		e := src.outgoing[i].Edge
		if !e.matches(pattern) {
			i++
			continue
		}
		src.outgoing = append(src.outgoing[:i], src.outgoing[i+1:]...)
		if dst := g.Node(e.Dst); dst != nil {
			dst.incoming = removeEdge(dst.incoming, e)
		}
		removed++
	}
	if removed > 0 {
		g.dirty = true
	}
	return removed
}

// Render processes one quantum: every node in processing order gets its
// inputs mixed and its processor invoked.
func (g *Graph) Render(timestamp, sampleRate float64) {
	g.refresh()
	for _, id := range g.order {
		n := g.nodes[id.Index]
		if n.skip() {
			n.silenceOutputs()
			continue
		}
		n.mix(g)
		n.prepareOutputs()
		params := ParamValues{g: g, ids: n.Params}
		n.tail = n.Processor.Process(n.inputs, n.outputs, params, timestamp, sampleRate)
	}
	for _, id := range g.order {
		n := g.nodes[id.Index]
		if !n.released {
			continue
		}
		if !n.tail && len(n.incoming) == 0 {
			n.idle++
		} else {
			n.idle = 0
		}
	}
}

// Retire removes released nodes that spent at least one full quantum
// without inputs and tail. Reachability isn't checked: such a node only
// outputs silence. Ids of removed nodes are appended to removed.
func (g *Graph) Retire(removed []NodeID) []NodeID {
	for _, id := range g.order {
		n := g.Node(id)
		if n == nil || !n.released || !n.Owner.IsZero() {
			continue
		}
		if n.idle > 0 {
			removed = g.RemoveNode(id, removed)
		}
	}
	return removed
}

func (g *Graph) endpoints(e Edge) (*Node, *Node, error) {
	src, dst := g.Node(e.Src), g.Node(e.Dst)
	if src == nil || dst == nil {
		return nil, nil, ErrUnknownNode
	}
	if e.SrcOutput < 0 || e.SrcOutput >= len(src.outputs) {
		return nil, nil, fmt.Errorf("%w: output %d", ErrInvalidPort, e.SrcOutput)
	}
	if e.DstInput < 0 || e.DstInput >= len(dst.inputs) {
		return nil, nil, fmt.Errorf("%w: input %d", ErrInvalidPort, e.DstInput)
	}
	return src, dst, nil
}
