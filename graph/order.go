package graph

const (
	white uint8 = iota
	gray
	black
)

// frame is a step of the iterative depth-first search. next indexes the
// outgoing links of the node, len(outgoing) is the owner step of param
// nodes.
type frame struct {
	id   NodeID
	next int
}

// ProcessingOrder returns the order in which nodes are rendered. The
// returned slice is owned by the graph.
func (g *Graph) ProcessingOrder() []NodeID {
	g.refresh()
	return g.order
}

// Delayed returns edges that close cycles. They deliver the output of the
// previous quantum. Edges between a param node and its owner have
// DstInput set to ParamInput.
func (g *Graph) Delayed() []Edge {
	g.refresh()
	return g.delayed
}

// refresh recomputes the processing order, delayed edges and
// reachability if the topology changed.
func (g *Graph) refresh() {
	if !g.dirty {
		return
	}
	g.dirty = false
	g.classify()
	g.sort()
	g.reach()
}

// classify marks back edges found by depth-first search as delayed.
// Roots are visited in ascending index order and successors in ascending
// destination order, so the result depends only on the topology.
func (g *Graph) classify() {
	g.color = resize(g.color, len(g.nodes))
	for i := range g.color {
		g.color[i] = white
	}
	g.delayed = g.delayed[:0]
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		n.ownerDelayed = false
		for i := range n.outgoing {
			n.outgoing[i].delayed = false
		}
	}
	for _, root := range g.nodes {
		if root == nil || g.color[root.ID.Index] != white {
			continue
		}
		g.color[root.ID.Index] = gray
		g.stack = append(g.stack[:0], frame{id: root.ID})
		for len(g.stack) > 0 {
			top := &g.stack[len(g.stack)-1]
			n := g.nodes[top.id.Index]
			if top.next > len(n.outgoing) {
				g.color[n.ID.Index] = black
				g.stack = g.stack[:len(g.stack)-1]
				continue
			}
			step := top.next
			top.next++
			var succ *Node
			if step < len(n.outgoing) {
				succ = g.Node(n.outgoing[step].Dst)
			} else {
				succ = g.owner(n)
			}
			if succ == nil {
				continue
			}
			switch g.color[succ.ID.Index] {
			case white:
				g.color[succ.ID.Index] = gray
				g.stack = append(g.stack, frame{id: succ.ID})
			case gray:
				if step < len(n.outgoing) {
					n.outgoing[step].delayed = true
					g.delayed = append(g.delayed, n.outgoing[step].Edge)
				} else {
					n.ownerDelayed = true
					g.delayed = append(g.delayed, Edge{Src: n.ID, Dst: n.Owner, DstInput: ParamInput})
				}
			}
		}
	}
}

// sort orders nodes topologically over non-delayed edges. Among ready
// nodes the one with the smallest id goes first.
func (g *Graph) sort() {
	g.indegree = resize(g.indegree, len(g.nodes))
	for i := range g.indegree {
		g.indegree[i] = 0
	}
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for _, l := range n.outgoing {
			if !l.delayed {
				g.indegree[l.Dst.Index]++
			}
		}
		if owner := g.owner(n); owner != nil && !n.ownerDelayed {
			g.indegree[owner.ID.Index]++
		}
	}
	g.ready = g.ready[:0]
	for _, n := range g.nodes {
		if n != nil && g.indegree[n.ID.Index] == 0 {
			g.ready.push(n.ID)
		}
	}
	g.order = g.order[:0]
	for len(g.ready) > 0 {
		id := g.ready.pop()
		g.order = append(g.order, id)
		n := g.nodes[id.Index]
		for _, l := range n.outgoing {
			if l.delayed {
				continue
			}
			if g.indegree[l.Dst.Index]--; g.indegree[l.Dst.Index] == 0 {
				g.ready.push(l.Dst)
			}
		}
		if owner := g.owner(n); owner != nil && !n.ownerDelayed {
			if g.indegree[owner.ID.Index]--; g.indegree[owner.ID.Index] == 0 {
				g.ready.push(owner.ID)
			}
		}
	}
}

// reach marks nodes that have a path to a terminal node. Params are
// reachable when their owner is.
func (g *Graph) reach() {
	g.queue = g.queue[:0]
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		n.reachable = n.Terminal
		if n.Terminal {
			g.queue = append(g.queue, n.ID)
		}
	}
	visit := func(id NodeID) {
		if p := g.Node(id); p != nil && !p.reachable {
			p.reachable = true
			g.queue = append(g.queue, id)
		}
	}
	for i := 0; i < len(g.queue); i++ {
		n := g.nodes[g.queue[i].Index]
		for _, e := range n.incoming {
			visit(e.Src)
		}
		for _, p := range n.Params {
			visit(p)
		}
	}
}

// idHeap is a binary min-heap of ids.
type idHeap []NodeID

func (h *idHeap) push(id NodeID) {
	*h = append(*h, id)
	s := *h
	for i := len(s) - 1; i > 0; {
		parent := (i - 1) / 2
		if !s[i].Less(s[parent]) {
			break
		}
		s[i], s[parent] = s[parent], s[i]
		i = parent
	}
}

func (h *idHeap) pop() NodeID {
	s := *h
	top := s[0]
	last := len(s) - 1
	s[0] = s[last]
	s = s[:last]
	for i := 0; ; {
		smallest, l, r := i, 2*i+1, 2*i+2
		if l < len(s) && s[l].Less(s[smallest]) {
			smallest = l
		}
		if r < len(s) && s[r].Less(s[smallest]) {
			smallest = r
		}
		if smallest == i {
			break
		}
		s[i], s[smallest] = s[smallest], s[i]
		i = smallest
	}
	*h = s
	return top
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
