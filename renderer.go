package webaudio

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/bridge"
	"pipelined.dev/webaudio/log"
	"pipelined.dev/webaudio/metric"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// errTimelineFull is logged when an automation event is dropped.
var errTimelineFull = errors.New("param timeline is full")

// renderer is the render goroutine state. Everything here is owned by
// the render goroutine once run is called.
type renderer struct {
	graph       *graph.Graph
	destination graph.NodeID
	messages    *bridge.Channel
	queries     *bridge.Requests[graph.NodeID, NodeState]
	playback    *backend.Playback
	frames      *atomic.Int64
	sampleRate  float64
	stopc       <-chan struct{}

	// retiredc confirms removed ids to control side. Ids that didn't fit
	// are kept in pending until the next quantum.
	retiredc chan<- graph.NodeID
	removed  []graph.NodeID
	pending  []graph.NodeID

	logger  logrus.FieldLogger
	debug   bool
	meter   metric.ResetFunc
	measure metric.MeasureFunc
}

func newRenderer(c *Context, retiredc chan<- graph.NodeID) *renderer {
	logger := c.logger.WithField("component", "renderer")
	r := renderer{
		graph:      graph.New(),
		messages:   c.messages,
		queries:    c.queries,
		playback:   c.playback,
		frames:     &c.frames,
		sampleRate: c.sampleRate,
		stopc:      c.stopc,
		retiredc:   retiredc,
		removed:    make([]graph.NodeID, 0, c.messageCapacity),
		pending:    make([]graph.NodeID, 0, c.messageCapacity),
		logger:     logger,
		debug:      log.Debugging(logger),
	}
	if c.metrics {
		r.meter = metric.Meter(c, c.sampleRate)
	}
	return &r
}

// run renders a quantum for every demand token until stopped.
func (r *renderer) run(done chan<- struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if r.meter != nil {
		r.measure = r.meter()
	}
	for {
		select {
		case <-r.stopc:
			return
		case <-r.playback.Demand():
			r.tick()
		case req := <-r.queries.Incoming():
			// idle between quanta, mutations sent before the query are
			// applied first.
			r.drain()
			r.confirm()
			req.Reply(r.inspect(req.Query))
		}
	}
}

// tick renders one quantum.
func (r *renderer) tick() {
	r.drain()
	r.removed = r.graph.Retire(r.removed)
	r.confirm()
	r.answer()

	frames := r.frames.Load()
	r.graph.Render(float64(frames)/r.sampleRate, r.sampleRate)
	r.playback.Push(r.graph.Node(r.destination).Output(0))
	r.frames.Store(frames + signal.QuantumSize)
	if r.measure != nil {
		r.measure(signal.QuantumSize)
	}
}

// drain applies messages queued before the quantum started.
func (r *renderer) drain() {
	for n := r.messages.Pending(); n > 0; n-- {
		m, ok := r.messages.TryReceive()
		if !ok {
			return
		}
		r.apply(m)
	}
}

func (r *renderer) apply(m bridge.Message) {
	var err error
	switch m.Kind {
	case bridge.AddNode:
		err = r.graph.AddNodes(m.Nodes...)
	case bridge.RemoveNode:
		r.removed = r.graph.RemoveNode(m.ID, r.removed)
	case bridge.ReleaseNode:
		err = r.graph.Release(m.ID)
	case bridge.Connect:
		err = r.graph.Connect(m.Edge)
	case bridge.Disconnect:
		r.graph.Disconnect(m.Edge)
	case bridge.Automation:
		if p := r.param(m.ID); p != nil && !p.Schedule(m.Event) {
			err = errTimelineFull
		}
	case bridge.CancelAutomation:
		if p := r.param(m.ID); p != nil {
			p.Cancel(m.Time)
		}
	}
	if err != nil && r.debug {
		r.logger.Debugf("%v: %v", m.Kind, err)
	}
}

func (r *renderer) param(id graph.NodeID) *param.Processor {
	n := r.graph.Node(id)
	if n == nil {
		return nil
	}
	p, _ := n.Processor.(*param.Processor)
	return p
}

// confirm hands removed ids over to control side without blocking.
func (r *renderer) confirm() {
	r.pending = append(r.pending, r.removed...)
	r.removed = r.removed[:0]
	sent := 0
	for _, id := range r.pending {
		select {
		case r.retiredc <- id:
			sent++
			continue
		default:
		}
		break
	}
	r.pending = append(r.pending[:0], r.pending[sent:]...)
}

// answer replies to queries queued before the quantum started.
func (r *renderer) answer() {
	for n := r.queries.Pending(); n > 0; n-- {
		req, ok := r.queries.Poll()
		if !ok {
			return
		}
		req.Reply(r.inspect(req.Query))
	}
}

func (r *renderer) inspect(id graph.NodeID) NodeState {
	// refreshes reachability of a dirty graph.
	r.graph.ProcessingOrder()
	n := r.graph.Node(id)
	if n == nil {
		return NodeState{}
	}
	s := NodeState{
		Alive:     true,
		Inputs:    n.Incoming(),
		Tail:      n.Tail(),
		Reachable: n.Reachable(),
		Released:  n.Released(),
	}
	if n.NumOutputs() > 0 {
		s.Channels = n.Output(0).NumberOfChannels()
	}
	for _, e := range r.graph.Delayed() {
		if e.Src == id || e.Dst == id {
			s.Delayed++
		}
	}
	return s
}
