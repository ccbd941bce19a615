package webaudio

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/bridge"
	"pipelined.dev/webaudio/internal/state"
	"pipelined.dev/webaudio/log"
	"pipelined.dev/webaudio/metric"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// DefaultChannelConfig is used for nodes created without channel
// configuration.
var DefaultChannelConfig = graph.ChannelConfig{
	Count:          2,
	Mode:           graph.Max,
	Interpretation: signal.Speakers,
}

// Context is an audio graph rendered into a sink. All methods are safe
// to call from multiple goroutines.
type Context struct {
	uid         string
	name        string
	logger      logrus.FieldLogger
	sink        backend.Sink
	playback    *backend.Playback
	sampleRate  float64
	numChannels int

	messageCapacity int
	queryTimeout    time.Duration
	latency         int
	metrics         bool
	suspended       bool

	ids         graph.IDs
	messages    *bridge.Channel
	queries     *bridge.Requests[graph.NodeID, NodeState]
	handle      *state.Handle
	destination *Node
	frames      atomic.Int64
	stopc       chan struct{}
	rendered    chan struct{}
}

// NodeOptions define the shape of a new node.
type NodeOptions struct {
	Inputs  int
	Outputs int
	// Config is the channel mixing of inputs. Zero value means
	// DefaultChannelConfig.
	Config graph.ChannelConfig
	// Params are created together with the node, in this order.
	Params []param.Descriptor
	// Terminal nodes are the roots of reachability.
	Terminal bool
}

// NodeState is the render-side state of a node.
type NodeState struct {
	Alive     bool
	Inputs    int
	Tail      bool
	Reachable bool
	Released  bool
	// Channels is the channel count of the first output.
	Channels int
	// Delayed is number of cycle-closing edges connected to the node.
	Delayed int
}

// New creates a context that renders into sink and starts it. Returned
// context is running, unless WithSuspended is provided.
func New(sink backend.Sink, options ...Option) (*Context, error) {
	c := &Context{
		uid:             xid.New().String(),
		sink:            sink,
		sampleRate:      sink.SampleRate(),
		numChannels:     sink.NumberOfChannels(),
		messageCapacity: defaultMessageCapacity,
		queryTimeout:    defaultQueryTimeout,
		latency:         defaultLatency,
		stopc:           make(chan struct{}),
		rendered:        make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}
	if c.sampleRate <= 0 {
		return nil, configurationError("new context", fmt.Errorf("sample rate %v must be positive", c.sampleRate))
	}
	if c.numChannels < 1 || c.numChannels > signal.MaxChannels {
		return nil, configurationError("new context", fmt.Errorf("%w: %d channels", graph.ErrInvalidChannelConfig, c.numChannels))
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	fields := logrus.Fields{"context": c.uid}
	if c.name != "" {
		fields["name"] = c.name
	}
	c.logger = c.logger.WithFields(fields)

	c.playback = backend.NewPlayback(c.numChannels, c.latency, c.logger)
	c.messages = bridge.NewChannel(c.messageCapacity)
	c.queries = bridge.NewRequests[graph.NodeID, NodeState](defaultQueryCapacity)
	retiredc := make(chan graph.NodeID, c.messageCapacity)

	r := newRenderer(c, retiredc)
	dest, n := c.newNode(destination{}, NodeOptions{
		Inputs:  1,
		Outputs: 1,
		Config: graph.ChannelConfig{
			Count:          c.numChannels,
			Mode:           graph.Explicit,
			Interpretation: signal.Speakers,
		},
		Terminal: true,
	})
	// destination is added before the render goroutine owns the graph.
	if err := r.graph.AddNodes(n...); err != nil {
		return nil, err
	}
	r.destination = dest.id
	c.destination = dest
	go r.run(c.rendered)

	d := &device{sink: sink, playback: c.playback}
	var initial state.State = state.Suspended
	if !c.suspended {
		if err := d.start(); err != nil {
			close(c.stopc)
			<-c.rendered
			return nil, err
		}
		initial = state.Running
	}
	c.handle = state.NewHandle(d, initial, retiredc, c.stop, c.ids.Recycle, c.logger.WithField("component", "state"))
	go state.Loop(c.handle)
	c.logger.Infof("created: %v Hz, %d channels, %v", c.sampleRate, c.numChannels, initial)
	return c, nil
}

// device starts the sink on the first resume. It's only used by the
// state goroutine.
type device struct {
	sink     backend.Sink
	playback *backend.Playback
	started  bool
}

func (d *device) start() error {
	d.playback.Prime()
	if err := d.sink.Start(d.playback); err != nil {
		return backend.Wrap("start", err)
	}
	d.started = true
	return nil
}

func (d *device) Suspend() error {
	if !d.started {
		return nil
	}
	return backend.Wrap("suspend", d.sink.Suspend())
}

func (d *device) Resume() error {
	if !d.started {
		return d.start()
	}
	return backend.Wrap("resume", d.sink.Resume())
}

// SampleRate of rendered audio.
func (c *Context) SampleRate() float64 {
	return c.sampleRate
}

// NumberOfChannels of rendered audio.
func (c *Context) NumberOfChannels() int {
	return c.numChannels
}

// CurrentTime returns the time of the next quantum to render in
// seconds.
func (c *Context) CurrentTime() float64 {
	return float64(c.frames.Load()) / c.sampleRate
}

// Destination returns the node that delivers audio to the sink.
func (c *Context) Destination() *Node {
	return c.destination
}

// QueryTimeout returns the limit to wait for render goroutine answers.
func (c *Context) QueryTimeout() time.Duration {
	return c.queryTimeout
}

// Logger returns the context logger.
func (c *Context) Logger() logrus.FieldLogger {
	return c.logger
}

// State returns the current lifecycle state.
func (c *Context) State() state.State {
	return c.handle.State()
}

// Done is closed when the context is closed.
func (c *Context) Done() <-chan struct{} {
	return c.handle.Done()
}

// Suspend pauses the sink. The graph is kept, render goroutine stops
// once it rendered ahead the configured latency.
func (c *Context) Suspend() error {
	return c.handle.Suspend()
}

// Resume continues rendering.
func (c *Context) Resume() error {
	return c.handle.Resume()
}

// Close stops rendering and releases the sink. It's terminal and
// subsequent calls are no-op.
func (c *Context) Close() error {
	return c.handle.Close()
}

// NewNode creates a node with the processor and hands it over to the
// render goroutine. Processor must not be used by the caller afterwards.
func (c *Context) NewNode(p graph.Processor, opts NodeOptions) (*Node, error) {
	if p == nil {
		return nil, configurationError("new node", errors.New("nil processor"))
	}
	if opts.Inputs < 0 || opts.Outputs < 0 {
		return nil, configurationError("new node", fmt.Errorf("%w: %d inputs, %d outputs", graph.ErrInvalidPort, opts.Inputs, opts.Outputs))
	}
	if opts.Config == (graph.ChannelConfig{}) {
		opts.Config = DefaultChannelConfig
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, configurationError("new node", err)
	}
	for _, d := range opts.Params {
		if err := d.Validate(); err != nil {
			return nil, configurationError("new node", err)
		}
	}
	if c.closed() {
		return nil, ErrInvalidState
	}

	node, nodes := c.newNode(p, opts)
	if err := c.send(bridge.Message{Kind: bridge.AddNode, Nodes: nodes}); err != nil {
		return nil, err
	}
	return node, nil
}

// newNode allocates ids and render state for the node and its params.
// The owner is the first returned graph node.
func (c *Context) newNode(p graph.Processor, opts NodeOptions) (*Node, []*graph.Node) {
	id := c.ids.Allocate()
	node := &Node{
		ctx:        c,
		id:         id,
		numInputs:  opts.Inputs,
		numOutputs: opts.Outputs,
		params:     make([]*Param, len(opts.Params)),
	}
	nodes := make([]*graph.Node, 1, len(opts.Params)+1)
	paramIDs := make([]graph.NodeID, len(opts.Params))
	for i, d := range opts.Params {
		pid := c.ids.Allocate()
		pp := param.NewProcessor(d)
		paramIDs[i] = pid
		node.params[i] = &Param{
			ctx:       c,
			id:        pid,
			owner:     node,
			processor: pp,
		}
		nodes = append(nodes, graph.NewNode(pid, pp, graph.Options{
			Inputs:  1,
			Outputs: 1,
			Config:  param.Config,
			Owner:   id,
		}))
	}
	nodes[0] = graph.NewNode(id, p, graph.Options{
		Inputs:   opts.Inputs,
		Outputs:  opts.Outputs,
		Config:   opts.Config,
		Terminal: opts.Terminal,
		Params:   paramIDs,
	})
	return node, nodes
}

// Remove deletes the node at the next quantum boundary together with
// its params and edges.
func (c *Context) Remove(n *Node) error {
	if n == c.destination {
		return configurationError("remove", errors.New("destination can't be removed"))
	}
	if err := c.drop("remove", n); err != nil {
		return err
	}
	return c.send(bridge.Message{Kind: bridge.RemoveNode, ID: n.id})
}

// Inspect returns the render-side state of the node. The state is
// observed at a quantum boundary and may not include mutations that are
// still queued.
func (c *Context) Inspect(ctx context.Context, n *Node) (NodeState, error) {
	if c.closed() {
		return NodeState{}, ErrInvalidState
	}
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()
	s, err := c.queries.Ask(ctx, n.id)
	if errors.Is(err, context.DeadlineExceeded) {
		return NodeState{}, fmt.Errorf("inspect %v: %w", n.id, ErrQueryTimeout)
	}
	return s, err
}

// drop marks the node and its params as no longer referenced by
// control side.
func (c *Context) drop(op string, n *Node) error {
	if n.ctx != c || !c.ids.Drop(n.id) {
		return configurationError(op, fmt.Errorf("%w: %v", graph.ErrUnknownNode, n.id))
	}
	for _, p := range n.params {
		c.ids.Drop(p.id)
	}
	return nil
}

// send hands the message over to render goroutine. It blocks while the
// channel is full.
func (c *Context) send(m bridge.Message) error {
	if err := c.messages.Send(context.Background(), m); err != nil {
		if errors.Is(err, bridge.ErrClosed) {
			return ErrInvalidState
		}
		return err
	}
	return nil
}

func (c *Context) closed() bool {
	select {
	case <-c.handle.Done():
		return true
	default:
		return false
	}
}

// live returns a configuration error if id can't be used anymore.
func (c *Context) live(op string, id graph.NodeID) error {
	if !c.ids.Live(id) {
		return configurationError(op, fmt.Errorf("%w: %v", graph.ErrUnknownNode, id))
	}
	return nil
}

// stop is called once by the state loop when context is closed.
func (c *Context) stop() error {
	var errs closeErrors
	if err := c.sink.Close(); err != nil {
		errs = append(errs, backend.Wrap("close", err))
	}
	close(c.stopc)
	<-c.rendered
	c.messages.Close()
	c.playback.Close()
	if c.metrics {
		c.logger.Debugf("metrics: %v", metric.Get(c))
	}
	c.logger.Infof("closed at %.3fs", c.CurrentTime())
	return errs.ret()
}
