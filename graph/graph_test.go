package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/signal"
)

var mono = graph.ChannelConfig{Count: 1, Mode: graph.Max, Interpretation: signal.Speakers}

// constant writes value into every output sample.
type constant struct {
	value    float64
	channels int
	tail     bool
	calls    int
}

func (c *constant) Process(_, outputs []*signal.Buffer, _ graph.ParamValues, _, _ float64) bool {
	c.calls++
	for _, out := range outputs {
		if c.channels > 0 {
			out.SetNumberOfChannels(c.channels)
		}
		for _, ch := range out.Channels() {
			for i := range ch {
				ch[i] = c.value
			}
		}
	}
	return c.tail
}

// passthrough copies the first input into every output.
type passthrough struct {
	calls int
	tail  bool
}

func (p *passthrough) Process(inputs, outputs []*signal.Buffer, _ graph.ParamValues, _, _ float64) bool {
	p.calls++
	for _, out := range outputs {
		if len(inputs) > 0 {
			out.CopyFrom(inputs[0])
		} else {
			out.Silence()
		}
	}
	return p.tail
}

// paramReader scales its input by the values of its first param.
type paramReader struct{}

func (r *paramReader) Process(inputs, outputs []*signal.Buffer, params graph.ParamValues, _, _ float64) bool {
	values := params.Get(0)
	out := outputs[0]
	out.CopyFrom(inputs[0])
	for _, ch := range out.Channels() {
		for i := range ch {
			ch[i] *= values[i]
		}
	}
	return false
}

type fixture struct {
	ids graph.IDs
	g   *graph.Graph
}

func newFixture() *fixture {
	return &fixture{g: graph.New()}
}

func (f *fixture) add(t *testing.T, p graph.Processor, opts graph.Options) graph.NodeID {
	t.Helper()
	if opts.Config.Count == 0 {
		opts.Config = mono
	}
	id := f.ids.Allocate()
	require.NoError(t, f.g.AddNode(graph.NewNode(id, p, opts)))
	return id
}

func (f *fixture) connect(t *testing.T, src, dst graph.NodeID) {
	t.Helper()
	require.NoError(t, f.g.Connect(graph.Edge{Src: src, Dst: dst}))
}

func position(order []graph.NodeID, id graph.NodeID) int {
	for i := range order {
		if order[i] == id {
			return i
		}
	}
	return -1
}

func TestProcessingOrder(t *testing.T) {
	f := newFixture()
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	gain := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1})
	osc1 := f.add(t, &constant{}, graph.Options{Outputs: 1})
	osc2 := f.add(t, &constant{}, graph.Options{Outputs: 1})
	f.connect(t, osc1, gain)
	f.connect(t, osc2, gain)
	f.connect(t, gain, dest)

	order := f.g.ProcessingOrder()
	assert.Len(t, order, 4)
	assert.Empty(t, f.g.Delayed())
	assert.Less(t, position(order, osc1), position(order, gain))
	assert.Less(t, position(order, osc2), position(order, gain))
	assert.Less(t, position(order, gain), position(order, dest))
	// ties resolve by id.
	assert.Equal(t, []graph.NodeID{osc1, osc2, gain, dest}, order)
}

func TestCycles(t *testing.T) {
	tests := []struct {
		description string
		edges       [][2]int
		delayed     int
	}{
		{
			description: "self loop",
			edges:       [][2]int{{1, 1}, {1, 0}},
			delayed:     1,
		},
		{
			description: "feedback",
			edges:       [][2]int{{1, 2}, {2, 1}, {2, 0}},
			delayed:     1,
		},
		{
			description: "two loops",
			edges:       [][2]int{{1, 2}, {2, 3}, {3, 1}, {3, 2}, {3, 0}},
			delayed:     2,
		},
		{
			description: "diamond without cycle",
			edges:       [][2]int{{1, 2}, {1, 3}, {2, 0}, {3, 0}},
			delayed:     0,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			f := newFixture()
			ids := []graph.NodeID{
				f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true}),
			}
			for i := 1; i < 4; i++ {
				ids = append(ids, f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1}))
			}
			for _, e := range test.edges {
				f.connect(t, ids[e[0]], ids[e[1]])
			}
			order := f.g.ProcessingOrder()
			delayed := f.g.Delayed()
			assert.Len(t, order, len(ids))
			assert.Len(t, delayed, test.delayed)

			isDelayed := func(src, dst graph.NodeID) bool {
				for _, d := range delayed {
					if d.Src == src && d.Dst == dst {
						return true
					}
				}
				return false
			}
			// every non-delayed edge goes forward in the order.
			for _, e := range test.edges {
				src, dst := ids[e[0]], ids[e[1]]
				if isDelayed(src, dst) {
					continue
				}
				assert.Less(t, position(order, src), position(order, dst))
			}
		})
	}
}

func TestFeedbackDelivery(t *testing.T) {
	f := newFixture()
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	src := f.add(t, &constant{value: 1, tail: true}, graph.Options{Outputs: 1})
	a := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1})
	b := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1})
	f.connect(t, src, a)
	f.connect(t, a, b)
	f.connect(t, b, a)
	f.connect(t, b, dest)

	f.g.Render(0, 44100)
	assert.Equal(t, 1.0, f.g.Node(dest).Output(0).Channel(0)[0])
	// the loop adds the previous quantum of b to a.
	f.g.Render(0, 44100)
	assert.Equal(t, 2.0, f.g.Node(dest).Output(0).Channel(0)[0])
	f.g.Render(0, 44100)
	assert.Equal(t, 3.0, f.g.Node(dest).Output(0).Channel(0)[0])
}

func TestConnectDisconnect(t *testing.T) {
	f := newFixture()
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	src := f.add(t, &constant{value: 0.5}, graph.Options{Outputs: 2})

	assert.ErrorIs(t, f.g.Connect(graph.Edge{Src: src, SrcOutput: 2, Dst: dest}), graph.ErrInvalidPort)
	assert.ErrorIs(t, f.g.Connect(graph.Edge{Src: src, Dst: dest, DstInput: 1}), graph.ErrInvalidPort)
	assert.ErrorIs(t, f.g.Connect(graph.Edge{Src: src, Dst: graph.NodeID{Index: 9, Gen: 1}}), graph.ErrUnknownNode)

	f.connect(t, src, dest)
	f.connect(t, src, dest)
	assert.Equal(t, 1, f.g.Node(dest).Incoming())
	require.NoError(t, f.g.Connect(graph.Edge{Src: src, SrcOutput: 1, Dst: dest}))
	assert.Equal(t, 2, f.g.Node(dest).Incoming())

	f.g.Render(0, 44100)
	assert.Equal(t, 1.0, f.g.Node(dest).Output(0).Channel(0)[0])

	assert.Equal(t, 1, f.g.Disconnect(graph.Edge{Src: src, SrcOutput: 1, DstInput: -1}))
	assert.Equal(t, 0, f.g.Disconnect(graph.Edge{Src: src, SrcOutput: 1, DstInput: -1}))
	f.g.Render(0, 44100)
	assert.Equal(t, 0.5, f.g.Node(dest).Output(0).Channel(0)[0])

	assert.Equal(t, 1, f.g.Disconnect(graph.Edge{Src: src, SrcOutput: -1, DstInput: -1}))
	assert.Equal(t, 0, f.g.Node(dest).Incoming())
	f.g.Render(0, 44100)
	assert.True(t, f.g.Node(dest).Output(0).IsSilent())
}

func TestChannelCount(t *testing.T) {
	tests := []struct {
		description string
		config      graph.ChannelConfig
		sources     []int
		expected    int
	}{
		{
			description: "max",
			config:      graph.ChannelConfig{Count: 2, Mode: graph.Max},
			sources:     []int{1, 6},
			expected:    6,
		},
		{
			description: "clamped max",
			config:      graph.ChannelConfig{Count: 2, Mode: graph.ClampedMax},
			sources:     []int{1, 6},
			expected:    2,
		},
		{
			description: "clamped max below count",
			config:      graph.ChannelConfig{Count: 4, Mode: graph.ClampedMax},
			sources:     []int{1},
			expected:    1,
		},
		{
			description: "explicit",
			config:      graph.ChannelConfig{Count: 4, Mode: graph.Explicit},
			sources:     []int{1, 2},
			expected:    4,
		},
		{
			description: "no inputs",
			config:      graph.ChannelConfig{Count: 2, Mode: graph.Max},
			expected:    1,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			f := newFixture()
			dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true, Config: test.config})
			for _, c := range test.sources {
				src := f.add(t, &constant{value: 1, channels: c}, graph.Options{Outputs: 1})
				f.connect(t, src, dest)
			}
			f.g.Render(0, 44100)
			n := f.g.Node(dest)
			assert.Equal(t, test.expected, n.Input(0).NumberOfChannels())
			assert.Equal(t, test.expected, n.Output(0).NumberOfChannels())
		})
	}
}

func TestParams(t *testing.T) {
	f := newFixture()
	ownerID := f.ids.Allocate()
	param := f.add(t, &constant{value: 0.25, tail: true}, graph.Options{Inputs: 1, Outputs: 1, Owner: ownerID})
	require.NoError(t, f.g.AddNode(graph.NewNode(ownerID, &paramReader{}, graph.Options{
		Inputs:  1,
		Outputs: 1,
		Config:  mono,
		Params:  []graph.NodeID{param},
	})))
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	src := f.add(t, &constant{value: 1, tail: true}, graph.Options{Outputs: 1})
	f.connect(t, src, ownerID)
	f.connect(t, ownerID, dest)

	order := f.g.ProcessingOrder()
	assert.Less(t, position(order, param), position(order, ownerID))
	f.g.Render(0, 44100)
	assert.Equal(t, 0.25, f.g.Node(dest).Output(0).Channel(0)[0])
	assert.True(t, f.g.Node(param).Reachable())

	// modulation from owner output closes a cycle over the param edge.
	f.connect(t, ownerID, param)
	assert.Len(t, f.g.Delayed(), 1)

	removed := f.g.RemoveNode(ownerID, nil)
	assert.ElementsMatch(t, []graph.NodeID{ownerID, param}, removed)
	assert.Nil(t, f.g.Node(param))
	assert.Equal(t, 0, f.g.Node(dest).Incoming())
	assert.Equal(t, 2, f.g.Len())
}

func TestMissingOwner(t *testing.T) {
	f := newFixture()
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	ownerID := f.ids.Allocate()
	param := f.add(t, &constant{value: 0.5, tail: true}, graph.Options{Inputs: 1, Outputs: 1, Owner: ownerID})

	assert.NotPanics(t, func() { f.g.Render(0, 44100) })
	assert.Len(t, f.g.ProcessingOrder(), 2)
	assert.Empty(t, f.g.Delayed())

	require.NoError(t, f.g.AddNode(graph.NewNode(ownerID, &paramReader{}, graph.Options{
		Inputs:  1,
		Outputs: 1,
		Config:  mono,
		Params:  []graph.NodeID{param},
	})))
	f.connect(t, ownerID, dest)
	order := f.g.ProcessingOrder()
	assert.Len(t, order, 3)
	assert.Less(t, position(order, param), position(order, ownerID))
}

func TestAddNodes(t *testing.T) {
	f := newFixture()
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	ownerID, paramID := f.ids.Allocate(), f.ids.Allocate()
	owner := graph.NewNode(ownerID, &paramReader{}, graph.Options{
		Inputs:  1,
		Outputs: 1,
		Config:  mono,
		Params:  []graph.NodeID{paramID},
	})
	param := graph.NewNode(paramID, &constant{value: 0.5, tail: true}, graph.Options{
		Inputs:  1,
		Outputs: 1,
		Config:  mono,
		Owner:   ownerID,
	})

	// a taken slot rejects the whole batch.
	taken := graph.NewNode(dest, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Config: mono})
	assert.ErrorIs(t, f.g.AddNodes(owner, param, taken), graph.ErrSlotTaken)
	assert.ErrorIs(t, f.g.AddNodes(owner, owner), graph.ErrSlotTaken)
	assert.Equal(t, 1, f.g.Len())
	assert.Nil(t, f.g.Node(ownerID))

	require.NoError(t, f.g.AddNodes(owner, param))
	assert.Equal(t, 3, f.g.Len())
	f.connect(t, ownerID, dest)
	f.g.Render(0, 44100)
	assert.True(t, f.g.Node(paramID).Reachable())
}

func TestRetire(t *testing.T) {
	f := newFixture()
	dest := f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	src := &constant{value: 1, tail: true}
	srcID := f.add(t, src, graph.Options{Outputs: 1})
	gain := &passthrough{tail: false}
	gainID := f.add(t, gain, graph.Options{Inputs: 1, Outputs: 1})
	f.connect(t, srcID, gainID)
	f.connect(t, gainID, dest)

	require.NoError(t, f.g.Release(gainID))
	for i := 0; i < 3; i++ {
		f.g.Render(0, 44100)
		assert.Empty(t, f.g.Retire(nil), "node with input retired")
	}

	// source stops and releases, it's retired after a full idle quantum.
	src.tail = false
	require.NoError(t, f.g.Release(srcID))
	f.g.Render(0, 44100)
	assert.Equal(t, []graph.NodeID{srcID}, f.g.Retire(nil))
	f.g.Render(0, 44100)
	// released node without inputs and tail only renders silence, it's
	// retired even while connected to the destination.
	assert.True(t, f.g.Node(gainID).Reachable())
	assert.Equal(t, []graph.NodeID{gainID}, f.g.Retire(nil))
	assert.Equal(t, 1, f.g.Len())
	assert.ErrorIs(t, f.g.Release(gainID), graph.ErrUnknownNode)
}

func TestSkipUnreachable(t *testing.T) {
	f := newFixture()
	f.add(t, &passthrough{}, graph.Options{Inputs: 1, Outputs: 1, Terminal: true})
	orphan := &constant{value: 1}
	orphanID := f.add(t, orphan, graph.Options{Outputs: 1})

	f.g.Render(0, 44100)
	assert.Equal(t, 1, orphan.calls, "new node is processed once")
	f.g.Render(0, 44100)
	assert.Equal(t, 1, orphan.calls)
	assert.False(t, f.g.Node(orphanID).Reachable())
	assert.True(t, f.g.Node(orphanID).Output(0).IsSilent())
}

func TestIDs(t *testing.T) {
	var ids graph.IDs
	a := ids.Allocate()
	b := ids.Allocate()
	assert.NotEqual(t, a, b)
	assert.True(t, ids.Live(a))

	assert.True(t, ids.Drop(a))
	assert.False(t, ids.Drop(a))
	assert.False(t, ids.Live(a))
	// index is not reused before recycle.
	c := ids.Allocate()
	assert.NotEqual(t, a.Index, c.Index)

	ids.Recycle(a)
	d := ids.Allocate()
	assert.Equal(t, a.Index, d.Index)
	assert.NotEqual(t, a.Gen, d.Gen)
	assert.False(t, ids.Live(a))
	assert.True(t, ids.Live(d))
}
