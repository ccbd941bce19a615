package node

import (
	"fmt"
	"math"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// DelayOptions configure a delay node.
type DelayOptions struct {
	// MaxDelay in seconds, 1 by default.
	MaxDelay float64
	// Channels is the maximum number of delayed channels, 2 by default.
	Channels int
}

// Delay delays its input by the delay time param. In a feedback loop the
// cycle-closing edge adds one quantum to the delay.
type Delay struct {
	*webaudio.Node
}

// NewDelay creates a delay node. Delay lines are allocated here, so the
// render goroutine never allocates.
func NewDelay(ctx *webaudio.Context, opts DelayOptions) (*Delay, error) {
	if opts.MaxDelay == 0 {
		opts.MaxDelay = 1
	}
	if opts.Channels == 0 {
		opts.Channels = 2
	}
	if math.IsNaN(opts.MaxDelay) || opts.MaxDelay < 0 || opts.MaxDelay > 180 {
		return nil, configurationError("new delay", fmt.Errorf("max delay %v must be in (0, 180]", opts.MaxDelay))
	}
	size := int(math.Ceil(opts.MaxDelay*ctx.SampleRate())) + 1
	d := &delay{
		lines: make([][]float64, opts.Channels),
		size:  size,
	}
	for i := range d.lines {
		d.lines[i] = make([]float64, size)
	}
	n, err := ctx.NewNode(d, webaudio.NodeOptions{
		Inputs:  1,
		Outputs: 1,
		Config: graph.ChannelConfig{
			Count:          opts.Channels,
			Mode:           graph.ClampedMax,
			Interpretation: signal.Speakers,
		},
		Params: []param.Descriptor{
			{Max: opts.MaxDelay, Rate: param.KRate},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Delay{Node: n}, nil
}

// DelayTime returns the delay time param in seconds.
func (d *Delay) DelayTime() *webaudio.Param {
	return d.Param(0)
}

type delay struct {
	lines [][]float64
	size  int
	pos   int
	// silent is number of frames since the last non-silent input.
	silent int
}

func (d *delay) Process(inputs, outputs []*signal.Buffer, params graph.ParamValues, _, sampleRate float64) bool {
	frames := int(math.Round(params.Get(0)[0] * sampleRate))
	if frames > d.size-1 {
		frames = d.size - 1
	}
	in, out := inputs[0], outputs[0]
	pos := d.pos
	for j, dst := range out.Channels() {
		line, src := d.lines[j], in.Channel(j)
		pos = d.pos
		for i, x := range src {
			line[pos] = x
			read := pos - frames
			if read < 0 {
				read += d.size
			}
			dst[i] = line[read]
			if pos++; pos == d.size {
				pos = 0
			}
		}
	}
	d.pos = pos
	if in.IsSilent() {
		d.silent += signal.QuantumSize
	} else {
		d.silent = 0
	}
	return d.silent < d.size
}
