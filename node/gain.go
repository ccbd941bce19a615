package node

import (
	"math"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// Gain multiplies its input by the gain param.
type Gain struct {
	*webaudio.Node
}

// NewGain creates a gain node with unity gain.
func NewGain(ctx *webaudio.Context) (*Gain, error) {
	n, err := ctx.NewNode(gain{}, webaudio.NodeOptions{
		Inputs:  1,
		Outputs: 1,
		Params: []param.Descriptor{
			{Min: -math.MaxFloat64, Max: math.MaxFloat64, Default: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Gain{Node: n}, nil
}

// Gain returns the gain param.
func (g *Gain) Gain() *webaudio.Param {
	return g.Param(0)
}

type gain struct{}

func (gain) Process(inputs, outputs []*signal.Buffer, params graph.ParamValues, _, _ float64) bool {
	values := params.Get(0)
	in, out := inputs[0], outputs[0]
	for j, c := range out.Channels() {
		src := in.Channel(j)
		for i := range c {
			c[i] = src[i] * values[i]
		}
	}
	return false
}
