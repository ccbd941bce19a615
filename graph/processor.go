package graph

import (
	"errors"
	"fmt"

	"pipelined.dev/webaudio/signal"
)

// Processor is the per-node processing contract. Implementations must
// not block or allocate: Process is called from the render goroutine
// once per quantum.
//
// Inputs are already mixed to the channel count of the node's channel
// configuration. Outputs are pre-set to the channel count of the first
// input (or mono for nodes without inputs); a processor may change it
// with SetNumberOfChannels. Timestamp is the time of the first frame of
// the quantum in seconds.
//
// The returned value is the tail-time flag: true keeps the node
// scheduled even with silent or absent input, false allows the node to
// be retired once it's released and has no inputs.
type Processor interface {
	Process(inputs, outputs []*signal.Buffer, params ParamValues, timestamp, sampleRate float64) bool
}

// ParamValues gives processors access to the rendered values of their
// own params for the current quantum.
type ParamValues struct {
	g   *Graph
	ids []NodeID
}

// Len returns number of params of the node.
func (p ParamValues) Len() int {
	return len(p.ids)
}

// Get returns QuantumSize values of the i-th param of the node. K-rate
// params hold the same value in every position. Nil is returned if
// there is no such param.
func (p ParamValues) Get(i int) []float64 {
	if i < 0 || i >= len(p.ids) {
		return nil
	}
	n := p.g.Node(p.ids[i])
	if n == nil || len(n.outputs) == 0 {
		return nil
	}
	return n.outputs[0].Channel(0)
}

// CountMode defines how the number of input channels is computed.
type CountMode int

const (
	// Max uses the maximum channel count of all connections.
	Max CountMode = iota
	// ClampedMax uses Max, but limited by the configured count.
	ClampedMax
	// Explicit always uses the configured count.
	Explicit
)

func (m CountMode) String() string {
	switch m {
	case Max:
		return "max"
	case ClampedMax:
		return "clamped-max"
	case Explicit:
		return "explicit"
	}
	return "unknown"
}

// ChannelConfig defines the channel mixing of node inputs.
type ChannelConfig struct {
	Count          int
	Mode           CountMode
	Interpretation signal.Interpretation
}

// ErrInvalidChannelConfig is returned when channel configuration is out
// of allowed ranges.
var ErrInvalidChannelConfig = errors.New("invalid channel configuration")

// Validate checks the configuration.
func (c ChannelConfig) Validate() error {
	if c.Count < 1 || c.Count > signal.MaxChannels {
		return fmt.Errorf("%w: count %d must be in [1, %d]", ErrInvalidChannelConfig, c.Count, signal.MaxChannels)
	}
	if c.Mode < Max || c.Mode > Explicit {
		return fmt.Errorf("%w: unknown count mode %d", ErrInvalidChannelConfig, c.Mode)
	}
	if c.Interpretation != signal.Speakers && c.Interpretation != signal.Discrete {
		return fmt.Errorf("%w: unknown interpretation %d", ErrInvalidChannelConfig, c.Interpretation)
	}
	return nil
}

// computed returns the input channel count for the maximum channel count
// of connections. Zero means there are no connections.
func (c ChannelConfig) computed(connected int) int {
	switch c.Mode {
	case Explicit:
		return c.Count
	case ClampedMax:
		if connected > c.Count {
			return c.Count
		}
	}
	if connected == 0 {
		return 1
	}
	return connected
}
