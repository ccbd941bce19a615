package param

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/signal"
)

// Rate defines how often param values are computed.
type Rate int

const (
	// ARate params have a value per frame.
	ARate Rate = iota
	// KRate params have a single value per quantum.
	KRate
)

func (r Rate) String() string {
	if r == KRate {
		return "k-rate"
	}
	return "a-rate"
}

// ErrInvalidDescriptor is returned when param bounds are inconsistent.
var ErrInvalidDescriptor = errors.New("invalid param descriptor")

// Descriptor defines param bounds, default value and rate.
type Descriptor struct {
	Min     float64
	Max     float64
	Default float64
	Rate    Rate
}

// Validate checks that Min <= Default <= Max.
func (d Descriptor) Validate() error {
	if math.IsNaN(d.Min) || math.IsNaN(d.Max) || !finite(d.Default) {
		return fmt.Errorf("%w: NaN bound or default", ErrInvalidDescriptor)
	}
	if d.Min > d.Max {
		return fmt.Errorf("%w: min %v is greater than max %v", ErrInvalidDescriptor, d.Min, d.Max)
	}
	if d.Default < d.Min || d.Default > d.Max {
		return fmt.Errorf("%w: default %v is out of [%v, %v]", ErrInvalidDescriptor, d.Default, d.Min, d.Max)
	}
	if d.Rate != ARate && d.Rate != KRate {
		return fmt.Errorf("%w: unknown rate %d", ErrInvalidDescriptor, d.Rate)
	}
	return nil
}

func (d Descriptor) clamp(v float64) float64 {
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// Config is the channel configuration of param nodes: modulation inputs
// are mixed down to mono.
var Config = graph.ChannelConfig{
	Count:          1,
	Mode:           graph.Explicit,
	Interpretation: signal.Speakers,
}

// Processor renders param values into the first channel of its output.
// Connected audio is added to the automated value before clamping.
// Schedule and Cancel must be called on the render goroutine, Value is
// safe to call from any goroutine.
type Processor struct {
	descriptor Descriptor
	timeline   *Timeline
	last       atomic.Uint64
}

// NewProcessor returns a param processor that holds the default value.
func NewProcessor(d Descriptor) *Processor {
	p := &Processor{
		descriptor: d,
		timeline:   NewTimeline(d.Default),
	}
	p.last.Store(math.Float64bits(d.Default))
	return p
}

// Descriptor returns param bounds.
func (p *Processor) Descriptor() Descriptor {
	return p.descriptor
}

// Schedule inserts the automation event. It returns false if the
// timeline is full and the event is dropped.
func (p *Processor) Schedule(e Event) bool {
	return p.timeline.Insert(e)
}

// Cancel removes events scheduled at or after t.
func (p *Processor) Cancel(t float64) {
	p.timeline.Cancel(t)
}

// Value returns the last rendered value.
func (p *Processor) Value() float64 {
	return math.Float64frombits(p.last.Load())
}

// Process implements graph.Processor.
func (p *Processor) Process(inputs, outputs []*signal.Buffer, _ graph.ParamValues, timestamp, sampleRate float64) bool {
	out := outputs[0]
	out.SetNumberOfChannels(1)
	values := out.Channel(0)
	p.timeline.Fill(values, timestamp, sampleRate, p.descriptor.Rate)
	if len(inputs) > 0 {
		mod := inputs[0].Channel(0)
		if p.descriptor.Rate == KRate {
			for i := range values {
				values[i] += mod[0]
			}
		} else {
			for i := range values {
				values[i] += mod[i]
			}
		}
	}
	for i := range values {
		values[i] = p.descriptor.clamp(values[i])
	}
	p.last.Store(math.Float64bits(values[len(values)-1]))
	return true
}
