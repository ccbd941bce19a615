package node

import (
	"fmt"
	"math"
	"sync/atomic"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// Waveform of oscillator.
type Waveform int32

// waveforms
const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	}
	return "unknown"
}

// sample returns the waveform value at phase in [0, 1).
func (w Waveform) sample(phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		_, frac := math.Modf(phase + 0.5)
		return 2*frac - 1
	case Triangle:
		_, frac := math.Modf(phase + 0.25)
		return 1 - 4*math.Abs(frac-0.5)
	}
	return math.Sin(2 * math.Pi * phase)
}

// Oscillator is a periodic source. It's silent until started.
type Oscillator struct {
	*webaudio.Node
	*schedule
	waveform *atomic.Int32
}

// NewOscillator creates a mono oscillator with provided waveform at
// 440 Hz or nyquist, whichever is lower.
func NewOscillator(ctx *webaudio.Context, w Waveform) (*Oscillator, error) {
	if err := validWaveform(w); err != nil {
		return nil, err
	}
	nyquist := ctx.SampleRate() / 2
	o := &Oscillator{
		schedule: newSchedule(),
		waveform: &atomic.Int32{},
	}
	o.waveform.Store(int32(w))
	n, err := ctx.NewNode(&oscillator{waveform: o.waveform, schedule: o.schedule}, webaudio.NodeOptions{
		Outputs: 1,
		Config:  mono,
		Params: []param.Descriptor{
			{Min: -nyquist, Max: nyquist, Default: math.Min(440, nyquist)},
			{Min: -maxDetune, Max: maxDetune},
		},
	})
	if err != nil {
		return nil, err
	}
	o.Node = n
	return o, nil
}

// Frequency returns the frequency param in Hz.
func (o *Oscillator) Frequency() *webaudio.Param {
	return o.Param(0)
}

// Detune returns the detune param in cents.
func (o *Oscillator) Detune() *webaudio.Param {
	return o.Param(1)
}

// Waveform returns the current waveform.
func (o *Oscillator) Waveform() Waveform {
	return Waveform(o.waveform.Load())
}

// SetWaveform changes the waveform from the next quantum.
func (o *Oscillator) SetWaveform(w Waveform) error {
	if err := validWaveform(w); err != nil {
		return err
	}
	o.waveform.Store(int32(w))
	return nil
}

func validWaveform(w Waveform) error {
	if w < Sine || w > Triangle {
		return configurationError("waveform", fmt.Errorf("unknown waveform %d", w))
	}
	return nil
}

type oscillator struct {
	waveform *atomic.Int32
	*schedule
	phase float64
}

func (o *oscillator) Process(_, outputs []*signal.Buffer, params graph.ParamValues, timestamp, sampleRate float64) bool {
	from, to, ended := o.window(timestamp, sampleRate)
	out := outputs[0]
	out.SetNumberOfChannels(1)
	c := out.Channel(0)
	frequency, detune := params.Get(0), params.Get(1)
	w := Waveform(o.waveform.Load())
	for i := range c {
		if i < from || i >= to {
			c[i] = 0
			continue
		}
		c[i] = w.sample(o.phase)
		o.phase += computedFrequency(frequency[i], detune[i]) / sampleRate
		o.phase -= math.Floor(o.phase)
	}
	return !ended
}
