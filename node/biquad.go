package node

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/bridge"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// FilterType of biquad filter.
type FilterType int32

// filter types
const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Lowshelf
	Highshelf
	Peaking
	Notch
	Allpass
)

func (t FilterType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	case Lowshelf:
		return "lowshelf"
	case Highshelf:
		return "highshelf"
	case Peaking:
		return "peaking"
	case Notch:
		return "notch"
	case Allpass:
		return "allpass"
	}
	return "unknown"
}

// tailThreshold is the filter state below which the tail is over.
const tailThreshold = 1e-9

// BiquadFilter is a second order IIR filter. Coefficients are computed
// once per quantum from the first values of its params.
type BiquadFilter struct {
	*webaudio.Node
	filterType *atomic.Int32
	requests   *bridge.Requests[struct{}, coefficients]
	sampleRate float64
}

// NewBiquadFilter creates a filter of provided type with 350 Hz cutoff.
func NewBiquadFilter(ctx *webaudio.Context, t FilterType) (*BiquadFilter, error) {
	if err := validFilterType(t); err != nil {
		return nil, err
	}
	f := &BiquadFilter{
		filterType: &atomic.Int32{},
		requests:   bridge.NewRequests[struct{}, coefficients](1),
		sampleRate: ctx.SampleRate(),
	}
	f.filterType.Store(int32(t))
	n, err := ctx.NewNode(&biquad{filterType: f.filterType, requests: f.requests}, webaudio.NodeOptions{
		Inputs:  1,
		Outputs: 1,
		Params: []param.Descriptor{
			{Max: ctx.SampleRate() / 2, Default: math.Min(350, ctx.SampleRate()/2)},
			{Min: -maxDetune, Max: maxDetune},
			{Min: -math.MaxFloat64, Max: math.MaxFloat64, Default: 1},
			{Min: -math.MaxFloat64, Max: 40 * math.Log10(math.MaxFloat64)},
		},
	})
	if err != nil {
		return nil, err
	}
	f.Node = n
	return f, nil
}

// Frequency returns the cutoff or center frequency param in Hz.
func (f *BiquadFilter) Frequency() *webaudio.Param {
	return f.Param(0)
}

// Detune returns the detune param in cents.
func (f *BiquadFilter) Detune() *webaudio.Param {
	return f.Param(1)
}

// Q returns the quality factor param.
func (f *BiquadFilter) Q() *webaudio.Param {
	return f.Param(2)
}

// Gain returns the gain param in dB. Only shelf and peaking filters use
// it.
func (f *BiquadFilter) Gain() *webaudio.Param {
	return f.Param(3)
}

// Type returns the current filter type.
func (f *BiquadFilter) Type() FilterType {
	return FilterType(f.filterType.Load())
}

// SetType changes the filter type from the next quantum.
func (f *BiquadFilter) SetType(t FilterType) error {
	if err := validFilterType(t); err != nil {
		return err
	}
	f.filterType.Store(int32(t))
	return nil
}

// FrequencyResponse computes magnitude and phase response of the filter
// for provided frequencies. Coefficients are asked from the render
// goroutine, which answers the next time the filter is processed.
// ErrQueryTimeout is returned if there is no answer within the query
// timeout of context, e.g. when context is suspended.
func (f *BiquadFilter) FrequencyResponse(ctx context.Context, frequencies, magnitude, phase []float64) error {
	if len(magnitude) < len(frequencies) || len(phase) < len(frequencies) {
		return configurationError("frequency response", fmt.Errorf("%d frequencies, %d magnitudes, %d phases", len(frequencies), len(magnitude), len(phase)))
	}
	ctx, cancel := context.WithTimeout(ctx, f.Context().QueryTimeout())
	defer cancel()
	c, err := f.requests.Ask(ctx, struct{}{})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("frequency response: %w", webaudio.ErrQueryTimeout)
		}
		return err
	}
	nyquist := f.sampleRate / 2
	for i, freq := range frequencies {
		if freq < 0 || freq > nyquist {
			magnitude[i], phase[i] = math.NaN(), math.NaN()
			continue
		}
		h := c.response(2 * math.Pi * freq / f.sampleRate)
		magnitude[i], phase[i] = cmplx.Abs(h), cmplx.Phase(h)
	}
	return nil
}

func validFilterType(t FilterType) error {
	if t < Lowpass || t > Allpass {
		return configurationError("filter type", fmt.Errorf("unknown filter type %d", t))
	}
	return nil
}

// coefficients are normalized by a0.
type coefficients struct {
	b0, b1, b2, a1, a2 float64
}

// newCoefficients computes coefficients with the cookbook formulae.
func newCoefficients(t FilterType, sampleRate, frequency, q, gain float64) coefficients {
	nyquist := sampleRate / 2
	normalized := math.Min(math.Max(frequency/nyquist, 1e-6), 1-1e-6)
	w0 := math.Pi * normalized
	cos, sin := math.Cos(w0), math.Sin(w0)
	a := math.Pow(10, gain/40)
	var b0, b1, b2, a0, a1, a2 float64
	switch t {
	case Lowpass, Highpass:
		// Q is in dB for lowpass and highpass.
		alpha := sin / (2 * math.Pow(10, q/20))
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
		if t == Lowpass {
			b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
		} else {
			b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
		}
	case Lowshelf, Highshelf:
		alpha := sin / 2 * math.Sqrt2
		k := 2 * alpha * math.Sqrt(a)
		if t == Lowshelf {
			b0 = a * ((a + 1) - (a-1)*cos + k)
			b1 = 2 * a * ((a - 1) - (a+1)*cos)
			b2 = a * ((a + 1) - (a-1)*cos - k)
			a0 = (a + 1) + (a-1)*cos + k
			a1 = -2 * ((a - 1) + (a+1)*cos)
			a2 = (a + 1) + (a-1)*cos - k
		} else {
			b0 = a * ((a + 1) + (a-1)*cos + k)
			b1 = -2 * a * ((a - 1) + (a+1)*cos)
			b2 = a * ((a + 1) + (a-1)*cos - k)
			a0 = (a + 1) - (a-1)*cos + k
			a1 = 2 * ((a - 1) - (a+1)*cos)
			a2 = (a + 1) - (a-1)*cos - k
		}
	default:
		alpha := sin / (2 * math.Max(q, 1e-4))
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
		switch t {
		case Bandpass:
			b0, b1, b2 = alpha, 0, -alpha
		case Notch:
			b0, b1, b2 = 1, -2*cos, 1
		case Allpass:
			b0, b1, b2 = 1-alpha, -2*cos, 1+alpha
		case Peaking:
			b0, b1, b2 = 1+alpha*a, -2*cos, 1-alpha*a
			a0, a2 = 1+alpha/a, 1-alpha/a
		}
	}
	return coefficients{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// response returns the transfer function at angular frequency w.
func (c coefficients) response(w float64) complex128 {
	z1, z2 := cmplx.Rect(1, -w), cmplx.Rect(1, -2*w)
	num := complex(c.b0, 0) + complex(c.b1, 0)*z1 + complex(c.b2, 0)*z2
	den := 1 + complex(c.a1, 0)*z1 + complex(c.a2, 0)*z2
	return num / den
}

type biquad struct {
	filterType *atomic.Int32
	requests   *bridge.Requests[struct{}, coefficients]
	coeffs     coefficients
	s1, s2     [signal.MaxChannels]float64
}

func (b *biquad) Process(inputs, outputs []*signal.Buffer, params graph.ParamValues, _, sampleRate float64) bool {
	frequency := computedFrequency(params.Get(0)[0], params.Get(1)[0])
	b.coeffs = newCoefficients(FilterType(b.filterType.Load()), sampleRate, frequency, params.Get(2)[0], params.Get(3)[0])
	if req, ok := b.requests.Poll(); ok {
		req.Reply(b.coeffs)
	}

	c := b.coeffs
	in, out := inputs[0], outputs[0]
	tail := false
	for j, dst := range out.Channels() {
		src := in.Channel(j)
		s1, s2 := b.s1[j], b.s2[j]
		for i, x := range src {
			y := s1 + c.b0*x
			s1 = s2 + c.b1*x - c.a1*y
			s2 = c.b2*x - c.a2*y
			dst[i] = y
		}
		b.s1[j], b.s2[j] = s1, s2
		if math.Abs(s1) > tailThreshold || math.Abs(s2) > tailThreshold {
			tail = true
		}
	}
	return tail
}
