package signal

import "math"

// Interpretation defines how channels are treated when a buffer is mixed
// into a buffer with a different channel count.
type Interpretation int

const (
	// Speakers applies up- and down-mix matrices for mono, stereo, quad
	// and 5.1 layouts. Other layouts fall back to Discrete.
	Speakers Interpretation = iota
	// Discrete maps channels one to one, extra channels are dropped and
	// missing channels stay silent.
	Discrete
)

func (i Interpretation) String() string {
	switch i {
	case Speakers:
		return "speakers"
	case Discrete:
		return "discrete"
	}
	return "unknown"
}

// speaker layouts
const (
	mono     = 1
	stereo   = 2
	quad     = 4
	surround = 6
)

var sqrtHalf = math.Sqrt(0.5)

// MixInto adds src samples into dst. src is up- or down-mixed to the
// channel count of dst according to the interpretation. MixInto doesn't
// change the channel count of dst.
func MixInto(dst, src *Buffer, interpretation Interpretation) {
	in, out := src.NumberOfChannels(), dst.NumberOfChannels()
	if in == out || interpretation == Discrete || !isLayout(in) || !isLayout(out) {
		mixDiscrete(dst, src)
		return
	}
	s, d := src.channels, dst.channels
	switch {
	case in == mono && (out == stereo || out == quad):
		add(d[0], s[0], 1)
		add(d[1], s[0], 1)
	case in == mono && out == surround:
		add(d[2], s[0], 1)
	case in == stereo && (out == quad || out == surround):
		add(d[0], s[0], 1)
		add(d[1], s[1], 1)
	case in == quad && out == surround:
		add(d[0], s[0], 1)
		add(d[1], s[1], 1)
		add(d[4], s[2], 1)
		add(d[5], s[3], 1)
	case in == stereo && out == mono:
		add(d[0], s[0], 0.5)
		add(d[0], s[1], 0.5)
	case in == quad && out == mono:
		for i := 0; i < quad; i++ {
			add(d[0], s[i], 0.25)
		}
	case in == surround && out == mono:
		add(d[0], s[0], sqrtHalf)
		add(d[0], s[1], sqrtHalf)
		add(d[0], s[2], 1)
		add(d[0], s[4], 0.5)
		add(d[0], s[5], 0.5)
	case in == quad && out == stereo:
		add(d[0], s[0], 0.5)
		add(d[0], s[2], 0.5)
		add(d[1], s[1], 0.5)
		add(d[1], s[3], 0.5)
	case in == surround && out == stereo:
		add(d[0], s[0], 1)
		add(d[0], s[2], sqrtHalf)
		add(d[0], s[4], sqrtHalf)
		add(d[1], s[1], 1)
		add(d[1], s[2], sqrtHalf)
		add(d[1], s[5], sqrtHalf)
	case in == surround && out == quad:
		add(d[0], s[0], 1)
		add(d[0], s[2], sqrtHalf)
		add(d[1], s[1], 1)
		add(d[1], s[2], sqrtHalf)
		add(d[2], s[4], 1)
		add(d[3], s[5], 1)
	default:
		mixDiscrete(dst, src)
	}
}

func mixDiscrete(dst, src *Buffer) {
	n := src.NumberOfChannels()
	if dst.NumberOfChannels() < n {
		n = dst.NumberOfChannels()
	}
	for i := 0; i < n; i++ {
		add(dst.channels[i], src.channels[i], 1)
	}
}

func add(dst, src []float64, gain float64) {
	for i := range dst {
		dst[i] += src[i] * gain
	}
}

func isLayout(numChannels int) bool {
	switch numChannels {
	case mono, stereo, quad, surround:
		return true
	}
	return false
}
