package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/webaudio/signal"
)

func filled(numChannels int, values ...float64) *signal.Buffer {
	b := signal.NewBuffer(numChannels)
	for i := range b.Channels() {
		c := b.Channel(i)
		for j := range c {
			c[j] = values[i]
		}
	}
	return b
}

func TestMixInto(t *testing.T) {
	tests := []struct {
		description    string
		src            *signal.Buffer
		dstChannels    int
		interpretation signal.Interpretation
		expected       []float64
	}{
		{
			description:    "mono to stereo speakers duplicates",
			src:            filled(1, 0.5),
			dstChannels:    2,
			interpretation: signal.Speakers,
			expected:       []float64{0.5, 0.5},
		},
		{
			description:    "stereo to mono speakers averages",
			src:            filled(2, 0.2, 0.6),
			dstChannels:    1,
			interpretation: signal.Speakers,
			expected:       []float64{0.4},
		},
		{
			description:    "mono to stereo discrete pads silence",
			src:            filled(1, 0.5),
			dstChannels:    2,
			interpretation: signal.Discrete,
			expected:       []float64{0.5, 0},
		},
		{
			description:    "stereo to mono discrete drops",
			src:            filled(2, 0.2, 0.6),
			dstChannels:    1,
			interpretation: signal.Discrete,
			expected:       []float64{0.2},
		},
		{
			description:    "quad to stereo speakers",
			src:            filled(4, 0.2, 0.4, 0.6, 0.8),
			dstChannels:    2,
			interpretation: signal.Speakers,
			expected:       []float64{0.4, 0.6},
		},
		{
			description:    "mono to 5.1 speakers goes to center",
			src:            filled(1, 1),
			dstChannels:    6,
			interpretation: signal.Speakers,
			expected:       []float64{0, 0, 1, 0, 0, 0},
		},
		{
			description:    "3 to 2 speakers falls back to discrete",
			src:            filled(3, 0.1, 0.2, 0.3),
			dstChannels:    2,
			interpretation: signal.Speakers,
			expected:       []float64{0.1, 0.2},
		},
	}
	for _, test := range tests {
		dst := signal.NewBuffer(test.dstChannels)
		signal.MixInto(dst, test.src, test.interpretation)
		assert.Equal(t, test.dstChannels, dst.NumberOfChannels(), test.description)
		for i, expected := range test.expected {
			for _, v := range dst.Channel(i) {
				assert.InDelta(t, expected, v, 1e-12, test.description)
			}
		}
	}
}

func TestMixIntoSums(t *testing.T) {
	dst := signal.NewBuffer(2)
	signal.MixInto(dst, filled(2, 0.25, 0.5), signal.Discrete)
	signal.MixInto(dst, filled(2, 0.25, -0.25), signal.Discrete)
	assert.Equal(t, 0.5, dst.Channel(0)[0])
	assert.Equal(t, 0.25, dst.Channel(1)[signal.QuantumSize-1])
}

func TestBufferChannels(t *testing.T) {
	b := signal.NewBuffer(2)
	assert.Equal(t, 2, b.NumberOfChannels())
	assert.Equal(t, signal.QuantumSize, b.Length())
	assert.True(t, b.IsSilent())

	b.Channel(1)[3] = -0.75
	assert.Equal(t, 0.75, b.Peak())
	assert.False(t, b.IsSilent())

	b.SetNumberOfChannels(1)
	assert.True(t, b.IsSilent())
	b.SetNumberOfChannels(2)
	assert.Equal(t, -0.75, b.Channel(1)[3])
	b.Silence()
	assert.True(t, b.IsSilent())

	assert.Panics(t, func() { b.SetNumberOfChannels(0) })
	assert.Panics(t, func() { b.SetNumberOfChannels(signal.MaxChannels + 1) })
}

func TestBufferGrowsWithoutAllocation(t *testing.T) {
	b := signal.NewBuffer(1)
	allocs := testing.AllocsPerRun(10, func() {
		b.SetNumberOfChannels(signal.MaxChannels)
		b.SetNumberOfChannels(1)
	})
	assert.Zero(t, allocs)

	b.SetNumberOfChannels(signal.MaxChannels)
	assert.True(t, b.IsSilent())
	for i := range b.Channels() {
		b.Channel(i)[signal.QuantumSize-1] = float64(i)
	}
	for i := range b.Channels() {
		assert.Len(t, b.Channel(i), signal.QuantumSize)
		assert.Equal(t, float64(i), b.Channel(i)[signal.QuantumSize-1])
		assert.Zero(t, b.Channel(i)[0], "channels share samples")
	}
}

func TestInterleave(t *testing.T) {
	b := filled(2, 0.5, -0.5)
	inter := make([]float32, 2*signal.QuantumSize)
	b.Interleave(inter)
	assert.Equal(t, float32(0.5), inter[0])
	assert.Equal(t, float32(-0.5), inter[1])

	c := signal.NewBuffer(1)
	c.Deinterleave(inter, 2)
	assert.Equal(t, 2, c.NumberOfChannels())
	assert.Equal(t, b.Float64(), c.Float64())

	ints := b.AsInterInt(signal.BitDepth16, nil)
	assert.Equal(t, 2*signal.QuantumSize, len(ints))
	floats := signal.InterInt{Data: ints, NumChannels: 2, BitDepth: signal.BitDepth16}.AsFloat64()
	assert.Equal(t, signal.QuantumSize, floats.Size())
	assert.InDelta(t, 0.5, floats[0][0], 1e-3)
	assert.InDelta(t, -0.5, floats[1][0], 1e-3)
}
