package node

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoefficients(t *testing.T) {
	const sampleRate, frequency = 48000, 1000
	w0 := 2 * math.Pi * frequency / sampleRate
	tests := []struct {
		filter   FilterType
		gain     float64
		w        float64
		expected float64
	}{
		{filter: Lowpass, w: 0, expected: 1},
		{filter: Highpass, w: math.Pi, expected: 1},
		{filter: Bandpass, w: w0, expected: 1},
		{filter: Notch, w: w0, expected: 0},
		{filter: Allpass, w: w0 / 3, expected: 1},
		{filter: Allpass, w: 2 * w0, expected: 1},
		{filter: Peaking, w: w0, expected: 1},
		{filter: Peaking, gain: 6, w: w0, expected: math.Pow(10, 6.0/20)},
		{filter: Lowshelf, gain: 12, w: 0, expected: math.Pow(10, 12.0/20)},
		{filter: Highshelf, gain: -12, w: math.Pi, expected: math.Pow(10, -12.0/20)},
	}
	for _, test := range tests {
		t.Run(test.filter.String(), func(t *testing.T) {
			c := newCoefficients(test.filter, sampleRate, frequency, 1, test.gain)
			assert.InDelta(t, test.expected, cmplx.Abs(c.response(test.w)), 1e-3)
		})
	}
}

func TestWaveformSample(t *testing.T) {
	tests := []struct {
		waveform Waveform
		phase    float64
		expected float64
	}{
		{Sine, 0.25, 1},
		{Sine, 0.75, -1},
		{Square, 0, 1},
		{Square, 0.5, -1},
		{Sawtooth, 0, 0},
		{Sawtooth, 0.25, 0.5},
		{Sawtooth, 0.75, -0.5},
		{Triangle, 0, 0},
		{Triangle, 0.25, 1},
		{Triangle, 0.75, -1},
	}
	for _, test := range tests {
		assert.InDeltaf(t, test.expected, test.waveform.sample(test.phase), 1e-9, "%v at %v", test.waveform, test.phase)
	}
}

func TestSchedule(t *testing.T) {
	s := newSchedule()
	from, to, ended := s.window(0, 128)
	assert.Equal(t, 128, from)
	assert.Equal(t, 128, to)
	assert.False(t, ended)

	assert.NoError(t, s.Start(0.5))
	assert.NoError(t, s.Stop(1.5))
	from, to, ended = s.window(0, 128)
	assert.Equal(t, 64, from)
	assert.Equal(t, 128, to)
	assert.False(t, ended)
	from, to, ended = s.window(1, 128)
	assert.Equal(t, 0, from)
	assert.Equal(t, 64, to)
	assert.True(t, ended)
}
