package signal

import "math"

// Buffer is a single quantum of planar samples. Every channel has
// exactly QuantumSize samples. Storage for MaxChannels is allocated
// up front, so changing the channel count never allocates.
type Buffer struct {
	channels [][]float64
	store    [][]float64
}

// NewBuffer returns a silent buffer with the provided number of
// channels. It panics if numChannels is outside [1, MaxChannels].
func NewBuffer(numChannels int) *Buffer {
	samples := make([]float64, MaxChannels*QuantumSize)
	b := &Buffer{
		store: make([][]float64, MaxChannels),
	}
	for i := range b.store {
		b.store[i] = samples[i*QuantumSize : (i+1)*QuantumSize : (i+1)*QuantumSize]
	}
	b.SetNumberOfChannels(numChannels)
	return b
}

// NumberOfChannels returns the active channel count.
func (b *Buffer) NumberOfChannels() int {
	return len(b.channels)
}

// Length returns the number of frames per channel.
func (b *Buffer) Length() int {
	return QuantumSize
}

// Channel returns samples of the channel i.
func (b *Buffer) Channel(i int) []float64 {
	return b.channels[i]
}

// Channels returns all active channels.
func (b *Buffer) Channels() [][]float64 {
	return b.channels
}

// SetNumberOfChannels changes the active channel count. Channels that
// become active keep whatever samples they held before, callers that
// need silence must call Silence.
func (b *Buffer) SetNumberOfChannels(n int) {
	if n < 1 || n > MaxChannels {
		panic("signal: channel count out of range")
	}
	b.channels = b.store[:n]
}

// Silence zeroes all active channels.
func (b *Buffer) Silence() {
	for _, c := range b.channels {
		for i := range c {
			c[i] = 0
		}
	}
}

// IsSilent returns true if all samples of active channels are zero.
func (b *Buffer) IsSilent() bool {
	for _, c := range b.channels {
		for _, v := range c {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Peak returns the maximum absolute sample value across all channels.
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, c := range b.channels {
		for _, v := range c {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// CopyFrom makes b an exact copy of src, including the channel count.
func (b *Buffer) CopyFrom(src *Buffer) {
	b.SetNumberOfChannels(src.NumberOfChannels())
	for i, c := range src.channels {
		copy(b.channels[i], c)
	}
}

// Float64 returns a copy of active channels.
func (b *Buffer) Float64() Float64 {
	result := make([][]float64, len(b.channels))
	for i, c := range b.channels {
		result[i] = append(make([]float64, 0, QuantumSize), c...)
	}
	return result
}

// Interleave writes samples into dst as interleaved float32 frames. dst
// must hold at least NumberOfChannels * QuantumSize values.
func (b *Buffer) Interleave(dst []float32) {
	numChannels := len(b.channels)
	for j, c := range b.channels {
		for i, v := range c {
			dst[i*numChannels+j] = float32(v)
		}
	}
}

// Deinterleave reads interleaved float32 frames from src. The channel
// count is set to numChannels, missing frames are filled with silence.
func (b *Buffer) Deinterleave(src []float32, numChannels int) {
	b.SetNumberOfChannels(numChannels)
	for j, c := range b.channels {
		for i := range c {
			if pos := i*numChannels + j; pos < len(src) {
				c[i] = float64(src[pos])
			} else {
				c[i] = 0
			}
		}
	}
}

// AsInterInt writes samples into dst as interleaved ints of provided
// bit depth. dst is resized if needed and returned.
func (b *Buffer) AsInterInt(bitDepth BitDepth, dst []int) []int {
	numChannels := len(b.channels)
	size := numChannels * QuantumSize
	if cap(dst) < size {
		dst = make([]int, size)
	}
	dst = dst[:size]
	multiplier := float64(bitDepth.multiplier())
	for j, c := range b.channels {
		for i, v := range c {
			dst[i*numChannels+j] = int(clip(v) * multiplier)
		}
	}
	return dst
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
