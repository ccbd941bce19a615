package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/webaudio/pool"
	"pipelined.dev/webaudio/signal"
)

func TestPool(t *testing.T) {
	tests := []struct {
		numChannels int
		allocs      int
	}{
		{
			numChannels: 1,
			allocs:      10,
		},
		{
			numChannels: 6,
			allocs:      1000,
		},
	}
	for _, test := range tests {
		p := pool.New(test.numChannels)
		for i := 0; i < test.allocs; i++ {
			b := p.Get()
			assert.Equal(t, test.numChannels, b.NumberOfChannels())
			assert.Equal(t, signal.QuantumSize, b.Length())
			assert.True(t, b.IsSilent())
			b.Channel(0)[0] = 1
			p.Put(b)
		}
		assert.Equal(t, 1, p.Idle())
	}
}

func TestPoolBounded(t *testing.T) {
	p := pool.New(2)
	for i := 0; i < pool.Capacity+10; i++ {
		p.Put(signal.NewBuffer(2))
	}
	assert.Equal(t, pool.Capacity, p.Idle())
	p.Put(nil)
	assert.Equal(t, pool.Capacity, p.Idle())
}

func TestGetCached(t *testing.T) {
	defer pool.Wipe()
	assert.Same(t, pool.Get(2), pool.Get(2))
	assert.NotSame(t, pool.Get(1), pool.Get(2))
	assert.Equal(t, 1, pool.Get(1).NumChannels())
}
