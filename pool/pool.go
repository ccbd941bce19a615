/*
Package pool provides cache for quantum buffer pools.

The main use case for this package is to share free-lists of buffers
across graph nodes with the same channel layout. Buffers are taken on
the control goroutine when a node is created and returned by the render
goroutine when the node is retired, so steady-state rendering never
allocates.
*/
package pool

import (
	"sync"

	"pipelined.dev/webaudio/signal"
)

// Capacity is the maximum number of idle buffers kept by a single pool.
const Capacity = 256

var m = struct {
	sync.Mutex
	pools map[int]*Pool
}{
	pools: map[int]*Pool{},
}

// Pool is a bounded free-list of buffers with the same channel count.
// Get and Put never block.
type Pool struct {
	numChannels int
	free        chan *signal.Buffer
}

// Get returns pool for provided number of channels. Pools are cached
// internally, so multiple calls for same channel count will return the
// same pool instance.
func Get(numChannels int) *Pool {
	m.Lock()
	defer m.Unlock()
	if p, ok := m.pools[numChannels]; ok {
		return p
	}

	p := New(numChannels)
	m.pools[numChannels] = p
	return p
}

// Wipe cleans up internal cache of pools.
func Wipe() {
	m.Lock()
	defer m.Unlock()
	m.pools = map[int]*Pool{}
}

// New returns a new pool that is not registered in the cache.
func New(numChannels int) *Pool {
	return &Pool{
		numChannels: numChannels,
		free:        make(chan *signal.Buffer, Capacity),
	}
}

// NumChannels returns channel count of buffers in this pool.
func (p *Pool) NumChannels() int {
	return p.numChannels
}

// Get returns a silent buffer. A new buffer is allocated if there are no
// idle buffers left.
func (p *Pool) Get() *signal.Buffer {
	select {
	case b := <-p.free:
		b.SetNumberOfChannels(p.numChannels)
		b.Silence()
		return b
	default:
		return signal.NewBuffer(p.numChannels)
	}
}

// Put returns the buffer to the pool. The buffer is dropped if the pool
// is full.
func (p *Pool) Put(b *signal.Buffer) {
	if b == nil {
		return
	}
	select {
	case p.free <- b:
	default:
	}
}

// Idle returns number of idle buffers.
func (p *Pool) Idle() int {
	return len(p.free)
}
