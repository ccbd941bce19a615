package backend

import (
	"sync/atomic"

	"pipelined.dev/webaudio/signal"
)

// Queue is a bounded single-producer single-consumer ring of quantum
// buffers. Frames are copied in and out of pre-allocated slots, so
// neither side allocates or blocks.
type Queue struct {
	slots  []*signal.Buffer
	head   atomic.Uint64
	tail   atomic.Uint64
	closed atomic.Bool
}

// NewQueue allocates a queue with capacity slots of numChannels.
func NewQueue(capacity, numChannels int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := Queue{
		slots: make([]*signal.Buffer, capacity),
	}
	for i := range q.slots {
		q.slots[i] = signal.NewBuffer(numChannels)
	}
	return &q
}

// TryPush copies the buffer into the queue. It returns false if the
// queue is full or closed.
func (q *Queue) TryPush(b *signal.Buffer) bool {
	if q.closed.Load() {
		return false
	}
	t := q.tail.Load()
	if t-q.head.Load() == uint64(len(q.slots)) {
		return false
	}
	q.slots[t%uint64(len(q.slots))].CopyFrom(b)
	q.tail.Store(t + 1)
	return true
}

// TryPop copies the oldest frame into dst. It returns false if the queue
// is empty.
func (q *Queue) TryPop(dst *signal.Buffer) bool {
	h := q.head.Load()
	if h == q.tail.Load() {
		return false
	}
	dst.CopyFrom(q.slots[h%uint64(len(q.slots))])
	q.head.Store(h + 1)
	return true
}

// Len returns number of queued frames.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Cap returns capacity of the queue.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Close marks the producer as gone. Queued frames can still be popped.
func (q *Queue) Close() {
	q.closed.Store(true)
}

// Closed returns true if the producer is gone.
func (q *Queue) Closed() bool {
	return q.closed.Load()
}
