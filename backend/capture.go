package backend

import (
	"io"

	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/log"
	"pipelined.dev/webaudio/metric"
	"pipelined.dev/webaudio/signal"
)

// Capture connects an input device with the graph. The device pushes
// from its callback, streams read once per quantum.
type Capture struct {
	numChannels int
	queue       *Queue
	scratch     *signal.Buffer
	logger      logrus.FieldLogger
	debug       bool
	faults      metric.Faults
}

// NewCapture returns a capture adapter that keeps at most capacity
// frames. Nil logger discards entries.
func NewCapture(numChannels, capacity int, logger logrus.FieldLogger) *Capture {
	if logger == nil {
		logger = log.Discard()
	}
	c := Capture{
		numChannels: numChannels,
		queue:       NewQueue(capacity, numChannels),
		scratch:     signal.NewBuffer(numChannels),
		logger:      logger.WithField("component", "capture"),
		debug:       log.Debugging(logger),
	}
	c.faults = metric.FaultsOf(&c)
	return &c
}

// NumberOfChannels returns channel count of captured frames.
func (c *Capture) NumberOfChannels() int {
	return c.numChannels
}

// Push offers the frame. If the queue is full the frame is dropped and
// false is returned. Push never blocks.
func (c *Capture) Push(b *signal.Buffer) bool {
	if c.queue.TryPush(b) {
		return true
	}
	if c.queue.Closed() {
		return false
	}
	c.faults.Overrun()
	if c.debug {
		c.logger.Debugf("capture queue is full: dropped frame, %d queued", c.queue.Len())
	}
	return false
}

// PushInterleaved converts interleaved device samples and offers them.
// It must be called from a single goroutine.
func (c *Capture) PushInterleaved(data []float32) bool {
	c.scratch.Deinterleave(data, c.numChannels)
	return c.Push(c.scratch)
}

// Close ends the stream. Queued frames can still be read.
func (c *Capture) Close() {
	c.queue.Close()
}

// Stream returns a reader of captured frames. All streams share the
// queue, so every frame is read once.
func (c *Capture) Stream() *CaptureStream {
	return &CaptureStream{
		numChannels: c.numChannels,
		queue:       c.queue,
	}
}

// CaptureStream reads captured frames, one per quantum.
type CaptureStream struct {
	numChannels int
	queue       *Queue
}

// NumberOfChannels returns channel count of read frames.
func (s *CaptureStream) NumberOfChannels() int {
	return s.numChannels
}

// Read copies the next frame into dst. If no frame is available, dst is
// filled with silence and nil is returned, so timing stays locked to the
// sample clock. io.EOF is returned once the capture is closed and
// drained.
func (s *CaptureStream) Read(dst *signal.Buffer) error {
	if s.queue.TryPop(dst) {
		return nil
	}
	if s.queue.Closed() && s.queue.Len() == 0 {
		return io.EOF
	}
	dst.SetNumberOfChannels(s.numChannels)
	dst.Silence()
	return nil
}
