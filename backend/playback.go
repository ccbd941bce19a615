package backend

import (
	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/log"
	"pipelined.dev/webaudio/metric"
	"pipelined.dev/webaudio/signal"
)

// Playback connects the renderer with an output device. The renderer
// waits for a demand token, renders a quantum and pushes it. The device
// pulls frames from its own goroutine and returns a token for every
// pulled frame.
type Playback struct {
	numChannels int
	queue       *Queue
	demand      chan struct{}
	ready       chan struct{}
	logger      logrus.FieldLogger
	debug       bool
	faults      metric.Faults
}

// NewPlayback returns a playback adapter that keeps at most latency
// frames queued. No demand is issued until Prime is called. Nil logger
// discards entries.
func NewPlayback(numChannels, latency int, logger logrus.FieldLogger) *Playback {
	if latency < 1 {
		latency = 1
	}
	if logger == nil {
		logger = log.Discard()
	}
	p := Playback{
		numChannels: numChannels,
		queue:       NewQueue(latency, numChannels),
		demand:      make(chan struct{}, latency),
		ready:       make(chan struct{}, 1),
		logger:      logger.WithField("component", "playback"),
		debug:       log.Debugging(logger),
	}
	p.faults = metric.FaultsOf(&p)
	return &p
}

// Prime fills the demand channel up to the latency, so the renderer
// gets ahead of the device. It's called once before the device starts.
func (p *Playback) Prime() {
	for {
		select {
		case p.demand <- struct{}{}:
		default:
			return
		}
	}
}

// NumberOfChannels returns channel count of pulled frames.
func (p *Playback) NumberOfChannels() int {
	return p.numChannels
}

// Demand returns the channel of demand tokens. The renderer receives a
// token before every quantum.
func (p *Playback) Demand() <-chan struct{} {
	return p.demand
}

// Ready is notified after a frame is pushed.
func (p *Playback) Ready() <-chan struct{} {
	return p.ready
}

// Push queues the rendered frame. On overrun the frame is dropped.
func (p *Playback) Push(b *signal.Buffer) bool {
	if !p.queue.TryPush(b) {
		p.faults.Overrun()
		if p.debug {
			p.logger.Debugf("overrun: dropped frame, %d queued", p.queue.Len())
		}
		return false
	}
	select {
	case p.ready <- struct{}{}:
	default:
	}
	return true
}

// Pull copies the next frame into dst. On underrun dst is filled with
// silence and false is returned. A demand token is returned in both
// cases so the renderer keeps up with the device clock.
func (p *Playback) Pull(dst *signal.Buffer) bool {
	ok := p.queue.TryPop(dst)
	if !ok {
		dst.SetNumberOfChannels(p.numChannels)
		dst.Silence()
		p.faults.Underrun()
		if p.debug {
			p.logger.Debug("underrun: substituted silence")
		}
	}
	p.release()
	return ok
}

// TryPull copies the next frame into dst if there is one. Unlike Pull,
// it doesn't substitute silence.
func (p *Playback) TryPull(dst *signal.Buffer) bool {
	if !p.queue.TryPop(dst) {
		return false
	}
	p.release()
	return true
}

// PullInterleaved pulls the next frame and writes it into dst as
// interleaved samples.
func (p *Playback) PullInterleaved(dst []float32, scratch *signal.Buffer) bool {
	ok := p.Pull(scratch)
	scratch.Interleave(dst)
	return ok
}

// Close stops accepting frames.
func (p *Playback) Close() {
	p.queue.Close()
}

func (p *Playback) release() {
	select {
	case p.demand <- struct{}{}:
	default:
	}
}
