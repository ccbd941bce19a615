package backend

import (
	"errors"
	"sync"
	"time"

	"pipelined.dev/webaudio/signal"
)

// FrameWriter consumes rendered frames.
type FrameWriter interface {
	WriteFrame(*signal.Buffer) error
}

// OfflineOptions configure the offline sink.
type OfflineOptions struct {
	SampleRate float64
	Channels   int
	// Limit is the number of quanta to render, zero means no limit.
	Limit int
	// Realtime pulls one quantum per quantum duration instead of as
	// fast as possible.
	Realtime bool
}

// errStarted is returned when offline sink is started twice.
var errStarted = errors.New("offline sink is already started")

// Offline is a sink without device. It pulls rendered frames and hands
// them to a FrameWriter.
type Offline struct {
	opts   OfflineOptions
	writer FrameWriter
	frame  *signal.Buffer

	mu       sync.Mutex
	started  bool
	closed   bool
	resumec  chan struct{}
	stopc    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	written  int
	err      error
}

// NewOffline returns an offline sink.
func NewOffline(opts OfflineOptions, w FrameWriter) *Offline {
	if opts.Channels < 1 {
		opts.Channels = 2
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	return &Offline{
		opts:   opts,
		writer: w,
		frame:  signal.NewBuffer(opts.Channels),
		stopc:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// SampleRate of rendered audio.
func (o *Offline) SampleRate() float64 {
	return o.opts.SampleRate
}

// NumberOfChannels of rendered audio.
func (o *Offline) NumberOfChannels() int {
	return o.opts.Channels
}

// Start begins pulling frames.
func (o *Offline) Start(p *Playback) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.started {
		return errStarted
	}
	o.started = true
	go o.run(p)
	return nil
}

// Suspend stops pulling frames until Resume.
func (o *Offline) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.resumec == nil {
		o.resumec = make(chan struct{})
	}
	return nil
}

// Resume continues pulling frames.
func (o *Offline) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.resumec != nil {
		close(o.resumec)
		o.resumec = nil
	}
	return nil
}

// Close stops pulling and waits until the last frame is written. It
// returns the first write error. Subsequent calls are no-op.
func (o *Offline) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	started := o.started
	o.mu.Unlock()

	o.stop()
	if started {
		<-o.done
	} else {
		close(o.done)
	}
	return o.Err()
}

// Done is closed when the limit is reached or the sink is closed.
func (o *Offline) Done() <-chan struct{} {
	return o.done
}

// Written returns number of written frames.
func (o *Offline) Written() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Err returns the first write error.
func (o *Offline) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Offline) stop() {
	o.stopOnce.Do(func() {
		close(o.stopc)
	})
}

func (o *Offline) run(p *Playback) {
	defer close(o.done)
	var tick <-chan time.Time
	if o.opts.Realtime {
		ticker := time.NewTicker(signal.DurationOf(o.opts.SampleRate, signal.QuantumSize))
		defer ticker.Stop()
		tick = ticker.C
	}
	for o.opts.Limit == 0 || o.Written() < o.opts.Limit {
		if !o.wait() {
			return
		}
		if tick != nil {
			select {
			case <-tick:
			case <-o.stopc:
				return
			}
			p.Pull(o.frame)
		} else if !p.TryPull(o.frame) {
			select {
			case <-p.Ready():
			case <-o.stopc:
				return
			}
			continue
		}
		if err := o.writer.WriteFrame(o.frame); err != nil {
			o.mu.Lock()
			o.err = err
			o.mu.Unlock()
			return
		}
		o.mu.Lock()
		o.written++
		o.mu.Unlock()
	}
}

// wait blocks while suspended. It returns false if the sink is stopped.
func (o *Offline) wait() bool {
	o.mu.Lock()
	resumec := o.resumec
	o.mu.Unlock()
	if resumec == nil {
		return true
	}
	select {
	case <-resumec:
		return true
	case <-o.stopc:
		return false
	}
}

// Recorder is a FrameWriter that keeps copies of written frames.
type Recorder struct {
	mu     sync.Mutex
	frames []signal.Float64
}

// WriteFrame implements FrameWriter.
func (r *Recorder) WriteFrame(b *signal.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, b.Float64())
	return nil
}

// Frames returns recorded frames.
func (r *Recorder) Frames() []signal.Float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signal.Float64(nil), r.frames...)
}
