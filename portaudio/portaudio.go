//go:build portaudio

// Package portaudio provides device backends on top of the portaudio
// library. Streams run with a callback of one quantum per buffer.
package portaudio

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/log"
	"pipelined.dev/webaudio/signal"
)

// ErrDeviceNotFound is returned when there is no device with provided
// id and kind.
var ErrDeviceNotFound = errors.New("device not found")

// Options configure a device stream. Zero values select defaults of the
// device.
type Options struct {
	SampleRate float64
	Channels   int
	// DeviceID as returned by Devices, empty for default device.
	DeviceID string
	Latency  time.Duration
}

// Devices lists available devices. Devices with both inputs and outputs
// are listed twice.
func Devices() ([]backend.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var devices []backend.Device
	for i, info := range infos {
		if info.MaxOutputChannels > 0 {
			devices = append(devices, device(i, info, backend.Output))
		}
		if info.MaxInputChannels > 0 {
			devices = append(devices, device(i, info, backend.Input))
		}
	}
	return devices, nil
}

// device id is the position in the portaudio device list.
func device(i int, info *portaudio.DeviceInfo, kind backend.Kind) backend.Device {
	return backend.Device{
		ID:    strconv.Itoa(i),
		Label: info.Name,
		Kind:  kind,
	}
}

// lookup finds the device. Portaudio must be initialized.
func lookup(id string, kind backend.Kind) (*portaudio.DeviceInfo, error) {
	if id == "" {
		if kind == backend.Input {
			return portaudio.DefaultInputDevice()
		}
		return portaudio.DefaultOutputDevice()
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for i, info := range infos {
		if strconv.Itoa(i) != id {
			continue
		}
		if kind == backend.Input && info.MaxInputChannels > 0 || kind == backend.Output && info.MaxOutputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %v %s", ErrDeviceNotFound, kind, id)
}

// stream holds the lifecycle shared by sinks and sources.
type stream struct {
	opts   Options
	info   *portaudio.DeviceInfo
	logger logrus.FieldLogger

	mu      sync.Mutex
	pa      *portaudio.Stream
	running bool
	closed  bool
}

func newStream(opts Options, kind backend.Kind, logger logrus.FieldLogger) (*stream, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	info, err := lookup(opts.DeviceID, kind)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	maxChannels := info.MaxOutputChannels
	latency := info.DefaultLowOutputLatency
	if kind == backend.Input {
		maxChannels = info.MaxInputChannels
		latency = info.DefaultLowInputLatency
	}
	if opts.Channels == 0 {
		opts.Channels = min(maxChannels, 2)
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = info.DefaultSampleRate
	}
	if opts.Latency == 0 {
		opts.Latency = latency
	}
	if opts.Channels < 1 || opts.Channels > min(maxChannels, signal.MaxChannels) {
		portaudio.Terminate()
		return nil, fmt.Errorf("%s supports up to %d channels, got %d", info.Name, maxChannels, opts.Channels)
	}
	return &stream{
		opts: opts,
		info: info,
		logger: logger.WithFields(logrus.Fields{
			"component": "portaudio",
			"device":    info.Name,
			"kind":      kind,
		}),
	}, nil
}

// SampleRate of the stream.
func (s *stream) SampleRate() float64 {
	return s.opts.SampleRate
}

// NumberOfChannels of the stream.
func (s *stream) NumberOfChannels() int {
	return s.opts.Channels
}

func (s *stream) open(params portaudio.StreamParameters, callback interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	if s.pa != nil {
		return errors.New("stream is already started")
	}
	params.SampleRate = s.opts.SampleRate
	params.FramesPerBuffer = signal.QuantumSize
	st, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return err
	}
	if err := st.Start(); err != nil {
		return errors.Join(err, st.Close())
	}
	s.pa, s.running = st, true
	s.logger.Infof("started: %v Hz, %d channels, %v latency", s.opts.SampleRate, s.opts.Channels, s.opts.Latency)
	return nil
}

// Suspend stops the device clock.
func (s *stream) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	if s.pa == nil || !s.running {
		return nil
	}
	s.running = false
	return s.pa.Stop()
}

// Resume restarts the device clock.
func (s *stream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	if s.pa == nil || s.running {
		return nil
	}
	s.running = true
	return s.pa.Start()
}

// Close releases the device. Subsequent calls are no-op.
func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.pa != nil {
		if s.running {
			err = s.pa.Stop()
		}
		err = errors.Join(err, s.pa.Close())
	}
	s.logger.Info("closed")
	return errors.Join(err, portaudio.Terminate())
}

// Sink plays rendered frames on an output device.
type Sink struct {
	*stream
}

// NewSink opens an output device.
func NewSink(opts Options, logger logrus.FieldLogger) (*Sink, error) {
	s, err := newStream(opts, backend.Output, logger)
	if err != nil {
		return nil, err
	}
	return &Sink{stream: s}, nil
}

// Start begins pulling frames from playback. Underruns are played as
// silence.
func (s *Sink) Start(p *backend.Playback) error {
	scratch := signal.NewBuffer(s.opts.Channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   s.info,
			Channels: s.opts.Channels,
			Latency:  s.opts.Latency,
		},
	}
	return s.open(params, func(out []float32) {
		p.PullInterleaved(out, scratch)
	})
}

// Source captures frames from an input device.
type Source struct {
	*stream
}

// NewSource opens an input device.
func NewSource(opts Options, logger logrus.FieldLogger) (*Source, error) {
	s, err := newStream(opts, backend.Input, logger)
	if err != nil {
		return nil, err
	}
	return &Source{stream: s}, nil
}

// Start begins pushing frames into capture. Overruns drop frames.
func (s *Source) Start(c *backend.Capture) error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   s.info,
			Channels: s.opts.Channels,
			Latency:  s.opts.Latency,
		},
	}
	return s.open(params, func(in []float32) {
		c.PushInterleaved(in)
	})
}

var (
	_ backend.Sink   = (*Sink)(nil)
	_ backend.Source = (*Source)(nil)
)
