package backend

import (
	"sync"

	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/log"
)

// Microphone captures audio from an input device.
type Microphone struct {
	source  Source
	capture *Capture
	logger  logrus.FieldLogger

	mu     sync.Mutex
	closed bool
}

// NewMicrophone starts the source and returns a microphone that keeps
// at most capacity frames. Nil logger discards entries.
func NewMicrophone(source Source, capacity int, logger logrus.FieldLogger) (*Microphone, error) {
	if logger == nil {
		logger = log.Discard()
	}
	m := Microphone{
		source:  source,
		capture: NewCapture(source.NumberOfChannels(), capacity, logger),
		logger:  logger.WithField("component", "microphone"),
	}
	if err := source.Start(m.capture); err != nil {
		return nil, Wrap("start", err)
	}
	m.logger.Infof("started: %v Hz, %d channels", source.SampleRate(), source.NumberOfChannels())
	return &m, nil
}

// SampleRate of captured audio.
func (m *Microphone) SampleRate() float64 {
	return m.source.SampleRate()
}

// NumberOfChannels of captured audio.
func (m *Microphone) NumberOfChannels() int {
	return m.source.NumberOfChannels()
}

// Stream returns a reader of captured frames.
func (m *Microphone) Stream() *CaptureStream {
	return m.capture.Stream()
}

// Suspend pauses the device. Streams read silence while suspended.
func (m *Microphone) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return Wrap("suspend", m.source.Suspend())
}

// Resume continues capturing.
func (m *Microphone) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return Wrap("resume", m.source.Resume())
}

// Close releases the device and ends all streams. Subsequent calls are
// no-op.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.capture.Close()
	m.logger.Info("closed")
	return Wrap("close", m.source.Close())
}
