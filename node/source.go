package node

import (
	"fmt"
	"math"
	"sync/atomic"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/param"
	"pipelined.dev/webaudio/signal"
)

// ConstantSource outputs the offset param. It's silent until started.
type ConstantSource struct {
	*webaudio.Node
	*schedule
}

// NewConstantSource creates a mono constant source with offset 1.
func NewConstantSource(ctx *webaudio.Context) (*ConstantSource, error) {
	s := &ConstantSource{schedule: newSchedule()}
	n, err := ctx.NewNode(constant{s.schedule}, webaudio.NodeOptions{
		Outputs: 1,
		Config:  mono,
		Params: []param.Descriptor{
			{Min: -math.MaxFloat64, Max: math.MaxFloat64, Default: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	s.Node = n
	return s, nil
}

// Offset returns the offset param.
func (s *ConstantSource) Offset() *webaudio.Param {
	return s.Param(0)
}

type constant struct {
	*schedule
}

func (c constant) Process(_, outputs []*signal.Buffer, params graph.ParamValues, timestamp, sampleRate float64) bool {
	from, to, ended := c.window(timestamp, sampleRate)
	out := outputs[0]
	out.SetNumberOfChannels(1)
	dst, offset := out.Channel(0), params.Get(0)
	for i := range dst {
		if i < from || i >= to {
			dst[i] = 0
			continue
		}
		dst[i] = offset[i]
	}
	return !ended
}

// BufferSource plays a decoded signal. It's silent until started and
// stops at the end of the signal unless it loops.
type BufferSource struct {
	*webaudio.Node
	*schedule
	loop *atomic.Bool
}

// NewBufferSource creates a source that plays data. Data is owned by the
// render goroutine afterwards and must not be modified.
func NewBufferSource(ctx *webaudio.Context, data signal.Float64) (*BufferSource, error) {
	if data.NumChannels() < 1 || data.NumChannels() > signal.MaxChannels {
		return nil, configurationError("new buffer source", fmt.Errorf("%w: %d channels", graph.ErrInvalidChannelConfig, data.NumChannels()))
	}
	for _, c := range data {
		if len(c) != data.Size() {
			return nil, configurationError("new buffer source", fmt.Errorf("channels have different length"))
		}
	}
	s := &BufferSource{
		schedule: newSchedule(),
		loop:     &atomic.Bool{},
	}
	n, err := ctx.NewNode(&player{schedule: s.schedule, loop: s.loop, data: data}, webaudio.NodeOptions{
		Outputs: 1,
	})
	if err != nil {
		return nil, err
	}
	s.Node = n
	return s, nil
}

// SetLoop makes the source play data in a loop.
func (s *BufferSource) SetLoop(loop bool) {
	s.loop.Store(loop)
}

// Loop returns true if the source loops.
func (s *BufferSource) Loop() bool {
	return s.loop.Load()
}

type player struct {
	*schedule
	loop *atomic.Bool
	data signal.Float64
	pos  int
}

func (p *player) Process(_, outputs []*signal.Buffer, _ graph.ParamValues, timestamp, sampleRate float64) bool {
	from, to, ended := p.window(timestamp, sampleRate)
	out := outputs[0]
	out.SetNumberOfChannels(p.data.NumChannels())
	out.Silence()
	size, loop := p.data.Size(), p.loop.Load()
	for i := from; i < to; i++ {
		if p.pos >= size {
			if !loop || size == 0 {
				break
			}
			p.pos = 0
		}
		for j, c := range out.Channels() {
			c[i] = p.data[j][p.pos]
		}
		p.pos++
	}
	finished := p.pos >= size && !loop
	return !ended && !finished
}

// Reader reads one quantum per call without blocking.
// *backend.CaptureStream is a Reader.
type Reader interface {
	NumberOfChannels() int
	Read(*signal.Buffer) error
}

// MediaStreamSource outputs frames of a stream, e.g. a microphone.
type MediaStreamSource struct {
	*webaudio.Node
}

// NewMediaStreamSource creates a source that reads r every quantum. An
// empty stream reads as silence. The source ends when the stream is
// closed.
func NewMediaStreamSource(ctx *webaudio.Context, r Reader) (*MediaStreamSource, error) {
	if r.NumberOfChannels() < 1 || r.NumberOfChannels() > signal.MaxChannels {
		return nil, configurationError("new media stream source", fmt.Errorf("%w: %d channels", graph.ErrInvalidChannelConfig, r.NumberOfChannels()))
	}
	n, err := ctx.NewNode(&streamer{reader: r}, webaudio.NodeOptions{
		Outputs: 1,
	})
	if err != nil {
		return nil, err
	}
	return &MediaStreamSource{Node: n}, nil
}

type streamer struct {
	reader Reader
	ended  bool
}

func (s *streamer) Process(_, outputs []*signal.Buffer, _ graph.ParamValues, _, _ float64) bool {
	out := outputs[0]
	if !s.ended {
		if err := s.reader.Read(out); err == nil {
			return true
		}
		s.ended = true
	}
	out.SetNumberOfChannels(s.reader.NumberOfChannels())
	out.Silence()
	return false
}
