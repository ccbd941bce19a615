//go:build lame

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/viert/lame"

	"pipelined.dev/webaudio/signal"
)

// Writer encodes rendered frames with lame. It implements
// backend.FrameWriter.
type Writer struct {
	numChannels int
	wr          *lame.LameWriter
	ints        []int
	bytes       []byte
}

// NewWriter returns writer that encodes frames into w. Quality is in
// [0, 9] where 0 is the best. Writer must be closed to flush encoder.
func NewWriter(w io.Writer, sampleRate, numChannels, bitRate, quality int) (*Writer, error) {
	if numChannels < 1 || numChannels > 2 {
		return nil, fmt.Errorf("mp3: %d channels, only mono and stereo are supported", numChannels)
	}
	wr := lame.NewWriter(w)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(numChannels)
	wr.Encoder.SetInSamplerate(sampleRate)
	if numChannels == 2 {
		wr.Encoder.SetMode(lame.JOINT_STEREO)
	} else {
		wr.Encoder.SetMode(lame.MONO)
	}
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()
	return &Writer{
		numChannels: numChannels,
		wr:          wr,
		bytes:       make([]byte, 2*numChannels*signal.QuantumSize),
	}, nil
}

// WriteFrame encodes a single frame.
func (w *Writer) WriteFrame(b *signal.Buffer) error {
	if b.NumberOfChannels() != w.numChannels {
		return fmt.Errorf("mp3: frame has %d channels, writer expects %d", b.NumberOfChannels(), w.numChannels)
	}
	w.ints = b.AsInterInt(bitDepth, w.ints)
	for i, v := range w.ints {
		binary.LittleEndian.PutUint16(w.bytes[2*i:], uint16(int16(v)))
	}
	_, err := w.wr.Write(w.bytes)
	return err
}

// Close flushes the encoder.
func (w *Writer) Close() error {
	return w.wr.Close()
}
