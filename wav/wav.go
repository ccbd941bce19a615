// Package wav encodes rendered frames to wav files and decodes wav files
// into signals for buffer sources.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/webaudio/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")

// ErrInvalidFile is returned when decoded data isn't a valid wav file.
var ErrInvalidFile = errors.New("wav is not valid")

// pcm is the wav audio format of integer samples.
const pcm = 1

// Writer encodes rendered frames. It implements backend.FrameWriter.
type Writer struct {
	bitDepth signal.BitDepth
	encoder  *wav.Encoder
	buffer   *audio.IntBuffer
	file     *os.File
}

// NewWriter returns writer that encodes frames into ws. Writer must be
// closed to finalize wav header.
func NewWriter(ws io.WriteSeeker, sampleRate, numChannels int, bitDepth signal.BitDepth) (*Writer, error) {
	if err := validBitDepth(bitDepth); err != nil {
		return nil, err
	}
	return &Writer{
		bitDepth: bitDepth,
		encoder:  wav.NewEncoder(ws, sampleRate, int(bitDepth), numChannels, pcm),
		buffer: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Create creates a file and returns writer that owns it.
func Create(path string, sampleRate, numChannels int, bitDepth signal.BitDepth) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, sampleRate, numChannels, bitDepth)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	w.file = f
	return w, nil
}

// WriteFrame encodes a single frame.
func (w *Writer) WriteFrame(b *signal.Buffer) error {
	if b.NumberOfChannels() != w.buffer.Format.NumChannels {
		return fmt.Errorf("wav: frame has %d channels, writer expects %d", b.NumberOfChannels(), w.buffer.Format.NumChannels)
	}
	w.buffer.Data = b.AsInterInt(w.bitDepth, w.buffer.Data)
	return w.encoder.Write(w.buffer)
}

// Close finalizes encoding and closes the file if writer owns it.
func (w *Writer) Close() error {
	err := w.encoder.Close()
	if w.file != nil {
		return errors.Join(err, w.file.Close())
	}
	return err
}

// Decode reads the whole wav data. Returned signal has the channel count
// of the file.
func Decode(rs io.ReadSeeker) (signal.Float64, int, error) {
	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, 0, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if err := validBitDepth(bitDepth); err != nil {
		return nil, 0, err
	}
	ib, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav: decode: %w", err)
	}
	numChannels := int(decoder.NumChans)
	floats := signal.InterInt{
		Data:        ib.Data,
		NumChannels: numChannels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	if floats == nil {
		floats = make(signal.Float64, numChannels)
		for i := range floats {
			floats[i] = []float64{}
		}
	}
	return floats, int(decoder.SampleRate), nil
}

// Open decodes a wav file.
func Open(path string) (signal.Float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return Decode(f)
}

func validBitDepth(bitDepth signal.BitDepth) error {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
}
