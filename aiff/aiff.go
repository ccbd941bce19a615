// Package aiff decodes aiff files into signals for buffer sources.
package aiff

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/aiff"

	"pipelined.dev/webaudio/signal"
)

// ErrInvalidFile is returned when decoded data isn't a valid aiff file.
var ErrInvalidFile = errors.New("aiff is not valid")

// ErrUnsupportedBitDepth is returned when file has unsupported bit depth.
var ErrUnsupportedBitDepth = errors.New("only 8, 16, 24 and 32 bit depth is supported")

// Decode reads the whole file. It returns planar samples and sample rate.
func Decode(rs io.ReadSeeker) (signal.Float64, int, error) {
	decoder := aiff.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, 0, ErrInvalidFile
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}
	decoder = aiff.NewDecoder(rs)
	ib, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("aiff: decode: %w", err)
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	switch bitDepth {
	case signal.BitDepth8, signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
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
	return floats, decoder.SampleRate, nil
}

// Open decodes an aiff file.
func Open(path string) (signal.Float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return Decode(f)
}
