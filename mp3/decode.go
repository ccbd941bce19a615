// Package mp3 decodes mp3 files into signals for buffer sources. With
// the lame build tag it also encodes rendered frames.
package mp3

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"pipelined.dev/webaudio/signal"
)

// decoded data is always stereo 16 bit.
const (
	numChannels = 2
	bitDepth    = signal.BitDepth16
)

// Decode reads the whole mp3 stream.
func Decode(r io.Reader) (signal.Float64, int, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3: decode: %w", err)
	}
	data, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3: decode: %w", err)
	}
	ints := make([]int, len(data)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
	}
	floats := signal.InterInt{
		Data:        ints,
		NumChannels: numChannels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	return floats, d.SampleRate(), nil
}

// Open decodes an mp3 file.
func Open(path string) (signal.Float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return Decode(f)
}
