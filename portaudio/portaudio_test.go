//go:build portaudio

package portaudio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/node"
	"pipelined.dev/webaudio/portaudio"
)

func TestDevices(t *testing.T) {
	devices, err := portaudio.Devices()
	require.NoError(t, err)
	for _, d := range devices {
		assert.NotEmpty(t, d.ID)
	}
	_, err = portaudio.NewSink(portaudio.Options{DeviceID: "-1"}, nil)
	assert.ErrorIs(t, err, portaudio.ErrDeviceNotFound)
}

func TestBeep(t *testing.T) {
	sink, err := portaudio.NewSink(portaudio.Options{}, nil)
	require.NoError(t, err)
	ctx, err := webaudio.New(sink)
	require.NoError(t, err)
	osc, err := node.NewOscillator(ctx, node.Sine)
	require.NoError(t, err)
	g, err := node.NewGain(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Gain().SetValue(0.1))
	require.NoError(t, osc.Connect(g.Node, 0, 0))
	require.NoError(t, g.Connect(ctx.Destination(), 0, 0))
	require.NoError(t, osc.Start(ctx.CurrentTime()))

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, ctx.Suspend())
	require.NoError(t, ctx.Resume())
	time.Sleep(200 * time.Millisecond)
	assert.Greater(t, ctx.CurrentTime(), 0.0)
	require.NoError(t, ctx.Close())
	assert.ErrorIs(t, sink.Suspend(), backend.ErrClosed)
}
