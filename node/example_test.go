package node_test

import (
	"fmt"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/node"
)

// Example:
//		Render a constant through a gain
//		Collect rendered frames
func Example() {
	rec := &backend.Recorder{}
	offline := backend.NewOffline(backend.OfflineOptions{SampleRate: 44100, Channels: 1, Limit: 2}, rec)
	ctx, err := webaudio.New(offline, webaudio.WithSuspended())
	check(err)

	src, err := node.NewConstantSource(ctx)
	check(err)
	g, err := node.NewGain(ctx)
	check(err)
	check(g.Gain().SetValue(0.25))
	check(src.Connect(g.Node, 0, 0))
	check(g.Connect(ctx.Destination(), 0, 0))
	check(src.Start(0))

	check(ctx.Resume())
	<-offline.Done()
	check(ctx.Close())
	for _, frame := range rec.Frames() {
		fmt.Println(frame[0][0], frame[0][len(frame[0])-1])
	}
	// Output:
	// 0.25 0.25
	// 0.25 0.25
}

// Example:
//		Filter an oscillator
//		Release nodes once they are not needed
func ExampleBiquadFilter() {
	offline := backend.NewOffline(backend.OfflineOptions{SampleRate: 44100, Limit: 4}, &backend.Recorder{})
	ctx, err := webaudio.New(offline, webaudio.WithSuspended())
	check(err)

	osc, err := node.NewOscillator(ctx, node.Sawtooth)
	check(err)
	f, err := node.NewBiquadFilter(ctx, node.Lowpass)
	check(err)
	check(f.Frequency().SetValue(800))
	check(osc.Connect(f.Node, 0, 0))
	check(f.Connect(ctx.Destination(), 0, 0))
	check(osc.Start(0))
	check(osc.Stop(0.001))
	check(osc.Release())
	check(f.Release())

	check(ctx.Resume())
	<-offline.Done()
	check(ctx.Close())
	fmt.Println(f.Type())
	// Output: lowpass
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
