package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/node"
)

type deviceFlags struct {
	Output     string  `help:"Output device id, default device if empty."`
	SampleRate float64 `short:"r" help:"Sample rate in Hz, device default if zero."`
	Latency    int     `default:"4" help:"Quanta rendered ahead of the device."`
}

type devicesCmd struct{}

func (devicesCmd) Run(*globals) error {
	devices, err := listDevices()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tLABEL")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%v\t%s\n", d.ID, d.Kind, d.Label)
	}
	return w.Flush()
}

type beepCmd struct {
	graphFlags
	deviceFlags
}

func (cmd *beepCmd) Run(g *globals) error {
	ctx, err := cmd.open(g, "beep")
	if err != nil {
		return err
	}
	if err := cmd.build(ctx); err != nil {
		return errors.Join(err, ctx.Close())
	}
	return play(g, ctx, cmd.Duration)
}

type micCmd struct {
	deviceFlags
	Input    string        `help:"Input device id, default device if empty."`
	Delay    float64       `default:"0.25" help:"Echo delay in seconds."`
	Feedback float64       `default:"0.4" help:"Echo feedback gain."`
	Duration time.Duration `short:"t" default:"10s" help:"Duration."`
}

// Run builds a feedback echo: mic -> delay -> feedback gain -> delay,
// with both mic and delay connected to the output.
func (cmd *micCmd) Run(g *globals) error {
	source, err := openSource(cmd.Input, cmd.SampleRate, g)
	if err != nil {
		return err
	}
	mic, err := backend.NewMicrophone(source, cmd.Latency*2, g.logger)
	if err != nil {
		return errors.Join(err, source.Close())
	}
	defer mic.Close()
	if cmd.SampleRate == 0 {
		cmd.SampleRate = mic.SampleRate()
	}
	ctx, err := cmd.open(g, "mic")
	if err != nil {
		return err
	}
	if err := cmd.build(ctx, mic); err != nil {
		return errors.Join(err, ctx.Close())
	}
	return play(g, ctx, cmd.Duration)
}

func (cmd *micCmd) build(ctx *webaudio.Context, mic *backend.Microphone) error {
	src, err := node.NewMediaStreamSource(ctx, mic.Stream())
	if err != nil {
		return err
	}
	d, err := node.NewDelay(ctx, node.DelayOptions{MaxDelay: max(cmd.Delay, 1)})
	if err != nil {
		return err
	}
	if err := d.DelayTime().SetValue(cmd.Delay); err != nil {
		return err
	}
	feedback, err := node.NewGain(ctx)
	if err != nil {
		return err
	}
	if err := feedback.Gain().SetValue(cmd.Feedback); err != nil {
		return err
	}
	for _, c := range []struct {
		src, dst *webaudio.Node
	}{
		{src.Node, d.Node},
		{d.Node, feedback.Node},
		{feedback.Node, d.Node},
		{src.Node, ctx.Destination()},
		{d.Node, ctx.Destination()},
	} {
		if err := c.src.Connect(c.dst, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

func (f deviceFlags) open(g *globals, name string) (*webaudio.Context, error) {
	sink, err := openSink(f.Output, f.SampleRate, g)
	if err != nil {
		return nil, err
	}
	ctx, err := webaudio.New(sink,
		webaudio.WithName(name),
		webaudio.WithLogger(g.logger),
		webaudio.WithLatency(f.Latency),
		webaudio.WithMetrics(g.Debug),
	)
	if err != nil {
		return nil, errors.Join(err, sink.Close())
	}
	return ctx, nil
}

// play runs the context for duration or until interrupted.
func play(g *globals, ctx *webaudio.Context, duration time.Duration) error {
	timeout, cancel := context.WithTimeout(g.ctx, duration)
	defer cancel()
	err := run(timeout, ctx, ctx.Done(), g.logger)
	g.logger.Infof("played %.2fs", ctx.CurrentTime())
	return err
}
