package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/webaudio"
	"pipelined.dev/webaudio/aiff"
	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/mp3"
	"pipelined.dev/webaudio/node"
	"pipelined.dev/webaudio/signal"
	"pipelined.dev/webaudio/wav"
)

// graphFlags describe the graph shared by commands: a source, optional
// filter and gain with fade-out.
type graphFlags struct {
	Input     string        `short:"i" type:"existingfile" help:"Wav, aiff or mp3 file to play instead of a tone."`
	Waveform  string        `short:"w" default:"sine" enum:"sine,square,sawtooth,triangle" help:"Tone waveform."`
	Frequency float64       `short:"f" default:"440" help:"Tone frequency in Hz."`
	Filter    string        `default:"none" enum:"none,lowpass,highpass,bandpass,lowshelf,highshelf,peaking,notch,allpass" help:"Biquad filter type."`
	Cutoff    float64       `default:"1000" help:"Filter frequency in Hz."`
	Gain      float64       `short:"g" default:"0.5" help:"Output gain."`
	Duration  time.Duration `short:"t" default:"1s" help:"Duration."`
	FadeOut   bool          `help:"Fade gain to zero over the duration."`
}

var waveforms = map[string]node.Waveform{
	"sine":     node.Sine,
	"square":   node.Square,
	"sawtooth": node.Sawtooth,
	"triangle": node.Triangle,
}

func filterType(name string) (node.FilterType, bool) {
	for t := node.Lowpass; t <= node.Allpass; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// build connects the graph to the destination of ctx.
func (f graphFlags) build(ctx *webaudio.Context) error {
	src, err := f.source(ctx)
	if err != nil {
		return err
	}
	if t, ok := filterType(f.Filter); ok {
		b, err := node.NewBiquadFilter(ctx, t)
		if err != nil {
			return err
		}
		if err := b.Frequency().SetValue(f.Cutoff); err != nil {
			return err
		}
		if err := src.Connect(b.Node, 0, 0); err != nil {
			return err
		}
		src = b.Node
	}
	g, err := node.NewGain(ctx)
	if err != nil {
		return err
	}
	start := ctx.CurrentTime()
	if err := g.Gain().SetValueAtTime(f.Gain, start); err != nil {
		return err
	}
	if f.FadeOut {
		if err := g.Gain().LinearRampToValueAtTime(0, start+f.Duration.Seconds()); err != nil {
			return err
		}
	}
	if err := src.Connect(g.Node, 0, 0); err != nil {
		return err
	}
	return g.Connect(ctx.Destination(), 0, 0)
}

func (f graphFlags) source(ctx *webaudio.Context) (*webaudio.Node, error) {
	if f.Input != "" {
		data, sampleRate, err := decode(f.Input)
		if err != nil {
			return nil, err
		}
		if float64(sampleRate) != ctx.SampleRate() {
			return nil, fmt.Errorf("%s has %d Hz sample rate, context runs at %v Hz", f.Input, sampleRate, ctx.SampleRate())
		}
		s, err := node.NewBufferSource(ctx, data)
		if err != nil {
			return nil, err
		}
		return s.Node, s.Start(ctx.CurrentTime())
	}
	osc, err := node.NewOscillator(ctx, waveforms[f.Waveform])
	if err != nil {
		return nil, err
	}
	if err := osc.Frequency().SetValue(f.Frequency); err != nil {
		return nil, err
	}
	start := ctx.CurrentTime()
	if err := osc.Start(start); err != nil {
		return nil, err
	}
	return osc.Node, osc.Stop(start + f.Duration.Seconds())
}

func decode(path string) (signal.Float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Open(path)
	case ".mp3":
		return mp3.Open(path)
	case ".aif", ".aiff":
		return aiff.Open(path)
	}
	return nil, 0, fmt.Errorf("unsupported file format: %s", path)
}

type renderCmd struct {
	graphFlags
	Out        string  `short:"o" required:"" type:"path" help:"Output wav file."`
	SampleRate float64 `short:"r" default:"44100" help:"Sample rate in Hz."`
	Channels   int     `short:"c" default:"2" help:"Number of channels."`
	BitDepth   int     `short:"b" default:"16" help:"Bit depth: 16, 24 or 32."`
}

func (cmd *renderCmd) Run(g *globals) error {
	quanta := int(cmd.Duration.Seconds()*cmd.SampleRate) / signal.QuantumSize
	w, err := wav.Create(cmd.Out, int(cmd.SampleRate), cmd.Channels, signal.BitDepth(cmd.BitDepth))
	if err != nil {
		return err
	}
	offline := backend.NewOffline(backend.OfflineOptions{
		SampleRate: cmd.SampleRate,
		Channels:   cmd.Channels,
		Limit:      max(quanta, 1),
	}, w)
	ctx, err := webaudio.New(offline,
		webaudio.WithSuspended(),
		webaudio.WithName("render"),
		webaudio.WithLogger(g.logger),
		webaudio.WithMetrics(g.Debug),
	)
	if err != nil {
		return errors.Join(err, w.Close())
	}
	if err := cmd.build(ctx); err != nil {
		return errors.Join(err, ctx.Close(), w.Close())
	}
	if err := ctx.Resume(); err != nil {
		return errors.Join(err, ctx.Close(), w.Close())
	}
	err = run(g.ctx, ctx, offline.Done(), g.logger)
	err = errors.Join(err, w.Close())
	if err == nil {
		g.logger.Infof("rendered %v into %s", signal.DurationOf(cmd.SampleRate, int64(offline.Written()*signal.QuantumSize)), cmd.Out)
	}
	return err
}

// run waits until done is closed or parent is cancelled and closes the
// context. Progress is logged every second.
func run(parent context.Context, ctx *webaudio.Context, done <-chan struct{}, logger logrus.FieldLogger) error {
	eg, egctx := errgroup.WithContext(parent)
	finished := make(chan struct{})
	eg.Go(func() error {
		defer close(finished)
		select {
		case <-done:
		case <-egctx.Done():
		}
		return ctx.Close()
	})
	eg.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-finished:
				return nil
			case <-ticker.C:
				s, err := ctx.Inspect(egctx, ctx.Destination())
				if err != nil {
					if errors.Is(err, webaudio.ErrInvalidState) {
						return nil
					}
					logger.Debugf("inspect: %v", err)
					continue
				}
				logger.Debugf("time: %.2fs, %d inputs", ctx.CurrentTime(), s.Inputs)
			}
		}
	})
	return eg.Wait()
}
