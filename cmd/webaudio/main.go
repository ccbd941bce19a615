// Command webaudio renders and plays audio graphs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"pipelined.dev/webaudio/log"
)

var version = "0.0.1"

type globals struct {
	Debug   bool             `short:"d" help:"Log debug entries."`
	Version kong.VersionFlag `short:"v" help:"Show version information."`

	ctx    context.Context
	logger *logrus.Logger
}

type cli struct {
	globals

	Devices devicesCmd `cmd:"" help:"List audio devices."`
	Render  renderCmd  `cmd:"" help:"Render a tone or a file into a wav file."`
	Beep    beepCmd    `cmd:"" help:"Play a tone on an output device."`
	Mic     micCmd     `cmd:"" help:"Play input device through an echo."`
}

func main() {
	var c cli
	k := kong.Parse(&c,
		kong.Name("webaudio"),
		kong.Description("Audio graph renderer"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c.ctx = ctx
	c.logger = log.GetLogger()
	if c.Debug {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	k.FatalIfErrorf(k.Run(&c.globals))
}
