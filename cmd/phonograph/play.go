package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/dudk/phonograph/engine"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/portaudio"
)

type playCommand struct {
	audioFlags
	control    controlFlags
	seconds    float64
	input      int
	lowLatency bool
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play patch with default audio device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.audioFlags.register(fs)
	cmd.control.register(fs)
	fs.Float64Var(&cmd.seconds, "seconds", 0, "stop after provided time, plays until interrupted by default")
	fs.IntVar(&cmd.input, "input", 0, "number of input channels to open")
	fs.BoolVar(&cmd.lowLatency, "lowlatency", false, "use low latency device parameters")
}

func (cmd *playCommand) Run() error {
	l := log.Component(logger, "play")
	b, err := cmd.load(l)
	if err != nil {
		return err
	}
	cfg := b.config
	if cmd.control.enabled() {
		c, err := cmd.control.controller(b, log.Component(logger, "midi"))
		if err != nil {
			return err
		}
		defer gomidi.CloseDriver()
		stopMIDI, err := c.ListenToPort(cmd.control.port)
		if err != nil {
			return err
		}
		defer stopMIDI()
	}
	e := engine.New(b.graph, engine.WithLogger(l))
	device := portaudio.New(e, portaudio.Config{
		SampleRate:     cfg.SampleRate,
		BlockLength:    cfg.MaxBlockLength,
		InputChannels:  cmd.input,
		OutputChannels: cfg.NumChannels,
		LowLatency:     cmd.lowLatency,
	}, l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cmd.seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cmd.seconds*float64(time.Second)))
		defer cancel()
	}

	if err := device.Start(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Playing %s at %.f Hz\n", cmd.patch, device.SampleRate())
	e.Run(ctx)
	return device.Stop()
}
