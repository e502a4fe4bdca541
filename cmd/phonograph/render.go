package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dudk/phonograph/engine"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/mp3"
	phsignal "github.com/dudk/phonograph/signal"
	"github.com/dudk/phonograph/wav"
)

type renderCommand struct {
	audioFlags
	out      string
	format   string
	seconds  float64
	samples  int
	target   string
	bitDepth int
	bitRate  int
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render patch into audio file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.audioFlags.register(fs)
	fs.StringVar(&cmd.out, "out", "", "output file (required)")
	fs.StringVar(&cmd.format, "format", "", "output format: wav or mp3, derived from -out by default")
	fs.Float64Var(&cmd.seconds, "seconds", 0, "render length in seconds")
	fs.IntVar(&cmd.samples, "samples", 0, "render length in samples, takes priority over -seconds")
	fs.StringVar(&cmd.target, "target", "", "render output of a single node")
	fs.IntVar(&cmd.bitDepth, "bitdepth", 16, "wav bit depth")
	fs.IntVar(&cmd.bitRate, "bitrate", 192, "mp3 bit rate")
}

func (cmd *renderCommand) Validate() error {
	var message string
	if cmd.patch == "" {
		message = message + "Missing -patch required flag\n"
	}
	if cmd.out == "" {
		message = message + "Missing -out required flag\n"
	}
	if cmd.seconds <= 0 && cmd.samples <= 0 {
		message = message + "Missing -seconds or -samples flag\n"
	}
	if _, err := cmd.outputFormat(); err != nil {
		message = message + err.Error() + "\n"
	}
	if message != "" {
		return fmt.Errorf("%s", message)
	}
	return nil
}

func (cmd *renderCommand) outputFormat() (string, error) {
	format := cmd.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(cmd.out), ".")
	}
	switch format = strings.ToLower(format); format {
	case "wav", "mp3":
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format: %q", format)
}

// fileSink is implemented by wav and mp3 sinks.
type fileSink interface {
	Sink(sampleRate, numChannels int) (func(phsignal.Float64) error, error)
	Flush() error
}

func (cmd *renderCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	l := log.Component(logger, "render")
	b, err := cmd.load(l)
	if err != nil {
		return err
	}
	cfg := b.config
	opts := engine.RenderOptions{
		SampleRate:  cfg.SampleRate,
		BlockLength: cfg.MaxBlockLength,
		NumChannels: cfg.NumChannels,
		Samples:     cmd.samples,
		Seconds:     cmd.seconds,
		Logger:      l,
	}
	if cmd.target != "" {
		target, ok := b.nodes[cmd.target]
		if !ok {
			return fmt.Errorf("unknown target node: %q", cmd.target)
		}
		opts.Target = target
	}

	format, _ := cmd.outputFormat()
	var sink fileSink
	switch format {
	case "mp3":
		sink = mp3.NewSink(cmd.out, cmd.bitRate, 2)
	default:
		if sink, err = wav.NewSink(cmd.out, phsignal.BitDepth(cmd.bitDepth)); err != nil {
			return err
		}
	}
	write, err := sink.Sink(int(cfg.SampleRate), cfg.NumChannels)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = engine.Render(ctx, b.graph, opts, write)
	if ferr := sink.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Rendered %s\n", cmd.out)
	return nil
}
