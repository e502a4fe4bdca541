// Package portaudio drives an engine from a portaudio callback stream.
package portaudio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/signal"
)

const (
	defaultSampleRate  = 44100
	defaultBlockLength = 512
	defaultChannels    = 2
)

// Engine is driven by the device callback.
type Engine interface {
	Reconfigure(phonograph.Config) error
	Process(in, out signal.Float64, sampleRate float64, blockLength int)
}

// Config describes requested stream. Zero values are replaced with
// defaults, except InputChannels: zero means output-only stream.
type Config struct {
	SampleRate     float64
	BlockLength    int
	InputChannels  int
	OutputChannels int
	LowLatency     bool
}

// Device is a duplex or output-only stream of default devices.
type Device struct {
	engine Engine
	config Config
	log    log.Logger
	stream *portaudio.Stream

	sampleRate float64
	in         signal.Float64
	out        signal.Float64
	inView     signal.Float64
	outView    signal.Float64
}

// Info describes an audio device.
type Info struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// List enumerates available devices.
func List() ([]Info, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(devices))
	for _, d := range devices {
		info := Info{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// New returns device which will drive the engine. Stream is not opened
// until Start is called.
func New(e Engine, cfg Config, logger log.Logger) *Device {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.BlockLength <= 0 {
		cfg.BlockLength = defaultBlockLength
	}
	if cfg.OutputChannels <= 0 {
		cfg.OutputChannels = defaultChannels
	}
	if cfg.InputChannels < 0 {
		cfg.InputChannels = 0
	}
	if logger == nil {
		logger = log.Silent
	}
	d := Device{
		engine:     e,
		config:     cfg,
		log:        logger,
		sampleRate: cfg.SampleRate,
		in:         signal.EmptyFloat64(cfg.InputChannels, cfg.BlockLength),
		out:        signal.EmptyFloat64(cfg.OutputChannels, cfg.BlockLength),
		inView:     make(signal.Float64, cfg.InputChannels),
		outView:    make(signal.Float64, cfg.OutputChannels),
	}
	return &d
}

// Start initializes portaudio, opens the stream, reconfigures the engine
// with negotiated sample rate and starts the stream. Prepare errors of
// the engine are logged, the stream is started anyway.
func (d *Device) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	stream, err := d.open()
	if err != nil {
		portaudio.Terminate()
		return err
	}
	d.stream = stream
	d.sampleRate = stream.Info().SampleRate
	cfg := phonograph.Config{
		SampleRate:     d.sampleRate,
		MaxBlockLength: d.config.BlockLength,
		NumChannels:    d.config.OutputChannels,
	}
	if err := d.engine.Reconfigure(cfg); err != nil {
		log.WithFields(d.log, log.Fields{"error": err}).Warn("reconfigure engine failed")
	}
	if err := stream.Start(); err != nil {
		d.close()
		return fmt.Errorf("start stream: %w", err)
	}
	log.WithFields(d.log, log.Fields{
		"sampleRate":  d.sampleRate,
		"blockLength": d.config.BlockLength,
		"inputs":      d.config.InputChannels,
		"outputs":     d.config.OutputChannels,
	}).Debug("stream started")
	return nil
}

func (d *Device) open() (*portaudio.Stream, error) {
	out, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("default output device: %w", err)
	}
	var in *portaudio.DeviceInfo
	if d.config.InputChannels > 0 {
		if in, err = portaudio.DefaultInputDevice(); err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
	}
	var params portaudio.StreamParameters
	if d.config.LowLatency {
		params = portaudio.LowLatencyParameters(in, out)
	} else {
		params = portaudio.HighLatencyParameters(in, out)
	}
	params.Input.Channels = d.config.InputChannels
	params.Output.Channels = d.config.OutputChannels
	params.SampleRate = d.config.SampleRate
	params.FramesPerBuffer = d.config.BlockLength

	var stream *portaudio.Stream
	if d.config.InputChannels > 0 {
		stream, err = portaudio.OpenStream(params, d.process)
	} else {
		stream, err = portaudio.OpenStream(params, func(out []float32) {
			d.process(nil, out)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

// process is the device callback. Buffers longer than block length are
// processed in chunks.
func (d *Device) process(in, out []float32) {
	numIn := len(d.in)
	numOut := len(d.out)
	frames := len(out) / numOut
	for offset := 0; offset < frames; offset += d.config.BlockLength {
		n := min(d.config.BlockLength, frames-offset)
		inView := d.in.Head(d.inView, n)
		if numIn > 0 && len(in) > 0 {
			inView.ReadInterFloat32(in[offset*numIn:], numIn, n)
		} else {
			inView.Clear(n)
		}
		outView := d.out.Head(d.outView, n)
		d.engine.Process(inView, outView, d.sampleRate, n)
		outView.WriteInterFloat32(out[offset*numOut:], n)
	}
}

// Stop stops and closes the stream and terminates portaudio.
func (d *Device) Stop() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Stop()
	if cerr := d.close(); err == nil {
		err = cerr
	}
	return err
}

func (d *Device) close() error {
	err := d.stream.Close()
	d.stream = nil
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// SampleRate returns negotiated sample rate.
func (d *Device) SampleRate() float64 {
	return d.sampleRate
}
