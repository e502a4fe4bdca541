package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/metric"
	"github.com/dudk/phonograph/signal"
)

const (
	defaultSampleRate      = 44100
	defaultBlockLength     = 512
	defaultNumChannels     = 2
	defaultTempo           = 120
	defaultTicksPerQuarter = 960
)

// ErrInvalidLength is returned when render length is not positive.
var ErrInvalidLength = errors.New("invalid render length")

// RenderOptions defines offline render. Length is taken from Samples, then
// Seconds, then Ticks at Tempo.
type RenderOptions struct {
	SampleRate  float64
	BlockLength int
	NumChannels int

	Samples         int
	Seconds         float64
	Ticks           int
	Tempo           float64
	TicksPerQuarter int

	// Target renders output of a single node instead of graph outputs.
	Target phonograph.Node
	Logger log.Logger
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = defaultSampleRate
	}
	if o.BlockLength <= 0 {
		o.BlockLength = defaultBlockLength
	}
	if o.NumChannels <= 0 {
		o.NumChannels = defaultNumChannels
	}
	if o.Tempo <= 0 {
		o.Tempo = defaultTempo
	}
	if o.TicksPerQuarter <= 0 {
		o.TicksPerQuarter = defaultTicksPerQuarter
	}
	if o.Logger == nil {
		o.Logger = log.Silent
	}
	return o
}

// Length returns number of samples to render.
func (o RenderOptions) Length() (int, error) {
	o = o.withDefaults()
	switch {
	case o.Samples > 0:
		return o.Samples, nil
	case o.Seconds > 0:
		return int(math.Round(o.Seconds * o.SampleRate)), nil
	case o.Ticks > 0:
		secondsPerTick := 60 / (o.Tempo * float64(o.TicksPerQuarter))
		return int(math.Round(float64(o.Ticks) * secondsPerTick * o.SampleRate)), nil
	}
	return 0, ErrInvalidLength
}

// Render prepares graph for the render config and processes it in blocks
// until the requested length, passing every block to sink. The last block
// is shortened. Block passed to sink is only valid during the call.
// If graph was prepared before, it's prepared with the previous config
// again when render is done.
func Render(ctx context.Context, g *phonograph.Graph, opts RenderOptions, sink func(signal.Float64) error) error {
	opts = opts.withDefaults()
	total, err := opts.Length()
	if err != nil {
		return err
	}
	if total <= 0 {
		return ErrInvalidLength
	}

	if prev, ok := g.Config(); ok {
		defer func() {
			if err := g.Prepare(prev); err != nil {
				log.WithFields(opts.Logger, log.Fields{"error": err}).Warn("restore graph config failed")
			}
		}()
	}
	cfg := phonograph.Config{
		SampleRate:     opts.SampleRate,
		MaxBlockLength: opts.BlockLength,
		NumChannels:    opts.NumChannels,
	}
	if err := g.Prepare(cfg); err != nil {
		return fmt.Errorf("prepare graph: %w", err)
	}
	plan := g.CompiledPlan()
	if plan.Cycle {
		log.WithFields(opts.Logger, log.Fields{
			"generation": plan.Generation,
			"cycle":      true,
		}).Warn("graph has a cycle, rendering silence")
	}
	if opts.Target != nil {
		id, ok := g.ID(opts.Target)
		if !ok {
			return fmt.Errorf("render target %v: %w", opts.Target.Name(), phonograph.ErrUnknownNode)
		}
		plan = plan.Retarget(id)
	}

	proc := phonograph.NewProcessor(phonograph.WithMeter(metric.Meter(g, int(opts.SampleRate))))
	proc.SetPlan(plan)
	l := log.WithFields(opts.Logger, log.Fields{
		"samples":    total,
		"sampleRate": opts.SampleRate,
		"generation": plan.Generation,
	})
	l.Info("render started")

	in := signal.EmptyFloat64(0, 0)
	out := signal.EmptyFloat64(opts.NumChannels, opts.BlockLength)
	view := make(signal.Float64, opts.NumChannels)
	step := total / 10
	next := step
	for rendered := 0; rendered < total; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := opts.BlockLength
		if left := total - rendered; left < n {
			n = left
		}
		proc.Process(in, out, opts.SampleRate, n)
		if err := sink(out.Head(view, n)); err != nil {
			return fmt.Errorf("sink after %d samples: %w", rendered, err)
		}
		rendered += n
		if step > 0 && rendered >= next {
			log.WithFields(l, log.Fields{"progress": rendered * 100 / total}).Debug("render progress")
			next += step
		}
	}
	log.WithFields(l, log.Fields{
		"duration": signal.DurationOf(int(opts.SampleRate), int64(total)),
	}).Info("render finished")
	return nil
}
