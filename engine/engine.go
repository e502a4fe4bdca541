// Package engine connects graph edits on control goroutines with the
// processor running on the real-time goroutine. Plans are compiled only
// by the engine control loop, never by the device callback.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/signal"
)

const defaultPollInterval = 50 * time.Millisecond

// Engine publishes compiled plans of the graph to the processor.
type Engine struct {
	graph     *phonograph.Graph
	processor *phonograph.Processor
	log       log.Logger
	poll      time.Duration

	// serializes publishing from control loop and reconfiguration
	publish sync.Mutex
}

// Option provides a way to set optional engine properties.
type Option func(*Engine)

// WithLogger sets logger to Engine. If this option is not provided, silent
// logger is used.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

// WithPollInterval sets how often control loop checks the graph and
// releases removed nodes, in addition to change notifications.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// WithProcessor sets processor to drive. By default new processor is
// created.
func WithProcessor(p *phonograph.Processor) Option {
	return func(e *Engine) {
		e.processor = p
	}
}

// New returns engine for the graph.
func New(g *phonograph.Graph, options ...Option) *Engine {
	e := &Engine{
		graph: g,
		log:   log.Silent,
		poll:  defaultPollInterval,
	}
	for _, option := range options {
		option(e)
	}
	if e.processor == nil {
		e.processor = phonograph.NewProcessor()
	}
	return e
}

// Graph returns engine graph.
func (e *Engine) Graph() *phonograph.Graph {
	return e.graph
}

// Processor returns engine processor.
func (e *Engine) Processor() *phonograph.Processor {
	return e.processor
}

// Process runs a single block. It's meant to be called from the device
// callback.
func (e *Engine) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	e.processor.Process(in, out, sampleRate, blockLength)
}

// Publish compiles graph if it's dirty, hands the plan to processor and
// releases removed nodes no longer referenced by the running plan. Plans
// older than the one processor holds are never published.
func (e *Engine) Publish() *phonograph.Plan {
	e.publish.Lock()
	defer e.publish.Unlock()
	p := e.graph.CompiledPlan()
	if current := e.processor.Plan(); current == nil || p.Generation > current.Generation {
		e.processor.SetPlan(p)
		log.WithFields(e.log, log.Fields{
			"plan":         p.UID,
			"generation":   p.Generation,
			"instructions": len(p.Instructions),
			"outputs":      len(p.Outputs),
		}).Debug("plan published")
	}
	e.graph.Reclaim(e.processor.Generation())
	return e.processor.Plan()
}

// Reconfigure prepares graph for the new device config and publishes the
// plan. Prepare errors are returned, the plan is published anyway and
// failed nodes are expected to produce silence.
func (e *Engine) Reconfigure(cfg phonograph.Config) error {
	err := e.graph.Prepare(cfg)
	if err != nil {
		log.WithFields(e.log, log.Fields{"error": err}).Warn("prepare graph failed")
	}
	e.Publish()
	return err
}

// Run publishes plans every time graph changes until context is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	e.log.Debug("engine control loop started")
	defer e.log.Debug("engine control loop stopped")
	e.Publish()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.graph.Changed():
			e.Publish()
		case <-ticker.C:
			e.Publish()
		}
	}
}
