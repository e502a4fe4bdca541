// Package mock provides mocks for graph nodes and allows to execute
// integration tests.
package mock

import (
	"sync/atomic"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/signal"
)

// Source mocks a node without inputs. It writes Value into every sample.
type Source struct {
	counter
	Hooks
	ID    string
	Value float64
}

// Name implements phonograph.Node.
func (m *Source) Name() string {
	return name("source", m.ID)
}

// Prepare implements phonograph.Node.
func (m *Source) Prepare(cfg phonograph.Config) error {
	return m.prepare(cfg)
}

// Process implements phonograph.Node.
func (m *Source) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	m.advance(blockLength, len(in))
	m.processed()
	for c := range out {
		for i := range out[c][:blockLength] {
			out[c][i] = m.Value
		}
	}
}

// Processor mocks a node which sums its inputs and multiplies the result
// by Gain. Zero Gain is treated as 1.
type Processor struct {
	counter
	Hooks
	ID   string
	Gain float64
}

// Name implements phonograph.Node.
func (m *Processor) Name() string {
	return name("processor", m.ID)
}

// Prepare implements phonograph.Node.
func (m *Processor) Prepare(cfg phonograph.Config) error {
	return m.prepare(cfg)
}

// Process implements phonograph.Node.
func (m *Processor) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	m.advance(blockLength, len(in))
	m.processed()
	gain := m.Gain
	if gain == 0 {
		gain = 1
	}
	for c := range out {
		for i := 0; i < blockLength; i++ {
			var sum float64
			for _, input := range in {
				sum += input[i]
			}
			out[c][i] = sum * gain
		}
	}
}

// Live mocks a node which reads device input. It copies the first input
// channel.
type Live struct {
	counter
	Hooks
	ID string
}

// ReadsLiveInput implements phonograph.LiveInput.
func (m *Live) ReadsLiveInput() {}

// Name implements phonograph.Node.
func (m *Live) Name() string {
	return name("live", m.ID)
}

// Prepare implements phonograph.Node.
func (m *Live) Prepare(cfg phonograph.Config) error {
	return m.prepare(cfg)
}

// Process implements phonograph.Node.
func (m *Live) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	m.advance(blockLength, len(in))
	for c := range out {
		if len(in) == 0 {
			clear(out[c][:blockLength])
			continue
		}
		copy(out[c][:blockLength], in[0][:blockLength])
	}
}

// Sink mocks up a render destination.
// Buffer is not thread-safe, so should not be checked while render is running.
type Sink struct {
	counter
	buffer      signal.Float64
	Discard     bool
	ErrorOnCall error
	Flushed     bool
}

// Sink returns function which appends every block to the buffer.
func (m *Sink) Sink() func(signal.Float64) error {
	return func(b signal.Float64) error {
		if m.ErrorOnCall != nil {
			return m.ErrorOnCall
		}
		if !m.Discard {
			m.buffer = m.buffer.Append(b)
		}
		m.advance(b.Size(), 0)
		return nil
	}
}

// Flush marks sink as flushed.
func (m *Sink) Flush() error {
	m.Flushed = true
	return nil
}

// Buffer returns sink's buffer
func (m *Sink) Buffer() signal.Float64 {
	return m.buffer
}

// Hooks allows to mock node hooks.
type Hooks struct {
	ErrorOnPrepare error

	config   atomic.Pointer[phonograph.Config]
	prepared atomic.Int32
	released atomic.Int32
	late     atomic.Int32
}

func (h *Hooks) prepare(cfg phonograph.Config) error {
	h.config.Store(&cfg)
	h.prepared.Add(1)
	return h.ErrorOnPrepare
}

// Release implements phonograph.Releaser.
func (h *Hooks) Release() {
	h.released.Add(1)
}

// processed counts process calls made after release.
func (h *Hooks) processed() {
	if h.released.Load() > 0 {
		h.late.Add(1)
	}
}

// ProcessedAfterRelease returns number of process calls made after the
// node was released.
func (h *Hooks) ProcessedAfterRelease() int {
	return int(h.late.Load())
}

// Config returns config of the latest Prepare call.
func (h *Hooks) Config() (phonograph.Config, bool) {
	if cfg := h.config.Load(); cfg != nil {
		return *cfg, true
	}
	return phonograph.Config{}, false
}

// Prepared returns number of Prepare calls.
func (h *Hooks) Prepared() int {
	return int(h.prepared.Load())
}

// Released returns number of Release calls.
func (h *Hooks) Released() int {
	return int(h.released.Load())
}

// counter counts process calls, samples and inputs of the latest call.
type counter struct {
	messages atomic.Int64
	samples  atomic.Int64
	inputs   atomic.Int64
}

// advance counter's metrics.
func (c *counter) advance(size, inputs int) {
	c.messages.Add(1)
	c.samples.Add(int64(size))
	c.inputs.Store(int64(inputs))
}

// Count returns messages and samples metrics.
func (c *counter) Count() (int, int) {
	return int(c.messages.Load()), int(c.samples.Load())
}

// Inputs returns number of inputs passed to the latest call.
func (c *counter) Inputs() int {
	return int(c.inputs.Load())
}

func name(kind, id string) string {
	if id == "" {
		return kind
	}
	return kind + "-" + id
}
