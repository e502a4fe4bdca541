package phonograph

import (
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/dudk/phonograph/metric"
	"github.com/dudk/phonograph/signal"
)

// Processor runs published plans on the real-time goroutine. Process is
// the only method that's expected to be called from there, every other
// method is safe to call concurrently with it.
type Processor struct {
	plan       atomic.Pointer[Plan]
	generation atomic.Uint64
	grows      atomic.Int64
	measure    metric.MeasureFunc

	// owned by real-time goroutine
	pool    [][]float64
	inputs  signal.Float64
	outView [1][]float64
}

// NewProcessor returns processor without plan. It produces silence until
// plan is set.
func NewProcessor(options ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, option := range options {
		option(p)
	}
	return p
}

// SetPlan publishes plan. It will be used starting from the next block.
func (p *Processor) SetPlan(plan *Plan) {
	p.plan.Store(plan)
}

// Plan returns the latest published plan.
func (p *Processor) Plan() *Plan {
	return p.plan.Load()
}

// Generation returns generation of the plan used by the latest block.
func (p *Processor) Generation() uint64 {
	return p.generation.Load()
}

// Grows returns how many times scratch storage was resized.
func (p *Processor) Grows() int {
	return int(p.grows.Load())
}

// Process runs the latest published plan for a single block. Out is
// cleared and every output buffer of the plan is added to every channel of
// out. In is passed to nodes that read live input.
func (p *Processor) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	plan := p.plan.Load()
	if plan == nil || len(plan.Instructions) == 0 {
		if plan != nil {
			p.generation.Store(plan.Generation)
		}
		out.Clear(blockLength)
		p.meter(blockLength)
		return
	}
	p.generation.Store(plan.Generation)
	p.ensure(plan, blockLength, len(in))

	for i := 0; i < plan.BufferCount; i++ {
		clear(p.pool[i][:blockLength])
	}
	for _, ins := range plan.Instructions {
		inputs := p.inputs[:0]
		if ins.LiveInput {
			inputs = append(inputs, in...)
		} else {
			for _, b := range ins.Inputs {
				inputs = append(inputs, p.pool[b][:blockLength])
			}
		}
		p.outView[0] = p.pool[ins.Output][:blockLength]
		ins.Node.Process(inputs, p.outView[:], sampleRate, blockLength)
	}
	p.outView[0] = nil

	out.Clear(blockLength)
	for _, o := range plan.Outputs {
		src := p.pool[o.Buffer][:blockLength]
		for c := range out {
			vecmath.AddBlockInPlace(out[c][:blockLength], src)
		}
	}
	p.meter(blockLength)
}

// ensure grows scratch storage to fit the plan. It only allocates when
// plan needs more buffers, longer buffers or more inputs than before.
func (p *Processor) ensure(plan *Plan, blockLength, numInputs int) {
	grown := false
	if len(p.pool) < plan.BufferCount {
		pool := make([][]float64, plan.BufferCount)
		copy(pool, p.pool)
		p.pool = pool
		grown = true
	}
	for i := range p.pool {
		if len(p.pool[i]) < blockLength {
			p.pool[i] = make([]float64, blockLength)
			grown = true
		}
	}
	need := plan.MaxInputs
	if need < numInputs {
		need = numInputs
	}
	if cap(p.inputs) < need {
		p.inputs = make(signal.Float64, 0, need)
		grown = true
	}
	if grown {
		p.grows.Add(1)
	}
}

func (p *Processor) meter(blockLength int) {
	if p.measure != nil {
		p.measure(int64(blockLength))
	}
}
