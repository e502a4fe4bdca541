// Package param provides smoothed node parameters. A parameter is written
// from control goroutines and read sample by sample from the real-time
// goroutine without locks: every write publishes an immutable request,
// the real-time side picks it up on the next sample and ramps towards it.
package param

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultSampleRate = 44100

// Param is a smoothed value constrained to [Min, Max].
type Param struct {
	name      string
	min       float64
	max       float64
	smoothing time.Duration

	req        atomic.Pointer[request]
	current    atomic.Uint64
	sampleRate atomic.Uint64

	// owned by real-time goroutine
	seen      *request
	value     float64
	increment float64
	remaining int
}

// request is a single parameter change.
type request struct {
	target    float64
	ramp      time.Duration
	immediate bool
}

// New returns parameter with initial value and default smoothing time.
func New(name string, initial, min, max float64, smoothing time.Duration) *Param {
	if min > max {
		min, max = max, min
	}
	p := &Param{
		name:      name,
		min:       min,
		max:       max,
		smoothing: smoothing,
	}
	v := p.constrain(initial)
	p.value = v
	p.current.Store(math.Float64bits(v))
	p.sampleRate.Store(math.Float64bits(defaultSampleRate))
	r := &request{target: v, immediate: true}
	p.req.Store(r)
	p.seen = r
	return p
}

// Name returns parameter name.
func (p *Param) Name() string {
	return p.name
}

// Min returns lower bound.
func (p *Param) Min() float64 {
	return p.min
}

// Max returns upper bound.
func (p *Param) Max() float64 {
	return p.max
}

// Smoothing returns default ramp time.
func (p *Param) Smoothing() time.Duration {
	return p.smoothing
}

// Set ramps to the value over default smoothing time.
func (p *Param) Set(v float64) {
	p.SetRamp(v, p.smoothing)
}

// SetRamp ramps to the value over provided time. Zero time applies the
// value on the next sample.
func (p *Param) SetRamp(v float64, ramp time.Duration) {
	p.req.Store(&request{target: p.constrain(v), ramp: ramp})
}

// SetImmediate applies the value without smoothing.
func (p *Param) SetImmediate(v float64) {
	p.req.Store(&request{target: p.constrain(v), immediate: true})
}

// SetNormalized sets value mapped from [0, 1] into parameter range.
func (p *Param) SetNormalized(n float64) {
	n = math.Max(0, math.Min(1, n))
	p.Set(p.min + n*(p.max-p.min))
}

// Normalized returns current value mapped into [0, 1].
func (p *Param) Normalized() float64 {
	if p.max-p.min < 1e-9 {
		return 0
	}
	return (p.Current() - p.min) / (p.max - p.min)
}

// Target returns the value parameter is ramping to.
func (p *Param) Target() float64 {
	return p.req.Load().target
}

// Current returns the latest value produced on real-time goroutine.
func (p *Param) Current() float64 {
	return math.Float64frombits(p.current.Load())
}

// SetSampleRate updates sample rate used to convert ramp time to samples.
// Ramps in progress keep their increment.
func (p *Param) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 {
		return
	}
	p.sampleRate.Store(math.Float64bits(sampleRate))
}

// Next advances smoothing by one sample and returns the value.
func (p *Param) Next() float64 {
	if r := p.req.Load(); r != p.seen {
		p.start(r)
	}
	if p.remaining > 0 {
		p.value += p.increment
		p.remaining--
		// land exactly on target
		if p.remaining == 0 {
			p.value = p.seen.target
		}
		p.current.Store(math.Float64bits(p.value))
	}
	return p.value
}

// Fill writes next len(dst) values into dst. It returns true if the value
// was constant for the whole block, so callers can take a block path.
func (p *Param) Fill(dst []float64) bool {
	if r := p.req.Load(); r != p.seen {
		p.start(r)
	}
	if p.remaining == 0 {
		for i := range dst {
			dst[i] = p.value
		}
		return true
	}
	for i := range dst {
		dst[i] = p.Next()
	}
	return false
}

// Value returns the value for the next sample without advancing smoothing.
// If a ramp is pending, ok is false.
func (p *Param) Value() (v float64, ok bool) {
	if r := p.req.Load(); r != p.seen {
		p.start(r)
	}
	return p.value, p.remaining == 0
}

func (p *Param) start(r *request) {
	p.seen = r
	samples := int(math.Round(r.ramp.Seconds() * math.Float64frombits(p.sampleRate.Load())))
	if r.immediate || samples <= 0 {
		p.value = r.target
		p.remaining = 0
		p.increment = 0
		p.current.Store(math.Float64bits(p.value))
		return
	}
	p.remaining = samples
	p.increment = (r.target - p.value) / float64(samples)
}

func (p *Param) constrain(v float64) float64 {
	return math.Max(p.min, math.Min(p.max, v))
}

// Group is a named set of parameters, used by control surfaces to address
// parameters of many nodes.
type Group struct {
	name string
	mu   sync.RWMutex
	m    map[string]*Param
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{
		name: name,
		m:    make(map[string]*Param),
	}
}

// Name returns group name.
func (g *Group) Name() string {
	return g.name
}

// Add parameters to the group. Parameters are addressed by their names.
func (g *Group) Add(params ...*Param) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range params {
		if p != nil {
			g.m[p.name] = p
		}
	}
}

// Get returns parameter by name.
func (g *Group) Get(name string) (*Param, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.m[name]
	return p, ok
}

// Names returns sorted names of all parameters.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.m))
	for name := range g.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
