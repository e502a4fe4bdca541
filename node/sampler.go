package node

import (
	"math"
	"sync/atomic"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/param"
	"github.com/dudk/phonograph/signal"
)

// DefaultBaseNote is a MIDI note which plays sample at original pitch.
const DefaultBaseNote = 60

// Sampler plays preloaded sample. Sample channels are mapped to output
// channels, the last sample channel is repeated if output has more.
type Sampler struct {
	Base
	data       signal.Float64
	sampleRate float64
	baseNote   int
	gain       *param.Param

	loop    atomic.Bool
	playing atomic.Bool
	// pending playback rate ratio bits, zero if none
	trigger atomic.Uint64
	stop    atomic.Bool
	// engine sample rate bits
	engineRate atomic.Uint64

	// owned by real-time goroutine
	position float64
	rate     float64
}

// NewSampler returns sampler for the sample data recorded with provided
// sample rate.
func NewSampler(name string, data signal.Float64, sampleRate float64) *Sampler {
	n := &Sampler{
		data:       data,
		sampleRate: sampleRate,
		baseNote:   DefaultBaseNote,
	}
	n.init("sampler", name)
	n.gain = param.New(n.name+".gain", 1, 0, maxGain, gainSmoothing)
	n.engineRate.Store(math.Float64bits(sampleRate))
	return n
}

// Gain returns gain parameter.
func (n *Sampler) Gain() *param.Param {
	return n.gain
}

// Len returns number of frames in sample.
func (n *Sampler) Len() int {
	return n.data.Size()
}

// SetLoop turns looping on or off.
func (n *Sampler) SetLoop(loop bool) {
	n.loop.Store(loop)
}

// Playing returns true if sample is being played.
func (n *Sampler) Playing() bool {
	return n.playing.Load()
}

// Trigger starts playback from the beginning at original pitch.
func (n *Sampler) Trigger() {
	n.TriggerNote(n.baseNote)
}

// TriggerNote starts playback from the beginning, pitched relative to
// the base note.
func (n *Sampler) TriggerNote(note int) {
	ratio := math.Pow(2, float64(note-n.baseNote)/12)
	n.stop.Store(false)
	n.trigger.Store(math.Float64bits(ratio))
	n.playing.Store(true)
}

// Stop stops playback on the next block.
func (n *Sampler) Stop() {
	n.stop.Store(true)
}

// Params returns all node parameters.
func (n *Sampler) Params() []*param.Param {
	return []*param.Param{n.gain}
}

// Prepare implements phonograph.Node.
func (n *Sampler) Prepare(cfg phonograph.Config) error {
	if cfg.SampleRate > 0 {
		n.engineRate.Store(math.Float64bits(cfg.SampleRate))
	}
	n.gain.SetSampleRate(cfg.SampleRate)
	return n.Base.Prepare(cfg)
}

// Process implements phonograph.Node.
func (n *Sampler) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	if n.Bypassed() {
		PassThrough(in, out, blockLength)
		return
	}
	out.Clear(blockLength)
	if bits := n.trigger.Swap(0); bits != 0 {
		n.position = 0
		n.rate = math.Float64frombits(bits) * n.sampleRate / math.Float64frombits(n.engineRate.Load())
	}
	if n.stop.Swap(false) {
		n.rate = 0
		n.playing.Store(false)
	}
	length := n.data.Size()
	if n.rate == 0 || length == 0 {
		return
	}
	loop := n.loop.Load()
	for i := 0; i < blockLength; i++ {
		if n.position >= float64(length) {
			if !loop {
				n.rate = 0
				n.playing.Store(false)
				return
			}
			n.position = math.Mod(n.position, float64(length))
		}
		g := n.gain.Next()
		for c := range out {
			ch := c
			if ch >= len(n.data) {
				ch = len(n.data) - 1
			}
			out[c][i] = n.interpolate(n.data[ch], loop) * g
		}
		n.position += n.rate
	}
}

// interpolate returns linearly interpolated value at current position.
func (n *Sampler) interpolate(data []float64, loop bool) float64 {
	i := int(n.position)
	frac := n.position - float64(i)
	next := i + 1
	if next >= len(data) {
		if !loop {
			return data[i]
		}
		next = 0
	}
	return data[i] + (data[next]-data[i])*frac
}
