package node

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/dudk/phonograph/signal"
)

const (
	// peakDecay is applied to peak hold every sample.
	peakDecay     = 0.999
	rmsWindowSize = 4096
)

// LevelData is a snapshot of meter values.
type LevelData struct {
	PeakLeft  float64
	PeakRight float64
	RMSLeft   float64
	RMSRight  float64
}

// Levels passes signal through and measures peak and RMS levels of the
// first two input channels. Mono input is measured as both channels.
type Levels struct {
	Base
	left  meter
	right meter
	reset atomic.Bool
}

// meter keeps peak hold and a sliding RMS window of one channel.
type meter struct {
	peak   float64
	window []float64
	pos    int
	sum    float64

	peakBits atomic.Uint64
	rmsBits  atomic.Uint64
}

// NewLevels returns levels meter.
func NewLevels(name string) *Levels {
	n := &Levels{}
	n.init("levels", name)
	n.left.window = make([]float64, rmsWindowSize)
	n.right.window = make([]float64, rmsWindowSize)
	return n
}

// Levels returns the latest meter values. It's safe to call from any
// goroutine.
func (n *Levels) Levels() LevelData {
	return LevelData{
		PeakLeft:  math.Float64frombits(n.left.peakBits.Load()),
		PeakRight: math.Float64frombits(n.right.peakBits.Load()),
		RMSLeft:   math.Float64frombits(n.left.rmsBits.Load()),
		RMSRight:  math.Float64frombits(n.right.rmsBits.Load()),
	}
}

// ResetPeak drops peak hold on the next block.
func (n *Levels) ResetPeak() {
	n.reset.Store(true)
}

// Process implements phonograph.Node. Signal passes through even if node
// is bypassed, bypass only stops measurements.
func (n *Levels) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	PassThrough(in, out, blockLength)
	if n.Bypassed() {
		return
	}
	if n.reset.Swap(false) {
		n.left.peak, n.right.peak = 0, 0
	}
	switch len(in) {
	case 0:
		n.left.silence(blockLength)
		n.right.silence(blockLength)
	case 1:
		n.left.measure(in[0][:blockLength])
		n.right.measure(in[0][:blockLength])
	default:
		n.left.measure(in[0][:blockLength])
		n.right.measure(in[1][:blockLength])
	}
}

func (m *meter) measure(block []float64) {
	m.peak = math.Max(vecmath.MaxAbs(block), m.peak*math.Pow(peakDecay, float64(len(block))))
	for _, v := range block {
		old := m.window[m.pos]
		m.sum += v*v - old*old
		m.window[m.pos] = v
		m.pos = (m.pos + 1) % len(m.window)
	}
	m.publish()
}

func (m *meter) silence(blockLength int) {
	m.peak *= math.Pow(peakDecay, float64(blockLength))
	for i := 0; i < blockLength; i++ {
		old := m.window[m.pos]
		m.sum -= old * old
		m.window[m.pos] = 0
		m.pos = (m.pos + 1) % len(m.window)
	}
	m.publish()
}

func (m *meter) publish() {
	// accumulated rounding can make the sum slightly negative
	if m.sum < 0 {
		m.sum = 0
	}
	m.peakBits.Store(math.Float64bits(m.peak))
	m.rmsBits.Store(math.Float64bits(math.Sqrt(m.sum / float64(len(m.window)))))
}
