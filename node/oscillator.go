package node

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/param"
	"github.com/dudk/phonograph/signal"
)

// Wave is an oscillator waveform.
type Wave int32

const (
	// Sine wave.
	Sine Wave = iota
	// Square wave.
	Square
	// Sawtooth wave.
	Sawtooth
)

// amplitude of oscillator output.
const amplitude = 0.8

const (
	minFrequency       = 20
	maxFrequency       = 20000
	frequencySmoothing = 100 * time.Millisecond
)

// ParseWave returns wave by its name.
func ParseWave(s string) (Wave, error) {
	switch strings.ToLower(s) {
	case "sine", "":
		return Sine, nil
	case "square":
		return Square, nil
	case "saw", "sawtooth":
		return Sawtooth, nil
	}
	return Sine, fmt.Errorf("unknown wave: %q", s)
}

func (w Wave) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	}
	return fmt.Sprintf("wave(%d)", int32(w))
}

// Oscillator generates periodic waveform with smoothed frequency.
type Oscillator struct {
	Base
	frequency *param.Param
	wave      atomic.Int32
	phase     float64
}

// NewOscillator returns oscillator with initial frequency in Hz.
func NewOscillator(name string, frequency float64, wave Wave) *Oscillator {
	n := &Oscillator{}
	n.init("oscillator", name)
	n.frequency = param.New(n.name+".frequency", frequency, minFrequency, maxFrequency, frequencySmoothing)
	n.wave.Store(int32(wave))
	return n
}

// Frequency returns frequency parameter.
func (n *Oscillator) Frequency() *param.Param {
	return n.frequency
}

// SetWave changes waveform.
func (n *Oscillator) SetWave(w Wave) {
	n.wave.Store(int32(w))
}

// Wave returns current waveform.
func (n *Oscillator) Wave() Wave {
	return Wave(n.wave.Load())
}

// Params returns all node parameters.
func (n *Oscillator) Params() []*param.Param {
	return []*param.Param{n.frequency}
}

// Prepare implements phonograph.Node.
func (n *Oscillator) Prepare(cfg phonograph.Config) error {
	n.frequency.SetSampleRate(cfg.SampleRate)
	return n.Base.Prepare(cfg)
}

// Process implements phonograph.Node. The first channel is generated and
// copied into the rest.
func (n *Oscillator) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	if n.Bypassed() {
		PassThrough(in, out, blockLength)
		return
	}
	if len(out) == 0 || sampleRate <= 0 {
		out.Clear(blockLength)
		return
	}
	wave := n.Wave()
	dst := out[0][:blockLength]
	for i := range dst {
		dst[i] = sample(wave, n.phase) * amplitude
		n.phase += n.frequency.Next() / sampleRate
		if n.phase >= 1 {
			n.phase -= math.Floor(n.phase)
		}
	}
	for c := 1; c < len(out); c++ {
		copy(out[c][:blockLength], dst)
	}
}

// Reset restarts waveform from zero phase. It must not be called
// concurrently with Process.
func (n *Oscillator) Reset() {
	n.phase = 0
}

func sample(w Wave, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
