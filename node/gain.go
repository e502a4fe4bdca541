package node

import (
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/param"
	"github.com/dudk/phonograph/signal"
)

const (
	maxGain       = 4
	gainSmoothing = 20 * time.Millisecond
)

// Gain multiplies every input channel by smoothed gain value.
type Gain struct {
	Base
	gain *param.Param
	// ramp values of the current block
	gains []float64
}

// NewGain returns gain node. Gain is limited to [0, 4].
func NewGain(name string, gain float64) *Gain {
	n := &Gain{}
	n.init("gain", name)
	n.gain = param.New(n.name+".gain", gain, 0, maxGain, gainSmoothing)
	return n
}

// Gain returns gain parameter.
func (n *Gain) Gain() *param.Param {
	return n.gain
}

// Params returns all node parameters.
func (n *Gain) Params() []*param.Param {
	return []*param.Param{n.gain}
}

// Prepare implements phonograph.Node.
func (n *Gain) Prepare(cfg phonograph.Config) error {
	n.gain.SetSampleRate(cfg.SampleRate)
	if len(n.gains) < cfg.MaxBlockLength {
		n.gains = make([]float64, cfg.MaxBlockLength)
	}
	return n.Base.Prepare(cfg)
}

// Process implements phonograph.Node.
func (n *Gain) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	if n.Bypassed() {
		PassThrough(in, out, blockLength)
		return
	}
	if blockLength == 0 || blockLength > len(n.gains) {
		n.processSamples(in, out, blockLength)
		return
	}
	gains := n.gains[:blockLength]
	constant := n.gain.Fill(gains)
	for c := range out {
		if c >= len(in) {
			clear(out[c][:blockLength])
			continue
		}
		if constant {
			vecmath.ScaleBlock(out[c][:blockLength], in[c][:blockLength], gains[0])
			continue
		}
		// ramp is shared by all channels
		vecmath.MulBlock(out[c][:blockLength], in[c][:blockLength], gains)
	}
}

// processSamples applies gain sample by sample. It's used when node was
// not prepared for the block length.
func (n *Gain) processSamples(in, out signal.Float64, blockLength int) {
	for i := 0; i < blockLength; i++ {
		g := n.gain.Next()
		for c := range out {
			if c < len(in) {
				out[c][i] = in[c][i] * g
				continue
			}
			out[c][i] = 0
		}
	}
}
