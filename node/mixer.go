package node

import (
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/param"
	"github.com/dudk/phonograph/signal"
)

const levelSmoothing = 20 * time.Millisecond

// Mixer sums all inputs into every output channel and applies level.
type Mixer struct {
	Base
	level *param.Param
}

// NewMixer returns mixer with unity level.
func NewMixer(name string) *Mixer {
	n := &Mixer{}
	n.init("mixer", name)
	n.level = param.New(n.name+".level", 1, 0, maxGain, levelSmoothing)
	return n
}

// Level returns output level parameter.
func (n *Mixer) Level() *param.Param {
	return n.level
}

// Params returns all node parameters.
func (n *Mixer) Params() []*param.Param {
	return []*param.Param{n.level}
}

// Prepare implements phonograph.Node.
func (n *Mixer) Prepare(cfg phonograph.Config) error {
	n.level.SetSampleRate(cfg.SampleRate)
	return n.Base.Prepare(cfg)
}

// Process implements phonograph.Node.
func (n *Mixer) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	if n.Bypassed() {
		PassThrough(in, out, blockLength)
		return
	}
	if len(out) == 0 {
		return
	}
	dst := out[0][:blockLength]
	clear(dst)
	for _, input := range in {
		vecmath.AddBlockInPlace(dst, input[:blockLength])
	}
	if level, ok := n.level.Value(); ok {
		if level != 1 {
			vecmath.ScaleBlockInPlace(dst, level)
		}
	} else {
		for i := range dst {
			dst[i] *= n.level.Next()
		}
	}
	for c := 1; c < len(out); c++ {
		copy(out[c][:blockLength], dst)
	}
}
