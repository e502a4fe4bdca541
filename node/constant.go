package node

import (
	"math"

	"github.com/dudk/phonograph/param"
	"github.com/dudk/phonograph/signal"
)

// Constant writes the same value into every sample.
type Constant struct {
	Base
	value *param.Param
}

// NewConstant returns constant source.
func NewConstant(name string, value float64) *Constant {
	n := &Constant{}
	n.init("constant", name)
	n.value = param.New(n.name+".value", value, -math.MaxFloat64, math.MaxFloat64, 0)
	return n
}

// Value returns value parameter.
func (n *Constant) Value() *param.Param {
	return n.value
}

// Params returns all node parameters.
func (n *Constant) Params() []*param.Param {
	return []*param.Param{n.value}
}

// Process implements phonograph.Node.
func (n *Constant) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	if n.Bypassed() {
		PassThrough(in, out, blockLength)
		return
	}
	v := n.value.Next()
	for c := range out {
		for i := range out[c][:blockLength] {
			out[c][i] = v
		}
	}
}
