package node

import "github.com/dudk/phonograph/signal"

// Input passes device input through. It's used as a graph entry for live
// signal.
type Input struct {
	Base
}

// NewInput returns live input node.
func NewInput(name string) *Input {
	n := &Input{}
	n.init("input", name)
	return n
}

// ReadsLiveInput implements phonograph.LiveInput.
func (n *Input) ReadsLiveInput() {}

// Process implements phonograph.Node.
func (n *Input) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	if n.Bypassed() {
		out.Clear(blockLength)
		return
	}
	PassThrough(in, out, blockLength)
}

