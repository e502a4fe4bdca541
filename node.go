package phonograph

import "github.com/dudk/phonograph/signal"

// ID is a stable handle of a node inside a graph. Handles are assigned in
// insertion order and never reused.
type ID int

// NoID is returned when node cannot be added to a graph.
const NoID ID = -1

// Config describes the processing context propagated to every node.
type Config struct {
	SampleRate     float64
	MaxBlockLength int
	NumChannels    int
}

// Node is a processing unit of the graph.
//
// Prepare is called on the control goroutine and may be called again after
// any structural or configuration change. Process is called on the
// real-time goroutine: it must write exactly blockLength samples into every
// channel of out, must not block, allocate or lock, and must tolerate empty
// in. Failures are expressed as silence.
//
// Nodes are used as map keys, so implementations must be comparable.
// Pointer receivers are the usual choice.
type Node interface {
	Name() string
	Prepare(Config) error
	Process(in, out signal.Float64, sampleRate float64, blockLength int)
}

// LiveInput is implemented by nodes that receive device input when they
// have no predecessors in the graph.
type LiveInput interface {
	ReadsLiveInput()
}

// Releaser is implemented by nodes that hold external resources. Release
// is called once, after the node was removed from the graph and no plan in
// use references it anymore.
type Releaser interface {
	Release()
}
