package phonograph

import "errors"

var (
	// ErrNilNode is returned when nil is passed instead of node.
	ErrNilNode = errors.New("node is nil")
	// ErrUnknownNode is returned when node is not a part of the graph.
	ErrUnknownNode = errors.New("unknown node")
)
