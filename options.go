package phonograph

import (
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/metric"
)

// GraphOption provides a way to set optional graph properties.
type GraphOption func(*Graph)

// WithLogger sets logger to Graph. If this option is not provided, silent
// logger is used.
func WithLogger(logger log.Logger) GraphOption {
	return func(g *Graph) {
		g.log = logger
	}
}

// ProcessorOption provides a way to set optional processor properties.
type ProcessorOption func(*Processor)

// WithMeter sets metrics meter, which is called after every block.
func WithMeter(m metric.MeasureFunc) ProcessorOption {
	return func(p *Processor) {
		p.measure = m
	}
}
