// Package node provides processing nodes for phonograph graphs.
//
// Every node writes exactly blockLength samples into each output channel
// and treats its inputs as channels: input i is the output of the i-th
// predecessor. Nodes that don't mix keep channels aligned and clear output
// channels without matching input.
package node

import (
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/signal"
)

// Base carries properties shared by all nodes: name, bypass flag and the
// config of the latest Prepare call.
type Base struct {
	name   string
	bypass atomic.Bool
	config atomic.Pointer[phonograph.Config]
}

// init sets node name. Empty name is replaced with unique one, prefixed
// with kind.
func (b *Base) init(kind, name string) {
	if name == "" {
		name = kind + "-" + xid.New().String()
	}
	b.name = name
}

// Name implements phonograph.Node.
func (b *Base) Name() string {
	return b.name
}

// Prepare records config.
func (b *Base) Prepare(cfg phonograph.Config) error {
	b.config.Store(&cfg)
	return nil
}

// Config returns config of the latest Prepare call.
func (b *Base) Config() (phonograph.Config, bool) {
	if cfg := b.config.Load(); cfg != nil {
		return *cfg, true
	}
	return phonograph.Config{}, false
}

// SetBypass turns bypass on or off. Bypassed nodes pass input through.
func (b *Base) SetBypass(bypass bool) {
	b.bypass.Store(bypass)
}

// Bypassed returns true if node is bypassed.
func (b *Base) Bypassed() bool {
	return b.bypass.Load()
}

// PassThrough copies available input channels into output and clears
// output channels without input.
func PassThrough(in, out signal.Float64, blockLength int) {
	for c := range out {
		if c < len(in) {
			copy(out[c][:blockLength], in[c][:blockLength])
			continue
		}
		clear(out[c][:blockLength])
	}
}
