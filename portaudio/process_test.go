//go:build portaudio

package portaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/signal"
)

type recorder struct {
	blocks []int
}

func (r *recorder) Reconfigure(phonograph.Config) error { return nil }

// Process writes input channel 0 plus one into every output channel.
func (r *recorder) Process(in, out signal.Float64, sampleRate float64, n int) {
	r.blocks = append(r.blocks, n)
	for c := range out {
		for i := 0; i < n; i++ {
			v := 1.0
			if len(in) > 0 {
				v += in[0][i]
			}
			out[c][i] = v
		}
	}
}

func TestProcessChunks(t *testing.T) {
	r := &recorder{}
	d := New(r, Config{BlockLength: 4, InputChannels: 1, OutputChannels: 2}, nil)

	in := []float32{0, 1, 2, 3, 4, 5}
	out := make([]float32, 12)
	d.process(in, out)

	assert.Equal(t, []int{4, 2}, r.blocks)
	assert.Equal(t, []float32{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6}, out)
}

func TestProcessOutputOnly(t *testing.T) {
	r := &recorder{}
	d := New(r, Config{BlockLength: 8}, nil)

	out := make([]float32, 8)
	d.process(nil, out)

	assert.Equal(t, []int{4}, r.blocks)
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1, 1, 1}, out)
}
