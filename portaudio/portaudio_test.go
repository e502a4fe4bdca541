//go:build portaudio

package portaudio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/engine"
	"github.com/dudk/phonograph/node"
	"github.com/dudk/phonograph/portaudio"
)

func TestList(t *testing.T) {
	devices, err := portaudio.List()
	require.NoError(t, err)
	for _, d := range devices {
		assert.NotEmpty(t, d.Name)
	}
}

func TestDevice(t *testing.T) {
	g := phonograph.NewGraph()
	osc := node.NewOscillator("osc", 440, node.Sine)
	gain := node.NewGain("gain", 0.2)
	require.NoError(t, g.Connect(osc, gain))
	g.SetOutputNode(gain)

	e := engine.New(g)
	d := portaudio.New(e, portaudio.Config{BlockLength: 256}, nil)
	require.NoError(t, d.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	e.Run(ctx)

	assert.NoError(t, d.Stop())
	assert.Greater(t, d.SampleRate(), 0.0)
	assert.False(t, e.Processor().Plan().Empty())
}
