package node_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/node"
	"github.com/dudk/phonograph/signal"
)

var (
	_ phonograph.Node      = (*node.Constant)(nil)
	_ phonograph.Node      = (*node.Oscillator)(nil)
	_ phonograph.Node      = (*node.Gain)(nil)
	_ phonograph.Node      = (*node.Mixer)(nil)
	_ phonograph.Node      = (*node.Levels)(nil)
	_ phonograph.Node      = (*node.Analyzer)(nil)
	_ phonograph.Node      = (*node.Sampler)(nil)
	_ phonograph.Node      = (*node.Input)(nil)
	_ phonograph.LiveInput = (*node.Input)(nil)
)

func TestPassThrough(t *testing.T) {
	tests := []struct {
		description string
		in          signal.Float64
		out         signal.Float64
		expected    signal.Float64
	}{
		{
			description: "equal channels",
			in:          signal.Float64{{1, 2}, {3, 4}},
			out:         signal.EmptyFloat64(2, 2),
			expected:    signal.Float64{{1, 2}, {3, 4}},
		},
		{
			description: "more output channels",
			in:          signal.Float64{{1, 2}},
			out:         signal.Float64{{9, 9}, {9, 9}},
			expected:    signal.Float64{{1, 2}, {0, 0}},
		},
		{
			description: "no inputs",
			out:         signal.Float64{{9, 9}},
			expected:    signal.Float64{{0, 0}},
		},
	}
	for _, test := range tests {
		node.PassThrough(test.in, test.out, 2)
		assert.Equal(t, test.expected, test.out, test.description)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "amp", node.NewGain("amp", 1).Name())
	assert.True(t, strings.HasPrefix(node.NewGain("", 1).Name(), "gain-"))
	assert.NotEqual(t, node.NewMixer("").Name(), node.NewMixer("").Name())
	assert.Equal(t, "amp.gain", node.NewGain("amp", 1).Gain().Name())
}

func TestConstant(t *testing.T) {
	n := node.NewConstant("one", 1)
	out := signal.EmptyFloat64(2, 4)
	n.Process(nil, out, 44100, 4)
	assert.Equal(t, signal.Float64{{1, 1, 1, 1}, {1, 1, 1, 1}}, out)

	n.Value().Set(0.25)
	n.Process(nil, out, 44100, 2)
	assert.Equal(t, signal.Float64{{0.25, 0.25, 1, 1}, {0.25, 0.25, 1, 1}}, out)
}

func TestOscillator(t *testing.T) {
	tests := []struct {
		wave     node.Wave
		expected []float64
	}{
		{
			wave:     node.Square,
			expected: []float64{0.8, 0.8, -0.8, -0.8, 0.8},
		},
		{
			wave:     node.Sawtooth,
			expected: []float64{-0.8, -0.4, 0, 0.4, -0.8},
		},
		{
			wave:     node.Sine,
			expected: []float64{0, 0.8, 0, -0.8, 0},
		},
	}
	for _, test := range tests {
		n := node.NewOscillator("", 250, test.wave)
		require.NoError(t, n.Prepare(phonograph.Config{SampleRate: 1000, MaxBlockLength: 5, NumChannels: 2}))
		out := signal.EmptyFloat64(2, 5)
		n.Process(nil, out, 1000, 5)
		assert.InDeltaSlice(t, test.expected, out[0], 1e-9, test.wave.String())
		assert.Equal(t, out[0], out[1], test.wave.String())
	}
}

func TestParseWave(t *testing.T) {
	for s, expected := range map[string]node.Wave{
		"sine":     node.Sine,
		"":         node.Sine,
		"Square":   node.Square,
		"saw":      node.Sawtooth,
		"sawtooth": node.Sawtooth,
	} {
		w, err := node.ParseWave(s)
		assert.NoError(t, err, s)
		assert.Equal(t, expected, w, s)
	}
	_, err := node.ParseWave("noise")
	assert.Error(t, err)
}

func TestOscillatorBypass(t *testing.T) {
	n := node.NewOscillator("", 440, node.Sine)
	n.SetBypass(true)
	assert.True(t, n.Bypassed())
	out := signal.Float64{{1, 1}}
	n.Process(nil, out, 44100, 2)
	assert.Equal(t, signal.Float64{{0, 0}}, out)
}

func TestGain(t *testing.T) {
	n := node.NewGain("amp", 0.5)
	require.NoError(t, n.Prepare(phonograph.Config{SampleRate: 1000, MaxBlockLength: 4, NumChannels: 2}))
	in := signal.Float64{{1, 1, 1, 1}}
	out := signal.Float64{{9, 9, 9, 9}, {9, 9, 9, 9}}
	n.Process(in, out, 1000, 4)
	assert.Equal(t, signal.Float64{{0.5, 0.5, 0.5, 0.5}, {0, 0, 0, 0}}, out)

	n.Gain().SetRamp(1, 2*time.Millisecond)
	n.Process(in, out, 1000, 4)
	assert.InDeltaSlice(t, []float64{0.75, 1, 1, 1}, out[0], 1e-9)
	assert.Equal(t, []float64{0, 0, 0, 0}, out[1])

	// limited to [0, 4]
	n.Gain().SetImmediate(10)
	n.Process(in, out, 1000, 4)
	assert.Equal(t, []float64{4, 4, 4, 4}, out[0])

	n.SetBypass(true)
	n.Process(in, out, 1000, 4)
	assert.Equal(t, []float64{1, 1, 1, 1}, out[0])
}

func TestGainUnprepared(t *testing.T) {
	n := node.NewGain("amp", 0)
	n.Gain().SetSampleRate(1000)
	n.Gain().SetRamp(1, 2*time.Millisecond)
	in := signal.Float64{{1, 1, 1, 1}, {2, 2, 2, 2}}
	out := signal.EmptyFloat64(2, 4)
	n.Process(in, out, 1000, 4)
	assert.InDeltaSlice(t, []float64{0.5, 1, 1, 1}, out[0], 1e-9)
	assert.InDeltaSlice(t, []float64{1, 2, 2, 2}, out[1], 1e-9)

	n.Process(in, out, 1000, 0)
}

func TestMixer(t *testing.T) {
	n := node.NewMixer("bus")
	require.NoError(t, n.Prepare(phonograph.Config{SampleRate: 1000, MaxBlockLength: 2, NumChannels: 2}))
	in := signal.Float64{{1, 1}, {2, 2}}
	out := signal.EmptyFloat64(2, 2)
	n.Process(in, out, 1000, 2)
	assert.Equal(t, signal.Float64{{3, 3}, {3, 3}}, out)

	n.Level().SetImmediate(0.5)
	n.Process(in, out, 1000, 2)
	assert.Equal(t, signal.Float64{{1.5, 1.5}, {1.5, 1.5}}, out)

	n.Process(nil, out, 1000, 2)
	assert.Equal(t, signal.Float64{{0, 0}, {0, 0}}, out)
}

func TestLevels(t *testing.T) {
	n := node.NewLevels("meter")
	in := signal.Float64{make([]float64, 4096)}
	for i := range in[0] {
		in[0][i] = -0.5
	}
	out := signal.EmptyFloat64(1, 4096)
	n.Process(in, out, 44100, 4096)
	assert.Equal(t, in[0], out[0])

	l := n.Levels()
	assert.InDelta(t, 0.5, l.PeakLeft, 1e-9)
	assert.InDelta(t, 0.5, l.PeakRight, 1e-9)
	assert.InDelta(t, 0.5, l.RMSLeft, 1e-9)
	assert.InDelta(t, 0.5, l.RMSRight, 1e-9)

	// peak decays, rms window drains
	n.Process(nil, out, 44100, 4096)
	l = n.Levels()
	assert.Less(t, l.PeakLeft, 0.5)
	assert.Greater(t, l.PeakLeft, 0.0)
	assert.InDelta(t, 0, l.RMSLeft, 1e-6)

	n.ResetPeak()
	n.Process(nil, out, 44100, 16)
	assert.Zero(t, n.Levels().PeakLeft)
}

func TestLevelsStereo(t *testing.T) {
	n := node.NewLevels("")
	in := signal.Float64{{0.25, -0.25}, {1, 0}}
	out := signal.EmptyFloat64(2, 2)
	n.Process(in, out, 44100, 2)
	l := n.Levels()
	assert.InDelta(t, 0.25, l.PeakLeft, 1e-9)
	assert.InDelta(t, 1, l.PeakRight, 1e-9)
}

func TestAnalyzer(t *testing.T) {
	const (
		size       = 64
		sampleRate = 1024
		bin        = 4
	)
	n := node.NewAnalyzer("spectrum", 50, node.Rectangular)
	assert.Equal(t, size, n.FFTSize())
	_, ok := n.Spectrum()
	assert.False(t, ok)
	require.NoError(t, n.Prepare(phonograph.Config{SampleRate: sampleRate, MaxBlockLength: 16, NumChannels: 1}))

	// sine exactly at the center of the bin
	osc := make([]float64, size)
	for i := range osc {
		osc[i] = sineAt(bin, size, i)
	}
	out := signal.EmptyFloat64(1, 16)
	for i := 0; i < size; i += 16 {
		in := signal.Float64{osc[i : i+16]}
		n.Process(in, out, sampleRate, 16)
		assert.Equal(t, in[0], out[0])
	}

	s, ok := n.Spectrum()
	require.True(t, ok)
	assert.Equal(t, size, s.FFTSize)
	require.Len(t, s.Magnitudes, size/2)
	require.Len(t, s.Frequencies, size/2)
	assert.Equal(t, 64.0, s.Frequencies[bin])
	assert.InDelta(t, 0, s.Magnitudes[bin], 0.01)
	for k, m := range s.Magnitudes {
		if k != bin {
			assert.Less(t, m, -60.0, "bin %d", k)
		}
	}
}

// Periodic Hann window spreads a bin-centered sine into its two
// neighbours at half amplitude and leaves other bins empty.
func TestAnalyzerHann(t *testing.T) {
	const (
		size       = 64
		sampleRate = 1024
		bin        = 8
	)
	n := node.NewAnalyzer("hann", size, node.Hann)
	require.NoError(t, n.Prepare(phonograph.Config{SampleRate: sampleRate, MaxBlockLength: size, NumChannels: 1}))

	osc := make([]float64, size)
	for i := range osc {
		osc[i] = sineAt(bin, size, i)
	}
	n.Process(signal.Float64{osc}, signal.EmptyFloat64(1, size), sampleRate, size)

	s, ok := n.Spectrum()
	require.True(t, ok)
	assert.InDelta(t, 0, s.Magnitudes[bin], 0.01)
	assert.InDelta(t, -6.02, s.Magnitudes[bin-1], 0.01)
	assert.InDelta(t, -6.02, s.Magnitudes[bin+1], 0.01)
	for k, m := range s.Magnitudes {
		if k < bin-1 || k > bin+1 {
			assert.Less(t, m, -100.0, "bin %d", k)
		}
	}
}

func TestParseWindow(t *testing.T) {
	for s, expected := range map[string]node.Window{
		"hann":            node.Hann,
		"hanning":         node.Hann,
		"hamming":         node.Hamming,
		"blackman":        node.Blackman,
		"rectangular":     node.Rectangular,
		"blackman-harris": node.BlackmanHarris,
		"flattop":         node.FlatTop,
	} {
		w, err := node.ParseWindow(s)
		assert.NoError(t, err, s)
		assert.Equal(t, expected, w, s)
	}
	_, err := node.ParseWindow("kaiser")
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	n := node.NewSampler("kick", signal.Float64{{0, 1, 2, 3}}, 1000)
	require.NoError(t, n.Prepare(phonograph.Config{SampleRate: 1000, MaxBlockLength: 6, NumChannels: 2}))
	assert.Equal(t, 4, n.Len())
	out := signal.EmptyFloat64(2, 6)

	n.Process(nil, out, 1000, 4)
	assert.Equal(t, signal.Float64{{0, 0, 0, 0, 0, 0}, {0, 0, 0, 0, 0, 0}}, out)
	assert.False(t, n.Playing())

	n.Trigger()
	assert.True(t, n.Playing())
	n.Process(nil, out, 1000, 4)
	assert.Equal(t, []float64{0, 1, 2, 3}, out[0][:4])
	// mono sample is repeated in every channel
	assert.Equal(t, out[0], out[1])

	n.Process(nil, out, 1000, 4)
	assert.Equal(t, []float64{0, 0, 0, 0}, out[0][:4])
	assert.False(t, n.Playing())

	n.SetLoop(true)
	n.Trigger()
	n.Process(nil, out, 1000, 6)
	assert.Equal(t, []float64{0, 1, 2, 3, 0, 1}, out[0])
	n.Stop()
	n.Process(nil, out, 1000, 6)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, out[0])
	assert.False(t, n.Playing())

	// octave up plays every second frame
	n.SetLoop(false)
	n.TriggerNote(node.DefaultBaseNote + 12)
	n.Process(nil, out, 1000, 4)
	assert.InDeltaSlice(t, []float64{0, 2, 0, 0}, out[0][:4], 1e-9)
}

func TestInput(t *testing.T) {
	n := node.NewInput("mic")
	in := signal.Float64{{0.1, 0.2}, {0.3, 0.4}}
	out := signal.EmptyFloat64(1, 2)
	n.Process(in, out, 44100, 2)
	assert.Equal(t, []float64{0.1, 0.2}, out[0])

	n.SetBypass(true)
	n.Process(in, out, 44100, 2)
	assert.Equal(t, []float64{0, 0}, out[0])
}

// Constant, gain and graph together: a 3-node chain renders half of the
// source value.
func TestChainInGraph(t *testing.T) {
	g := phonograph.NewGraph()
	src := node.NewConstant("src", 1)
	amp := node.NewGain("amp", 0.5)
	require.NoError(t, g.Connect(src, amp))
	g.SetOutputNode(amp)
	require.NoError(t, g.Prepare(phonograph.Config{SampleRate: 44100, MaxBlockLength: 4, NumChannels: 2}))

	proc := phonograph.NewProcessor()
	proc.SetPlan(g.CompiledPlan())
	out := signal.EmptyFloat64(2, 4)
	proc.Process(nil, out, 44100, 4)
	assert.Equal(t, signal.Float64{{0.5, 0.5, 0.5, 0.5}, {0.5, 0.5, 0.5, 0.5}}, out)

	allocs := testing.AllocsPerRun(50, func() {
		proc.Process(nil, out, 44100, 4)
	})
	assert.Zero(t, allocs)
}
