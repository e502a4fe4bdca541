package param_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph/param"
)

func TestNew(t *testing.T) {
	p := param.New("gain", 5, 0, 4, 20*time.Millisecond)
	assert.Equal(t, "gain", p.Name())
	assert.Equal(t, 4.0, p.Current())
	assert.Equal(t, 4.0, p.Target())
	assert.Equal(t, 4.0, p.Next())
	assertSteady(t, p, true)

	swapped := param.New("swapped", 0.5, 1, 0, 0)
	assert.Equal(t, 0.0, swapped.Min())
	assert.Equal(t, 1.0, swapped.Max())
}

func TestRamp(t *testing.T) {
	tests := []struct {
		description string
		sampleRate  float64
		ramp        time.Duration
		target      float64
		expected    []float64
	}{
		{
			description: "linear ramp over 4 samples",
			sampleRate:  1000,
			ramp:        4 * time.Millisecond,
			target:      1,
			expected:    []float64{0.25, 0.5, 0.75, 1, 1},
		},
		{
			description: "zero ramp applies immediately",
			sampleRate:  1000,
			ramp:        0,
			target:      0.5,
			expected:    []float64{0.5, 0.5},
		},
		{
			description: "target is constrained",
			sampleRate:  1000,
			ramp:        0,
			target:      3,
			expected:    []float64{1},
		},
	}

	for _, test := range tests {
		p := param.New("p", 0, 0, 1, 0)
		p.SetSampleRate(test.sampleRate)
		p.SetRamp(test.target, test.ramp)
		for i, v := range test.expected {
			assert.InDelta(t, v, p.Next(), 1e-9, "%s: sample %d", test.description, i)
		}
		assertSteady(t, p, true)
	}
}

func TestSetImmediate(t *testing.T) {
	p := param.New("p", 0, 0, 1, time.Second)
	p.Set(1)
	p.Next()
	assertSteady(t, p, false)
	p.SetImmediate(0.25)
	assert.Equal(t, 0.25, p.Next())
	assertSteady(t, p, true)
	assert.Equal(t, 0.25, p.Current())
}

func TestFill(t *testing.T) {
	p := param.New("p", 0.5, 0, 1, 0)
	p.SetSampleRate(1000)
	block := make([]float64, 4)
	require.True(t, p.Fill(block))
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, block)

	p.SetRamp(0.9, 2*time.Millisecond)
	require.False(t, p.Fill(block))
	assert.InDeltaSlice(t, []float64{0.7, 0.9, 0.9, 0.9}, block, 1e-9)

	v, ok := p.Value()
	assert.True(t, ok)
	assert.InDelta(t, 0.9, v, 1e-9)
}

func TestNormalized(t *testing.T) {
	p := param.New("freq", 20, 20, 20020, 0)
	p.SetNormalized(0.5)
	p.Next()
	assert.InDelta(t, 10020, p.Current(), 1e-9)
	assert.InDelta(t, 0.5, p.Normalized(), 1e-9)

	p.SetNormalized(2)
	p.Next()
	assert.InDelta(t, 1, p.Normalized(), 1e-9)

	flat := param.New("flat", 1, 1, 1, 0)
	assert.Equal(t, 0.0, flat.Normalized())
}

// Control goroutine writes while real-time goroutine reads.
func TestConcurrentAccess(t *testing.T) {
	p := param.New("p", 0, 0, 1, time.Millisecond)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.Set(float64(i%2))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			v := p.Next()
			if v < 0 || v > 1 {
				t.Errorf("value out of range: %v", v)
				return
			}
		}
	}()
	wg.Wait()
}

func TestGroup(t *testing.T) {
	g := param.NewGroup("osc")
	freq := param.New("osc.frequency", 440, 20, 20000, 0)
	gain := param.New("amp.gain", 1, 0, 4, 0)
	g.Add(freq, nil, gain)
	assert.Equal(t, "osc", g.Name())
	assert.Equal(t, []string{"amp.gain", "osc.frequency"}, g.Names())

	p, ok := g.Get("osc.frequency")
	require.True(t, ok)
	assert.Equal(t, freq, p)

	_, ok = g.Get("missing")
	assert.False(t, ok)

	p.SetNormalized(0)
	p.Next()
	assert.Less(t, p.Current(), 440.0)
}

func assertSteady(t *testing.T, p *param.Param, expected bool) {
	t.Helper()
	_, ok := p.Value()
	assert.Equal(t, expected, ok)
}
