package patch

import (
	"sort"
	"sync"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/node"
	"github.com/dudk/phonograph/wav"
)

// Factory creates a node from its declaration.
type Factory func(name string, attrs *Attributes) (phonograph.Node, error)

var registry = struct {
	sync.RWMutex
	m map[string]Factory
}{
	m: map[string]Factory{
		"constant":   newConstant,
		"oscillator": newOscillator,
		"gain":       newGain,
		"mixer":      newMixer,
		"levels":     newLevels,
		"analyzer":   newAnalyzer,
		"sampler":    newSampler,
		"input":      newInput,
	},
}

// Register adds factory for node type. Existing factory is replaced.
func Register(kind string, f Factory) {
	registry.Lock()
	defer registry.Unlock()
	registry.m[kind] = f
}

// Types returns sorted registered node types.
func Types() []string {
	registry.RLock()
	defer registry.RUnlock()
	types := make([]string, 0, len(registry.m))
	for kind := range registry.m {
		types = append(types, kind)
	}
	sort.Strings(types)
	return types
}

func lookup(kind string) (Factory, bool) {
	registry.RLock()
	defer registry.RUnlock()
	f, ok := registry.m[kind]
	return f, ok
}

func newConstant(name string, attrs *Attributes) (phonograph.Node, error) {
	v, err := attrs.Number("value", 0)
	if err != nil {
		return nil, err
	}
	return node.NewConstant(name, v), nil
}

func newOscillator(name string, attrs *Attributes) (phonograph.Node, error) {
	frequency, err := attrs.Number("frequency", 440)
	if err != nil {
		return nil, err
	}
	s, err := attrs.String("wave", "sine")
	if err != nil {
		return nil, err
	}
	wave, err := node.ParseWave(s)
	if err != nil {
		return nil, err
	}
	return node.NewOscillator(name, frequency, wave), nil
}

func newGain(name string, attrs *Attributes) (phonograph.Node, error) {
	gain, err := attrs.Number("gain", 1)
	if err != nil {
		return nil, err
	}
	return node.NewGain(name, gain), nil
}

func newMixer(name string, attrs *Attributes) (phonograph.Node, error) {
	level, err := attrs.Number("level", 1)
	if err != nil {
		return nil, err
	}
	m := node.NewMixer(name)
	m.Level().SetImmediate(level)
	return m, nil
}

func newLevels(name string, attrs *Attributes) (phonograph.Node, error) {
	return node.NewLevels(name), nil
}

func newAnalyzer(name string, attrs *Attributes) (phonograph.Node, error) {
	size, err := attrs.Int("size", node.DefaultFFTSize)
	if err != nil {
		return nil, err
	}
	s, err := attrs.String("window", "hann")
	if err != nil {
		return nil, err
	}
	window, err := node.ParseWindow(s)
	if err != nil {
		return nil, err
	}
	return node.NewAnalyzer(name, size, window), nil
}

func newSampler(name string, attrs *Attributes) (phonograph.Node, error) {
	path, err := attrs.Path("file")
	if err != nil {
		return nil, err
	}
	loop, err := attrs.Bool("loop", false)
	if err != nil {
		return nil, err
	}
	gain, err := attrs.Number("gain", 1)
	if err != nil {
		return nil, err
	}
	data, sampleRate, err := wav.Load(path)
	if err != nil {
		return nil, err
	}
	s := node.NewSampler(name, data, float64(sampleRate))
	s.SetLoop(loop)
	s.Gain().SetImmediate(gain)
	return s, nil
}

func newInput(name string, attrs *Attributes) (phonograph.Node, error) {
	return node.NewInput(name), nil
}
