package patch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/internal/mock"
	"github.com/dudk/phonograph/node"
	"github.com/dudk/phonograph/patch"
	"github.com/dudk/phonograph/signal"
	"github.com/dudk/phonograph/wav"
)

const simple = `
audio {
	sample_rate  = 48000
	block_length = 256
}

node "osc" {
	type      = "oscillator"
	frequency = 220
	wave      = "square"
}

node "amp" {
	type   = "gain"
	gain   = 0.5
	bypass = true
}

connect {
	from = "osc"
	to   = "amp"
}

output = ["amp"]
`

func TestParse(t *testing.T) {
	p, err := patch.Parse([]byte(simple), "simple.hcl")
	require.NoError(t, err)

	assert.Equal(t, 48000.0, p.Audio.SampleRate)
	assert.Equal(t, 256, p.Audio.BlockLength)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "osc", p.Nodes[0].Name)
	assert.Equal(t, "oscillator", p.Nodes[0].Type)
	assert.False(t, p.Nodes[0].Bypass)
	assert.True(t, p.Nodes[1].Bypass)
	assert.NotContains(t, p.Nodes[1].Attributes, "type")
	assert.Contains(t, p.Nodes[1].Attributes, "gain")
	assert.Equal(t, []patch.Connection{{From: "osc", To: "amp"}}, p.Connections)
	assert.Equal(t, []string{"amp"}, p.Outputs)

	cfg := p.Config(phonograph.Config{SampleRate: 44100, MaxBlockLength: 512, NumChannels: 2})
	assert.Equal(t, phonograph.Config{SampleRate: 48000, MaxBlockLength: 256, NumChannels: 2}, cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		description string
		src         string
		err         error
	}{
		{
			description: "syntax error",
			src:         `node "a" {`,
		},
		{
			description: "missing type",
			src:         `node "a" {}`,
		},
		{
			description: "duplicate node",
			src: `
node "a" { type = "gain" }
node "a" { type = "mixer" }`,
			err: patch.ErrDuplicateNode,
		},
		{
			description: "unknown connection reference",
			src: `
node "a" { type = "gain" }
connect {
	from = "a"
	to   = "b"
}`,
			err: patch.ErrUnknownReference,
		},
		{
			description: "unknown output reference",
			src: `
node "a" { type = "gain" }
output = ["b"]`,
			err: patch.ErrUnknownReference,
		},
	}

	for _, test := range tests {
		_, err := patch.Parse([]byte(test.src), "test.hcl")
		require.Error(t, err, test.description)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, test.description)
		}
	}
}

func TestBuild(t *testing.T) {
	p, err := patch.Parse([]byte(simple), "simple.hcl")
	require.NoError(t, err)

	g := phonograph.NewGraph()
	nodes, err := p.Build(g)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	osc, ok := nodes["osc"].(*node.Oscillator)
	require.True(t, ok)
	assert.Equal(t, 220.0, osc.Frequency().Target())
	assert.Equal(t, node.Square, osc.Wave())

	amp, ok := nodes["amp"].(*node.Gain)
	require.True(t, ok)
	assert.Equal(t, 0.5, amp.Gain().Target())
	assert.True(t, amp.Bypassed())

	require.NoError(t, g.Prepare(p.Config(phonograph.Config{NumChannels: 1})))
	plan := g.CompiledPlan()
	require.Len(t, plan.Instructions, 2)
	assert.Equal(t, osc, plan.Instructions[0].Node)
	assert.Equal(t, amp, plan.Instructions[1].Node)
	require.Len(t, plan.Outputs, 1)
}

func TestParams(t *testing.T) {
	p, err := patch.Parse([]byte(simple), "simple.hcl")
	require.NoError(t, err)
	nodes, err := p.Build(phonograph.NewGraph())
	require.NoError(t, err)

	params := p.Params(nodes)
	assert.Equal(t, "simple.hcl", params.Name())
	assert.Equal(t, []string{"amp.gain", "osc.frequency"}, params.Names())

	gain, ok := params.Get("amp.gain")
	require.True(t, ok)
	assert.Equal(t, nodes["amp"].(*node.Gain).Gain(), gain)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		description string
		src         string
		err         error
	}{
		{
			description: "unknown type",
			src:         `node "a" { type = "reverb" }`,
			err:         patch.ErrUnknownType,
		},
		{
			description: "unsupported attribute",
			src: `
node "a" {
	type = "gain"
	gian = 0.5
}`,
		},
		{
			description: "wrong attribute type",
			src: `
node "a" {
	type = "gain"
	gain = "loud"
}`,
		},
		{
			description: "unknown wave",
			src: `
node "a" {
	type = "oscillator"
	wave = "triangle"
}`,
		},
		{
			description: "sampler without file",
			src:         `node "a" { type = "sampler" }`,
		},
	}

	for _, test := range tests {
		p, err := patch.Parse([]byte(test.src), "test.hcl")
		require.NoError(t, err, test.description)
		g := phonograph.NewGraph()
		_, err = p.Build(g)
		require.Error(t, err, test.description)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, test.description)
		}
		assert.Equal(t, 0, g.NodeCount(), test.description)
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	sink, err := wav.NewSink(filepath.Join(dir, "kick.wav"), signal.BitDepth16)
	require.NoError(t, err)
	fn, err := sink.Sink(22050, 1)
	require.NoError(t, err)
	require.NoError(t, fn(signal.Float64{{0.5, 0.25, 0, -0.25}}))
	require.NoError(t, sink.Flush())

	src := `
node "kick" {
	type = "sampler"
	file = "kick.wav"
	loop = true
}
output = ["kick"]
`
	path := filepath.Join(dir, "drums.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	p, err := patch.Load(path)
	require.NoError(t, err)
	nodes, err := p.Build(phonograph.NewGraph())
	require.NoError(t, err)
	s, ok := nodes["kick"].(*node.Sampler)
	require.True(t, ok)
	assert.Equal(t, 4, s.Len())
}

func TestRegister(t *testing.T) {
	patch.Register("mock", func(name string, attrs *patch.Attributes) (phonograph.Node, error) {
		v, err := attrs.Number("value", 1)
		if err != nil {
			return nil, err
		}
		return &mock.Source{Value: v}, nil
	})
	assert.Contains(t, patch.Types(), "mock")
	assert.Contains(t, patch.Types(), "oscillator")

	p, err := patch.Parse([]byte(`
node "m" {
	type  = "mock"
	value = 3
}`), "mock.hcl")
	require.NoError(t, err)
	nodes, err := p.Build(phonograph.NewGraph())
	require.NoError(t, err)
	assert.Equal(t, 3.0, nodes["m"].(*mock.Source).Value)
}
