// Package patch loads graphs from HCL patch files:
//
//	audio {
//		sample_rate = 48000
//		block_length = 256
//	}
//	node "osc" {
//		type = "oscillator"
//		frequency = 440
//		wave = "sine"
//	}
//	node "amp" {
//		type = "gain"
//		gain = 0.5
//	}
//	connect {
//		from = "osc"
//		to = "amp"
//	}
//	output = ["amp"]
//
// Node attributes other than type and bypass are passed to the factory
// registered for the node type.
package patch

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/param"
)

var (
	// ErrUnknownType is returned when patch uses node type without factory.
	ErrUnknownType = errors.New("unknown node type")
	// ErrUnknownReference is returned when patch refers to undeclared node.
	ErrUnknownReference = errors.New("unknown node reference")
	// ErrDuplicateNode is returned when node name is declared twice.
	ErrDuplicateNode = errors.New("duplicate node")
)

// Patch is a decoded patch file.
type Patch struct {
	Audio       Audio
	Nodes       []Node
	Connections []Connection
	Outputs     []string
	// file name without directory
	name string
	// directory used to resolve relative paths in node attributes
	dir string
}

// Audio holds optional audio settings of the patch. Zero values mean not
// set.
type Audio struct {
	SampleRate  float64
	BlockLength int
	NumChannels int
}

// Node is a declared node.
type Node struct {
	Name       string
	Type       string
	Bypass     bool
	Attributes map[string]cty.Value
}

// Connection is a declared edge.
type Connection struct {
	From string
	To   string
}

type hclFile struct {
	Audio       *hclAudio  `hcl:"audio,block"`
	Nodes       []*hclNode `hcl:"node,block"`
	Connections []*hclEdge `hcl:"connect,block"`
	Output      []string   `hcl:"output,optional"`
}

type hclAudio struct {
	SampleRate  *float64 `hcl:"sample_rate,optional"`
	BlockLength *int     `hcl:"block_length,optional"`
	NumChannels *int     `hcl:"channels,optional"`
}

type hclNode struct {
	Name   string   `hcl:"name,label"`
	Type   string   `hcl:"type"`
	Bypass *bool    `hcl:"bypass,optional"`
	Body   hcl.Body `hcl:",remain"`
}

type hclEdge struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// Load parses patch file.
func Load(path string) (*Patch, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse patch %s: %w", path, diags)
	}
	p, err := decode(f, path)
	if err != nil {
		return nil, err
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// Parse parses patch source. Filename is used in diagnostics only.
func Parse(src []byte, filename string) (*Patch, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse patch %s: %w", filename, diags)
	}
	return decode(f, filename)
}

func decode(f *hcl.File, filename string) (*Patch, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode patch %s: %w", filename, diags)
	}

	p := Patch{
		Nodes:       make([]Node, 0, len(parsed.Nodes)),
		Connections: make([]Connection, 0, len(parsed.Connections)),
		Outputs:     parsed.Output,
		name:        filepath.Base(filename),
	}
	if a := parsed.Audio; a != nil {
		if a.SampleRate != nil {
			p.Audio.SampleRate = *a.SampleRate
		}
		if a.BlockLength != nil {
			p.Audio.BlockLength = *a.BlockLength
		}
		if a.NumChannels != nil {
			p.Audio.NumChannels = *a.NumChannels
		}
	}

	declared := make(map[string]struct{}, len(parsed.Nodes))
	for _, n := range parsed.Nodes {
		if _, ok := declared[n.Name]; ok {
			return nil, fmt.Errorf("%s: %w: %q", filename, ErrDuplicateNode, n.Name)
		}
		declared[n.Name] = struct{}{}
		attrs, diags := n.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode node %q in %s: %w", n.Name, filename, diags)
		}
		values := make(map[string]cty.Value, len(attrs))
		for name, attr := range attrs {
			v, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to evaluate %s.%s in %s: %w", n.Name, name, filename, diags)
			}
			values[name] = v
		}
		node := Node{
			Name:       n.Name,
			Type:       n.Type,
			Attributes: values,
		}
		if n.Bypass != nil {
			node.Bypass = *n.Bypass
		}
		p.Nodes = append(p.Nodes, node)
	}

	for _, c := range parsed.Connections {
		for _, ref := range []string{c.From, c.To} {
			if _, ok := declared[ref]; !ok {
				return nil, fmt.Errorf("%s: connect: %w: %q", filename, ErrUnknownReference, ref)
			}
		}
		p.Connections = append(p.Connections, Connection{From: c.From, To: c.To})
	}
	for _, ref := range p.Outputs {
		if _, ok := declared[ref]; !ok {
			return nil, fmt.Errorf("%s: output: %w: %q", filename, ErrUnknownReference, ref)
		}
	}
	return &p, nil
}

// Config returns graph config with patch audio settings applied over
// defaults.
func (p *Patch) Config(defaults phonograph.Config) phonograph.Config {
	cfg := defaults
	if p.Audio.SampleRate > 0 {
		cfg.SampleRate = p.Audio.SampleRate
	}
	if p.Audio.BlockLength > 0 {
		cfg.MaxBlockLength = p.Audio.BlockLength
	}
	if p.Audio.NumChannels > 0 {
		cfg.NumChannels = p.Audio.NumChannels
	}
	return cfg
}

// Build creates patch nodes with registered factories and adds them to
// the graph in a single edit. Graph is not modified if any node fails to
// build. Declared outputs replace graph outputs.
func (p *Patch) Build(g *phonograph.Graph) (map[string]phonograph.Node, error) {
	nodes := make(map[string]phonograph.Node, len(p.Nodes))
	ordered := make([]phonograph.Node, 0, len(p.Nodes))
	for _, decl := range p.Nodes {
		factory, ok := lookup(decl.Type)
		if !ok {
			return nil, fmt.Errorf("node %q: %w: %q", decl.Name, ErrUnknownType, decl.Type)
		}
		attrs := newAttributes(decl.Name, decl.Attributes, p.dir)
		n, err := factory(decl.Name, attrs)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", decl.Name, err)
		}
		if err := attrs.checkUnused(); err != nil {
			return nil, fmt.Errorf("node %q: %w", decl.Name, err)
		}
		if b, ok := n.(bypasser); ok && decl.Bypass {
			b.SetBypass(true)
		}
		if _, ok := nodes[decl.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, decl.Name)
		}
		nodes[decl.Name] = n
		ordered = append(ordered, n)
	}
	for _, c := range p.Connections {
		if nodes[c.From] == nil || nodes[c.To] == nil {
			return nil, fmt.Errorf("connect %s -> %s: %w", c.From, c.To, ErrUnknownReference)
		}
	}
	for _, name := range p.Outputs {
		if nodes[name] == nil {
			return nil, fmt.Errorf("output %s: %w", name, ErrUnknownReference)
		}
	}

	var err error
	g.Modify(func(e *phonograph.Editor) {
		for _, n := range ordered {
			e.AddNode(n)
		}
		for _, c := range p.Connections {
			if err = e.Connect(nodes[c.From], nodes[c.To]); err != nil {
				return
			}
		}
		for i, name := range p.Outputs {
			if i == 0 {
				e.SetOutputNode(nodes[name])
				continue
			}
			e.AddOutputNode(nodes[name])
		}
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

type bypasser interface {
	SetBypass(bool)
}

type parameterized interface {
	Params() []*param.Param
}

// Params collects parameters of built nodes into a group named after the
// patch file. Parameters are addressed as "<node>.<param>".
func (p *Patch) Params(nodes map[string]phonograph.Node) *param.Group {
	g := param.NewGroup(p.name)
	for _, n := range nodes {
		if pn, ok := n.(parameterized); ok {
			g.Add(pn.Params()...)
		}
	}
	return g
}
