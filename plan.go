package phonograph

import (
	"fmt"

	"github.com/rs/xid"
)

// Instruction is a single step of the plan: process node reading input
// buffers and writing output buffer.
type Instruction struct {
	ID     ID
	Node   Node
	Inputs []int
	Output int
	// LiveInput is set when node reads device input instead of buffers.
	LiveInput bool
}

// Output is a node which output buffer is mixed into the device output.
type Output struct {
	ID     ID
	Buffer int
}

// Plan is an immutable, compiled representation of the graph. It's safe
// to share between goroutines.
type Plan struct {
	UID          string
	Generation   uint64
	Config       Config
	Instructions []Instruction
	Outputs      []Output
	BufferCount  int
	// MaxInputs is the largest number of inputs of a single instruction.
	MaxInputs int
	// Cycle is set when graph had a cycle and plan was degraded to empty.
	Cycle bool
}

func newUID() string {
	return xid.New().String()
}

// emptyPlan returns a plan which produces silence.
func emptyPlan(generation uint64, cfg Config) *Plan {
	return &Plan{
		UID:        newUID(),
		Generation: generation,
		Config:     cfg,
	}
}

// Empty returns true if plan has no instructions.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Instructions) == 0
}

// Lookup returns instruction of the node with provided id.
func (p *Plan) Lookup(id ID) (Instruction, bool) {
	for _, in := range p.Instructions {
		if in.ID == id {
			return in, true
		}
	}
	return Instruction{}, false
}

// Retarget returns a copy of the plan which outputs only the node with
// provided id. Instructions are shared with the original plan. If node is
// not a part of the plan, the copy has no outputs.
func (p *Plan) Retarget(id ID) *Plan {
	r := *p
	r.UID = newUID()
	r.Outputs = nil
	if in, ok := p.Lookup(id); ok {
		r.Outputs = []Output{{ID: id, Buffer: in.Output}}
	}
	return &r
}

// Validate checks that every instruction reads only buffers produced by
// earlier instructions and all indices are within buffer count.
func (p *Plan) Validate() error {
	if p.Cycle && (len(p.Instructions) > 0 || p.BufferCount > 0) {
		return fmt.Errorf("plan %v: cyclic plan must be empty", p.UID)
	}
	produced := make(map[int]struct{}, len(p.Instructions))
	for i, in := range p.Instructions {
		if in.Output < 0 || in.Output >= p.BufferCount {
			return fmt.Errorf("plan %v: instruction %d writes buffer %d out of %d", p.UID, i, in.Output, p.BufferCount)
		}
		if _, ok := produced[in.Output]; ok {
			return fmt.Errorf("plan %v: instruction %d reuses buffer %d", p.UID, i, in.Output)
		}
		if len(in.Inputs) > p.MaxInputs {
			return fmt.Errorf("plan %v: instruction %d has %d inputs, max %d", p.UID, i, len(in.Inputs), p.MaxInputs)
		}
		for _, b := range in.Inputs {
			if _, ok := produced[b]; !ok {
				return fmt.Errorf("plan %v: instruction %d reads buffer %d before it's produced", p.UID, i, b)
			}
		}
		produced[in.Output] = struct{}{}
	}
	for _, out := range p.Outputs {
		if _, ok := produced[out.Buffer]; !ok {
			return fmt.Errorf("plan %v: output %d uses unknown buffer %d", p.UID, out.ID, out.Buffer)
		}
	}
	return nil
}

func (p *Plan) String() string {
	return fmt.Sprintf("plan %v (generation %d)", p.UID, p.Generation)
}
