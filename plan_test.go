package phonograph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/internal/mock"
	"github.com/dudk/phonograph/signal"
)

func TestRetarget(t *testing.T) {
	g := phonograph.NewGraph()
	a := &mock.Source{ID: "a", Value: 1}
	b := &mock.Processor{ID: "b", Gain: 0.5}
	require.NoError(t, g.Connect(a, b))
	g.SetOutputNode(b)
	require.NoError(t, g.Prepare(testConfig))
	p := g.CompiledPlan()

	idA, _ := g.ID(a)
	r := p.Retarget(idA)
	assert.NotEqual(t, p.UID, r.UID)
	assert.Equal(t, []phonograph.Output{{ID: idA, Buffer: 0}}, r.Outputs)
	assert.Equal(t, p.Generation, r.Generation)
	// original plan is untouched
	idB, _ := g.ID(b)
	assert.Equal(t, []phonograph.Output{{ID: idB, Buffer: 1}}, p.Outputs)

	proc := phonograph.NewProcessor()
	proc.SetPlan(r)
	out := signal.EmptyFloat64(1, 4)
	proc.Process(nil, out, 44100, 4)
	assert.Equal(t, []float64{1, 1, 1, 1}, out[0])

	assert.Empty(t, p.Retarget(phonograph.ID(100)).Outputs)
}

func TestValidate(t *testing.T) {
	n := &mock.Source{}
	tests := []struct {
		description string
		plan        phonograph.Plan
		valid       bool
	}{
		{
			description: "empty",
			plan:        phonograph.Plan{},
			valid:       true,
		},
		{
			description: "chain",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{
					{Node: n, Output: 0},
					{Node: n, Inputs: []int{0}, Output: 1},
				},
				Outputs:     []phonograph.Output{{Buffer: 1}},
				BufferCount: 2,
				MaxInputs:   1,
			},
			valid: true,
		},
		{
			description: "input before output",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{
					{Node: n, Inputs: []int{1}, Output: 0},
					{Node: n, Output: 1},
				},
				BufferCount: 2,
				MaxInputs:   1,
			},
		},
		{
			description: "buffer out of bounds",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{{Node: n, Output: 1}},
				BufferCount:  1,
			},
		},
		{
			description: "reused buffer",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{
					{Node: n, Output: 0},
					{Node: n, Output: 0},
				},
				BufferCount: 2,
			},
		},
		{
			description: "unknown output buffer",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{{Node: n, Output: 0}},
				Outputs:      []phonograph.Output{{Buffer: 3}},
				BufferCount:  1,
			},
		},
		{
			description: "too many inputs",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{
					{Node: n, Output: 0},
					{Node: n, Inputs: []int{0}, Output: 1},
				},
				BufferCount: 2,
			},
		},
		{
			description: "non-empty cyclic plan",
			plan: phonograph.Plan{
				Instructions: []phonograph.Instruction{{Node: n, Output: 0}},
				BufferCount:  1,
				Cycle:        true,
			},
		},
	}

	for _, test := range tests {
		err := test.plan.Validate()
		if test.valid {
			assert.NoError(t, err, test.description)
		} else {
			assert.Error(t, err, test.description)
		}
	}
}
