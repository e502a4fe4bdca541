package phonograph

import "sort"

// Vertex is a node with its outgoing edges, as captured by snapshot.
type Vertex struct {
	ID   ID
	Node Node
	// Succ lists successors in edge insertion order.
	Succ []ID
}

// Snapshot is an immutable copy of the graph topology. Vertices are in
// node insertion order.
type Snapshot struct {
	Vertices   []Vertex
	Outputs    []ID
	Config     Config
	Prepared   bool
	Generation uint64
}

// Compile turns snapshot into execution plan. Unprepared or empty
// snapshots, as well as snapshots with cycles, result in empty plans.
func Compile(s Snapshot) *Plan {
	if !s.Prepared || len(s.Vertices) == 0 {
		return emptyPlan(s.Generation, s.Config)
	}
	// position of every node in insertion order
	pos := make(map[ID]int, len(s.Vertices))
	for i, v := range s.Vertices {
		pos[v.ID] = i
	}
	if hasCycle(s.Vertices, pos) {
		p := emptyPlan(s.Generation, s.Config)
		p.Cycle = true
		return p
	}

	order := topoSort(s.Vertices, pos)

	// predecessors are ordered by source insertion order
	preds := make([][]int, len(s.Vertices))
	for i, v := range s.Vertices {
		for _, succ := range v.Succ {
			j := pos[succ]
			preds[j] = append(preds[j], i)
		}
	}

	p := emptyPlan(s.Generation, s.Config)
	p.Instructions = make([]Instruction, 0, len(order))
	buffers := make([]int, len(s.Vertices))
	for buffer, i := range order {
		v := s.Vertices[i]
		inputs := make([]int, 0, len(preds[i]))
		for _, pred := range preds[i] {
			inputs = append(inputs, buffers[pred])
		}
		buffers[i] = buffer
		_, live := v.Node.(LiveInput)
		p.Instructions = append(p.Instructions, Instruction{
			ID:        v.ID,
			Node:      v.Node,
			Inputs:    inputs,
			Output:    buffer,
			LiveInput: live && len(inputs) == 0,
		})
		if len(inputs) > p.MaxInputs {
			p.MaxInputs = len(inputs)
		}
	}
	p.BufferCount = len(order)

	for _, id := range s.Outputs {
		if i, ok := pos[id]; ok {
			p.Outputs = append(p.Outputs, Output{ID: id, Buffer: buffers[i]})
		}
	}
	return p
}

// hasCycle runs depth-first traversal from every unvisited vertex, keeping
// the recursion stack.
func hasCycle(vertices []Vertex, pos map[ID]int) bool {
	visited := make([]bool, len(vertices))
	onStack := make([]bool, len(vertices))
	var visit func(i int) bool
	visit = func(i int) bool {
		visited[i] = true
		onStack[i] = true
		for _, succ := range vertices[i].Succ {
			j, ok := pos[succ]
			if !ok {
				continue
			}
			if onStack[j] {
				return true
			}
			if !visited[j] && visit(j) {
				return true
			}
		}
		onStack[i] = false
		return false
	}
	for i := range vertices {
		if !visited[i] && visit(i) {
			return true
		}
	}
	return false
}

// topoSort returns vertex indices in Kahn's order. Among ready vertices the
// one inserted first goes first.
func topoSort(vertices []Vertex, pos map[ID]int) []int {
	inDegree := make([]int, len(vertices))
	for _, v := range vertices {
		for _, succ := range v.Succ {
			if j, ok := pos[succ]; ok {
				inDegree[j]++
			}
		}
	}
	ready := make([]int, 0, len(vertices))
	for i, d := range inDegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]int, 0, len(vertices))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, succ := range vertices[i].Succ {
			j, ok := pos[succ]
			if !ok {
				continue
			}
			inDegree[j]--
			if inDegree[j] == 0 {
				ready = insertSorted(ready, j)
			}
		}
	}
	return order
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
