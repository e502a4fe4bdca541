package phonograph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dudk/phonograph/log"
)

// Graph is a mutable set of nodes and directed edges. All methods are safe
// for concurrent use. Edits mark the graph dirty, the plan is recompiled
// lazily by CompiledPlan.
type Graph struct {
	log log.Logger

	mu       sync.Mutex
	entries  []*entry
	byNode   map[Node]*entry
	byID     map[ID]*entry
	nextID   ID
	outputs  []ID
	config   Config
	prepared bool
	// generation of the latest compiled plan
	generation uint64
	retired    []retired

	dirty   atomic.Bool
	plan    atomic.Pointer[Plan]
	changed chan struct{}
}

type entry struct {
	id   ID
	node Node
	succ []ID
}

// retired is a removed node waiting to be released.
type retired struct {
	node       Node
	generation uint64
}

// NewGraph returns an empty graph. Its current plan is empty.
func NewGraph(options ...GraphOption) *Graph {
	g := &Graph{
		log:     log.Silent,
		byNode:  make(map[Node]*entry),
		byID:    make(map[ID]*entry),
		changed: make(chan struct{}, 1),
	}
	for _, option := range options {
		option(g)
	}
	g.plan.Store(emptyPlan(0, Config{}))
	return g
}

// Editor applies several edits under a single lock acquisition. It's only
// valid inside Modify callback.
type Editor struct {
	g       *Graph
	changed bool
}

// Modify calls fn with an editor. The graph is marked dirty once, if any
// edit changed it.
func (g *Graph) Modify(fn func(*Editor)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := Editor{g: g}
	fn(&e)
	if e.changed {
		g.markDirty()
	}
}

// AddNode inserts node and returns its handle. Adding a node which is
// already a part of the graph returns existing handle. A removed node
// added back is no longer released.
func (e *Editor) AddNode(n Node) ID {
	if n == nil {
		return NoID
	}
	if en, ok := e.g.byNode[n]; ok {
		return en.id
	}
	e.g.unretire(n)
	en := &entry{id: e.g.nextID, node: n}
	e.g.nextID++
	e.g.entries = append(e.g.entries, en)
	e.g.byNode[n] = en
	e.g.byID[en.id] = en
	e.changed = true
	return en.id
}

// RemoveNode removes node, all its edges and its output role.
func (e *Editor) RemoveNode(n Node) {
	en, ok := e.g.byNode[n]
	if !ok {
		return
	}
	for i, other := range e.g.entries {
		if other == en {
			e.g.entries = append(e.g.entries[:i], e.g.entries[i+1:]...)
			break
		}
	}
	for _, other := range e.g.entries {
		other.succ = removeID(other.succ, en.id)
	}
	e.g.outputs = removeID(e.g.outputs, en.id)
	delete(e.g.byNode, n)
	delete(e.g.byID, en.id)
	e.g.retire(n)
	e.changed = true
}

// Connect adds an edge from src to dst. Missing nodes are added.
func (e *Editor) Connect(src, dst Node) error {
	if src == nil || dst == nil {
		return ErrNilNode
	}
	e.AddNode(src)
	e.AddNode(dst)
	from, to := e.g.byNode[src], e.g.byNode[dst]
	if containsID(from.succ, to.id) {
		return nil
	}
	from.succ = append(from.succ, to.id)
	e.changed = true
	return nil
}

// Disconnect removes an edge from src to dst if it exists.
func (e *Editor) Disconnect(src, dst Node) {
	from, ok := e.g.byNode[src]
	if !ok {
		return
	}
	to, ok := e.g.byNode[dst]
	if !ok || !containsID(from.succ, to.id) {
		return
	}
	from.succ = removeID(from.succ, to.id)
	e.changed = true
}

// SetOutputNode replaces output set with a single node. The node is added
// if missing. Nil clears the output set.
func (e *Editor) SetOutputNode(n Node) {
	if n == nil {
		if len(e.g.outputs) > 0 {
			e.g.outputs = nil
			e.changed = true
		}
		return
	}
	id := e.AddNode(n)
	if len(e.g.outputs) == 1 && e.g.outputs[0] == id {
		return
	}
	e.g.outputs = []ID{id}
	e.changed = true
}

// AddOutputNode adds node to output set. The node is added if missing.
func (e *Editor) AddOutputNode(n Node) {
	if n == nil {
		return
	}
	id := e.AddNode(n)
	if containsID(e.g.outputs, id) {
		return
	}
	e.g.outputs = append(e.g.outputs, id)
	e.changed = true
}

// RemoveOutputNode removes node from output set. The node stays in graph.
func (e *Editor) RemoveOutputNode(n Node) {
	en, ok := e.g.byNode[n]
	if !ok || !containsID(e.g.outputs, en.id) {
		return
	}
	e.g.outputs = removeID(e.g.outputs, en.id)
	e.changed = true
}

// Clear removes all nodes, edges and outputs. Graph must be prepared
// again before it produces a non-empty plan.
func (e *Editor) Clear() {
	if len(e.g.entries) == 0 && len(e.g.outputs) == 0 && !e.g.prepared {
		return
	}
	e.g.prepared = false
	for _, en := range e.g.entries {
		e.g.retire(en.node)
	}
	e.g.entries = nil
	e.g.outputs = nil
	e.g.byNode = make(map[Node]*entry)
	e.g.byID = make(map[ID]*entry)
	e.changed = true
}

// AddNode inserts node and returns its handle. It's a no-op if node is
// already a part of the graph.
func (g *Graph) AddNode(n Node) ID {
	id := NoID
	g.Modify(func(e *Editor) { id = e.AddNode(n) })
	return id
}

// RemoveNode removes node with all its edges and output role.
func (g *Graph) RemoveNode(n Node) {
	g.Modify(func(e *Editor) { e.RemoveNode(n) })
}

// Connect adds a directed edge from src to dst.
func (g *Graph) Connect(src, dst Node) error {
	var err error
	g.Modify(func(e *Editor) { err = e.Connect(src, dst) })
	return err
}

// Disconnect removes a directed edge from src to dst.
func (g *Graph) Disconnect(src, dst Node) {
	g.Modify(func(e *Editor) { e.Disconnect(src, dst) })
}

// SetOutputNode replaces output set with a single node.
func (g *Graph) SetOutputNode(n Node) {
	g.Modify(func(e *Editor) { e.SetOutputNode(n) })
}

// AddOutputNode adds node to output set.
func (g *Graph) AddOutputNode(n Node) {
	g.Modify(func(e *Editor) { e.AddOutputNode(n) })
}

// RemoveOutputNode removes node from output set.
func (g *Graph) RemoveOutputNode(n Node) {
	g.Modify(func(e *Editor) { e.RemoveOutputNode(n) })
}

// Clear removes everything from the graph.
func (g *Graph) Clear() {
	g.Modify(func(e *Editor) { e.Clear() })
}

// Prepare propagates config to every node and marks graph dirty. Errors of
// all nodes are returned together, graph is considered prepared anyway so
// failed nodes produce silence.
func (g *Graph) Prepare(cfg Config) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var errs execErrors
	for _, en := range g.entries {
		if err := en.node.Prepare(cfg); err != nil {
			errs = append(errs, fmt.Errorf("prepare %v: %w", en.node.Name(), err))
		}
	}
	g.config = cfg
	g.prepared = true
	g.markDirty()
	log.WithFields(g.log, log.Fields{
		"nodes":       len(g.entries),
		"sampleRate":  cfg.SampleRate,
		"blockLength": cfg.MaxBlockLength,
		"channels":    cfg.NumChannels,
	}).Debug("graph prepared")
	return errs.ret()
}

// Config returns the latest config passed to Prepare and true if graph was
// prepared.
func (g *Graph) Config() (Config, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config, g.prepared
}

// CompiledPlan recompiles the graph if it's dirty, publishes and returns
// the plan. It blocks while other goroutine edits or compiles the graph.
func (g *Graph) CompiledPlan() *Plan {
	if !g.dirty.Load() {
		return g.plan.Load()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// other goroutine could compile while this one was waiting
	if !g.dirty.Load() {
		return g.plan.Load()
	}
	g.generation++
	s := g.snapshot()
	log.WithFields(g.log, log.Fields{
		"generation": s.Generation,
		"nodes":      len(s.Vertices),
	}).Debug("compiling graph")
	p := Compile(s)
	if p.Cycle {
		log.WithFields(g.log, log.Fields{
			"generation": p.Generation,
			"cycle":      true,
		}).Warn("graph has a cycle, plan is silent")
	}
	g.plan.Store(p)
	g.dirty.Store(false)
	log.WithFields(g.log, log.Fields{
		"plan":         p.UID,
		"generation":   p.Generation,
		"instructions": len(p.Instructions),
		"outputs":      len(p.Outputs),
		"buffers":      p.BufferCount,
	}).Debug("graph compiled")
	return p
}

// CurrentPlan returns the latest published plan without compilation.
func (g *Graph) CurrentPlan() *Plan {
	return g.plan.Load()
}

// NeedsRecompile returns true if graph was edited after the latest
// compilation.
func (g *Graph) NeedsRecompile() bool {
	return g.dirty.Load()
}

// Changed returns a channel which receives a value when graph becomes
// dirty. Notifications are coalesced.
func (g *Graph) Changed() <-chan struct{} {
	return g.changed
}

// NodeCount returns number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	nodes := make([]Node, 0, len(g.entries))
	for _, en := range g.entries {
		nodes = append(nodes, en.node)
	}
	return nodes
}

// ID returns handle of the node.
func (g *Graph) ID(n Node) (ID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if en, ok := g.byNode[n]; ok {
		return en.id, true
	}
	return NoID, false
}

// Node returns node by its handle.
func (g *Graph) Node(id ID) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if en, ok := g.byID[id]; ok {
		return en.node, nil
	}
	return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
}

// Snapshot returns a copy of current topology.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

// Reclaim releases removed nodes that are not referenced by plans older
// than provided generation. Generation is the one processor is running.
// It returns number of released nodes.
func (g *Graph) Reclaim(generation uint64) int {
	g.mu.Lock()
	var release []Node
	kept := g.retired[:0]
	for _, r := range g.retired {
		if r.generation < generation {
			release = append(release, r.node)
			continue
		}
		kept = append(kept, r)
	}
	clear(g.retired[len(kept):])
	g.retired = kept
	g.mu.Unlock()

	for _, n := range release {
		if r, ok := n.(Releaser); ok {
			r.Release()
		}
	}
	if len(release) > 0 {
		log.WithFields(g.log, log.Fields{
			"released":   len(release),
			"generation": generation,
		}).Debug("removed nodes released")
	}
	return len(release)
}

// snapshot must be called under the lock.
func (g *Graph) snapshot() Snapshot {
	s := Snapshot{
		Vertices:   make([]Vertex, 0, len(g.entries)),
		Outputs:    append([]ID(nil), g.outputs...),
		Config:     g.config,
		Prepared:   g.prepared,
		Generation: g.generation,
	}
	for _, en := range g.entries {
		s.Vertices = append(s.Vertices, Vertex{
			ID:   en.id,
			Node: en.node,
			Succ: append([]ID(nil), en.succ...),
		})
	}
	return s
}

// retire must be called under the lock. Removed node can be referenced by
// any plan published so far.
func (g *Graph) retire(n Node) {
	g.retired = append(g.retired, retired{node: n, generation: g.generation})
}

// unretire must be called under the lock.
func (g *Graph) unretire(n Node) {
	kept := g.retired[:0]
	for _, r := range g.retired {
		if r.node != n {
			kept = append(kept, r)
		}
	}
	clear(g.retired[len(kept):])
	g.retired = kept
}

func (g *Graph) markDirty() {
	g.dirty.Store(true)
	select {
	case g.changed <- struct{}{}:
	default:
	}
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []ID, id ID) []ID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
