/*
Package phonograph compiles audio processing graphs into flat execution
plans and runs them on the real-time goroutine.

Concept

The work is split between two goroutines. The control goroutine edits the
graph: adds and removes nodes, connects them and chooses output nodes. The
real-time goroutine is driven by the audio device and must produce a block
of samples in bounded time, without locks and allocations.

    Graph - mutable topology, edited from the control goroutine;
    Plan - immutable, compiled snapshot of the graph;
    Processor - replays the latest plan once per block.

Compilation

Edits only mark the graph dirty. CompiledPlan takes a snapshot, rejects
cycles, orders nodes topologically and assigns every node its own output
buffer:

    g := phonograph.NewGraph()
    g.Connect(osc, amp)
    g.SetOutputNode(amp)
    g.Prepare(phonograph.Config{SampleRate: 44100, MaxBlockLength: 512, NumChannels: 2})
    p := g.CompiledPlan()

A graph with a cycle compiles to an empty plan, which produces silence.

Execution

Processor reads published plan with a single atomic load. It keeps a
grow-only pool of scratch buffers, so after the first block of a given
size it doesn't allocate:

    proc := phonograph.NewProcessor()
    proc.SetPlan(p)
    proc.Process(in, out, 44100, 512)

Output buffers of the plan are summed into every output channel.

Nodes

Processing is done by nodes. Package node provides common ones: oscillator,
gain, mixer, meters and analyzer. Node is prepared on the control goroutine
and processes on the real-time one. Removed nodes that implement Releaser
are released by Graph.Reclaim once no running plan references them.
*/
package phonograph
