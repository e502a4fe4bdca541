package main

import (
	"flag"
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/dudk/phonograph/log"
)

type inspectCommand struct {
	audioFlags
	dump bool
}

func (cmd *inspectCommand) Name() string {
	return "inspect"
}

func (cmd *inspectCommand) Help() string {
	return "Show compiled plan of patch"
}

func (cmd *inspectCommand) Register(fs *flag.FlagSet) {
	cmd.audioFlags.register(fs)
	fs.BoolVar(&cmd.dump, "dump", false, "dump plan structure")
}

func (cmd *inspectCommand) Run() error {
	l := log.Component(logger, "inspect")
	b, err := cmd.load(l)
	if err != nil {
		return err
	}
	if err := b.graph.Prepare(b.config); err != nil {
		return err
	}
	plan := b.graph.CompiledPlan()
	if plan.Cycle {
		return fmt.Errorf("patch %s contains a cycle", cmd.patch)
	}
	fmt.Fprintln(stdout, plan)
	for i, instr := range plan.Instructions {
		fmt.Fprintf(stdout, " %d. %s inputs: %v output: %d", i, instr.Node.Name(), instr.Inputs, instr.Output)
		if instr.LiveInput {
			fmt.Fprint(stdout, " live input")
		}
		fmt.Fprintln(stdout)
	}
	for _, out := range plan.Outputs {
		fmt.Fprintf(stdout, " output: node %d buffer %d\n", out.ID, out.Buffer)
	}
	names := b.params.Names()
	if len(names) > 0 {
		fmt.Fprintln(stdout, "Parameters:")
	}
	for _, name := range names {
		p, _ := b.params.Get(name)
		fmt.Fprintf(stdout, " %s = %g [%g, %g]\n", name, p.Target(), p.Min(), p.Max())
	}
	if cmd.dump {
		dumper := spew.ConfigState{
			Indent:                  "  ",
			MaxDepth:                3,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}
		dumper.Fdump(stdout, plan)
	}
	return nil
}
