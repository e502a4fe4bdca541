package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/param"
	"github.com/dudk/phonograph/patch"
)

type config struct {
	args []string
}

type command interface {
	Name() string
	Help() string
	Run() error
	Register(*flag.FlagSet)
}

func (config *config) run() int {
	cmdName, args := parseArgs(config.args)
	if cmdName == "" {
		printUsage()
		return errorExitCode
	}

	for _, cmd := range commands {
		if cmd.Name() == cmdName {
			flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
			flags.SetOutput(stdout)
			cmd.Register(flags)
			if err := flags.Parse(args); err != nil {
				return errorExitCode
			}
			if err := cmd.Run(); err != nil {
				fmt.Fprintf(stdout, "Command failed: %v\n", err)
				return errorExitCode
			}
			return successExitCode
		}
	}
	fmt.Fprintf(stdout, "Unknown command: %s\n", cmdName)
	printUsage()
	return errorExitCode
}

var (
	successExitCode = 0
	errorExitCode   = 1
	commands        = []command{
		&listCommand{},
		&renderCommand{},
		&playCommand{},
		&inspectCommand{},
	}
	stdout io.Writer = os.Stdout
	logger           = log.GetLogger()
)

var defaultConfig = phonograph.Config{
	SampleRate:     44100,
	MaxBlockLength: 512,
	NumChannels:    2,
}

func main() {
	c := config{
		args: os.Args,
	}
	os.Exit(c.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage() {
	fmt.Fprintln(stdout, "Phonograph renders and plays audio graphs")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Usage: phonograph <command>")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(stdout, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}

// audioFlags are shared by commands which load patches.
type audioFlags struct {
	patch    string
	rate     float64
	block    int
	channels int
	values   assignments
}

func (f *audioFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.patch, "patch", "", "patch file (required)")
	fs.Float64Var(&f.rate, "rate", 0, "sample rate, overrides patch")
	fs.IntVar(&f.block, "block", 0, "block length, overrides patch")
	fs.IntVar(&f.channels, "channels", 0, "number of channels, overrides patch")
	fs.Var(&f.values, "set", "set parameter value, e.g. amp.gain=0.5, can be repeated")
}

// loaded is a patch built into a new graph.
type loaded struct {
	graph  *phonograph.Graph
	nodes  map[string]phonograph.Node
	params *param.Group
	config phonograph.Config
}

// load builds the patch into a new graph and applies parameter values.
func (f *audioFlags) load(l log.Logger) (*loaded, error) {
	if f.patch == "" {
		return nil, fmt.Errorf("missing -patch required flag")
	}
	p, err := patch.Load(f.patch)
	if err != nil {
		return nil, err
	}
	g := phonograph.NewGraph(phonograph.WithLogger(l))
	nodes, err := p.Build(g)
	if err != nil {
		return nil, err
	}
	params := p.Params(nodes)
	for _, a := range f.values {
		v, ok := params.Get(a.name)
		if !ok {
			return nil, fmt.Errorf("unknown parameter: %q", a.name)
		}
		v.SetImmediate(a.value)
	}
	cfg := p.Config(defaultConfig)
	if f.rate > 0 {
		cfg.SampleRate = f.rate
	}
	if f.block > 0 {
		cfg.MaxBlockLength = f.block
	}
	if f.channels > 0 {
		cfg.NumChannels = f.channels
	}
	return &loaded{
		graph:  g,
		nodes:  nodes,
		params: params,
		config: cfg,
	}, nil
}

// assignment sets parameter to a value.
type assignment struct {
	name  string
	value float64
}

// assignments implements flag.Value.
type assignments []assignment

func (a *assignments) String() string {
	s := make([]string, 0, len(*a))
	for _, v := range *a {
		s = append(s, fmt.Sprintf("%s=%v", v.name, v.value))
	}
	return strings.Join(s, ",")
}

func (a *assignments) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("invalid value %q, expected <param>=<value>", s)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value of %s: %w", name, err)
	}
	*a = append(*a, assignment{name: name, value: v})
	return nil
}
