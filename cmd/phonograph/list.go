package main

import (
	"flag"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/dudk/phonograph/midi"
	"github.com/dudk/phonograph/patch"
	"github.com/dudk/phonograph/portaudio"
)

type listCommand struct {
	nodes bool
	midi  bool
}

func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show available audio devices"
}

func (cmd *listCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.nodes, "nodes", false, "show node types available in patches instead")
	fs.BoolVar(&cmd.midi, "midi", false, "show MIDI input ports instead")
}

func (cmd *listCommand) Run() error {
	if cmd.nodes {
		fmt.Fprintf(stdout, "Node types:\n %s\n", strings.Join(patch.Types(), "\n "))
		return nil
	}
	if cmd.midi {
		defer gomidi.CloseDriver()
		fmt.Fprintf(stdout, "MIDI inputs:\n %s\n", strings.Join(midi.InPorts(), "\n "))
		return nil
	}
	devices, err := portaudio.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Devices:")
	for _, d := range devices {
		fmt.Fprintf(stdout, " %s [%s] in: %d out: %d rate: %.f\n",
			d.Name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return nil
}
