package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	_ "gitlab.com/gomidi/midi/v2/drivers/portmididrv"

	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/midi"
	"github.com/dudk/phonograph/param"
)

// controlFlags bind MIDI input to patch parameters and nodes.
type controlFlags struct {
	port     string
	channel  int
	controls bindings
	voice    string
	trigger  string
}

func (f *controlFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.port, "midi", "", "MIDI input port name, MIDI control is off if empty")
	fs.IntVar(&f.channel, "midichannel", midi.AnyChannel, "MIDI channel in range [0, 15], all channels by default")
	fs.Var(&f.controls, "cc", "bind control change to parameter, e.g. 7=amp.gain, can be repeated")
	fs.StringVar(&f.voice, "voice", "", "frequency and gain parameters driven by notes, e.g. osc.frequency,amp.gain")
	fs.StringVar(&f.trigger, "trigger", "", "comma-separated nodes triggered by notes")
}

func (f *controlFlags) enabled() bool {
	return f.port != ""
}

// controller returns MIDI controller with all bindings of loaded patch.
func (f *controlFlags) controller(b *loaded, l log.Logger) (*midi.Controller, error) {
	if f.channel != midi.AnyChannel && (f.channel < 0 || f.channel > 15) {
		return nil, fmt.Errorf("invalid MIDI channel: %d", f.channel)
	}
	c := midi.New(midi.WithLogger(l), midi.WithChannel(f.channel))
	for _, binding := range f.controls {
		p, ok := b.params.Get(binding.param)
		if !ok {
			return nil, fmt.Errorf("cc %d: unknown parameter: %q", binding.controller, binding.param)
		}
		c.BindControl(binding.controller, p)
	}
	if f.voice != "" {
		names := strings.Split(f.voice, ",")
		if len(names) > 2 {
			return nil, fmt.Errorf("voice takes frequency and gain parameters, got: %q", f.voice)
		}
		voice := make([]*param.Param, 2)
		for i, name := range names {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			p, ok := b.params.Get(name)
			if !ok {
				return nil, fmt.Errorf("voice: unknown parameter: %q", name)
			}
			voice[i] = p
		}
		c.BindVoice(voice[0], voice[1])
	}
	if f.trigger != "" {
		for _, name := range strings.Split(f.trigger, ",") {
			name = strings.TrimSpace(name)
			n, ok := b.nodes[name]
			if !ok {
				return nil, fmt.Errorf("trigger: unknown node: %q", name)
			}
			t, ok := n.(midi.Triggerer)
			if !ok {
				return nil, fmt.Errorf("trigger: node %q can't be triggered", name)
			}
			c.BindTrigger(t)
		}
	}
	return c, nil
}

// binding maps control change number to parameter name.
type binding struct {
	controller uint8
	param      string
}

// bindings implements flag.Value.
type bindings []binding

func (b *bindings) String() string {
	s := make([]string, 0, len(*b))
	for _, v := range *b {
		s = append(s, fmt.Sprintf("%d=%s", v.controller, v.param))
	}
	return strings.Join(s, ",")
}

func (b *bindings) Set(s string) error {
	number, name, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("invalid binding %q, expected <controller>=<param>", s)
	}
	c, err := strconv.ParseUint(number, 10, 7)
	if err != nil {
		return fmt.Errorf("invalid controller number %q: %w", number, err)
	}
	*b = append(*b, binding{controller: uint8(c), param: name})
	return nil
}
