// Package midi maps MIDI messages onto node parameters. Controller runs on
// the MIDI listener goroutine and only writes parameters, it never edits
// the graph.
package midi

import (
	"fmt"
	"math"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/param"
)

// AnyChannel makes controller respond to messages on all channels.
const AnyChannel = -1

const maxValue = 127

// Frequency returns frequency of MIDI note in equal temperament, A4 (69)
// is 440 Hz.
func Frequency(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}

// Triggerer plays notes, for example node.Sampler.
type Triggerer interface {
	TriggerNote(note int)
	Stop()
}

// Controller translates notes and control changes into parameter writes.
// Notes drive a monophonic voice with last-note priority.
type Controller struct {
	log     log.Logger
	channel int

	mu        sync.Mutex
	frequency *param.Param
	gain      *param.Param
	triggers  []Triggerer
	controls  map[uint8][]*param.Param
	held      []uint8
}

// Option provides a way to set optional controller properties.
type Option func(*Controller)

// WithLogger sets logger to Controller.
func WithLogger(logger log.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}

// WithChannel limits controller to single channel in range [0, 15].
func WithChannel(channel int) Option {
	return func(c *Controller) {
		c.channel = channel
	}
}

// New returns controller without bindings. It listens to all channels by
// default.
func New(options ...Option) *Controller {
	c := &Controller{
		log:      log.Silent,
		channel:  AnyChannel,
		controls: make(map[uint8][]*param.Param),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// BindVoice binds note messages to frequency and gain parameters. Gain
// follows note velocity and falls to zero when all notes are released.
// Any parameter can be nil.
func (c *Controller) BindVoice(frequency, gain *param.Param) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frequency = frequency
	c.gain = gain
}

// BindTrigger binds note messages to a triggerer.
func (c *Controller) BindTrigger(t Triggerer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggers = append(c.triggers, t)
}

// BindControl binds control change number to a parameter. Control value
// is mapped into parameter range.
func (c *Controller) BindControl(controller uint8, p *param.Param) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls[controller] = append(c.controls[controller], p)
}

// Listen is a callback for midi.ListenTo.
func (c *Controller) Listen(msg midi.Message, timestampms int32) {
	c.Handle(msg)
}

// ListenTo opens input port and handles its messages until returned stop
// function is called.
func (c *Controller) ListenTo(in drivers.In) (func(), error) {
	stop, err := midi.ListenTo(in, c.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen to %v: %w", in, err)
	}
	return stop, nil
}

// ListenToPort finds input port by name and handles its messages until returned stop function is called. A driver
// must be registered by the caller.
func (c *Controller) ListenToPort(name string) (func(), error) {
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("find input port %q: %w", name, err)
	}
	log.WithFields(c.log, log.Fields{"port": in.String()}).Info("listening to midi port")
	return c.ListenTo(in)
}

// InPorts returns names of available input ports.
func InPorts() []string {
	ports := midi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, in := range ports {
		names = append(names, in.String())
	}
	return names
}

// Handle applies the message and returns true if it was consumed.
func (c *Controller) Handle(msg midi.Message) bool {
	var channel, key, velocity, controller, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		if !c.accepts(channel) {
			return false
		}
		c.noteStart(key, velocity)
	case msg.GetNoteEnd(&channel, &key):
		if !c.accepts(channel) {
			return false
		}
		c.noteEnd(key)
	case msg.GetControlChange(&channel, &controller, &value):
		if !c.accepts(channel) {
			return false
		}
		return c.control(controller, value)
	default:
		return false
	}
	return true
}

// Held returns currently held notes, the latest is last.
func (c *Controller) Held() []uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint8(nil), c.held...)
}

func (c *Controller) accepts(channel uint8) bool {
	return c.channel == AnyChannel || int(channel) == c.channel
}

func (c *Controller) noteStart(key, velocity uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	legato := len(c.held) > 0
	c.held = removeKey(c.held, key)
	c.held = append(c.held, key)
	if c.frequency != nil {
		// glide only between held notes
		if legato {
			c.frequency.Set(Frequency(key))
		} else {
			c.frequency.SetImmediate(Frequency(key))
		}
	}
	if c.gain != nil {
		c.gain.Set(float64(velocity) / maxValue)
	}
	for _, t := range c.triggers {
		t.TriggerNote(int(key))
	}
	log.WithFields(c.log, log.Fields{"note": key, "velocity": velocity}).Debug("note start")
}

func (c *Controller) noteEnd(key uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := len(c.held) > 0 && c.held[len(c.held)-1] == key
	c.held = removeKey(c.held, key)
	if !last {
		return
	}
	if len(c.held) > 0 {
		if c.frequency != nil {
			c.frequency.Set(Frequency(c.held[len(c.held)-1]))
		}
		return
	}
	if c.gain != nil {
		c.gain.Set(0)
	}
	for _, t := range c.triggers {
		t.Stop()
	}
	log.WithFields(c.log, log.Fields{"note": key}).Debug("note end")
}

func (c *Controller) control(controller, value uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	params, ok := c.controls[controller]
	if !ok {
		return false
	}
	for _, p := range params {
		p.SetNormalized(float64(value) / maxValue)
	}
	return true
}

func removeKey(keys []uint8, key uint8) []uint8 {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
