//go:build cgo

package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// RTMIDIContext lists and opens MIDI inputs through the rtmidi driver. At
// most one input is open at a time.
type RTMIDIContext struct {
	driver    *rtmididrv.Driver
	currentIn drivers.In
	stop      func()
}

// NewContext opens the driver. If that fails, the context has no inputs.
func NewContext() *RTMIDIContext {
	m := RTMIDIContext{}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

// Inputs lists the names of the available MIDI inputs.
func (c *RTMIDIContext) Inputs() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret
}

// Open opens the first input whose name starts with namePrefix, closing the
// currently open input, and passes its messages to handler. An empty prefix
// takes the first input.
func (c *RTMIDIContext) Open(namePrefix string, handler func(msg midi.Message, timestampms int32)) error {
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		c.closeInput()
		if err := in.Open(); err != nil {
			return fmt.Errorf("opening MIDI input failed: %w", err)
		}
		stop, err := midi.ListenTo(in, handler)
		if err != nil {
			in.Close()
			return fmt.Errorf("listening to MIDI input failed: %w", err)
		}
		c.currentIn, c.stop = in, stop
		return nil
	}
	return fmt.Errorf("could not find any MIDI input starting with %q", namePrefix)
}

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}
