package cmd

import "gitlab.com/gomidi/midi/v2"

type (
	// MIDIContext lists and opens MIDI inputs.
	MIDIContext interface {
		Inputs() []string
		Open(namePrefix string, handler func(msg midi.Message, timestampms int32)) error
		Close()
	}

	// NullMIDIContext has no inputs.
	NullMIDIContext struct{}
)

func (NullMIDIContext) Inputs() []string { return nil }

func (NullMIDIContext) Open(namePrefix string, handler func(msg midi.Message, timestampms int32)) error {
	return errNoMIDI
}

func (NullMIDIContext) Close() {}
