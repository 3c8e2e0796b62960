//go:build cgo

package cmd

import (
	"errors"

	"github.com/vsariola/modsynth/gomidi"
)

var errNoMIDI = errors.New("no MIDI driver available")

func NewMidiContext() MIDIContext {
	return gomidi.NewContext()
}
