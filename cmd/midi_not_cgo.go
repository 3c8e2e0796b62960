//go:build !cgo

package cmd

import "errors"

var errNoMIDI = errors.New("MIDI input requires a build with cgo")

func NewMidiContext() MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return NullMIDIContext{}
}
