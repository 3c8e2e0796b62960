package modsynth

import (
	"fmt"
	"math"
)

// NoteFrequency converts a MIDI note number into its equal-tempered
// frequency in Hz, with note 69 tuned to 440 Hz.
func NoteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

var noteNames = [...]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// NoteName returns the name of a MIDI note, e.g. "A-4" for 69.
func NoteName(note int) string {
	if note < 0 {
		return "???"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// keyNotes maps the two rows of a computer keyboard onto a piano layout, the
// lower row starting from note 60 and the upper row from note 72.
var keyNotes = map[rune]int{
	'z': 60, 's': 61, 'x': 62, 'd': 63, 'c': 64, 'v': 65, 'g': 66, 'b': 67, 'h': 68, 'n': 69, 'j': 70, 'm': 71,
	'q': 72, '2': 73, 'w': 74, '3': 75, 'e': 76, 'r': 77, '5': 78, 't': 79, '6': 80, 'y': 81, '7': 82, 'u': 83, 'i': 84,
}

// KeyNote returns the note played by a computer keyboard key, shifted by
// octave octaves. ok is false if the key is not mapped or the note falls
// outside 0..127.
func KeyNote(key rune, octave int) (note int, ok bool) {
	n, ok := keyNotes[key]
	if !ok {
		return 0, false
	}
	n += 12 * octave
	if n < 0 || n > 127 {
		return 0, false
	}
	return n, true
}
