package modsynth_test

import (
	"math"
	"testing"

	"github.com/vsariola/modsynth"
)

func TestNoteFrequency(t *testing.T) {
	cases := map[int]float64{69: 440, 81: 880, 57: 220, 60: 261.6255653005986}
	for note, want := range cases {
		if got := modsynth.NoteFrequency(note); math.Abs(got-want) > 1e-9 {
			t.Errorf("NoteFrequency(%d) = %v, want %v", note, got, want)
		}
	}
}

func TestKeyNote(t *testing.T) {
	cases := []struct {
		key    rune
		octave int
		note   int
		ok     bool
	}{
		{'z', 0, 60, true},
		{'m', 0, 71, true},
		{'q', 0, 72, true},
		{'i', 0, 84, true},
		{'n', -1, 57, true},
		{'z', 6, 0, false},
		{'p', 0, 0, false},
	}
	for _, c := range cases {
		note, ok := modsynth.KeyNote(c.key, c.octave)
		if note != c.note || ok != c.ok {
			t.Errorf("KeyNote(%q, %d) = %d, %v, want %d, %v", c.key, c.octave, note, ok, c.note, c.ok)
		}
	}
	if got := modsynth.NoteName(69); got != "A-4" {
		t.Errorf("NoteName(69) = %q, want A-4", got)
	}
}
