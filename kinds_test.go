package modsynth_test

import (
	"errors"
	"testing"

	"github.com/vsariola/modsynth"
)

func TestParseKind(t *testing.T) {
	for _, k := range modsynth.Kinds {
		if got, err := modsynth.ParseKind(string(k)); err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if got, err := modsynth.ParseKind("MIDI"); err != nil || got != modsynth.VoiceSource {
		t.Errorf("ParseKind(MIDI) = %q, %v, want voice-source", got, err)
	}
	if _, err := modsynth.ParseKind("sequencer"); !errors.Is(err, modsynth.ErrUnknownKind) {
		t.Errorf("ParseKind(sequencer) error = %v, want ErrUnknownKind", err)
	}
}

func TestParsePort(t *testing.T) {
	cases := []struct {
		kind  modsynth.Kind
		port  string
		param string
		err   error
	}{
		{modsynth.Filter, "input", "", nil},
		{modsynth.Filter, "freq-cv", "frequency", nil},
		{modsynth.Filter, "q-cv", "q", nil},
		{modsynth.Oscillator, "detune-cv", "detune", nil},
		{modsynth.LFO, "amp-cv", "amplitude", nil},
		{modsynth.Output, "volume-cv", "volume", nil},
		{modsynth.Oscillator, "input", "", modsynth.ErrUnknownPort},
		{modsynth.Amplifier, "output", "", modsynth.ErrUnknownPort},
		{modsynth.Amplifier, "q-cv", "", modsynth.ErrUnknownParameter},
		{modsynth.VoiceSource, "attack-cv", "", modsynth.ErrUnknownParameter},
	}
	for _, c := range cases {
		p, err := c.kind.ParsePort(c.port)
		if !errors.Is(err, c.err) {
			t.Errorf("%s.ParsePort(%q) error = %v, want %v", c.kind, c.port, err, c.err)
			continue
		}
		if err != nil {
			continue
		}
		var got string
		if p.Param != nil {
			got = p.Param.Name
		}
		if got != c.param {
			t.Errorf("%s.ParsePort(%q) param = %q, want %q", c.kind, c.port, got, c.param)
		}
	}
}

func TestCVAmounts(t *testing.T) {
	want := map[modsynth.Kind]map[string]float64{
		modsynth.Oscillator: {"frequency": 100, "detune": 50},
		modsynth.Filter:     {"frequency": 5000, "q": 10},
		modsynth.Amplifier:  {"gain": 0.5},
		modsynth.LFO:        {"frequency": 100, "amplitude": 0.5},
		modsynth.Output:     {"volume": 0.5},
	}
	for kind, params := range want {
		for name, amount := range params {
			spec, ok := kind.Param(name)
			if !ok || spec.CVAmount != amount {
				t.Errorf("%s %s CV amount = %v, want %v", kind, name, spec.CVAmount, amount)
			}
		}
	}
}

// Every parameter in the table must be reachable through the params of its
// kind, and the defaults must lie in range.
func TestKindTypesMatchParams(t *testing.T) {
	for _, k := range modsynth.Kinds {
		p, err := modsynth.NewParams(k)
		if err != nil {
			t.Fatalf("NewParams(%s) failed: %v", k, err)
		}
		for _, spec := range modsynth.KindTypes[k].Params {
			v, ok := p.Get(spec.Name)
			if !ok {
				t.Errorf("%s params have no %q", k, spec.Name)
				continue
			}
			if spec.IsEnum() != v.IsEnum() {
				t.Errorf("%s %s: enum mismatch", k, spec.Name)
			}
			if !spec.IsEnum() && (v.Number < spec.Min || v.Number > spec.Max) {
				t.Errorf("%s %s default %v outside %v..%v", k, spec.Name, v.Number, spec.Min, spec.Max)
			}
		}
	}
}
