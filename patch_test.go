package modsynth_test

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vsariola/modsynth"
)

func TestPatchYAMLRoundTrip(t *testing.T) {
	p := modsynth.DefaultPatch()
	b, err := yaml.Marshal(p)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	var q modsynth.Patch
	if err := yaml.Unmarshal(b, &q); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v\n%s", err, b)
	}
	osc, ok := q.Module("oscillator1")
	if !ok {
		t.Fatalf("oscillator1 missing after round trip:\n%s", b)
	}
	if osc.Parameters["waveform"] != modsynth.Enum("square") || osc.Parameters["frequency"] != modsynth.Number(220) {
		t.Errorf("oscillator1 parameters = %v", osc.Parameters)
	}
	if len(q.Connections) != 3 || q.Connections[0] != p.Connections[0] {
		t.Errorf("connections = %v, want %v", q.Connections, p.Connections)
	}
}

func TestValueYAML(t *testing.T) {
	var m map[string]modsynth.Value
	if err := yaml.Unmarshal([]byte("{a: 1, b: 2.5, c: sine, d: -3}"), &m); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v", err)
	}
	want := map[string]modsynth.Value{"a": modsynth.Number(1), "b": modsynth.Number(2.5), "c": modsynth.Enum("sine"), "d": modsynth.Number(-3)}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
	if err := yaml.Unmarshal([]byte("{a: [1, 2]}"), &m); err == nil {
		t.Error("a sequence was accepted as a value")
	}
}

func TestConnectionNormalized(t *testing.T) {
	c := modsynth.Connection{Source: "a", Target: "b"}.Normalized()
	if c.SourcePort != "output" || c.TargetPort != "input" || c.IsCV() {
		t.Errorf("normalized = %+v", c)
	}
	if got := (modsynth.Connection{Source: "a", Target: "b", TargetPort: "q-cv"}).String(); got != "a:output->b:q-cv" {
		t.Errorf("String = %q", got)
	}
}
