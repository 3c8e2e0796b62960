package engine_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/vsariola/modsynth"
	"github.com/vsariola/modsynth/engine"
	"github.com/vsariola/modsynth/vm"
)

const sampleRate = 44100

func newEngine(t *testing.T) (*engine.Engine, *vm.Runtime) {
	t.Helper()
	rt := vm.New(sampleRate)
	e, err := engine.New(rt)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	return e, rt
}

// advance renders the runtime for the given number of seconds.
func advance(rt *vm.Runtime, seconds float64) []float32 {
	buf := make([]float32, int(math.Round(seconds*sampleRate)))
	rt.Render(buf)
	return buf
}

func create(t *testing.T, e *engine.Engine, id modsynth.ID, kind modsynth.Kind, changes ...modsynth.ParamChange) {
	t.Helper()
	if _, err := e.CreateModule(id, kind, changes...); err != nil {
		t.Fatalf("CreateModule(%q, %s) failed: %v", id, kind, err)
	}
}

func connect(t *testing.T, e *engine.Engine, source, target modsynth.ID, port string) {
	t.Helper()
	if err := e.Connect(modsynth.Connection{Source: source, Target: target, TargetPort: port}); err != nil {
		t.Fatalf("Connect(%s -> %s:%s) failed: %v", source, target, port, err)
	}
}

func unitsOfType(rt *vm.Runtime, typ string) []vm.UnitInfo {
	var ret []vm.UnitInfo
	for _, u := range rt.Units() {
		if u.Type == typ {
			ret = append(ret, u)
		}
	}
	return ret
}

// scalerOf finds the unit feeding the automation input of param.
func scalerOf(t *testing.T, rt *vm.Runtime, param string) vm.UnitInfo {
	t.Helper()
	for _, l := range rt.Links() {
		if l.To.Param == param {
			u, _ := rt.Describe(l.From)
			return u
		}
	}
	t.Fatalf("no modulation of %q in the runtime", param)
	return vm.UnitInfo{}
}

func TestDefaultPatchPlays(t *testing.T) {
	e, rt := newEngine(t)
	if err := e.Load(modsynth.DefaultPatch()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := e.State(); got != modsynth.Running {
		t.Errorf("state = %v, want running", got)
	}
	if got := len(e.Modules()); got != 4 {
		t.Errorf("%d modules, want 4", got)
	}
	// osc -> filter -> amp -> output gain -> destination
	if got := len(rt.Links()); got != 4 {
		t.Errorf("%d runtime links, want 4", got)
	}
	connected := map[modsynth.ID]bool{}
	for _, c := range e.Connections() {
		connected[c.Source], connected[c.Target] = true, true
	}
	if len(connected) != 4 {
		t.Errorf("%d connected modules, want 4", len(connected))
	}
	advance(rt, 0.1)
	var peak float64
	for _, v := range advance(rt, 0.1) {
		peak = max(peak, math.Abs(float64(v)))
	}
	if peak == 0 {
		t.Error("default patch renders silence")
	}
	if got := e.Patch(); len(got.Modules) != 4 || len(got.Connections) != 3 {
		t.Errorf("snapshot has %d modules and %d connections, want 4 and 3", len(got.Modules), len(got.Connections))
	}
}

func TestCreateModule(t *testing.T) {
	e, rt := newEngine(t)
	id, err := e.CreateModule("", modsynth.Oscillator)
	if err != nil {
		t.Fatalf("CreateModule failed: %v", err)
	}
	if id != "oscillator1" {
		t.Errorf("generated id %q, want oscillator1", id)
	}
	if _, err := e.CreateModule("oscillator1", modsynth.Filter); !errors.Is(err, modsynth.ErrDuplicateModule) {
		t.Errorf("duplicate id error = %v, want ErrDuplicateModule", err)
	}
	if _, err := e.CreateModule("x", "reverb"); !errors.Is(err, modsynth.ErrUnknownKind) {
		t.Errorf("unknown kind error = %v, want ErrUnknownKind", err)
	}
	if _, err := e.CreateModule("x", modsynth.Filter, modsynth.Set("gain", 1)); !errors.Is(err, modsynth.ErrUnknownParameter) {
		t.Errorf("unknown parameter error = %v, want ErrUnknownParameter", err)
	}
	create(t, e, "keys", "midi")
	m, ok := e.Module("keys")
	if !ok || m.Kind != modsynth.VoiceSource {
		t.Errorf("midi alias created %v, want a voice source", m.Kind)
	}
	create(t, e, "lfo", modsynth.LFO, modsynth.Set("frequency", 5))
	if got := len(rt.Units()); got != 5 {
		t.Errorf("%d runtime units, want 5 (destination, oscillator, voice sum, lfo oscillator and gain)", got)
	}
	m, _ = e.Module("lfo")
	if v, _ := m.Params.Get("frequency"); v.Number != 5 {
		t.Errorf("lfo frequency = %v, want 5", v)
	}
	if v, _ := m.Params.Get("amplitude"); v.Number != 0.5 {
		t.Errorf("lfo amplitude = %v, want the default 0.5", v)
	}
	if !slices.Equal(m.Ports, []string{"freq-cv", "amp-cv"}) {
		t.Errorf("lfo ports = %v", m.Ports)
	}
}

func TestUpdateModule(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "f", modsynth.Filter)
	err := e.UpdateModule("f", modsynth.Set("frequency", 1000), modsynth.SetEnum("type", "comb"))
	if !errors.Is(err, modsynth.ErrInvalidValue) {
		t.Fatalf("invalid update error = %v, want ErrInvalidValue", err)
	}
	m, _ := e.Module("f")
	if v, _ := m.Params.Get("frequency"); v.Number != 440 {
		t.Errorf("failed update changed frequency to %v", v)
	}
	if err := e.UpdateModule("f", modsynth.Set("frequency", 1000), modsynth.SetEnum("type", "highpass"), modsynth.Set("q", 100)); err != nil {
		t.Fatalf("UpdateModule failed: %v", err)
	}
	f := unitsOfType(rt, "filter")[0]
	if f.Shape != "highpass" || f.Params["frequency"].Value != 1000 {
		t.Errorf("runtime filter = %s at %v Hz, want highpass at 1000 Hz", f.Shape, f.Params["frequency"].Value)
	}
	if got := f.Params["q"].Value; got != 20 {
		t.Errorf("q = %v, want it clamped to 20", got)
	}
	if err := e.UpdateModule("nope", modsynth.Set("q", 1)); !errors.Is(err, modsynth.ErrUnknownModule) {
		t.Errorf("unknown module error = %v, want ErrUnknownModule", err)
	}
}

func TestConnectErrors(t *testing.T) {
	e, _ := newEngine(t)
	create(t, e, "osc", modsynth.Oscillator)
	create(t, e, "out", modsynth.Output)
	cases := []struct {
		conn modsynth.Connection
		want error
	}{
		{modsynth.Connection{Source: "osc", Target: "nope"}, modsynth.ErrUnknownModule},
		{modsynth.Connection{Source: "nope", Target: "out"}, modsynth.ErrUnknownModule},
		{modsynth.Connection{Source: "osc", Target: "out", TargetPort: "q-cv"}, modsynth.ErrUnknownParameter},
		{modsynth.Connection{Source: "osc", Target: "osc", TargetPort: "input"}, modsynth.ErrUnknownPort},
		{modsynth.Connection{Source: "out", Target: "osc", TargetPort: "freq-cv"}, modsynth.ErrUnknownPort},
	}
	for _, c := range cases {
		if err := e.Connect(c.conn); !errors.Is(err, c.want) {
			t.Errorf("Connect(%v) error = %v, want %v", c.conn, err, c.want)
		}
	}
	if got := e.State(); got != modsynth.Suspended {
		t.Errorf("failed connects resumed the runtime: %v", got)
	}
	if err := e.Disconnect(modsynth.Connection{Source: "osc", Target: "out"}); err != nil {
		t.Errorf("disconnecting a missing connection failed: %v", err)
	}
}

func TestCVRoundTripLeavesNothing(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "lfo", modsynth.LFO)
	create(t, e, "f", modsynth.Filter)
	before, links := len(rt.Units()), len(rt.Links())
	c := modsynth.Connection{Source: "lfo", Target: "f", TargetPort: "freq-cv"}
	connect(t, e, "lfo", "f", "freq-cv")
	if got := scalerOf(t, rt, "frequency").Params["gain"].Value; got != 5000 {
		t.Errorf("filter frequency scaler = %v, want 5000", got)
	}
	// reconnecting replaces the scaler instead of adding one
	connect(t, e, "lfo", "f", "freq-cv")
	if got := len(rt.Units()); got != before+1 {
		t.Errorf("%d units after reconnecting, want %d", got, before+1)
	}
	if got := len(e.Connections()); got != 1 {
		t.Errorf("%d connections after reconnecting, want 1", got)
	}
	if err := e.Disconnect(c); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if err := e.Disconnect(c); err != nil {
		t.Fatalf("second Disconnect failed: %v", err)
	}
	if got := len(rt.Units()); got != before {
		t.Errorf("%d units after disconnect, want %d", got, before)
	}
	if got := len(rt.Links()); got != links {
		t.Errorf("%d links after disconnect, want %d", got, links)
	}
	if got := len(e.Connections()); got != 0 {
		t.Errorf("%d connections after disconnect, want 0", got)
	}
}

func TestModDepthScalesModulation(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "lfo", modsynth.LFO, modsynth.Set("modDepth", 2))
	create(t, e, "osc", modsynth.Oscillator)
	connect(t, e, "lfo", "osc", "freq-cv")
	if got := scalerOf(t, rt, "frequency").Params["gain"].Value; got != 200 {
		t.Errorf("scaler with modDepth 2 = %v, want 200", got)
	}
	if err := e.UpdateModule("lfo", modsynth.Set("modDepth", 0.5)); err != nil {
		t.Fatalf("UpdateModule failed: %v", err)
	}
	if got := scalerOf(t, rt, "frequency").Params["gain"].Value; got != 50 {
		t.Errorf("scaler with modDepth 0.5 = %v, want 50", got)
	}
	// amplitude drives the lfo output, not the scaler
	if err := e.UpdateModule("lfo", modsynth.Set("amplitude", 1)); err != nil {
		t.Fatalf("UpdateModule failed: %v", err)
	}
	if got := scalerOf(t, rt, "frequency").Params["gain"].Value; got != 50 {
		t.Errorf("scaler after amplitude change = %v, want 50", got)
	}
}

func TestNotePitch(t *testing.T) {
	cases := []struct {
		note   int
		octave float64
		want   float64
	}{
		{69, 0, 440},
		{81, 0, 880},
		{57, 0, 220},
		{69, 1, 440},
		{81, -2, 880},
	}
	for _, c := range cases {
		e, rt := newEngine(t)
		create(t, e, "keys", modsynth.VoiceSource, modsynth.Set("octave", c.octave))
		if err := e.NoteOn("keys", c.note, 1); err != nil {
			t.Fatalf("NoteOn failed: %v", err)
		}
		oscs := unitsOfType(rt, "oscillator")
		if len(oscs) != 1 {
			t.Fatalf("%d oscillators, want 1", len(oscs))
		}
		if got := oscs[0].Params["frequency"].Value; math.Abs(got-c.want) > 1e-9 {
			t.Errorf("note %d octave %v: frequency %v, want %v", c.note, c.octave, got, c.want)
		}
	}
}

func TestNoteOnIsIdempotent(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "keys", modsynth.VoiceSource)
	for range 3 {
		if err := e.NoteOn("keys", 60, 0.8); err != nil {
			t.Fatalf("NoteOn failed: %v", err)
		}
	}
	if got := len(e.Voices("keys")); got != 1 {
		t.Errorf("%d voices, want 1", got)
	}
	if got := len(unitsOfType(rt, "oscillator")); got != 1 {
		t.Errorf("%d oscillators, want 1", got)
	}
	if e.State() != modsynth.Running {
		t.Error("NoteOn did not start the runtime")
	}
	create(t, e, "osc", modsynth.Oscillator)
	if err := e.NoteOn("osc", 60, 1); !errors.Is(err, modsynth.ErrKindMismatch) {
		t.Errorf("NoteOn on an oscillator: error = %v, want ErrKindMismatch", err)
	}
	if err := e.NoteOn("nope", 60, 1); !errors.Is(err, modsynth.ErrUnknownModule) {
		t.Errorf("NoteOn on a missing module: error = %v, want ErrUnknownModule", err)
	}
	if err := e.NoteOff("keys", 61); err != nil {
		t.Errorf("NoteOff of a silent note failed: %v", err)
	}
}

func TestReleaseTail(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "keys", modsynth.VoiceSource, modsynth.Set("attack", 0.05), modsynth.Set("release", 0.1))
	if err := e.NoteOn("keys", 60, 1); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	if v := e.Voices("keys"); len(v) != 1 || v[0].State != engine.Attacking {
		t.Fatalf("voices after note on = %v, want one attacking", v)
	}
	advance(rt, 0.06)
	if v := e.Voices("keys"); len(v) != 1 || v[0].State != engine.Sustaining {
		t.Fatalf("voices after the attack = %v, want one sustaining", v)
	}
	if err := e.NoteOff("keys", 60); err != nil {
		t.Fatalf("NoteOff failed: %v", err)
	}
	advance(rt, 0.09)
	if v := e.Voices("keys"); len(v) != 1 || v[0].State != engine.Releasing {
		t.Fatalf("voices 0.09 s after note off = %v, want one releasing", v)
	}
	// a repeated note on while releasing does not restart the voice
	e.NoteOn("keys", 60, 1)
	if v := e.Voices("keys"); len(v) != 1 || v[0].State != engine.Releasing {
		t.Fatalf("voices after repeated note on = %v, want one releasing", v)
	}
	advance(rt, 0.035)
	if v := e.Voices("keys"); len(v) != 0 {
		t.Fatalf("voices 0.125 s after note off = %v, want none", v)
	}
	if got := len(rt.Units()); got != 2 {
		t.Errorf("%d runtime units after the tail, want 2", got)
	}
}

func TestNoteOffDuringAttack(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "keys", modsynth.VoiceSource, modsynth.Set("attack", 0.1), modsynth.Set("release", 0.1))
	e.NoteOn("keys", 60, 1)
	advance(rt, 0.05)
	e.NoteOff("keys", 60)
	env := unitsOfType(rt, "gain")
	var level float64
	for _, g := range env {
		if g.Params["gain"].Pending > 0 {
			level = g.Params["gain"].Value
		}
	}
	if math.Abs(level-0.5) > 0.01 {
		t.Errorf("envelope at note off = %v, want 0.5", level)
	}
	advance(rt, 0.05)
	for _, g := range unitsOfType(rt, "gain") {
		if g.Params["gain"].Pending > 0 {
			level = g.Params["gain"].Value
		}
	}
	if math.Abs(level-0.25) > 0.01 {
		t.Errorf("envelope halfway through the release = %v, want 0.25", level)
	}
}

func TestDestroyModule(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "keys", modsynth.VoiceSource)
	create(t, e, "lfo", modsynth.LFO)
	create(t, e, "amp", modsynth.Amplifier)
	create(t, e, "out", modsynth.Output)
	connect(t, e, "keys", "amp", "input")
	connect(t, e, "lfo", "amp", "gain-cv")
	connect(t, e, "amp", "out", "input")
	e.NoteOn("keys", 60, 1)
	e.NoteOn("keys", 64, 1)
	for _, id := range []modsynth.ID{"keys", "amp"} {
		if err := e.DestroyModule(id); err != nil {
			t.Fatalf("DestroyModule(%q) failed: %v", id, err)
		}
		if _, ok := e.Module(id); ok {
			t.Errorf("%q still exists", id)
		}
	}
	if got := e.Connections(); len(got) != 0 {
		t.Errorf("connections left: %v", got)
	}
	if got := e.Voices("keys"); len(got) != 0 {
		t.Errorf("voices left: %v", got)
	}
	// destination, lfo oscillator and gain, output gain
	if got := len(rt.Units()); got != 4 {
		t.Errorf("%d runtime units left, want 4", got)
	}
	if err := e.DestroyModule("keys"); !errors.Is(err, modsynth.ErrUnknownModule) {
		t.Errorf("second DestroyModule error = %v, want ErrUnknownModule", err)
	}
}

func TestStartStop(t *testing.T) {
	e, _ := newEngine(t)
	for _, f := range []func() error{e.Start, e.Start} {
		if err := f(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}
	if e.State() != modsynth.Running {
		t.Errorf("state = %v, want running", e.State())
	}
	for _, f := range []func() error{e.Stop, e.Stop} {
		if err := f(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	}
	if e.State() != modsynth.Suspended {
		t.Errorf("state = %v, want suspended", e.State())
	}
}

func TestTeardown(t *testing.T) {
	e, rt := newEngine(t)
	if err := e.Load(modsynth.DefaultPatch()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	create(t, e, "keys", modsynth.VoiceSource)
	e.NoteOn("keys", 60, 1)
	if err := e.Teardown(); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if err := e.Teardown(); err != nil {
		t.Fatalf("second Teardown failed: %v", err)
	}
	if rt.State() != modsynth.Closed {
		t.Errorf("runtime state = %v, want closed", rt.State())
	}
	if _, err := e.CreateModule("", modsynth.Oscillator); !errors.Is(err, modsynth.ErrRuntimeUnavailable) {
		t.Errorf("CreateModule after teardown: error = %v, want ErrRuntimeUnavailable", err)
	}
	if err := e.NoteOn("keys", 60, 1); !errors.Is(err, modsynth.ErrRuntimeUnavailable) {
		t.Errorf("NoteOn after teardown: error = %v, want ErrRuntimeUnavailable", err)
	}
	if got := e.Modules(); len(got) != 0 {
		t.Errorf("modules after teardown: %v", got)
	}
	if _, err := engine.New(rt); !errors.Is(err, modsynth.ErrRuntimeUnavailable) {
		t.Errorf("New on a closed runtime: error = %v, want ErrRuntimeUnavailable", err)
	}
}

func TestPatchSnapshotReloads(t *testing.T) {
	e, _ := newEngine(t)
	create(t, e, "", modsynth.LFO, modsynth.Set("modDepth", 3))
	create(t, e, "", modsynth.Oscillator, modsynth.SetEnum("waveform", "triangle"))
	create(t, e, "", modsynth.Output)
	connect(t, e, "lfo1", "oscillator1", "detune-cv")
	connect(t, e, "oscillator1", "output1", "")
	p := e.Patch()
	e2, _ := newEngine(t)
	if err := e2.Load(p); err != nil {
		t.Fatalf("Load of snapshot failed: %v", err)
	}
	q := e2.Patch()
	if len(q.Modules) != 3 || len(q.Connections) != 2 {
		t.Fatalf("reloaded snapshot = %+v", q)
	}
	for i := range p.Modules {
		for name, v := range p.Modules[i].Parameters {
			if q.Modules[i].Parameters[name] != v {
				t.Errorf("%s %s = %v after reload, want %v", p.Modules[i].ID, name, q.Modules[i].Parameters[name], v)
			}
		}
	}
	if !slices.Equal(p.Connections, q.Connections) {
		t.Errorf("connections after reload = %v, want %v", q.Connections, p.Connections)
	}
}

func TestExamplePatchesLoad(t *testing.T) {
	cases := []struct {
		name    string
		modules int
		param   string  // modulated runtime parameter, "" for none
		scale   float64 // expected gain of its scaling unit
	}{
		{"filterSweep", 5, "frequency", 5000 * 8},
		{"tremolo", 4, "gain", 0.5 * 5},
		{"vibrato", 4, "frequency", 100 * 5},
		{"midiKeyboard", 4, "", 0},
	}
	patches := modsynth.ExamplePatches()
	if len(patches) != len(cases) {
		t.Errorf("%d example patches, want %d", len(patches), len(cases))
	}
	for _, c := range cases {
		p, ok := patches[c.name]
		if !ok {
			t.Errorf("no example patch %q", c.name)
			continue
		}
		e, rt := newEngine(t)
		if err := e.Load(p); err != nil {
			t.Fatalf("Load(%s) failed: %v", c.name, err)
		}
		if got := len(e.Modules()); got != c.modules {
			t.Errorf("%s: %d modules, want %d", c.name, got, c.modules)
		}
		if got := len(e.Connections()); got != len(p.Connections) {
			t.Errorf("%s: %d connections, want %d", c.name, got, len(p.Connections))
		}
		if e.State() != modsynth.Running {
			t.Errorf("%s: state = %v, want running", c.name, e.State())
		}
		if c.param != "" {
			if got := scalerOf(t, rt, c.param).Params["gain"].Value; math.Abs(got-c.scale) > 1e-9 {
				t.Errorf("%s: %s scaler = %v, want %v", c.name, c.param, got, c.scale)
			}
		}
		advance(rt, 0.05)
		if c.name == "midiKeyboard" {
			if err := e.NoteOn("keys1", 60, 1); err != nil {
				t.Errorf("NoteOn on %s failed: %v", c.name, err)
			}
			advance(rt, 0.1)
		}
		var peak float64
		for _, v := range advance(rt, 0.1) {
			peak = max(peak, math.Abs(float64(v)))
			if math.IsNaN(float64(v)) {
				t.Fatalf("%s renders NaN", c.name)
			}
		}
		if peak == 0 {
			t.Errorf("%s renders silence", c.name)
		}
	}
}

func TestFailedLoadLeavesEngineUntouched(t *testing.T) {
	e, rt := newEngine(t)
	create(t, e, "osc", modsynth.Oscillator)
	create(t, e, "out", modsynth.Output)
	units, links := len(rt.Units()), len(rt.Links())
	p := modsynth.Patch{
		Modules: []modsynth.ModuleSpec{
			{ID: "lfo", Kind: modsynth.LFO},
			{Kind: modsynth.Amplifier},
		},
		Connections: []modsynth.Connection{
			{Source: "osc", Target: "out"},
			{Source: "lfo", Target: "osc", TargetPort: "freq-cv"},
			{Source: "amplifier1", Target: "missing"},
		},
	}
	if err := e.Load(p); !errors.Is(err, modsynth.ErrUnknownModule) {
		t.Fatalf("Load error = %v, want ErrUnknownModule", err)
	}
	if got := e.Modules(); len(got) != 2 {
		t.Errorf("modules after failed load: %v", got)
	}
	if got := e.Connections(); len(got) != 0 {
		t.Errorf("connections after failed load: %v", got)
	}
	if got := len(rt.Units()); got != units {
		t.Errorf("%d runtime units after failed load, want %d", got, units)
	}
	if got := len(rt.Links()); got != links {
		t.Errorf("%d runtime links after failed load, want %d", got, links)
	}
	if e.State() != modsynth.Suspended {
		t.Errorf("failed load resumed the runtime")
	}
	// generated ids are not used up by the failed load
	id, err := e.CreateModule("", modsynth.Amplifier)
	if err != nil || id != "amplifier1" {
		t.Errorf("CreateModule after failed load = %q, %v, want amplifier1", id, err)
	}
	dup := modsynth.Patch{Modules: []modsynth.ModuleSpec{{ID: "f", Kind: modsynth.Filter}, {ID: "osc", Kind: modsynth.Filter}}}
	if err := e.Load(dup); !errors.Is(err, modsynth.ErrDuplicateModule) {
		t.Errorf("Load with a duplicate id error = %v, want ErrDuplicateModule", err)
	}
	if _, ok := e.Module("f"); ok {
		t.Error("failed load kept module f")
	}
}

var errRejected = errors.New("rejected")

// rejectingRuntime fails every SetImmediate on the named parameter.
type rejectingRuntime struct {
	*vm.Runtime
	param string
}

func (r *rejectingRuntime) SetImmediate(u modsynth.Unit, name string, value float64) error {
	if name == r.param {
		return errRejected
	}
	return r.Runtime.SetImmediate(u, name, value)
}

func TestRejectedUpdateRestoresRuntime(t *testing.T) {
	rt := &rejectingRuntime{Runtime: vm.New(sampleRate), param: "detune"}
	e, err := engine.New(rt)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	create(t, e, "osc", modsynth.Oscillator)
	err = e.UpdateModule("osc", modsynth.Set("frequency", 880), modsynth.Set("detune", 10))
	if !errors.Is(err, errRejected) {
		t.Fatalf("UpdateModule error = %v, want the runtime error", err)
	}
	m, _ := e.Module("osc")
	if v, _ := m.Params.Get("frequency"); v.Number != 440 {
		t.Errorf("logical frequency = %v after a rejected update, want 440", v)
	}
	if v, _ := m.Params.Get("detune"); v.Number != 0 {
		t.Errorf("logical detune = %v after a rejected update, want 0", v)
	}
	if got := unitsOfType(rt.Runtime, "oscillator")[0].Params["frequency"].Value; got != 440 {
		t.Errorf("runtime frequency = %v after a rejected update, want 440", got)
	}

	rt.param = "gain"
	create(t, e, "lfo", modsynth.LFO)
	connect(t, e, "lfo", "osc", "freq-cv")
	if err := e.UpdateModule("lfo", modsynth.Set("modDepth", 3)); !errors.Is(err, errRejected) {
		t.Fatalf("UpdateModule(modDepth) error = %v, want the runtime error", err)
	}
	m, _ = e.Module("lfo")
	if v, _ := m.Params.Get("modDepth"); v.Number != 1 {
		t.Errorf("modDepth = %v after a rejected rescale, want 1", v)
	}
	if got := scalerOf(t, rt.Runtime, "frequency").Params["gain"].Value; got != 100 {
		t.Errorf("scaler = %v after a rejected rescale, want 100", got)
	}
}

func TestCommandsResumeRuntime(t *testing.T) {
	e, _ := newEngine(t)
	create(t, e, "osc", modsynth.Oscillator)
	create(t, e, "out", modsynth.Output)
	if e.State() != modsynth.Suspended {
		t.Fatalf("creating modules resumed the runtime")
	}
	connect(t, e, "osc", "out", "")
	if got := e.State(); got != modsynth.Running {
		t.Errorf("state after Connect = %v, want running", got)
	}
	create(t, e, "keys", modsynth.VoiceSource)
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := e.NoteOn("keys", 60, 1); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	if got := e.State(); got != modsynth.Running {
		t.Errorf("state after NoteOn = %v, want running", got)
	}
	e.Stop()
	if err := e.NoteOff("keys", 60); err != nil {
		t.Fatalf("NoteOff failed: %v", err)
	}
	if got := e.State(); got != modsynth.Running {
		t.Errorf("state after NoteOff = %v, want running", got)
	}
}
