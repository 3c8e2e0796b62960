package modsynth

import (
	"fmt"
	"maps"
	"slices"
)

type (
	// Patch describes a whole graph: the modules and the connections between
	// them. Hosts build graphs from it and the engine reports its state as
	// one.
	Patch struct {
		Modules     []ModuleSpec `yaml:",omitempty" json:",omitempty"`
		Connections []Connection `yaml:",omitempty" json:",omitempty"`
	}

	// ModuleSpec is one module of a Patch. Parameters not mentioned keep the
	// defaults of the kind.
	ModuleSpec struct {
		ID         ID
		Kind       Kind
		Parameters map[string]Value `yaml:",flow,omitempty" json:",omitempty"`
	}

	// Connection is a directed edge from the output of Source to the
	// TargetPort of Target. TargetPort is either "input" (audio) or
	// "<stem>-cv" (control voltage driving a parameter).
	Connection struct {
		Source     ID
		SourcePort string `yaml:",omitempty" json:",omitempty"`
		Target     ID
		TargetPort string `yaml:",omitempty" json:",omitempty"`
	}
)

// DefaultPatch returns the initial patch: a square oscillator through a
// lowpass filter and an amplifier to the output.
func DefaultPatch() Patch {
	return Patch{
		Modules: []ModuleSpec{
			{ID: "oscillator1", Kind: Oscillator, Parameters: map[string]Value{"frequency": Number(220), "detune": Number(0), "waveform": Enum("square")}},
			{ID: "filter1", Kind: Filter, Parameters: map[string]Value{"frequency": Number(220), "type": Enum("lowpass"), "q": Number(1)}},
			{ID: "amplifier1", Kind: Amplifier, Parameters: map[string]Value{"gain": Number(0.5)}},
			{ID: "output1", Kind: Output},
		},
		Connections: []Connection{
			{Source: "oscillator1", Target: "filter1", TargetPort: AudioPort},
			{Source: "filter1", Target: "amplifier1", TargetPort: AudioPort},
			{Source: "amplifier1", Target: "output1", TargetPort: AudioPort},
		},
	}
}

// ExamplePatches returns the example patches by name: filterSweep, tremolo,
// vibrato and midiKeyboard. The first three modulate with an LFO.
func ExamplePatches() map[string]Patch {
	lfo := func(waveform string, freq, amp, depth float64) ModuleSpec {
		return ModuleSpec{ID: "lfo1", Kind: LFO, Parameters: map[string]Value{
			"waveform": Enum(waveform), "frequency": Number(freq), "amplitude": Number(amp), "modDepth": Number(depth)}}
	}
	lowpass := func(freq, q float64) ModuleSpec {
		return ModuleSpec{ID: "filter1", Kind: Filter, Parameters: map[string]Value{
			"type": Enum("lowpass"), "frequency": Number(freq), "q": Number(q)}}
	}
	var (
		osc = ModuleSpec{ID: "oscillator1", Kind: Oscillator}
		amp = ModuleSpec{ID: "amplifier1", Kind: Amplifier}
		out = ModuleSpec{ID: "output1", Kind: Output}
	)
	return map[string]Patch{
		"filterSweep": {
			Modules: []ModuleSpec{osc, lowpass(2000, 5), amp, lfo("triangle", 0.05, 0.8, 8), out},
			Connections: []Connection{
				{Source: "oscillator1", Target: "filter1", TargetPort: AudioPort},
				{Source: "filter1", Target: "amplifier1", TargetPort: AudioPort},
				{Source: "amplifier1", Target: "output1", TargetPort: AudioPort},
				{Source: "lfo1", Target: "filter1", TargetPort: "freq-cv"},
			},
		},
		"tremolo": {
			Modules: []ModuleSpec{osc, amp, lfo("sine", 6, 0.8, 5), out},
			Connections: []Connection{
				{Source: "oscillator1", Target: "amplifier1", TargetPort: AudioPort},
				{Source: "amplifier1", Target: "output1", TargetPort: AudioPort},
				{Source: "lfo1", Target: "amplifier1", TargetPort: "gain-cv"},
			},
		},
		"vibrato": {
			Modules: []ModuleSpec{osc, amp, lfo("sine", 6, 0.8, 5), out},
			Connections: []Connection{
				{Source: "oscillator1", Target: "amplifier1", TargetPort: AudioPort},
				{Source: "amplifier1", Target: "output1", TargetPort: AudioPort},
				{Source: "lfo1", Target: "oscillator1", TargetPort: "freq-cv"},
			},
		},
		"midiKeyboard": {
			Modules: []ModuleSpec{{ID: "keys1", Kind: VoiceSource}, lowpass(2000, 2), amp, out},
			Connections: []Connection{
				{Source: "keys1", Target: "filter1", TargetPort: AudioPort},
				{Source: "filter1", Target: "amplifier1", TargetPort: AudioPort},
				{Source: "amplifier1", Target: "output1", TargetPort: AudioPort},
			},
		},
	}
}

// Normalized fills in the default ports of the connection.
func (c Connection) Normalized() Connection {
	if c.SourcePort == "" {
		c.SourcePort = OutputPort
	}
	if c.TargetPort == "" {
		c.TargetPort = AudioPort
	}
	return c
}

func (c Connection) IsCV() bool {
	return IsCV(c.TargetPort)
}

func (c Connection) String() string {
	c = c.Normalized()
	return fmt.Sprintf("%s:%s->%s:%s", c.Source, c.SourcePort, c.Target, c.TargetPort)
}

// Changes returns the parameters of the module as changes, sorted by
// name so that applying them is deterministic.
func (m ModuleSpec) Changes() []ParamChange {
	ret := make([]ParamChange, 0, len(m.Parameters))
	for _, name := range slices.Sorted(maps.Keys(m.Parameters)) {
		ret = append(ret, ParamChange{Name: name, Value: m.Parameters[name]})
	}
	return ret
}

// Copy makes a deep copy of a patch.
func (p Patch) Copy() Patch {
	modules := make([]ModuleSpec, len(p.Modules))
	for i, m := range p.Modules {
		modules[i] = ModuleSpec{ID: m.ID, Kind: m.Kind, Parameters: maps.Clone(m.Parameters)}
	}
	return Patch{Modules: modules, Connections: slices.Clone(p.Connections)}
}

// Module finds the module with the given id.
func (p Patch) Module(id ID) (ModuleSpec, bool) {
	for _, m := range p.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleSpec{}, false
}
