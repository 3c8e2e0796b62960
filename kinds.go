package modsynth

import (
	"fmt"
	"strings"
)

// Kind is the type of a module, e.g. "oscillator" or "filter". Always in
// lowercase.
type Kind string

const (
	Oscillator  Kind = "oscillator"
	Filter      Kind = "filter"
	Amplifier   Kind = "amplifier"
	LFO         Kind = "lfo"
	VoiceSource Kind = "voice-source"
	Output      Kind = "output"
)

// Kinds lists the module kinds in the order they are presented to users.
var Kinds = []Kind{Oscillator, Filter, Amplifier, LFO, VoiceSource, Output}

type (
	// ParamSpec documents one parameter that a module kind takes.
	ParamSpec struct {
		Name     string   // found with this name in Params.Get / Params.Set
		Min, Max float64  // numeric range, inclusive; values are clamped to it
		Choices  []string // non-empty for enumerated parameters
		// CV is the stem of the control-voltage port driving this parameter,
		// i.e. the port is CV + "-cv". Empty if the parameter cannot be
		// modulated.
		CV string
		// CVAmount is how far one unit of a ±1 control signal swings the
		// parameter, before the source's modulation depth is applied.
		CVAmount float64
	}

	// KindType documents the ports and parameters of a module kind.
	KindType struct {
		HasInput  bool // has the generic audio "input" port
		HasOutput bool // has the audio "output" port
		Params    []ParamSpec
	}

	// Port is a resolved target port: either the audio input (Param == nil)
	// or the CV input of a parameter.
	Port struct {
		Name  string
		Param *ParamSpec
	}
)

var (
	Waveforms   = []string{"sine", "square", "sawtooth", "triangle"}
	FilterTypes = []string{"lowpass", "highpass", "bandpass", "notch"}
)

// KindTypes documents all the available module kinds and what parameters
// and ports they have.
var KindTypes = map[Kind]KindType{
	Oscillator: {HasOutput: true, Params: []ParamSpec{
		{Name: "waveform", Choices: Waveforms},
		{Name: "frequency", Min: 20, Max: 2000, CV: "freq", CVAmount: 100},
		{Name: "detune", Min: -100, Max: 100, CV: "detune", CVAmount: 50}}},
	Filter: {HasInput: true, HasOutput: true, Params: []ParamSpec{
		{Name: "type", Choices: FilterTypes},
		{Name: "frequency", Min: 20, Max: 20000, CV: "freq", CVAmount: 5000},
		{Name: "q", Min: 0.1, Max: 20, CV: "q", CVAmount: 10}}},
	Amplifier: {HasInput: true, HasOutput: true, Params: []ParamSpec{
		{Name: "gain", Min: 0, Max: 1, CV: "gain", CVAmount: 0.5}}},
	LFO: {HasOutput: true, Params: []ParamSpec{
		{Name: "waveform", Choices: Waveforms},
		{Name: "frequency", Min: 0.001, Max: 20, CV: "freq", CVAmount: 100},
		{Name: "amplitude", Min: 0, Max: 1, CV: "amp", CVAmount: 0.5},
		{Name: "modDepth", Min: 0.1, Max: 10}}},
	VoiceSource: {HasOutput: true, Params: []ParamSpec{
		{Name: "waveform", Choices: Waveforms},
		{Name: "attack", Min: 0, Max: 5},
		{Name: "release", Min: 0, Max: 5},
		{Name: "octave", Min: -3, Max: 3}}},
	Output: {HasInput: true, Params: []ParamSpec{
		{Name: "volume", Min: 0, Max: 1, CV: "volume", CVAmount: 0.5}}},
}

// ParseKind validates a kind name. "midi" is accepted as an alias of
// VoiceSource.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "midi" {
		return VoiceSource, nil
	}
	if _, ok := KindTypes[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Param documents the named parameter of the kind.
func (k Kind) Param(name string) (ParamSpec, bool) {
	for _, p := range KindTypes[k].Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// ParsePort resolves a target port name of a module of kind k. "input" is
// the audio input; "<stem>-cv" is the CV input of the parameter with that CV
// stem.
func (k Kind) ParsePort(port string) (Port, error) {
	t, ok := KindTypes[k]
	if !ok {
		return Port{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	if stem, ok := strings.CutSuffix(port, "-cv"); ok {
		for i, p := range t.Params {
			if p.CV != "" && p.CV == stem {
				return Port{Name: port, Param: &t.Params[i]}, nil
			}
		}
		return Port{}, fmt.Errorf("%w: %s has no modulatable parameter %q", ErrUnknownParameter, k, stem)
	}
	if port == AudioPort && t.HasInput {
		return Port{Name: port}, nil
	}
	return Port{}, fmt.Errorf("%w: %s has no input %q", ErrUnknownPort, k, port)
}

// InputPorts lists the target port names of the kind: the audio input
// first, then the CV ports in parameter order.
func (k Kind) InputPorts() []string {
	t := KindTypes[k]
	var ret []string
	if t.HasInput {
		ret = append(ret, AudioPort)
	}
	for _, p := range t.Params {
		if p.CV != "" {
			ret = append(ret, p.CV+"-cv")
		}
	}
	return ret
}

// IsCV tells if the port name denotes a CV input.
func IsCV(port string) bool {
	return strings.HasSuffix(port, "-cv")
}

func (p ParamSpec) IsEnum() bool {
	return len(p.Choices) > 0
}

func (p ParamSpec) clamp(v float64) float64 {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}
