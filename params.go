package modsynth

import (
	"fmt"
	"math"
	"slices"
)

type (
	// Params is the parameter state of a module. It is a closed set of
	// variants, one per Kind, each carrying only its own fields; names are
	// validated against the variant.
	Params interface {
		Kind() Kind
		Get(name string) (Value, bool)
		Set(name string, v Value) error
		Copy() Params
		fields(name string) (*float64, *string)
	}

	OscillatorParams struct {
		Waveform  string
		Frequency float64
		Detune    float64 // cents
	}

	FilterParams struct {
		Type      string
		Frequency float64
		Q         float64
	}

	AmplifierParams struct {
		Gain float64
	}

	LFOParams struct {
		Waveform  string
		Frequency float64
		Amplitude float64
		// ModDepth multiplies the base amount of every CV connection the
		// LFO drives.
		ModDepth float64
	}

	VoiceSourceParams struct {
		Waveform string
		Attack   float64 // seconds
		Release  float64 // seconds
		// Octave is the starting octave of a computer keyboard playing the
		// module. Notes sent to the module are not shifted by it.
		Octave   float64
	}

	OutputParams struct {
		Volume float64
	}
)

// NewParams returns the default parameters of a kind.
func NewParams(k Kind) (Params, error) {
	switch k {
	case Oscillator:
		return &OscillatorParams{Waveform: "sine", Frequency: 440}, nil
	case Filter:
		return &FilterParams{Type: "lowpass", Frequency: 440, Q: 1}, nil
	case Amplifier:
		return &AmplifierParams{Gain: 0.5}, nil
	case LFO:
		return &LFOParams{Waveform: "sine", Frequency: 1, Amplitude: 0.5, ModDepth: 1}, nil
	case VoiceSource:
		return &VoiceSourceParams{Waveform: "sine", Attack: 0.05, Release: 0.1}, nil
	case Output:
		return &OutputParams{Volume: 0.7}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

// Apply applies the changes to a copy of p and returns the copy. Either all
// changes are valid and applied, or p is returned untouched together with
// the first error.
func Apply(p Params, changes ...ParamChange) (Params, error) {
	ret := p.Copy()
	for _, c := range changes {
		if err := ret.Set(c.Name, c.Value); err != nil {
			return p, err
		}
	}
	return ret, nil
}

// Names lists the parameter names of the params in table order.
func Names(p Params) []string {
	specs := KindTypes[p.Kind()].Params
	ret := make([]string, len(specs))
	for i, s := range specs {
		ret[i] = s.Name
	}
	return ret
}

// Map returns the params as a name -> value map.
func Map(p Params) map[string]Value {
	ret := make(map[string]Value)
	for _, name := range Names(p) {
		ret[name], _ = p.Get(name)
	}
	return ret
}

func getParam(p Params, name string) (Value, bool) {
	num, enum := p.fields(name)
	switch {
	case num != nil:
		return Number(*num), true
	case enum != nil:
		return Enum(*enum), true
	}
	return Value{}, false
}

func setParam(p Params, name string, v Value) error {
	spec, ok := p.Kind().Param(name)
	num, enum := p.fields(name)
	if !ok || (num == nil && enum == nil) {
		return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParameter, p.Kind(), name)
	}
	if spec.IsEnum() {
		if !v.IsEnum() || !slices.Contains(spec.Choices, v.Enum) {
			return fmt.Errorf("%w: %s %s = %v, want one of %v", ErrInvalidValue, p.Kind(), name, v, spec.Choices)
		}
		*enum = v.Enum
		return nil
	}
	if v.IsEnum() || math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return fmt.Errorf("%w: %s %s = %v, want a number", ErrInvalidValue, p.Kind(), name, v)
	}
	*num = spec.clamp(v.Number)
	return nil
}

func (p *OscillatorParams) Kind() Kind { return Oscillator }
func (p *OscillatorParams) Get(name string) (Value, bool) { return getParam(p, name) }
func (p *OscillatorParams) Set(name string, v Value) error { return setParam(p, name, v) }
func (p *OscillatorParams) Copy() Params { c := *p; return &c }
func (p *OscillatorParams) fields(n string) (*float64, *string) {
	switch n {
	case "waveform":
		return nil, &p.Waveform
	case "frequency":
		return &p.Frequency, nil
	case "detune":
		return &p.Detune, nil
	}
	return nil, nil
}

func (p *FilterParams) Kind() Kind { return Filter }
func (p *FilterParams) Get(name string) (Value, bool) { return getParam(p, name) }
func (p *FilterParams) Set(name string, v Value) error { return setParam(p, name, v) }
func (p *FilterParams) Copy() Params { c := *p; return &c }
func (p *FilterParams) fields(n string) (*float64, *string) {
	switch n {
	case "type":
		return nil, &p.Type
	case "frequency":
		return &p.Frequency, nil
	case "q":
		return &p.Q, nil
	}
	return nil, nil
}

func (p *AmplifierParams) Kind() Kind { return Amplifier }
func (p *AmplifierParams) Get(name string) (Value, bool) { return getParam(p, name) }
func (p *AmplifierParams) Set(name string, v Value) error { return setParam(p, name, v) }
func (p *AmplifierParams) Copy() Params { c := *p; return &c }
func (p *AmplifierParams) fields(n string) (*float64, *string) {
	if n == "gain" {
		return &p.Gain, nil
	}
	return nil, nil
}

func (p *LFOParams) Kind() Kind { return LFO }
func (p *LFOParams) Get(name string) (Value, bool) { return getParam(p, name) }
func (p *LFOParams) Set(name string, v Value) error { return setParam(p, name, v) }
func (p *LFOParams) Copy() Params { c := *p; return &c }
func (p *LFOParams) fields(n string) (*float64, *string) {
	switch n {
	case "waveform":
		return nil, &p.Waveform
	case "frequency":
		return &p.Frequency, nil
	case "amplitude":
		return &p.Amplitude, nil
	case "modDepth":
		return &p.ModDepth, nil
	}
	return nil, nil
}

func (p *VoiceSourceParams) Kind() Kind { return VoiceSource }
func (p *VoiceSourceParams) Get(name string) (Value, bool) { return getParam(p, name) }
func (p *VoiceSourceParams) Set(name string, v Value) error { return setParam(p, name, v) }
func (p *VoiceSourceParams) Copy() Params { c := *p; return &c }
func (p *VoiceSourceParams) fields(n string) (*float64, *string) {
	switch n {
	case "waveform":
		return nil, &p.Waveform
	case "attack":
		return &p.Attack, nil
	case "release":
		return &p.Release, nil
	case "octave":
		return &p.Octave, nil
	}
	return nil, nil
}

func (p *OutputParams) Kind() Kind { return Output }
func (p *OutputParams) Get(name string) (Value, bool) { return getParam(p, name) }
func (p *OutputParams) Set(name string, v Value) error { return setParam(p, name, v) }
func (p *OutputParams) Copy() Params { c := *p; return &c }
func (p *OutputParams) fields(n string) (*float64, *string) {
	if n == "volume" {
		return &p.Volume, nil
	}
	return nil, nil
}

// ModDepth returns the modulation depth of a CV source: the LFO's modDepth,
// 1 for every other kind.
func ModDepth(p Params) float64 {
	if l, ok := p.(*LFOParams); ok {
		return l.ModDepth
	}
	return 1
}
