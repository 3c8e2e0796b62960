package vm

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/modsynth"
)

type unitType int

const (
	oscillatorUnit unitType = iota
	filterUnit
	gainUnit
	destinationUnit
)

var unitTypeNames = [...]string{"oscillator", "filter", "gain", "destination"}

func (t unitType) String() string { return unitTypeNames[t] }

// filterBlock is how many samples share one set of filter coefficients when
// the cutoff or resonance is automated.
const filterBlock = 32

type unit struct {
	typ    unitType
	shape  string // waveform of an oscillator, response type of a filter
	params map[string]*param
	inputs []modsynth.Unit

	in, out []float32
	quantum int64 // the quantum out was rendered for
	busy    bool  // being rendered; a pull now means a cycle in the graph

	// oscillator
	phase   float64
	startAt float64 // < 0: not started
	stopAt  float64 // < 0: not stopped

	// filter
	section    biquad
	designedAt [2]float64 // frequency and q the coefficients were designed for
}

func newUnit(typ unitType, shape string, params map[string]float64) *unit {
	u := &unit{
		typ:     typ,
		shape:   shape,
		params:  make(map[string]*param, len(params)),
		in:      make([]float32, quantumSize),
		out:     make([]float32, quantumSize),
		quantum: -1,
		startAt: -1,
		stopAt:  -1,
	}
	for k, v := range params {
		u.params[k] = newParam(v)
	}
	return u
}

func (u *unit) addInput(src modsynth.Unit) bool {
	for _, i := range u.inputs {
		if i == src {
			return false
		}
	}
	u.inputs = append(u.inputs, src)
	return true
}

func (u *unit) removeInput(src modsynth.Unit) bool {
	for i, s := range u.inputs {
		if s == src {
			u.inputs = append(u.inputs[:i], u.inputs[i+1:]...)
			return true
		}
	}
	return false
}

// pull renders unit id for the current quantum, n samples starting at time
// t0, and returns its output. Every unit is rendered at most once per
// quantum; cycles are broken by returning the previous quantum's output.
func (r *Runtime) pull(id modsynth.Unit, n int, t0 float64) []float32 {
	u, ok := r.units[id]
	if !ok {
		return vek32.Zeros_Into(r.silence, n)
	}
	if u.quantum == r.quantum || u.busy {
		return u.out[:n]
	}
	u.busy = true
	defer func() {
		u.busy = false
		u.quantum = r.quantum
	}()
	in := vek32.Zeros_Into(u.in, n)
	for _, src := range u.inputs {
		vek32.Add_Inplace(in, r.pull(src, n, t0))
	}
	out := u.out[:n]
	switch u.typ {
	case oscillatorUnit:
		r.renderOscillator(u, out, t0)
	case filterUnit:
		r.renderFilter(u, in, out, t0)
	case gainUnit:
		vek32.Mul_Into(out, in, r.paramBlock(u, "gain", n, t0))
	case destinationUnit:
		copy(out, in)
	}
	return out
}

// paramBlock computes the per-sample values of a parameter for the quantum:
// the automation timeline plus the sum of the modulator outputs.
func (r *Runtime) paramBlock(u *unit, name string, n int, t0 float64) []float32 {
	p := u.params[name]
	p.prune(t0)
	b := p.block[:n]
	if len(p.events) == 0 {
		vek32.Repeat_Into(b, float32(p.value), n)
	} else {
		for i := range b {
			b[i] = float32(p.valueAt(t0 + float64(i)/r.sampleRate))
		}
	}
	for _, m := range p.mods {
		vek32.Add_Inplace(b, r.pull(m, n, t0))
	}
	return b
}

func (r *Runtime) renderOscillator(u *unit, out []float32, t0 float64) {
	n := len(out)
	freq := r.paramBlock(u, "frequency", n, t0)
	detune := r.paramBlock(u, "detune", n, t0)
	for i := range out {
		t := t0 + float64(i)/r.sampleRate
		if u.startAt < 0 || t < u.startAt || (u.stopAt >= 0 && t >= u.stopAt) {
			out[i] = 0
			continue
		}
		out[i] = float32(waveform(u.shape, u.phase))
		f := float64(freq[i]) * math.Exp2(float64(detune[i])/1200)
		u.phase += f / r.sampleRate
		u.phase -= math.Floor(u.phase)
	}
}

func waveform(shape string, phase float64) float64 {
	switch shape {
	case "square":
		if phase < 0.5 {
			return 1
		}
		return -1
	case "sawtooth":
		return 2*phase - 1
	case "triangle":
		return 4*math.Abs(phase-0.5) - 1
	}
	return math.Sin(2 * math.Pi * phase)
}

func (r *Runtime) renderFilter(u *unit, in, out []float32, t0 float64) {
	n := len(out)
	freq := r.paramBlock(u, "frequency", n, t0)
	q := r.paramBlock(u, "q", n, t0)
	for i := range out {
		if i%filterBlock == 0 {
			r.designFilter(u, float64(freq[i]), float64(q[i]))
		}
		out[i] = float32(u.section.process(float64(in[i])))
	}
}

// designFilter updates the coefficients of the filter section, keeping its
// state so that automation does not click.
func (r *Runtime) designFilter(u *unit, freq, q float64) {
	freq = math.Min(math.Max(freq, 10), 0.45*r.sampleRate)
	q = math.Max(q, 1e-4)
	if u.designedAt == [2]float64{freq, q} {
		return
	}
	u.designedAt = [2]float64{freq, q}
	u.section.design(u.shape, freq, q, r.sampleRate)
}
