package vm

import (
	"math"

	"github.com/vsariola/modsynth"
)

type (
	// param is an automatable parameter of a unit. Its intrinsic value is
	// given by a timeline of events; the outputs of the modulator units are
	// added on top of it, sample by sample.
	param struct {
		value  float64 // value before the first pending event
		events []event // sorted by time
		mods   []modsynth.Unit
		block  []float32
	}

	// event either sets the value at time (ramp == false) or ends a linear
	// ramp that started at the previous event and reaches value at time.
	event struct {
		time  float64
		value float64
		ramp  bool
	}
)

func newParam(value float64) *param {
	return &param{value: value, block: make([]float32, quantumSize)}
}

func (p *param) setImmediate(v float64) {
	p.value = v
	p.events = p.events[:0]
}

// rampLinear schedules a ramp from "from" at start to "to" at
// start+duration, cancelling everything scheduled at or after start.
func (p *param) rampLinear(from, to, duration, start float64) {
	p.cancelFrom(start)
	p.events = append(p.events, event{time: start, value: from})
	if duration <= 0 {
		p.events = append(p.events, event{time: start, value: to})
		return
	}
	p.events = append(p.events, event{time: start + duration, value: to, ramp: true})
}

func (p *param) cancelFrom(t float64) {
	for i, e := range p.events {
		if e.time >= t {
			p.events = p.events[:i]
			return
		}
	}
}

// valueAt returns the intrinsic value at time t.
func (p *param) valueAt(t float64) float64 {
	v, prev := p.value, math.Inf(-1)
	for _, e := range p.events {
		if e.time <= t {
			v, prev = e.value, e.time
			continue
		}
		if e.ramp && !math.IsInf(prev, -1) {
			return v + (e.value-v)*(t-prev)/(e.time-prev)
		}
		break
	}
	return v
}

// prune drops the events that no longer affect values at or after t. The
// start event of a ramp still in progress is kept as its anchor.
func (p *param) prune(t float64) {
	n := 0
	for n < len(p.events) && p.events[n].time <= t {
		n++
	}
	if n == 0 {
		return
	}
	p.value = p.events[n-1].value
	if n < len(p.events) && p.events[n].ramp {
		n--
	}
	p.events = append(p.events[:0], p.events[n:]...)
}

func (p *param) addMod(u modsynth.Unit) bool {
	for _, m := range p.mods {
		if m == u {
			return false
		}
	}
	p.mods = append(p.mods, u)
	return true
}

func (p *param) removeMod(u modsynth.Unit) bool {
	for i, m := range p.mods {
		if m == u {
			p.mods = append(p.mods[:i], p.mods[i+1:]...)
			return true
		}
	}
	return false
}
