package vm

import (
	"maps"
	"slices"

	"github.com/vsariola/modsynth"
)

type (
	// UnitInfo is a read-only view of a unit, for tests and diagnostics.
	UnitInfo struct {
		Unit   modsynth.Unit
		Type   string // "oscillator", "filter", "gain" or "destination"
		Shape  string // waveform or filter type
		Inputs []modsynth.Unit
		Params map[string]ParamInfo
		// StartAt and StopAt are the scheduled start and stop times of an
		// oscillator, negative if not scheduled.
		StartAt, StopAt float64
	}

	ParamInfo struct {
		Value      float64 // automated value at the current time
		Pending    int     // automation events not yet in the past
		Modulators []modsynth.Unit
	}

	// Link is one runtime connection.
	Link struct {
		From modsynth.Unit
		To   modsynth.Input
	}
)

// Describe returns a view of the unit.
func (r *Runtime) Describe(id modsynth.Unit) (UnitInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[id]
	if !ok {
		return UnitInfo{}, false
	}
	return r.describe(id, u), true
}

func (r *Runtime) describe(id modsynth.Unit, u *unit) UnitInfo {
	now := r.now()
	ret := UnitInfo{
		Unit:    id,
		Type:    u.typ.String(),
		Shape:   u.shape,
		Inputs:  slices.Clone(u.inputs),
		Params:  make(map[string]ParamInfo, len(u.params)),
		StartAt: u.startAt,
		StopAt:  u.stopAt,
	}
	for name, p := range u.params {
		pending := 0
		for _, e := range p.events {
			if e.time > now {
				pending++
			}
		}
		ret.Params[name] = ParamInfo{Value: p.valueAt(now), Pending: pending, Modulators: slices.Clone(p.mods)}
	}
	return ret
}

// Units returns views of all live units, ordered by handle.
func (r *Runtime) Units() []UnitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]UnitInfo, 0, len(r.units))
	for _, id := range slices.Sorted(maps.Keys(r.units)) {
		ret = append(ret, r.describe(id, r.units[id]))
	}
	return ret
}

// Links returns all runtime connections, ordered by target.
func (r *Runtime) Links() []Link {
	var ret []Link
	for _, u := range r.Units() {
		for _, in := range u.Inputs {
			ret = append(ret, Link{From: in, To: modsynth.Input{Unit: u.Unit}})
		}
		for _, name := range slices.Sorted(maps.Keys(u.Params)) {
			for _, m := range u.Params[name].Modulators {
				ret = append(ret, Link{From: m, To: modsynth.Input{Unit: u.Unit, Param: name}})
			}
		}
	}
	return ret
}
