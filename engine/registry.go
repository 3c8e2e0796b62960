package engine

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/vsariola/modsynth"
)

type (
	// module is the live state of one module instance: its logical
	// parameters and the runtime units realizing it.
	module struct {
		id     modsynth.ID
		kind   modsynth.Kind
		params modsynth.Params
		units  []modsynth.Unit // every unit owned, released on destroy
		in     modsynth.Unit   // receives audio input, if the kind has one
		out    modsynth.Unit   // produces audio output, if the kind has one
	}

	// target is where a parameter of a module lands in the runtime. A
	// parameter with no unit (e.g. modDepth or attack) is purely logical.
	target struct {
		unit  modsynth.Unit
		param string // "" for the waveform or filter type set with SetType
		ok    bool
	}

	// ModuleInfo is a read-only snapshot of a module.
	ModuleInfo struct {
		ID     modsynth.ID
		Kind   modsynth.Kind
		Params modsynth.Params
		Ports  []string // target ports accepted by Connect
	}
)

// target resolves the runtime location of a parameter.
func (m *module) target(name string) target {
	first := func(param string) target { return target{unit: m.units[0], param: param, ok: true} }
	switch m.kind {
	case modsynth.Oscillator:
		switch name {
		case "waveform":
			return first("")
		case "frequency", "detune":
			return first(name)
		}
	case modsynth.Filter:
		switch name {
		case "type":
			return first("")
		case "frequency", "q":
			return first(name)
		}
	case modsynth.LFO:
		switch name {
		case "waveform":
			return first("")
		case "frequency":
			return first("frequency")
		case "amplitude":
			return target{unit: m.out, param: "gain", ok: true}
		}
	case modsynth.Amplifier:
		if name == "gain" {
			return first("gain")
		}
	case modsynth.Output:
		if name == "volume" {
			return first("gain")
		}
	}
	return target{}
}

func (m *module) info() ModuleInfo {
	return ModuleInfo{ID: m.id, Kind: m.kind, Params: m.params.Copy(), Ports: m.kind.InputPorts()}
}

func (m *module) number(name string) float64 {
	v, _ := m.params.Get(name)
	return v.Number
}

func (m *module) enum(name string) string {
	v, _ := m.params.Get(name)
	return v.Enum
}

// newID generates an id of the form <kind><n> not used by any module.
func (e *Engine) newID(kind modsynth.Kind) modsynth.ID {
	for {
		e.counters[kind]++
		id := modsynth.ID(string(kind) + strconv.Itoa(e.counters[kind]))
		if _, ok := e.modules[id]; !ok {
			return id
		}
	}
}

// createModule allocates the logical state of a module and instantiates the
// runtime units for it. If the runtime fails midway, the units created so
// far are released.
func (e *Engine) createModule(id modsynth.ID, kind modsynth.Kind, changes []modsynth.ParamChange) (m *module, err error) {
	kind, err = modsynth.ParseKind(string(kind))
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = e.newID(kind)
	} else if _, ok := e.modules[id]; ok {
		return nil, fmt.Errorf("%w: %q", modsynth.ErrDuplicateModule, id)
	}
	params, err := modsynth.NewParams(kind)
	if err != nil {
		return nil, err
	}
	if params, err = modsynth.Apply(params, changes...); err != nil {
		return nil, fmt.Errorf("module %q: %w", id, err)
	}
	m = &module{id: id, kind: kind, params: params}
	defer func() {
		if err != nil {
			e.releaseUnits(m)
			m = nil
		}
	}()
	newGain := func(v float64) (modsynth.Unit, error) {
		u, err := e.rt.CreateGain(v)
		if err == nil {
			m.units = append(m.units, u)
		}
		return u, err
	}
	newOsc := func(freq, detune float64) (modsynth.Unit, error) {
		u, err := e.rt.CreateOscillator(m.enum("waveform"), freq, detune)
		if err != nil {
			return u, err
		}
		m.units = append(m.units, u)
		return u, e.rt.Start(u, e.rt.Now())
	}
	switch kind {
	case modsynth.Oscillator:
		m.out, err = newOsc(m.number("frequency"), m.number("detune"))
	case modsynth.Filter:
		m.in, err = e.rt.CreateFilter(m.enum("type"), m.number("frequency"), m.number("q"))
		if err == nil {
			m.units = append(m.units, m.in)
			m.out = m.in
		}
	case modsynth.Amplifier:
		m.in, err = newGain(m.number("gain"))
		m.out = m.in
	case modsynth.LFO:
		var osc modsynth.Unit
		if osc, err = newOsc(m.number("frequency"), 0); err != nil {
			break
		}
		if m.out, err = newGain(m.number("amplitude")); err != nil {
			break
		}
		err = e.rt.Connect(osc, modsynth.Input{Unit: m.out})
	case modsynth.VoiceSource:
		m.out, err = newGain(1)
	case modsynth.Output:
		if m.in, err = newGain(m.number("volume")); err != nil {
			break
		}
		err = e.rt.Connect(m.in, modsynth.Input{Unit: e.rt.Destination()})
	}
	if err != nil {
		return m, fmt.Errorf("create %s %q: %w", kind, id, err)
	}
	e.modules[id] = m
	e.order = append(e.order, id)
	return m, nil
}

// updateModule merges the changes into the logical state and pushes only
// the changed fields to the runtime, rescaling the outgoing CV edges if the
// modulation depth changed. The new state is committed only once the
// runtime has taken all of it; on failure the fields already pushed are
// pushed back.
func (e *Engine) updateModule(m *module, changes []modsynth.ParamChange) error {
	params, err := modsynth.Apply(m.params, changes...)
	if err != nil {
		return fmt.Errorf("update %q: %w", m.id, err)
	}
	old := m.params
	var pushed []string
	undo := func() {
		for _, name := range slices.Backward(pushed) {
			v, _ := old.Get(name)
			if err := e.push(m, name, v); err != nil {
				e.log.Warn("restoring parameter", "id", m.id, "param", name, "err", err)
			}
		}
	}
	for _, name := range modsynth.Names(params) {
		before, _ := old.Get(name)
		after, _ := params.Get(name)
		if before == after {
			continue
		}
		if err := e.push(m, name, after); err != nil {
			undo()
			return fmt.Errorf("update %q %s: %w", m.id, name, err)
		}
		pushed = append(pushed, name)
	}
	if depth := modsynth.ModDepth(params); depth != modsynth.ModDepth(old) {
		if err := e.rescale(m.id, depth); err != nil {
			if err := e.rescale(m.id, modsynth.ModDepth(old)); err != nil {
				e.log.Warn("restoring modulation depth", "id", m.id, "err", err)
			}
			undo()
			return fmt.Errorf("update %q: %w", m.id, err)
		}
	}
	m.params = params
	return nil
}

// push sets one parameter of the module in the runtime. Parameters with no
// runtime target are a no-op.
func (e *Engine) push(m *module, name string, v modsynth.Value) error {
	t := m.target(name)
	switch {
	case !t.ok:
		return nil
	case t.param == "":
		return e.rt.SetType(t.unit, v.Enum)
	}
	return e.rt.SetImmediate(t.unit, t.param, v.Number)
}

// releaseUnits releases every runtime unit the module owns.
func (e *Engine) releaseUnits(m *module) error {
	var errs []error
	for _, u := range m.units {
		if err := e.rt.Release(u); err != nil {
			errs = append(errs, err)
		}
	}
	m.units = nil
	return errors.Join(errs...)
}

// destroyModule drops every edge touching the module, force-stops its
// voices and releases its units.
func (e *Engine) destroyModule(m *module) error {
	errs := []error{e.dropEdges(m.id), e.stopVoices(m.id), e.releaseUnits(m)}
	delete(e.modules, m.id)
	for i, id := range e.order {
		if id == m.id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("destroy %q: %w", m.id, err)
	}
	return nil
}

func (e *Engine) module(id modsynth.ID) (*module, error) {
	m, ok := e.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", modsynth.ErrUnknownModule, id)
	}
	return m, nil
}
