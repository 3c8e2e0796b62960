package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vsariola/modsynth"
)

type (
	VoiceState int

	// voice is one sounding note of a voice-source module: an oscillator
	// feeding an envelope gain, which feeds the summing unit of the module.
	voice struct {
		note      int
		velocity  float64
		startedAt float64
		attackEnd float64
		releasing bool
		removeAt  float64
		osc, env  modsynth.Unit
	}

	// VoiceInfo is a read-only snapshot of a voice.
	VoiceInfo struct {
		Note      int
		Velocity  float64
		StartedAt float64
		State     VoiceState
	}
)

const (
	Attacking VoiceState = iota
	Sustaining
	Releasing
)

func (s VoiceState) String() string {
	switch s {
	case Attacking:
		return "attacking"
	case Sustaining:
		return "sustaining"
	case Releasing:
		return "releasing"
	}
	return fmt.Sprintf("VoiceState(%d)", int(s))
}

func (v *voice) state(now float64) VoiceState {
	switch {
	case v.releasing:
		return Releasing
	case now < v.attackEnd:
		return Attacking
	}
	return Sustaining
}

func (v *voice) info(now float64) VoiceInfo {
	return VoiceInfo{Note: v.note, Velocity: v.velocity, StartedAt: v.startedAt, State: v.state(now)}
}

// noteOn starts a voice for the note. The note is a MIDI note number and
// sounds at its own pitch; octave is a hint for keyboard hosts. A note
// already sounding, even if releasing, is left alone.
func (e *Engine) noteOn(id modsynth.ID, note int, velocity float64) error {
	if _, ok := e.voices[id][note]; ok {
		return nil
	}
	m, err := e.module(id)
	if err != nil {
		return fmt.Errorf("note on %d: %w", note, err)
	}
	p, ok := m.params.(*modsynth.VoiceSourceParams)
	if !ok {
		return fmt.Errorf("note on %d: %w: %q is %s, not %s", note, modsynth.ErrKindMismatch, id, m.kind, modsynth.VoiceSource)
	}
	velocity = min(max(velocity, 0), 1)
	freq := modsynth.NoteFrequency(note)
	v := &voice{note: note, velocity: velocity}
	if v.osc, err = e.rt.CreateOscillator(p.Waveform, freq, 0); err != nil {
		return fmt.Errorf("note on %d: %w", note, err)
	}
	if v.env, err = e.rt.CreateGain(0); err != nil {
		e.rt.Release(v.osc)
		return fmt.Errorf("note on %d: %w", note, err)
	}
	now := e.rt.Now()
	v.startedAt, v.attackEnd = now, now+p.Attack
	err = errors.Join(
		e.rt.Connect(v.osc, modsynth.Input{Unit: v.env}),
		e.rt.Connect(v.env, modsynth.Input{Unit: m.out}),
		e.rt.Start(v.osc, now),
		e.rt.RampLinear(v.env, "gain", 0, velocity, p.Attack, now),
	)
	if err != nil {
		e.releaseVoice(v)
		return fmt.Errorf("note on %d: %w", note, err)
	}
	if e.voices[id] == nil {
		e.voices[id] = make(map[int]*voice)
	}
	e.voices[id][note] = v
	return nil
}

// noteOff ramps the envelope of the voice down from its current value and
// schedules the oscillator to stop once the ramp is over. The voice stays
// listed until the sweep after its tail.
func (e *Engine) noteOff(id modsynth.ID, note int) error {
	v, ok := e.voices[id][note]
	if !ok || v.releasing {
		return nil
	}
	p := e.modules[id].params.(*modsynth.VoiceSourceParams)
	now := e.rt.Now()
	cur, err := e.rt.Value(v.env, "gain")
	if err != nil {
		return fmt.Errorf("note off %d: %w", note, err)
	}
	err = errors.Join(
		e.rt.RampLinear(v.env, "gain", cur, 0, p.Release, now),
		e.rt.Stop(v.osc, now+p.Release+e.guard),
	)
	if err != nil {
		return fmt.Errorf("note off %d: %w", note, err)
	}
	v.releasing, v.removeAt = true, now+p.Release+2*e.guard
	return nil
}

// sweep removes the voices whose release tail is over.
func (e *Engine) sweep() {
	now := e.rt.Now()
	for id, vs := range e.voices {
		for note, v := range vs {
			if !v.releasing || now < v.removeAt {
				continue
			}
			if err := e.releaseVoice(v); err != nil {
				e.log.Warn("releasing voice", "module", id, "note", note, "err", err)
			}
			delete(vs, note)
			e.log.Debug("voice done", "module", id, "note", note)
		}
		if len(vs) == 0 {
			delete(e.voices, id)
		}
	}
}

// stopVoices force-stops and removes every voice of the module, with no
// release tail.
func (e *Engine) stopVoices(id modsynth.ID) error {
	var errs []error
	for _, v := range e.voices[id] {
		errs = append(errs, e.releaseVoice(v))
	}
	delete(e.voices, id)
	return errors.Join(errs...)
}

func (e *Engine) releaseVoice(v *voice) error {
	return errors.Join(e.rt.Release(v.osc), e.rt.Release(v.env))
}

func (e *Engine) voiceInfos(id modsynth.ID) []VoiceInfo {
	vs := e.voices[id]
	now := e.rt.Now()
	ret := make([]VoiceInfo, 0, len(vs))
	for _, note := range slices.Sorted(maps.Keys(vs)) {
		ret = append(ret, vs[note].info(now))
	}
	return ret
}
