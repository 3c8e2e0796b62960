package vm

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vsariola/modsynth"
)

type (
	// Runtime is a pure-Go implementation of modsynth.Runtime. It keeps a
	// graph of primitive units and renders it by pulling samples from the
	// destination, one quantum at a time. The clock only advances while the
	// runtime is running and something calls Render; Render is typically
	// called from the audio device's goroutine while the engine mutates the
	// graph from its own, so every method takes the runtime lock.
	Runtime struct {
		mu         sync.Mutex
		sampleRate float64
		state      modsynth.State
		frame      int64
		quantum    int64
		units      map[modsynth.Unit]*unit
		next       modsynth.Unit
		dest       modsynth.Unit
		silence    []float32
		device     modsynth.AudioDevice
	}

	Option func(*Runtime)
)

// quantumSize is the number of samples rendered in one pass over the graph.
// Automation is evaluated per sample but graph changes take effect at quantum
// boundaries.
const quantumSize = 128

const DefaultSampleRate = 44100

var (
	_ modsynth.Runtime  = (*Runtime)(nil)
	_ modsynth.Renderer = (*Runtime)(nil)
)

var (
	ErrUnknownUnit  = errors.New("unknown unit")
	ErrUnknownParam = errors.New("unit has no such parameter")
	ErrNotConnected = errors.New("units are not connected")
	ErrUnsupported  = errors.New("operation not supported by unit")
)

// WithDevice makes the runtime resume and suspend the device together with
// its own clock.
func WithDevice(d modsynth.AudioDevice) Option {
	return func(r *Runtime) { r.device = d }
}

// New creates a runtime with the given sample rate. The runtime starts
// suspended.
func New(sampleRate int, opts ...Option) *Runtime {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	r := &Runtime{
		sampleRate: float64(sampleRate),
		state:      modsynth.Suspended,
		units:      make(map[modsynth.Unit]*unit),
		silence:    make([]float32, quantumSize),
	}
	for _, o := range opts {
		o(r)
	}
	r.dest = r.add(newUnit(destinationUnit, "", nil))
	return r
}

func (r *Runtime) SampleRate() int { return int(r.sampleRate) }

func (r *Runtime) add(u *unit) modsynth.Unit {
	r.next++
	r.units[r.next] = u
	return r.next
}

func (r *Runtime) CreateOscillator(waveform string, frequency, detune float64) (modsynth.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == modsynth.Closed {
		return 0, modsynth.ErrRuntimeUnavailable
	}
	if !slices.Contains(modsynth.Waveforms, waveform) {
		return 0, fmt.Errorf("vm: oscillator waveform %q: %w", waveform, ErrUnsupported)
	}
	return r.add(newUnit(oscillatorUnit, waveform, map[string]float64{"frequency": frequency, "detune": detune})), nil
}

func (r *Runtime) CreateFilter(filterType string, frequency, q float64) (modsynth.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == modsynth.Closed {
		return 0, modsynth.ErrRuntimeUnavailable
	}
	if !slices.Contains(modsynth.FilterTypes, filterType) {
		return 0, fmt.Errorf("vm: filter type %q: %w", filterType, ErrUnsupported)
	}
	return r.add(newUnit(filterUnit, filterType, map[string]float64{"frequency": frequency, "q": q})), nil
}

func (r *Runtime) CreateGain(value float64) (modsynth.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == modsynth.Closed {
		return 0, modsynth.ErrRuntimeUnavailable
	}
	return r.add(newUnit(gainUnit, "", map[string]float64{"gain": value})), nil
}

func (r *Runtime) Destination() modsynth.Unit { return r.dest }

// lookup returns the unit, or an error if the runtime is closed or the unit
// does not exist. Must be called with the lock held.
func (r *Runtime) lookup(id modsynth.Unit) (*unit, error) {
	if r.state == modsynth.Closed {
		return nil, modsynth.ErrRuntimeUnavailable
	}
	u, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("vm: unit %d: %w", id, ErrUnknownUnit)
	}
	return u, nil
}

func (r *Runtime) lookupParam(id modsynth.Unit, name string) (*param, error) {
	u, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	p, ok := u.params[name]
	if !ok {
		return nil, fmt.Errorf("vm: %v unit %d parameter %q: %w", u.typ, id, name, ErrUnknownParam)
	}
	return p, nil
}

func (r *Runtime) Connect(from modsynth.Unit, to modsynth.Input) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.lookup(from); err != nil {
		return err
	}
	if to.Param != "" {
		p, err := r.lookupParam(to.Unit, to.Param)
		if err != nil {
			return err
		}
		p.addMod(from)
		return nil
	}
	u, err := r.lookup(to.Unit)
	if err != nil {
		return err
	}
	u.addInput(from)
	return nil
}

func (r *Runtime) Disconnect(from modsynth.Unit, to modsynth.Input) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed bool
	if to.Param != "" {
		p, err := r.lookupParam(to.Unit, to.Param)
		if err != nil {
			return err
		}
		removed = p.removeMod(from)
	} else {
		u, err := r.lookup(to.Unit)
		if err != nil {
			return err
		}
		removed = u.removeInput(from)
	}
	if !removed {
		return fmt.Errorf("vm: %d -> %d %q: %w", from, to.Unit, to.Param, ErrNotConnected)
	}
	return nil
}

func (r *Runtime) SetImmediate(u modsynth.Unit, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookupParam(u, name)
	if err != nil {
		return err
	}
	p.setImmediate(value)
	return nil
}

func (r *Runtime) SetType(id modsynth.Unit, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.lookup(id)
	if err != nil {
		return err
	}
	var choices []string
	switch u.typ {
	case oscillatorUnit:
		choices = modsynth.Waveforms
	case filterUnit:
		choices = modsynth.FilterTypes
	}
	if !slices.Contains(choices, value) {
		return fmt.Errorf("vm: %v unit %d type %q: %w", u.typ, id, value, ErrUnsupported)
	}
	u.shape = value
	u.designedAt = [2]float64{}
	return nil
}

func (r *Runtime) RampLinear(u modsynth.Unit, name string, from, to, duration, start float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookupParam(u, name)
	if err != nil {
		return err
	}
	p.rampLinear(from, to, duration, start)
	return nil
}

func (r *Runtime) Value(u modsynth.Unit, name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookupParam(u, name)
	if err != nil {
		return 0, err
	}
	return p.valueAt(r.now()), nil
}

func (r *Runtime) Start(id modsynth.Unit, at float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.lookup(id)
	if err != nil {
		return err
	}
	if u.typ != oscillatorUnit {
		return fmt.Errorf("vm: start %v unit %d: %w", u.typ, id, ErrUnsupported)
	}
	if u.startAt < 0 {
		u.startAt = at
	}
	return nil
}

func (r *Runtime) Stop(id modsynth.Unit, at float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.lookup(id)
	if err != nil {
		return err
	}
	if u.typ != oscillatorUnit {
		return fmt.Errorf("vm: stop %v unit %d: %w", u.typ, id, ErrUnsupported)
	}
	u.stopAt = at
	return nil
}

func (r *Runtime) Release(id modsynth.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.lookup(id); err != nil {
		return err
	}
	if id == r.dest {
		return fmt.Errorf("vm: release destination: %w", ErrUnsupported)
	}
	delete(r.units, id)
	for _, u := range r.units {
		u.removeInput(id)
		for _, p := range u.params {
			p.removeMod(id)
		}
	}
	return nil
}

func (r *Runtime) Now() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now()
}

func (r *Runtime) now() float64 {
	return float64(r.frame) / r.sampleRate
}

// Resume starts the clock. The device, if any, is resumed without holding
// the runtime lock, as it may pull samples synchronously.
func (r *Runtime) Resume() error {
	r.mu.Lock()
	switch r.state {
	case modsynth.Closed:
		r.mu.Unlock()
		return modsynth.ErrRuntimeUnavailable
	case modsynth.Running:
		r.mu.Unlock()
		return nil
	}
	r.state = modsynth.Running
	r.mu.Unlock()
	if r.device != nil {
		if err := r.device.Resume(); err != nil {
			r.setState(modsynth.Running, modsynth.Suspended)
			return fmt.Errorf("vm: resume device: %w", err)
		}
	}
	return nil
}

func (r *Runtime) Suspend() error {
	r.mu.Lock()
	switch r.state {
	case modsynth.Closed:
		r.mu.Unlock()
		return modsynth.ErrRuntimeUnavailable
	case modsynth.Suspended:
		r.mu.Unlock()
		return nil
	}
	r.state = modsynth.Suspended
	r.mu.Unlock()
	if r.device != nil {
		if err := r.device.Suspend(); err != nil {
			return fmt.Errorf("vm: suspend device: %w", err)
		}
	}
	return nil
}

// setState changes the state from one to another, unless something else
// changed it in between.
func (r *Runtime) setState(from, to modsynth.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == from {
		r.state = to
	}
}

// Close releases every unit. Closing twice is a no-op.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.state == modsynth.Closed {
		r.mu.Unlock()
		return nil
	}
	running := r.state == modsynth.Running
	r.state = modsynth.Closed
	clear(r.units)
	r.mu.Unlock()
	if running && r.device != nil {
		if err := r.device.Suspend(); err != nil {
			return fmt.Errorf("vm: suspend device: %w", err)
		}
	}
	return nil
}

func (r *Runtime) State() modsynth.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Render fills buffer with mono samples from the destination and advances
// the clock by len(buffer) samples. While the runtime is not running, the
// buffer is filled with silence and the clock stands still.
func (r *Runtime) Render(buffer []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != modsynth.Running {
		clear(buffer)
		return
	}
	for len(buffer) > 0 {
		n := min(len(buffer), quantumSize)
		r.quantum++
		copy(buffer, r.pull(r.dest, n, r.now()))
		r.frame += int64(n)
		buffer = buffer[n:]
	}
}
