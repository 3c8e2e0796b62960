package modsynth

type (
	// ID identifies a module instance. It is stable for the lifetime of the
	// instance and is what connections and voices refer to; nothing holds a
	// direct reference to a module.
	ID string

	// Unit is an opaque handle to a primitive processing unit (oscillator,
	// filter, gain or the destination) created by a Runtime.
	Unit int

	// Input addresses the receiving end of a runtime link: either the audio
	// input of a unit (Param == "") or the automation input of one of its
	// parameters.
	Input struct {
		Unit  Unit
		Param string
	}

	// State is the playback state of a Runtime clock.
	State int

	// Runtime is the signal-processing runtime the engine drives. It owns
	// the sample clock and renders audio on its own execution context; the
	// engine only ever creates and wires units, writes parameter values and
	// places automation events on the runtime timeline. Times are in seconds
	// on the runtime clock, see Now.
	Runtime interface {
		CreateOscillator(waveform string, frequency, detune float64) (Unit, error)
		CreateFilter(filterType string, frequency, q float64) (Unit, error)
		CreateGain(value float64) (Unit, error)
		// Destination is the fixed sink unit. It cannot be released.
		Destination() Unit

		Connect(from Unit, to Input) error
		Disconnect(from Unit, to Input) error

		// SetImmediate writes a parameter value now, cancelling any
		// automation scheduled on it.
		SetImmediate(u Unit, param string, value float64) error
		// SetType changes the waveform of an oscillator or the response
		// type of a filter.
		SetType(u Unit, value string) error
		// RampLinear schedules the parameter to hold from at start and move
		// linearly to reach to at start+duration. Events scheduled at or
		// after start are cancelled.
		RampLinear(u Unit, param string, from, to, duration, start float64) error
		// Value returns the automated value of the parameter at Now(),
		// without modulation inputs.
		Value(u Unit, param string) (float64, error)

		// Start and Stop schedule an oscillator to begin and end sounding.
		Start(u Unit, at float64) error
		Stop(u Unit, at float64) error

		// Release destroys a unit, dropping every link that touches it.
		Release(u Unit) error

		Now() float64
		Resume() error
		Suspend() error
		Close() error
		State() State
	}
)

const (
	Suspended State = iota
	Running
	Closed
)

// AudioPort is the name of the generic audio input port, and OutputPort the
// name of the single audio output port.
const (
	AudioPort  = "input"
	OutputPort = "output"
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Closed:
		return "closed"
	}
	return "unknown"
}
