package modsynth

// Renderer produces mono audio samples, advancing its clock by the length of
// the buffer.
type Renderer interface {
	Render(buffer []float32)
}

// AudioDevice plays audio from a Renderer. It follows the runtime clock:
// Resume starts pulling samples and Suspend stops.
type AudioDevice interface {
	Resume() error
	Suspend() error
}
