package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/modsynth"
)

type (
	// Context plays a modsynth.Renderer on the default audio device. It
	// follows the state of the runtime it is attached to: Resume starts
	// pulling samples, Suspend pauses the player.
	Context struct {
		ctx    *oto.Context
		player *oto.Player
		mu     sync.Mutex
		reader *reader
	}

	reader struct {
		renderer modsynth.Renderer
		mono     []float32
	}
)

const channelCount = 2

var _ modsynth.AudioDevice = (*Context)(nil)

// NewContext opens the audio device. bufferSize is the latency of the
// device; zero picks the driver default.
func NewContext(sampleRate int, bufferSize time.Duration) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Attach sets the renderer the player pulls samples from. It must be called
// before the first Resume.
func (c *Context) Attach(r modsynth.Renderer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reader = &reader{renderer: r}
	c.player = c.ctx.NewPlayer(c.reader)
}

func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil {
		return fmt.Errorf("oto: no renderer attached")
	}
	if err := c.ctx.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	c.player.Play()
	return nil
}

func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		c.player.Pause()
	}
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Close disposes of the player. oto contexts cannot be closed; the device
// is released when the process exits.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil {
		return nil
	}
	err := c.player.Close()
	c.player = nil
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Read renders len(p)/8 stereo frames as interleaved float32 samples.
func (r *reader) Read(p []byte) (int, error) {
	frames := len(p) / (4 * channelCount)
	if cap(r.mono) < frames {
		r.mono = make([]float32, frames)
	}
	r.mono = r.mono[:frames]
	r.renderer.Render(r.mono)
	return MonoToStereoFloat32LE(r.mono, p), nil
}
