// Package gomidi feeds MIDI note messages to voice-source modules.
package gomidi

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vsariola/modsynth"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// NoteSink receives decoded notes. *engine.Engine is a NoteSink.
	NoteSink interface {
		NoteOn(id modsynth.ID, note int, velocity float64) error
		NoteOff(id modsynth.ID, note int) error
	}

	// Dispatcher decodes MIDI messages into note-on and note-off commands on
	// one voice-source module. Messages arriving from a driver goroutine are
	// queued by HandleMessage and applied by Run; when the queue is full,
	// messages are dropped.
	Dispatcher struct {
		sink    NoteSink
		target  modsynth.ID
		channel int
		events  chan midi.Message
		log     *slog.Logger
	}

	Option func(*Dispatcher)
)

const queueSize = 1024

// AllChannels makes a dispatcher accept notes on every channel.
const AllChannels = -1

// WithChannel restricts the dispatcher to one MIDI channel, 0..15.
func WithChannel(ch int) Option {
	return func(d *Dispatcher) { d.channel = ch }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func NewDispatcher(sink NoteSink, target modsynth.ID, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		target:  target,
		channel: AllChannels,
		events:  make(chan midi.Message, queueSize),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// HandleMessage queues a message; it has the signature of a midi.ListenTo
// callback and never blocks.
func (d *Dispatcher) HandleMessage(msg midi.Message, timestampms int32) {
	select {
	case d.events <- msg: // if the channel is full, just drop the message
	default:
		d.log.Warn("MIDI queue full, message dropped", "msg", msg.String())
	}
}

// Run applies queued messages until the context is done. Failing commands
// are logged, not returned, so that one bad message does not stop input.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.events:
			if err := d.Dispatch(msg); err != nil {
				d.log.Error("MIDI message", "msg", msg.String(), "err", err)
			}
		}
	}
}

// Dispatch decodes one message and applies it. A note-on with velocity 0 is
// a note-off. Messages other than notes, and notes on other channels, are
// ignored.
func (d *Dispatcher) Dispatch(msg midi.Message) error {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
		if !d.accepts(channel) {
			return nil
		}
		if err := d.sink.NoteOn(d.target, int(key), float64(velocity)/127); err != nil {
			return fmt.Errorf("MIDI note on %d: %w", key, err)
		}
	case msg.GetNoteOn(&channel, &key, &velocity) || msg.GetNoteOff(&channel, &key, &velocity):
		if !d.accepts(channel) {
			return nil
		}
		if err := d.sink.NoteOff(d.target, int(key)); err != nil {
			return fmt.Errorf("MIDI note off %d: %w", key, err)
		}
	}
	return nil
}

func (d *Dispatcher) accepts(channel uint8) bool {
	return d.channel == AllChannels || d.channel == int(channel)
}
