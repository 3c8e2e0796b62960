// Package engine owns a modular synthesizer graph: the module instances, the
// connections between their ports and the voices of the voice sources, and
// keeps a modsynth.Runtime in sync with them.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/vsariola/modsynth"
)

type (
	// Engine is the single entry point for editing and playing a graph.
	// Every method holds the engine lock for its whole duration, so each
	// command completes, runtime calls included, before the next begins.
	Engine struct {
		mu       sync.Mutex
		rt       modsynth.Runtime
		log      *slog.Logger
		guard    float64
		modules  map[modsynth.ID]*module
		order    []modsynth.ID // creation order
		counters map[modsynth.Kind]int
		edges    []*edge
		voices   map[modsynth.ID]map[int]*voice
		closed   bool
	}

	Option func(*Engine)
)

// DefaultGuard is the guard band, in seconds, between the end of a release
// ramp and the stop of the oscillator.
const DefaultGuard = 0.01

// WithLogger sets the logger the engine reports its commands to, at debug
// level. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithGuard sets the release guard band in seconds.
func WithGuard(seconds float64) Option {
	return func(e *Engine) { e.guard = max(seconds, 0) }
}

// New creates an engine driving the runtime.
func New(rt modsynth.Runtime, opts ...Option) (*Engine, error) {
	if rt == nil || rt.State() == modsynth.Closed {
		return nil, modsynth.ErrRuntimeUnavailable
	}
	e := &Engine{
		rt:       rt,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		guard:    DefaultGuard,
		modules:  make(map[modsynth.ID]*module),
		counters: make(map[modsynth.Kind]int),
		voices:   make(map[modsynth.ID]map[int]*voice),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// lock acquires the engine lock and sweeps finished voices. It fails if the
// engine has been torn down.
func (e *Engine) lock() error {
	e.mu.Lock()
	if e.closed || e.rt.State() == modsynth.Closed {
		e.mu.Unlock()
		return modsynth.ErrRuntimeUnavailable
	}
	e.sweep()
	return nil
}

// Start resumes the runtime clock. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.start()
}

func (e *Engine) start() error {
	if e.rt.State() == modsynth.Running {
		return nil
	}
	if err := e.rt.Resume(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	e.log.Debug("started")
	return nil
}

// Stop suspends the runtime clock. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	if e.rt.State() != modsynth.Running {
		return nil
	}
	if err := e.rt.Suspend(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	e.log.Debug("stopped")
	return nil
}

// State returns the state of the runtime clock.
func (e *Engine) State() modsynth.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return modsynth.Closed
	}
	return e.rt.State()
}

// CreateModule adds a module of the kind with default parameters, then
// applies the changes. An empty id is replaced by a generated one of the
// form <kind><n>. It returns the id of the new module.
func (e *Engine) CreateModule(id modsynth.ID, kind modsynth.Kind, changes ...modsynth.ParamChange) (modsynth.ID, error) {
	if err := e.lock(); err != nil {
		return "", err
	}
	defer e.mu.Unlock()
	m, err := e.createModule(id, kind, changes)
	if err != nil {
		return "", err
	}
	e.log.Debug("module created", "id", m.id, "kind", m.kind)
	return m.id, nil
}

// UpdateModule merges the changes into the parameters of the module. The
// changes are applied as a whole: if any is invalid or the runtime rejects
// one, nothing changes.
func (e *Engine) UpdateModule(id modsynth.ID, changes ...modsynth.ParamChange) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	m, err := e.module(id)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := e.updateModule(m, changes); err != nil {
		return err
	}
	e.log.Debug("module updated", "id", id, "changes", len(changes))
	return nil
}

// DestroyModule removes the module together with its connections and
// voices.
func (e *Engine) DestroyModule(id modsynth.ID) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	m, err := e.module(id)
	if err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	if err := e.destroyModule(m); err != nil {
		return err
	}
	e.log.Debug("module destroyed", "id", id)
	return nil
}

// Connect adds a connection and resumes the runtime if it is suspended.
// Empty ports default to "output" and "input".
func (e *Engine) Connect(c modsynth.Connection) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	if err := e.connect(c); err != nil {
		return err
	}
	e.log.Debug("connected", "connection", c.String())
	return e.start()
}

// Disconnect removes a connection. Disconnecting something that is not
// connected is a no-op.
func (e *Engine) Disconnect(c modsynth.Connection) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	if err := e.disconnect(c); err != nil {
		return err
	}
	e.log.Debug("disconnected", "connection", c.String())
	return nil
}

// NoteOn starts a note on a voice-source module, resuming the runtime first.
// Velocity is clamped to 0..1.
func (e *Engine) NoteOn(id modsynth.ID, note int, velocity float64) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	if err := e.start(); err != nil {
		return err
	}
	if err := e.noteOn(id, note, velocity); err != nil {
		return err
	}
	e.log.Debug("note on", "id", id, "note", note, "velocity", velocity)
	return nil
}

// NoteOff releases a note on a voice-source module.
func (e *Engine) NoteOff(id modsynth.ID, note int) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	if err := e.start(); err != nil {
		return err
	}
	if err := e.noteOff(id, note); err != nil {
		return err
	}
	e.log.Debug("note off", "id", id, "note", note)
	return nil
}

// Sweep removes the voices whose release has completed. Every command does
// this too; hosts that only read snapshots may call it periodically.
func (e *Engine) Sweep() {
	if e.lock() != nil {
		return
	}
	e.mu.Unlock()
}

// Load creates the modules and then the connections of the patch. If any
// of them fails, everything the call created is removed again and the
// engine is left as it was.
func (e *Engine) Load(p modsynth.Patch) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	counters, edges := maps.Clone(e.counters), len(e.edges)
	var created []*module
	err := func() error {
		for _, s := range p.Modules {
			m, err := e.createModule(s.ID, s.Kind, s.Changes())
			if err != nil {
				return err
			}
			created = append(created, m)
		}
		for _, c := range p.Connections {
			if err := e.connect(c); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		e.unload(edges, created)
		e.counters = counters
		return fmt.Errorf("load: %w", err)
	}
	e.log.Debug("patch loaded", "modules", len(p.Modules), "connections", len(p.Connections))
	if len(p.Connections) > 0 {
		return e.start()
	}
	return nil
}

// unload undoes a partial Load: the edges added after the first n and the
// created modules, newest first.
func (e *Engine) unload(n int, created []*module) {
	for len(e.edges) > n {
		d := e.edges[len(e.edges)-1]
		e.edges = e.edges[:len(e.edges)-1]
		if err := e.unwire(d); err != nil {
			e.log.Warn("undoing load", "connection", d.conn.String(), "err", err)
		}
	}
	for _, m := range slices.Backward(created) {
		if err := e.destroyModule(m); err != nil {
			e.log.Warn("undoing load", "id", m.id, "err", err)
		}
	}
}

// Module returns a snapshot of the module, or false if it does not exist.
func (e *Engine) Module(id modsynth.ID) (ModuleInfo, bool) {
	if e.lock() != nil {
		return ModuleInfo{}, false
	}
	defer e.mu.Unlock()
	m, ok := e.modules[id]
	if !ok {
		return ModuleInfo{}, false
	}
	return m.info(), true
}

// Modules returns snapshots of all modules in creation order.
func (e *Engine) Modules() []ModuleInfo {
	if e.lock() != nil {
		return nil
	}
	defer e.mu.Unlock()
	ret := make([]ModuleInfo, len(e.order))
	for i, id := range e.order {
		ret[i] = e.modules[id].info()
	}
	return ret
}

// Connections returns all connections in the order they were made.
func (e *Engine) Connections() []modsynth.Connection {
	if e.lock() != nil {
		return nil
	}
	defer e.mu.Unlock()
	return e.connections()
}

func (e *Engine) connections() []modsynth.Connection {
	ret := make([]modsynth.Connection, len(e.edges))
	for i, d := range e.edges {
		ret[i] = d.conn
	}
	return ret
}

// Voices returns the live voices of a module, ordered by note.
func (e *Engine) Voices(id modsynth.ID) []VoiceInfo {
	if e.lock() != nil {
		return nil
	}
	defer e.mu.Unlock()
	return e.voiceInfos(id)
}

// Patch returns the current graph as a patch, which Load recreates.
func (e *Engine) Patch() modsynth.Patch {
	if e.lock() != nil {
		return modsynth.Patch{}
	}
	defer e.mu.Unlock()
	ret := modsynth.Patch{Connections: e.connections()}
	for _, id := range e.order {
		m := e.modules[id]
		ret.Modules = append(ret.Modules, modsynth.ModuleSpec{ID: id, Kind: m.kind, Parameters: modsynth.Map(m.params)})
	}
	return ret
}

// Teardown stops all voices, removes all connections and modules and closes
// the runtime. Afterwards every command fails with
// modsynth.ErrRuntimeUnavailable. Tearing down twice is a no-op.
func (e *Engine) Teardown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.rt.State() == modsynth.Closed {
		return nil
	}
	var errs []error
	for id := range e.voices {
		errs = append(errs, e.stopVoices(id))
	}
	for len(e.edges) > 0 {
		d := e.edges[len(e.edges)-1]
		e.edges = e.edges[:len(e.edges)-1]
		errs = append(errs, e.unwire(d))
	}
	for _, id := range e.order {
		errs = append(errs, e.releaseUnits(e.modules[id]))
	}
	clear(e.modules)
	e.order = nil
	errs = append(errs, e.rt.Close())
	e.log.Debug("torn down")
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	return nil
}
