package engine

import (
	"errors"
	"fmt"

	"github.com/vsariola/modsynth"
)

// edge is a logical connection and the runtime wiring realizing it. A CV
// edge owns a scaling gain unit between the source output and the
// automation input of the target parameter.
type edge struct {
	conn   modsynth.Connection // normalized
	param  string              // target parameter; "" for audio edges
	amount float64             // base modulation amount of the parameter
	scaler modsynth.Unit
}

// scale is the gain of the scaling unit of a CV edge whose source has the
// given modulation depth.
func (d *edge) scale(depth float64) float64 {
	return d.amount * depth
}

func (e *Engine) findEdge(c modsynth.Connection) (int, *edge) {
	for i, d := range e.edges {
		if d.conn.Source == c.Source && d.conn.Target == c.Target && d.conn.TargetPort == c.TargetPort {
			return i, d
		}
	}
	return -1, nil
}

// connect realizes a connection. An audio connection that already exists is
// left as is; a CV connection that already exists gets a fresh scaling unit
// in place of the old one.
func (e *Engine) connect(c modsynth.Connection) error {
	c = c.Normalized()
	src, err := e.module(c.Source)
	if err != nil {
		return fmt.Errorf("connect %v: %w", c, err)
	}
	dst, err := e.module(c.Target)
	if err != nil {
		return fmt.Errorf("connect %v: %w", c, err)
	}
	if c.SourcePort != modsynth.OutputPort || !modsynth.KindTypes[src.kind].HasOutput {
		return fmt.Errorf("connect %v: %w: %s has no output %q", c, modsynth.ErrUnknownPort, src.kind, c.SourcePort)
	}
	port, err := dst.kind.ParsePort(c.TargetPort)
	if err != nil {
		return fmt.Errorf("connect %v: %w", c, err)
	}
	_, old := e.findEdge(c)
	if port.Param == nil {
		if old != nil {
			return nil
		}
		if err := e.rt.Connect(src.out, modsynth.Input{Unit: dst.in}); err != nil {
			return fmt.Errorf("connect %v: %w", c, err)
		}
		e.edges = append(e.edges, &edge{conn: c})
		return nil
	}
	t := dst.target(port.Param.Name)
	d := &edge{conn: c, param: port.Param.Name, amount: port.Param.CVAmount}
	if d.scaler, err = e.rt.CreateGain(d.scale(modsynth.ModDepth(src.params))); err != nil {
		return fmt.Errorf("connect %v: %w", c, err)
	}
	err = e.rt.Connect(src.out, modsynth.Input{Unit: d.scaler})
	if err == nil {
		err = e.rt.Connect(d.scaler, modsynth.Input{Unit: t.unit, Param: t.param})
	}
	if err != nil {
		e.rt.Release(d.scaler)
		return fmt.Errorf("connect %v: %w", c, err)
	}
	if old != nil {
		if err := e.unwire(old); err != nil {
			e.log.Warn("replacing modulation", "connection", c.String(), "err", err)
		}
		*old = *d
		return nil
	}
	e.edges = append(e.edges, d)
	return nil
}

// disconnect removes a connection. Removing a connection that does not
// exist is a no-op.
func (e *Engine) disconnect(c modsynth.Connection) error {
	c = c.Normalized()
	i, d := e.findEdge(c)
	if d == nil {
		return nil
	}
	e.edges = append(e.edges[:i], e.edges[i+1:]...)
	if err := e.unwire(d); err != nil {
		return fmt.Errorf("disconnect %v: %w", c, err)
	}
	return nil
}

// unwire tears down the runtime links of an edge and releases its scaling
// unit.
func (e *Engine) unwire(d *edge) error {
	src, dst := e.modules[d.conn.Source], e.modules[d.conn.Target]
	if d.param == "" {
		return e.rt.Disconnect(src.out, modsynth.Input{Unit: dst.in})
	}
	t := dst.target(d.param)
	return errors.Join(
		e.rt.Disconnect(src.out, modsynth.Input{Unit: d.scaler}),
		e.rt.Disconnect(d.scaler, modsynth.Input{Unit: t.unit, Param: t.param}),
		e.rt.Release(d.scaler),
	)
}

// dropEdges removes every connection touching the module.
func (e *Engine) dropEdges(id modsynth.ID) error {
	var errs []error
	kept := e.edges[:0]
	for _, d := range e.edges {
		if d.conn.Source != id && d.conn.Target != id {
			kept = append(kept, d)
			continue
		}
		if err := e.unwire(d); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %v: %w", d.conn, err))
		}
	}
	clear(e.edges[len(kept):])
	e.edges = kept
	return errors.Join(errs...)
}

// rescale sets the scaling units of all CV edges driven by the module to
// match the modulation depth.
func (e *Engine) rescale(id modsynth.ID, depth float64) error {
	for _, d := range e.edges {
		if d.param == "" || d.conn.Source != id {
			continue
		}
		if err := e.rt.SetImmediate(d.scaler, "gain", d.scale(depth)); err != nil {
			return fmt.Errorf("rescale %v: %w", d.conn, err)
		}
	}
	return nil
}
