// Package gcode serializes toolpaths to G-code text.
//
// An Emitter owns the machine state for one program: the last written
// position and feed. Output depends only on the toolpaths and the config,
// so identical input produces byte-identical programs.
package gcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/toolpath"
)

// Generator is written on the first line of every program.
const Generator = "cncslice"

// Phase is the emitter's position in a program.
type Phase int

const (
	Idle Phase = iota
	HeaderEmitted
	FooterEmitted
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case HeaderEmitted:
		return "header emitted"
	case FooterEmitted:
		return "footer emitted"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ErrState is returned when Header, Layer or Footer is called out of order.
var ErrState = errors.New("gcode: call out of order")

// MachineState is what the controller knows after the lines written so
// far. Known reports which axes have been written at least once.
type MachineState struct {
	Phase  Phase
	Pos    geom.Point3
	Known  [3]bool
	Feed   float64
	Layers int // layers written
}

// Emitter writes one program to w. Every call writes whole lines in a
// single Write, so readers of w never see a partial layer.
type Emitter struct {
	w     io.Writer
	cfg   config.Config
	buf   bytes.Buffer
	state MachineState

	axes    [3]string // last written X, Y, Z words
	feed    string    // last written F word
	spindle bool
}

// NewEmitter returns an emitter writing to w. Nothing is written until
// Header is called.
func NewEmitter(w io.Writer, cfg config.Config) *Emitter {
	return &Emitter{w: w, cfg: cfg}
}

// Reset forgets the machine state so a new program can be written.
func (e *Emitter) Reset() {
	e.buf.Reset()
	e.state = MachineState{}
	e.axes = [3]string{}
	e.feed = ""
	e.spindle = false
}

// State returns a copy of the current machine state.
func (e *Emitter) State() MachineState { return e.state }

// Header writes the program preamble and moves to safe Z.
func (e *Emitter) Header() error {
	if e.state.Phase != Idle {
		return fmt.Errorf("%w: header in phase %s", ErrState, e.state.Phase)
	}
	cfg := e.cfg
	e.buf.WriteString("; " + Generator + " G-code\n")
	if name := strings.TrimSpace(cfg.JobName); name != "" {
		fmt.Fprintf(&e.buf, "; job: %s\n", strings.ReplaceAll(name, "\n", " "))
	}
	if cfg.Units == config.UnitsInch {
		e.buf.WriteString("G20 ; inches\n")
	} else {
		e.buf.WriteString("G21 ; millimeters\n")
	}
	e.buf.WriteString("G90 ; absolute positioning\n")
	if cfg.WorkOffset {
		e.buf.WriteString("G54\n")
	}
	if cfg.SpindleSpeed > 0 {
		fmt.Fprintf(&e.buf, "M3 S%s\n", formatFeed(cfg.SpindleSpeed))
		e.spindle = true
	}
	e.axisMove("G0", nil, nil, &cfg.SafeZ, cfg.TravelFeedRate)
	if err := e.flush(); err != nil {
		return fmt.Errorf("gcode: write header: %w", err)
	}
	e.state.Phase = HeaderEmitted
	return nil
}

// Layer writes the moves of tp. An empty toolpath writes nothing.
func (e *Emitter) Layer(tp toolpath.Toolpath) error {
	if e.state.Phase != HeaderEmitted {
		return fmt.Errorf("%w: layer in phase %s", ErrState, e.state.Phase)
	}
	if tp.Empty() {
		return nil
	}
	fmt.Fprintf(&e.buf, "(Layer %d Z=%s)\n", tp.Layer+1, e.format(tp.Z))
	for _, m := range tp.Moves {
		e.move(m)
	}
	n := e.buf.Len()
	if err := e.flush(); err != nil {
		return fmt.Errorf("gcode: write layer %d: %w", tp.Layer, err)
	}
	e.state.Layers++
	logging.Logger().Debug("gcode layer written", "layer", tp.Layer, "z", tp.Z, "bytes", n)
	return nil
}

// Footer retracts, stops the spindle and ends the program.
func (e *Emitter) Footer() error {
	if e.state.Phase != HeaderEmitted {
		return fmt.Errorf("%w: footer in phase %s", ErrState, e.state.Phase)
	}
	cfg := e.cfg
	e.axisMove("G0", nil, nil, &cfg.SafeZ, cfg.TravelFeedRate)
	if e.spindle {
		e.buf.WriteString("M5 ; spindle off\n")
	}
	e.buf.WriteString("M2 ; end of program\n")
	e.state.Phase = FooterEmitted
	if err := e.flush(); err != nil {
		return fmt.Errorf("gcode: write footer: %w", err)
	}
	e.state.Phase = Done
	return nil
}

// move writes one toolpath move. Retracts are vertical and only ever
// write Z, so a retract from an unknown position does not swing the tool
// to the target XY.
func (e *Emitter) move(m toolpath.Move) {
	switch m.Kind {
	case toolpath.Retract:
		e.axisMove("G0", nil, nil, &m.To.Z, m.Feed)
	case toolpath.Travel:
		e.axisMove("G0", &m.To.X, &m.To.Y, &m.To.Z, m.Feed)
	default:
		e.axisMove("G1", &m.To.X, &m.To.Y, &m.To.Z, m.Feed)
	}
}

// axisMove writes a move to the given axes. Axes left nil or formatting to
// the last written value are omitted; a move with no remaining axes is
// dropped. F is written only when it changes.
func (e *Emitter) axisMove(word string, x, y, z *float64, feed float64) {
	var line strings.Builder
	line.WriteString(word)
	moved := false
	for i, v := range []*float64{x, y, z} {
		if v == nil {
			continue
		}
		s := e.format(*v)
		if e.state.Known[i] && s == e.axes[i] {
			continue
		}
		line.WriteString(" " + "XYZ"[i:i+1] + s)
		e.axes[i] = s
		e.state.Known[i] = true
		moved = true
		switch i {
		case 0:
			e.state.Pos.X = *v
		case 1:
			e.state.Pos.Y = *v
		case 2:
			e.state.Pos.Z = *v
		}
	}
	if !moved {
		return
	}
	if feed > 0 {
		if f := formatFeed(feed); f != e.feed {
			line.WriteString(" F" + f)
			e.feed = f
			e.state.Feed = feed
		}
	}
	line.WriteByte('\n')
	e.buf.WriteString(line.String())
}

func (e *Emitter) flush() error {
	defer e.buf.Reset()
	if e.buf.Len() == 0 {
		return nil
	}
	_, err := e.w.Write(e.buf.Bytes())
	return err
}

func (e *Emitter) format(v float64) string {
	return formatFixed(v, e.cfg.Precision)
}

// formatFixed writes v with exactly prec decimals and never a negative
// zero.
func formatFixed(v float64, prec int) string {
	if prec < 0 {
		prec = 0
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if s[0] == '-' && strings.Trim(s, "-0.") == "" {
		s = s[1:]
	}
	return s
}

// formatFeed writes v in the shortest form that reads back exactly.
func formatFeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Emit writes a complete program for tps to w.
func Emit(w io.Writer, tps []toolpath.Toolpath, cfg config.Config) error {
	e := NewEmitter(w, cfg)
	if err := e.Header(); err != nil {
		return err
	}
	for _, tp := range tps {
		if err := e.Layer(tp); err != nil {
			return err
		}
	}
	return e.Footer()
}
