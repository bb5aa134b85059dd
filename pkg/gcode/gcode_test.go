package gcode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/toolpath"
)

func p3(x, y, z float64) geom.Point3 { return geom.Point3{X: x, Y: y, Z: z} }

// squareToolpath cuts a 10x10 square at z=5 starting from the origin.
func squareToolpath() toolpath.Toolpath {
	return toolpath.Toolpath{
		Z:     5,
		Start: p3(0, 0, 10),
		End:   p3(0, 0, 10),
		Moves: []toolpath.Move{
			{Kind: toolpath.Retract, To: p3(0, 0, 10), Feed: 1200},
			{Kind: toolpath.Travel, To: p3(0, 0, 10), Feed: 1200},
			{Kind: toolpath.Plunge, To: p3(0, 0, 5), Feed: 300},
			{Kind: toolpath.Cut, To: p3(10, 0, 5), Feed: 800},
			{Kind: toolpath.Cut, To: p3(10, 10, 5), Feed: 800},
			{Kind: toolpath.Cut, To: p3(0, 10, 5), Feed: 800},
			{Kind: toolpath.Cut, To: p3(0, 0, 5), Feed: 800},
			{Kind: toolpath.Retract, To: p3(0, 0, 10), Feed: 1200},
		},
	}
}

const squareProgram = `; cncslice G-code
G21 ; millimeters
G90 ; absolute positioning
G0 Z10.000 F1200
(Layer 1 Z=5.000)
G0 X0.000 Y0.000
G1 Z5.000 F300
G1 X10.000 F800
G1 Y10.000
G1 X0.000
G1 Y0.000
G0 Z10.000 F1200
M2 ; end of program
`

func TestEmitSquare(t *testing.T) {
	var buf bytes.Buffer
	if err := Emit(&buf, []toolpath.Toolpath{squareToolpath()}, config.Default()); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != squareProgram {
		t.Errorf("program:\n%s\nwant:\n%s", got, squareProgram)
	}
}

func TestEmitDeterministic(t *testing.T) {
	tps := []toolpath.Toolpath{squareToolpath(), squareToolpath()}
	tps[1].Layer = 1
	tps[1].Z = 3
	var a, b bytes.Buffer
	if err := Emit(&a, tps, config.Default()); err != nil {
		t.Fatal(err)
	}
	if err := Emit(&b, tps, config.Default()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("identical input produced different programs")
	}
}

func TestHeaderOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Units = config.UnitsInch
	cfg.JobName = "bracket"
	cfg.WorkOffset = true
	cfg.SpindleSpeed = 12000
	cfg.Precision = 2

	var buf bytes.Buffer
	if err := Emit(&buf, nil, cfg); err != nil {
		t.Fatal(err)
	}
	want := `; cncslice G-code
; job: bracket
G20 ; inches
G90 ; absolute positioning
G54
M3 S12000
G0 Z10.00 F1200
M5 ; spindle off
M2 ; end of program
`
	if got := buf.String(); got != want {
		t.Errorf("program:\n%s\nwant:\n%s", got, want)
	}
}

func TestStateMachine(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, config.Default())

	if err := e.Layer(squareToolpath()); !errors.Is(err, ErrState) {
		t.Errorf("Layer before Header: %v", err)
	}
	if err := e.Footer(); !errors.Is(err, ErrState) {
		t.Errorf("Footer before Header: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("out of order calls wrote %q", buf.String())
	}

	if err := e.Header(); err != nil {
		t.Fatal(err)
	}
	if err := e.Header(); !errors.Is(err, ErrState) {
		t.Errorf("second Header: %v", err)
	}
	if err := e.Layer(squareToolpath()); err != nil {
		t.Fatal(err)
	}
	if err := e.Footer(); err != nil {
		t.Fatal(err)
	}
	if s := e.State(); s.Phase != Done || s.Layers != 1 || s.Pos != p3(0, 0, 10) || s.Feed != 1200 {
		t.Errorf("state = %+v", s)
	}
	if err := e.Layer(squareToolpath()); !errors.Is(err, ErrState) {
		t.Errorf("Layer after Footer: %v", err)
	}

	e.Reset()
	if s := e.State(); s.Phase != Idle || s.Known != [3]bool{} {
		t.Errorf("state after Reset = %+v", s)
	}
	buf.Reset()
	if err := e.Header(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "G0 Z10.000 F1200\n") {
		t.Errorf("Reset did not forget the feed and position:\n%s", buf.String())
	}
}

// countingWriter records the size of every Write call.
type countingWriter struct {
	bytes.Buffer
	writes []int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, len(p))
	return w.Buffer.Write(p)
}

func TestOneWritePerLayer(t *testing.T) {
	var w countingWriter
	tps := []toolpath.Toolpath{squareToolpath(), {Layer: 1, Z: 4}, squareToolpath()}
	tps[2].Layer = 2
	tps[2].Z = 3
	if err := Emit(&w, tps, config.Default()); err != nil {
		t.Fatal(err)
	}
	// Header, two non-empty layers, footer.
	if len(w.writes) != 4 {
		t.Fatalf("got %d writes: %v", len(w.writes), w.writes)
	}
	if strings.Contains(w.String(), "Layer 2 ") {
		t.Error("empty toolpath produced output")
	}
}

func TestRedundantMovesSuppressed(t *testing.T) {
	tp := squareToolpath()
	tp.Moves = append(tp.Moves,
		toolpath.Move{Kind: toolpath.Travel, To: p3(0, 0, 10), Feed: 1200},
		toolpath.Move{Kind: toolpath.Travel, To: p3(0.0001, 0, 10), Feed: 1200},
	)
	var buf bytes.Buffer
	if err := Emit(&buf, []toolpath.Toolpath{tp}, config.Default()); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != squareProgram {
		t.Errorf("program:\n%s\nwant:\n%s", got, squareProgram)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteErrors(t *testing.T) {
	e := NewEmitter(failingWriter{}, config.Default())
	err := e.Header()
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Header() = %v", err)
	}
	if e.State().Phase != Idle {
		t.Errorf("phase = %v after a failed header", e.State().Phase)
	}
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		v    float64
		prec int
		want string
	}{
		{1, 3, "1.000"},
		{-0.0001, 3, "0.000"},
		{-0.4, 0, "0"},
		{-1.25, 1, "-1.2"},
		{2.0006, 3, "2.001"},
		{12.3456, 6, "12.345600"},
		{7, -1, "7"},
	}
	for _, tt := range tests {
		if got := formatFixed(tt.v, tt.prec); got != tt.want {
			t.Errorf("formatFixed(%v, %d) = %q, want %q", tt.v, tt.prec, got, tt.want)
		}
	}
	if got := formatFeed(12.5); got != "12.5" {
		t.Errorf("formatFeed(12.5) = %q", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	cmds, err := Parse(strings.NewReader(squareProgram))
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 13 {
		t.Fatalf("got %d commands", len(cmds))
	}
	if c := cmds[5]; c.Code != "G0" || c.Params['X'] != 0 || !c.Has('Y') || c.Has('Z') || c.Line != 6 {
		t.Errorf("command 5 = %+v", c)
	}
	s := Summarize(cmds)
	if s.Layers != 1 || s.Rapids != 3 || s.Feeds != 5 {
		t.Errorf("summary counts = %+v", s)
	}
	if s.Bounds.Min != (geom.Point{}) || s.Bounds.Max != (geom.Point{X: 10, Y: 10}) || s.MinZ != 5 || s.MaxZ != 10 {
		t.Errorf("summary extent = %+v", s)
	}
	if s.FeedDist != 45 || s.RapidDist != 5 {
		t.Errorf("distances = %v feed, %v rapid", s.FeedDist, s.RapidDist)
	}
}

func TestParseWords(t *testing.T) {
	cmds, err := Parse(strings.NewReader("g1X1.5 Y-2 (first) ; tail\n\n  \nM3 S1000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands", len(cmds))
	}
	c := cmds[0]
	if c.Code != "G1" || c.Params['X'] != 1.5 || c.Params['Y'] != -2 || c.Comment != "first tail" {
		t.Errorf("command = %+v", c)
	}
	if cmds[1].Code != "M3" || cmds[1].Params['S'] != 1000 || cmds[1].Line != 4 {
		t.Errorf("command = %+v", cmds[1])
	}

	for _, bad := range []string{"G1 X1..2", "G1 X", "Gx", "1.5"} {
		if _, err := Parse(strings.NewReader(bad)); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
	}
}
