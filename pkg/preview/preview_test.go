package preview

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/layer"
)

func square(x0, y0, x1, y1 float64, depth int) contour.Contour {
	pts := []geom.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	if depth%2 == 1 {
		pts[1], pts[3] = pts[3], pts[1]
	}
	return contour.Contour{Points: pts, Closed: true, Depth: depth}
}

// plate is a 10x10 outline with a hole, its outside tool path and two
// hatch passes.
func plate() layer.Layer {
	return layer.Layer{
		Index:    2,
		Z:        5,
		Contours: []contour.Contour{square(0, 0, 10, 10, 0), square(3, 3, 5, 5, 1)},
		Paths:    []contour.Contour{square(-1, -1, 11, 11, 0)},
		Hatches: []geom.Line{
			{A: geom.Point{X: 1, Y: 1}, B: geom.Point{X: 9, Y: 1}},
			{A: geom.Point{X: 9, Y: 2}, B: geom.Point{X: 1, Y: 2}},
		},
	}
}

func TestFrame(t *testing.T) {
	l := []layer.Layer{plate()}
	if got := Frame(l, Options{Paths: true}); got != (geom.Rect{Min: geom.Point{X: -1, Y: -1}, Max: geom.Point{X: 11, Y: 11}}) {
		t.Errorf("frame with paths = %v", got)
	}
	if got := Frame(l, Options{}); got != (geom.Rect{Max: geom.Point{X: 10, Y: 10}}) {
		t.Errorf("outline frame = %v", got)
	}
	if got := Frame(nil, Options{}); !got.Empty() {
		t.Errorf("frame of nothing = %v", got)
	}
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Margin = 1
	if err := SVG(&buf, plate(), opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	// Frame -2..12 at 10 units per millimeter.
	if !strings.Contains(out, `width="140" height="140"`) {
		t.Errorf("unexpected size:\n%s", out)
	}
	if n := strings.Count(out, "<polygon"); n != 3 {
		t.Errorf("got %d polygons, want 3", n)
	}
	if n := strings.Count(out, "<line"); n != 2 {
		t.Errorf("got %d lines, want 2", n)
	}
	if !strings.Contains(out, holeStyle) {
		t.Error("hole not drawn in the hole style")
	}
	// Model origin maps to (20, 120) with Y pointing up.
	if !strings.Contains(out, "20,120") {
		t.Errorf("origin not at 20,120:\n%s", out)
	}
	if !strings.Contains(out, "Layer 3 Z=5") {
		t.Error("missing 1-based layer title")
	}
}

func TestSVGOptions(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Frame: geom.Rect{Max: geom.Point{X: 20, Y: 5}}, Scale: 2}
	if err := SVG(&buf, plate(), opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `width="40" height="10"`) {
		t.Errorf("fixed frame ignored:\n%s", out)
	}
	if n := strings.Count(out, "<polygon"); n != 2 {
		t.Errorf("got %d polygons without paths, want 2", n)
	}
	if strings.Contains(out, "<line") {
		t.Error("hatches drawn when disabled")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSVGWriteError(t *testing.T) {
	if err := SVG(failingWriter{}, plate(), DefaultOptions()); err == nil || err.Error() != "disk full" {
		t.Errorf("err = %v", err)
	}
}

func TestDXF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.dxf")
	second := plate()
	second.Index, second.Z = 3, 7
	if err := DXF(path, []layer.Layer{plate(), second}, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"ENTITIES", DXFOutline, DXFPaths, DXFHatches} {
		if !strings.Contains(out, want) {
			t.Errorf("drawing has no %s", want)
		}
	}
}

func TestSegments(t *testing.T) {
	open := contour.Contour{Points: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}
	closed := open
	closed.Closed = true
	if got := segments([]contour.Contour{open}); len(got) != 2 {
		t.Errorf("open contour gave %d segments", len(got))
	}
	got := segments([]contour.Contour{closed})
	if len(got) != 3 || got[2] != (geom.Line{A: geom.Point{X: 1, Y: 1}, B: geom.Point{}}) {
		t.Errorf("closed contour segments = %v", got)
	}
	if len(closed.Points) != 3 {
		t.Error("segments modified the contour")
	}
}
