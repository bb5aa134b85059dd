package contour

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/cncslice/pkg/geom"
)

// loopSegments returns the closed polygon pts as oriented segments at z.
func loopSegments(pts []geom.Point, z float64) []geom.Segment {
	segs := make([]geom.Segment, len(pts))
	for i := range pts {
		segs[i] = geom.Segment{A: pts[i].At(z), B: pts[(i+1)%len(pts)].At(z)}
	}
	return segs
}

func square(x0, y0, side float64) []geom.Point {
	return []geom.Point{{X: x0, Y: y0}, {X: x0 + side, Y: y0}, {X: x0 + side, Y: y0 + side}, {X: x0, Y: y0 + side}}
}

func polygon(n int, r float64) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

func TestAssembleSquare(t *testing.T) {
	cs, errs := Assemble(loopSegments(square(0, 0, 10), 1), 0)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(cs) != 1 || !cs[0].Closed || cs[0].Len() != 4 {
		t.Fatalf("got %v", cs)
	}
	if got := cs[0].Area(); got != 100 {
		t.Errorf("area = %v, want 100", got)
	}
}

func TestAssembleShuffled(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{3, 4, 17, 64} {
		base := loopSegments(polygon(n, 5), 0)
		for trial := 0; trial < 20; trial++ {
			segs := append([]geom.Segment(nil), base...)
			rng.Shuffle(len(segs), func(i, j int) { segs[i], segs[j] = segs[j], segs[i] })
			// Flip some segments so the input is not consistently oriented.
			for i := range segs {
				if rng.Intn(2) == 0 {
					segs[i].A, segs[i].B = segs[i].B, segs[i].A
				}
			}
			cs, errs := Assemble(segs, 1e-6)
			if len(errs) != 0 {
				t.Fatalf("n=%d trial=%d: errors %v", n, trial, errs)
			}
			if len(cs) != 1 || !cs[0].Closed || cs[0].Len() != n {
				t.Fatalf("n=%d trial=%d: got %v", n, trial, cs)
			}
		}
	}
}

func TestAssembleMergesNearbyEndpoints(t *testing.T) {
	segs := loopSegments(square(0, 0, 10), 0)
	segs[1].A.X += 1e-9
	segs[2].B.Y -= 1e-9
	cs, errs := Assemble(segs, 1e-6)
	if len(errs) != 0 || len(cs) != 1 || cs[0].Len() != 4 {
		t.Fatalf("got %v, %v", cs, errs)
	}
}

func TestAssembleTwoLoops(t *testing.T) {
	segs := append(loopSegments(square(0, 0, 10), 0), loopSegments(square(20, 0, 5), 0)...)
	cs, errs := Assemble(segs, 0)
	if len(errs) != 0 || len(cs) != 2 {
		t.Fatalf("got %v, %v", cs, errs)
	}
}

func TestAssemblePinch(t *testing.T) {
	// Two squares touching at (10, 10): the shared vertex has four
	// segments. Each square must come out as its own simple contour.
	a := square(0, 0, 10)
	b := square(10, 10, 10)
	tests := []struct {
		name string
		segs []geom.Segment
	}{
		{"oriented", append(loopSegments(a, 0), loopSegments(b, 0)...)},
		{"interleaved", interleave(loopSegments(a, 0), loopSegments(b, 0))},
		{"unoriented", flipEvery(append(loopSegments(b, 0), loopSegments(a, 0)...), 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, errs := Assemble(tt.segs, 0)
			if len(errs) != 0 {
				t.Fatalf("errors: %v", errs)
			}
			if len(cs) != 2 {
				t.Fatalf("got %d contours: %v", len(cs), cs)
			}
			for _, c := range cs {
				if !c.Closed || c.Len() != 4 || math.Abs(math.Abs(c.Area())-100) > 1e-9 {
					t.Errorf("bad contour %v", c)
				}
			}
		})
	}
}

func interleave(a, b []geom.Segment) []geom.Segment {
	var out []geom.Segment
	for i := range a {
		out = append(out, a[i], b[i])
	}
	return out
}

func flipEvery(segs []geom.Segment, n int) []geom.Segment {
	for i := 0; i < len(segs); i += n {
		segs[i].A, segs[i].B = segs[i].B, segs[i].A
	}
	return segs
}

func TestAssembleOpenChain(t *testing.T) {
	segs := loopSegments(square(0, 0, 10), 0)[:3]
	// Start from the middle segment so both ends need extending.
	segs[0], segs[1] = segs[1], segs[0]
	cs, errs := Assemble(segs, 0)
	if len(cs) != 1 || cs[0].Closed || cs[0].Len() != 4 {
		t.Fatalf("got %v", cs)
	}
	if cs[0].Points[0] != (geom.Point{X: 0, Y: 0}) || cs[0].Points[3] != (geom.Point{X: 0, Y: 10}) {
		t.Errorf("open chain order = %v", cs[0].Points)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors", len(errs))
	}
	var ae *AssemblyError
	if !errors.As(errs[0], &ae) || ae.Segments != 3 {
		t.Errorf("error = %v", errs[0])
	}
}

func TestAssembleDegenerate(t *testing.T) {
	p := geom.Point3{X: 1, Y: 1}
	q := geom.Point3{X: 2, Y: 1}
	segs := []geom.Segment{
		{A: p, B: p}, // zero length, ignored
		{A: p, B: q},
		{A: q, B: p}, // closes a two point loop
	}
	cs, errs := Assemble(segs, 0)
	if len(cs) != 0 {
		t.Errorf("got contours %v", cs)
	}
	if len(errs) != 1 {
		t.Fatalf("got errors %v", errs)
	}
	if cs, errs := Assemble(nil, 0); len(cs) != 0 || len(errs) != 0 {
		t.Errorf("empty input gave %v, %v", cs, errs)
	}
}

func TestNormalize(t *testing.T) {
	outer := Contour{Points: square(0, 0, 100), Closed: true}
	hole := Contour{Points: square(10, 10, 50), Closed: true}
	island := Contour{Points: square(20, 20, 10), Closed: true}
	other := Contour{Points: square(200, 0, 10), Closed: true}
	open := Contour{Points: []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}

	in := []Contour{island, hole.Reversed().Reversed(), outer.Reversed(), other, open}
	out := Normalize(in)
	if len(out) != len(in) {
		t.Fatalf("len = %d", len(out))
	}
	wantDepth := []int{2, 1, 0, 0, 0}
	for i, c := range out {
		if c.Depth != wantDepth[i] {
			t.Errorf("contour %d depth = %d, want %d", i, c.Depth, wantDepth[i])
		}
		if !c.Closed {
			continue
		}
		if wantCCW := c.Depth%2 == 0; c.CCW() != wantCCW {
			t.Errorf("contour %d ccw = %v, want %v", i, c.CCW(), wantCCW)
		}
	}
	if !out[1].IsHole() || out[0].IsHole() {
		t.Error("IsHole mismatch")
	}
	// The input is untouched.
	if in[2].CCW() {
		t.Error("Normalize modified its input")
	}
}

func TestNormalizeThinSliver(t *testing.T) {
	// An axis aligned zero-width bounding box must not break the R-tree.
	sliver := Contour{Points: []geom.Point{{X: 0, Y: 0}, {X: 1e-12, Y: 5}, {X: 0, Y: 10}}, Closed: true}
	out := Normalize([]Contour{sliver})
	if out[0].Depth != 0 {
		t.Errorf("depth = %d", out[0].Depth)
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   Contour
		want int
	}{
		{
			name: "midpoints removed",
			in: Contour{Closed: true, Points: []geom.Point{
				{X: 5, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 10, Y: 10},
				{X: 5, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 5}, {X: 0, Y: 0},
			}},
			want: 4,
		},
		{
			name: "duplicates removed",
			in: Contour{Closed: true, Points: []geom.Point{
				{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
			}},
			want: 4,
		},
		{
			name: "near collinear within tolerance",
			in: Contour{Closed: true, Points: []geom.Point{
				{X: 0, Y: 0}, {X: 5, Y: 0.0001}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
			}},
			want: 4,
		},
		{
			name: "corner kept",
			in:   Contour{Closed: true, Points: square(0, 0, 1)},
			want: 4,
		},
		{
			name: "open keeps endpoints",
			in:   Contour{Points: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(tt.in, 0.001)
			if got.Len() != tt.want {
				t.Errorf("Simplify() kept %d points %v, want %d", got.Len(), got.Points, tt.want)
			}
			if tt.in.Closed && math.Abs(got.Area()-tt.in.Area()) > 0.01 {
				t.Errorf("area changed from %v to %v", tt.in.Area(), got.Area())
			}
		})
	}
}

func TestContourHelpers(t *testing.T) {
	c := Contour{Points: square(0, 0, 2), Closed: true}
	if got := c.Perimeter(); got != 8 {
		t.Errorf("Perimeter() = %v", got)
	}
	r := c.Rotated(2)
	if r.Points[0] != c.Points[2] || r.Points[3] != c.Points[1] || r.Area() != c.Area() {
		t.Errorf("Rotated() = %v", r.Points)
	}
	if c.Reversed().Area() != -c.Area() {
		t.Error("Reversed() did not flip orientation")
	}
	open := Contour{Points: square(0, 0, 2)}
	if open.Area() != 0 || open.Perimeter() != 6 {
		t.Errorf("open contour area %v perimeter %v", open.Area(), open.Perimeter())
	}
}
