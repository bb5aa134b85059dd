package toolpath

import (
	"math"
	"sort"

	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
)

// minPass drops hatch passes shorter than this.
const minPass = 1e-9

// Hatch fills the region enclosed by the closed contours with parallel
// passes spacing apart, running at angleDeg from +X. Inside is decided by
// the even-odd rule, so holes are left unfilled. Scan lines sit half a
// spacing in from the region's extent. The passes come back in cutting
// order: by scan line, alternating direction from one line to the next.
func Hatch(region []contour.Contour, spacing, angleDeg float64) []geom.Line {
	if !(spacing > 0) {
		return nil
	}
	angle := angleDeg * math.Pi / 180

	// Work in a frame where the passes run along +X.
	var polys [][]geom.Point
	bounds := geom.EmptyRect()
	for _, c := range region {
		if !c.Closed || len(c.Points) < 3 {
			continue
		}
		pts := make([]geom.Point, len(c.Points))
		for i, p := range c.Points {
			pts[i] = p.Rotate(-angle)
		}
		polys = append(polys, pts)
		bounds = bounds.Union(geom.Bounds(pts))
	}
	if len(polys) == 0 {
		return nil
	}

	var out []geom.Line
	rows := 0
	for k := 0; ; k++ {
		y := bounds.Min.Y + (float64(k)+0.5)*spacing
		if y >= bounds.Max.Y {
			break
		}
		xs := crossings(polys, y)
		var row []geom.Line
		for i := 0; i+1 < len(xs); i += 2 {
			if xs[i+1]-xs[i] < minPass {
				continue
			}
			row = append(row, geom.Line{A: geom.Point{X: xs[i], Y: y}, B: geom.Point{X: xs[i+1], Y: y}})
		}
		if len(row) == 0 {
			continue
		}
		if rows%2 == 1 {
			for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
			for i := range row {
				row[i] = row[i].Reversed()
			}
		}
		rows++
		for _, l := range row {
			out = append(out, geom.Line{A: l.A.Rotate(angle), B: l.B.Rotate(angle)})
		}
	}
	return out
}

// crossings returns the sorted X positions where the horizontal line at y
// crosses the polygon edges. Edges are half-open in Y so a vertex on the
// line is counted once.
func crossings(polys [][]geom.Point, y float64) []float64 {
	var xs []float64
	for _, pts := range polys {
		j := len(pts) - 1
		for i := range pts {
			a, b := pts[j], pts[i]
			if (a.Y > y) != (b.Y > y) {
				xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
			}
			j = i
		}
	}
	sort.Float64s(xs)
	return xs
}
