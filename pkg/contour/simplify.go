package contour

import (
	"github.com/chazu/cncslice/pkg/geom"
)

// Simplify removes vertices that are within tol of the previous vertex or
// within tol of the line through their kept neighbours. Closed contours are
// treated cyclically; open contours keep both endpoints. The result may
// have fewer than three points if c was degenerate.
func Simplify(c Contour, tol float64) Contour {
	if tol < 0 {
		tol = 0
	}
	out := c
	out.Points = dedupe(c.Points, c.Closed, tol)
	if len(out.Points) < 3 {
		return out
	}

	keep := make([]geom.Point, 0, len(out.Points))
	for _, p := range out.Points {
		for len(keep) >= 2 && geom.DistToLine(keep[len(keep)-1], keep[len(keep)-2], p) <= tol {
			keep = keep[:len(keep)-1]
		}
		keep = append(keep, p)
	}
	if c.Closed {
		for len(keep) > 3 {
			n := len(keep)
			switch {
			case geom.DistToLine(keep[n-1], keep[n-2], keep[0]) <= tol:
				keep = keep[:n-1]
			case geom.DistToLine(keep[0], keep[n-1], keep[1]) <= tol:
				keep = keep[1:]
			default:
				out.Points = keep
				return out
			}
		}
	}
	out.Points = keep
	return out
}

func dedupe(pts []geom.Point, closed bool, tol float64) []geom.Point {
	out := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Dist(p) <= tol {
			continue
		}
		out = append(out, p)
	}
	for closed && len(out) > 1 && out[len(out)-1].Dist(out[0]) <= tol {
		out = out[:len(out)-1]
	}
	return out
}
