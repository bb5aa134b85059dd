// Package offset grows and shrinks contours by a signed distance using the
// Clipper polygon offsetting algorithm on integer coordinates.
package offset

import (
	"fmt"
	"math"

	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
	clipper "github.com/ctessum/go.clipper"
)

// Join is the corner treatment on the convex side of an offset.
type Join int

const (
	JoinRound Join = iota
	JoinMiter
	JoinSquare
)

func (j Join) clipper() clipper.JoinType {
	switch j {
	case JoinMiter:
		return clipper.JtMiter
	case JoinSquare:
		return clipper.JtSquare
	default:
		return clipper.JtRound
	}
}

// ParseJoin maps "round", "miter" and "square" to a Join.
func ParseJoin(s string) (Join, error) {
	switch s {
	case "round", "":
		return JoinRound, nil
	case "miter":
		return JoinMiter, nil
	case "square":
		return JoinSquare, nil
	}
	return JoinRound, fmt.Errorf("offset: unknown join %q", s)
}

// Options controls precision and corner style.
type Options struct {
	// Scale converts model units to integer Clipper units. Coordinates
	// are rounded to 1/Scale.
	Scale float64
	Join  Join
	// ArcTolerance is the maximum deviation of round joins from a true
	// arc, in model units.
	ArcTolerance float64
	// MiterLimit bounds miter spikes, as a multiple of the offset.
	MiterLimit float64
}

// DefaultOptions rounds to 1e-4 units with round joins.
func DefaultOptions() Options {
	return Options{Scale: 1e4, Join: JoinRound, ArcTolerance: 0.01, MiterLimit: 2}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !(o.Scale > 0) {
		o.Scale = d.Scale
	}
	if !(o.ArcTolerance > 0) {
		o.ArcTolerance = d.ArcTolerance
	}
	if !(o.MiterLimit > 0) {
		o.MiterLimit = d.MiterLimit
	}
	return o
}

// OffsetError reports a contour that vanished when offset inward.
type OffsetError struct {
	Area     float64 // absolute area of the lost contour
	Distance float64
	Hole     bool
}

func (e *OffsetError) Error() string {
	kind := "outline"
	if e.Hole {
		kind = "hole"
	}
	return fmt.Sprintf("offset: %s of area %.4f collapsed at distance %g", kind, e.Area, e.Distance)
}

func toPath(pts []geom.Point, scale float64) clipper.Path {
	p := make(clipper.Path, 0, len(pts))
	for _, pt := range pts {
		p = append(p, &clipper.IntPoint{
			X: clipper.CInt(math.Round(pt.X * scale)),
			Y: clipper.CInt(math.Round(pt.Y * scale)),
		})
	}
	return p
}

func fromPaths(paths clipper.Paths, scale float64) []contour.Contour {
	var out []contour.Contour
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		pts := make([]geom.Point, len(path))
		for i, ip := range path {
			pts[i] = geom.Point{X: float64(ip.X) / scale, Y: float64(ip.Y) / scale}
		}
		a := geom.SignedArea(pts)
		if a == 0 || math.IsNaN(a) {
			continue
		}
		out = append(out, contour.Contour{Points: pts, Closed: true})
	}
	return contour.Normalize(out)
}

func execute(paths clipper.Paths, d float64, o Options) []contour.Contour {
	co := clipper.NewClipperOffset()
	co.ArcTolerance = o.ArcTolerance * o.Scale
	co.MiterLimit = o.MiterLimit
	co.AddPaths(paths, o.Join.clipper(), clipper.EtClosedPolygon)
	return fromPaths(co.Execute(d*o.Scale), o.Scale)
}

// Polygon offsets the interior of a single closed contour by d: positive
// grows it, negative shrinks it. The orientation of c is ignored. Zero
// returns c unchanged. A shrink that consumes the polygon returns nil; a
// shrink through a narrow neck may return several polygons.
func Polygon(c contour.Contour, d float64, opts Options) []contour.Contour {
	if d == 0 {
		return []contour.Contour{c.Clone()}
	}
	if !c.Closed || len(c.Points) < 3 {
		return nil
	}
	o := opts.withDefaults()
	pts := c.Points
	if geom.SignedArea(pts) < 0 {
		pts = c.Reversed().Points
	}
	return execute(clipper.Paths{toPath(pts, o.Scale)}, d, o)
}

// Layer offsets all closed contours of a layer together: outlines grow
// and holes shrink for positive d, so neighbouring outlines merge and
// narrow necks split. The contours must be normalized. Open contours are
// passed through unchanged. Every outline or hole that disappears is
// reported as *OffsetError.
func Layer(cs []contour.Contour, d float64, opts Options) ([]contour.Contour, []error) {
	if d == 0 {
		out := make([]contour.Contour, len(cs))
		for i, c := range cs {
			out[i] = c.Clone()
		}
		return out, nil
	}
	o := opts.withDefaults()

	var paths clipper.Paths
	var open []contour.Contour
	var errs []error
	for _, c := range cs {
		if !c.Closed {
			open = append(open, c.Clone())
			continue
		}
		if len(c.Points) < 3 {
			continue
		}
		paths = append(paths, toPath(c.Points, o.Scale))

		// Outlines can only vanish when shrinking and holes when the
		// material grows into them.
		hole := c.IsHole()
		if (d < 0) != hole {
			if len(Polygon(c, -math.Abs(d), o)) == 0 {
				errs = append(errs, &OffsetError{Area: math.Abs(c.Area()), Distance: d, Hole: hole})
			}
		}
	}

	var out []contour.Contour
	if len(paths) > 0 {
		out = execute(paths, d, o)
	}
	return append(out, open...), errs
}
