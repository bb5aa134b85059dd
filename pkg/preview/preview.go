// Package preview draws sliced layers for inspection: one SVG image per
// layer, or a single DXF drawing holding every layer at its height.
package preview

import (
	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/layer"
	"github.com/samber/lo"
)

// Options selects what is drawn.
type Options struct {
	// Paths draws the compensated tool-center paths next to the outline.
	Paths bool
	// Hatches draws the fill passes.
	Hatches bool
	// Frame is the drawing area in model coordinates. An empty frame is
	// computed from what is drawn, so pass a shared frame to keep a series
	// of images aligned.
	Frame geom.Rect
	// Margin around the frame, in model units.
	Margin float64
	// Scale is SVG units per model unit.
	Scale float64
}

// DefaultOptions draws outlines and tool paths at 10 units per millimeter.
func DefaultOptions() Options {
	return Options{Paths: true, Hatches: true, Frame: geom.EmptyRect(), Margin: 2, Scale: 10}
}

// Frame returns the bounding rectangle of everything drawn for layers.
func Frame(layers []layer.Layer, opts Options) geom.Rect {
	r := geom.EmptyRect()
	for _, l := range layers {
		cs := l.Contours
		if opts.Paths {
			cs = append(cs[:len(cs):len(cs)], l.Paths...)
		}
		for _, c := range cs {
			r = r.Union(c.Bounds())
		}
		if opts.Hatches {
			for _, h := range l.Hatches {
				r = r.Union(geom.Bounds([]geom.Point{h.A, h.B}))
			}
		}
	}
	return r
}

func frameOf(layers []layer.Layer, opts Options) geom.Rect {
	r := opts.Frame
	if r.Empty() {
		r = Frame(layers, opts)
	}
	if r.Empty() {
		r = geom.Rect{}
	}
	m := geom.Point{X: opts.Margin, Y: opts.Margin}
	return geom.Rect{Min: r.Min.Sub(m), Max: r.Max.Add(m)}
}

// closedPoints returns the vertices of c with the first repeated at the
// end when the contour is closed.
func closedPoints(c contour.Contour) []geom.Point {
	if !c.Closed || len(c.Points) == 0 {
		return c.Points
	}
	return append(c.Points[:len(c.Points):len(c.Points)], c.Points[0])
}

// segments flattens contours into line segments.
func segments(cs []contour.Contour) []geom.Line {
	return lo.FlatMap(cs, func(c contour.Contour, _ int) []geom.Line {
		pts := closedPoints(c)
		out := make([]geom.Line, 0, len(pts))
		for i := 1; i < len(pts); i++ {
			out = append(out, geom.Line{A: pts[i-1], B: pts[i]})
		}
		return out
	})
}
