package preview

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/layer"
)

const (
	outlineStyle = "fill:none;stroke:black;stroke-width:1"
	holeStyle    = "fill:none;stroke:crimson;stroke-width:1"
	openStyle    = "fill:none;stroke:orange;stroke-width:1;stroke-dasharray:4,2"
	pathStyle    = "fill:none;stroke:royalblue;stroke-width:1"
	hatchStyle   = "stroke:seagreen;stroke-width:0.5"
	labelStyle   = "font-family:sans-serif;font-size:12px;fill:gray"
)

// canvas maps model coordinates to SVG units with Y pointing up.
type canvas struct {
	*svg.SVG
	frame geom.Rect
	scale float64
}

func (c canvas) xy(p geom.Point) (int, int) {
	x := (p.X - c.frame.Min.X) * c.scale
	y := (c.frame.Max.Y - p.Y) * c.scale
	return int(math.Round(x)), int(math.Round(y))
}

func (c canvas) coords(pts []geom.Point) (xs, ys []int) {
	xs, ys = make([]int, len(pts)), make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = c.xy(p)
	}
	return xs, ys
}

func (c canvas) contours(id string, cs []contour.Contour, closedStyle func(contour.Contour) string) {
	if len(cs) == 0 {
		return
	}
	c.Gid(id)
	for _, ct := range cs {
		xs, ys := c.coords(ct.Points)
		if ct.Closed {
			c.Polygon(xs, ys, closedStyle(ct))
		} else {
			c.Polyline(xs, ys, openStyle)
		}
	}
	c.Gend()
}

// SVG draws layer l as a standalone SVG document. Outer boundaries are
// black, holes red, open contours dashed, tool paths blue and hatch passes
// green.
func SVG(w io.Writer, l layer.Layer, opts Options) error {
	if opts.Scale <= 0 {
		opts.Scale = DefaultOptions().Scale
	}
	frame := frameOf([]layer.Layer{l}, opts)
	size := frame.Size()
	width := int(math.Ceil(size.X * opts.Scale))
	height := int(math.Ceil(size.Y * opts.Scale))

	ew := &errWriter{w: w}
	c := canvas{SVG: svg.New(ew), frame: frame, scale: opts.Scale}
	c.Start(width, height)
	c.Title(fmt.Sprintf("Layer %d Z=%g", l.Index+1, l.Z))
	c.contours("outline", l.Contours, func(ct contour.Contour) string {
		if ct.IsHole() {
			return holeStyle
		}
		return outlineStyle
	})
	if opts.Paths {
		c.contours("paths", l.Paths, func(contour.Contour) string { return pathStyle })
	}
	if opts.Hatches && len(l.Hatches) > 0 {
		c.Gstyle(hatchStyle)
		for _, h := range l.Hatches {
			x1, y1 := c.xy(h.A)
			x2, y2 := c.xy(h.B)
			c.Line(x1, y1, x2, y2)
		}
		c.Gend()
	}
	c.Text(4, 14, fmt.Sprintf("layer %d  z=%g", l.Index+1, l.Z), labelStyle)
	c.End()
	return ew.err
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	_, e.err = e.w.Write(p)
	return len(p), nil
}
