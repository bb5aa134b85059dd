// Package contour chains slice segments into polygons, classifies them as
// outlines or holes, and cleans up their vertices.
package contour

import (
	"fmt"

	"github.com/chazu/cncslice/pkg/geom"
)

// Contour is an ordered polyline in the slicing plane. A closed contour is
// implicitly closed: the first point is not repeated at the end.
type Contour struct {
	Points []geom.Point
	Closed bool
	// Depth is the nesting level after Normalize: 0 for an outer
	// boundary, 1 for a hole in it, 2 for an island in the hole, and so
	// on. Even depths are counter-clockwise, odd depths clockwise.
	Depth int
}

// Len returns the number of vertices.
func (c Contour) Len() int { return len(c.Points) }

// Area returns the signed area, positive for counter-clockwise order.
// Open contours have no area.
func (c Contour) Area() float64 {
	if !c.Closed {
		return 0
	}
	return geom.SignedArea(c.Points)
}

// CCW reports whether c is counter-clockwise.
func (c Contour) CCW() bool { return c.Area() > 0 }

// IsHole reports whether c is a hole after normalization.
func (c Contour) IsHole() bool { return c.Depth%2 == 1 }

// Bounds returns the bounding rectangle of the vertices.
func (c Contour) Bounds() geom.Rect { return geom.Bounds(c.Points) }

// Perimeter returns the length of the path, including the closing edge of
// a closed contour.
func (c Contour) Perimeter() float64 {
	var l float64
	for i := 1; i < len(c.Points); i++ {
		l += c.Points[i-1].Dist(c.Points[i])
	}
	if c.Closed && len(c.Points) > 1 {
		l += c.Points[len(c.Points)-1].Dist(c.Points[0])
	}
	return l
}

// Reversed returns a copy of c with the vertex order reversed.
func (c Contour) Reversed() Contour {
	out := c
	out.Points = make([]geom.Point, len(c.Points))
	for i, p := range c.Points {
		out.Points[len(c.Points)-1-i] = p
	}
	return out
}

// Rotated returns a copy of the closed contour c starting at vertex i.
func (c Contour) Rotated(i int) Contour {
	out := c
	n := len(c.Points)
	out.Points = make([]geom.Point, 0, n)
	out.Points = append(out.Points, c.Points[i:]...)
	out.Points = append(out.Points, c.Points[:i]...)
	return out
}

// Clone returns a deep copy of c.
func (c Contour) Clone() Contour {
	out := c
	out.Points = append([]geom.Point(nil), c.Points...)
	return out
}

func (c Contour) String() string {
	kind := "open"
	if c.Closed {
		kind = "closed"
	}
	return fmt.Sprintf("%s contour of %d points (depth %d, area %.4f)", kind, len(c.Points), c.Depth, c.Area())
}

// AssemblyError reports a chain of segments that did not close into a
// loop, or a loop too small to be a polygon. The chain is still returned
// by Assemble as an open contour when it has at least two points.
type AssemblyError struct {
	Start, End geom.Point
	Segments   int
	Reason     string
}

func (e *AssemblyError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "open chain"
	}
	return fmt.Sprintf("contour: %s of %d segments from %v to %v", reason, e.Segments, e.Start, e.End)
}
