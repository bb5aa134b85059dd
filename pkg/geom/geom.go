// Package geom holds the small planar and spatial value types shared by
// the slicer, the contour code and the toolpath planner.
package geom

import (
	"fmt"
	"math"
)

// Point is a position in the XY plane.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of the cross product of p and q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Len returns the distance of p from the origin.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// At lifts p to height z.
func (p Point) At(z float64) Point3 { return Point3{p.X, p.Y, z} }

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Rotate turns p about the origin by angle radians, counter-clockwise.
func (p Point) Rotate(angle float64) Point {
	s, c := math.Sincos(angle)
	return Point{p.X*c - p.Y*s, p.X*s + p.Y*c}
}

// Point3 is a position in machine space.
type Point3 struct {
	X, Y, Z float64
}

// XY drops the Z coordinate.
func (p Point3) XY() Point { return Point{p.X, p.Y} }

// Dist returns the distance between p and q.
func (p Point3) Dist(q Point3) float64 {
	return math.Sqrt(sq(p.X-q.X) + sq(p.Y-q.Y) + sq(p.Z-q.Z))
}

func (p Point3) String() string { return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z) }

// Less orders points by X, then Y, then Z.
func (p Point3) Less(q Point3) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.Z < q.Z
}

// Segment is one plane/triangle intersection. Both endpoints lie on the
// slicing plane.
type Segment struct {
	A, B Point3
}

// Line is an open two-point path in the XY plane, used for hatch passes.
type Line struct {
	A, B Point
}

// Len returns the length of l.
func (l Line) Len() float64 { return l.A.Dist(l.B) }

// Reversed returns l with its endpoints swapped.
func (l Line) Reversed() Line { return Line{l.B, l.A} }

// Key is a quantized point used to identify segment endpoints. Two points
// within tol of each other on a grid of pitch tol map to the same key.
type Key struct {
	X, Y int64
}

// KeyOf quantizes p onto a grid of pitch tol.
func KeyOf(p Point, tol float64) Key {
	return Key{int64(math.Round(p.X / tol)), int64(math.Round(p.Y / tol))}
}

// Rect is an axis aligned rectangle.
type Rect struct {
	Min, Max Point
}

// Empty reports whether r contains no points.
func (r Rect) Empty() bool { return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y }

// Size returns the width and height of r.
func (r Rect) Size() Point { return r.Max.Sub(r.Min) }

// Contains reports whether p lies in r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Union returns the smallest rectangle containing r and q.
func (r Rect) Union(q Rect) Rect {
	if r.Empty() {
		return q
	}
	if q.Empty() {
		return r
	}
	return Rect{
		Min: Point{math.Min(r.Min.X, q.Min.X), math.Min(r.Min.Y, q.Min.Y)},
		Max: Point{math.Max(r.Max.X, q.Max.X), math.Max(r.Max.Y, q.Max.Y)},
	}
}

// EmptyRect is the identity for Rect.Union.
func EmptyRect() Rect {
	return Rect{
		Min: Point{math.Inf(1), math.Inf(1)},
		Max: Point{math.Inf(-1), math.Inf(-1)},
	}
}

// Bounds returns the bounding rectangle of pts.
func Bounds(pts []Point) Rect {
	r := EmptyRect()
	for _, p := range pts {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// SignedArea returns the shoelace area of the closed polygon pts. It is
// positive for counter-clockwise order with Y up.
func SignedArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var a float64
	j := n - 1
	for i := 0; i < n; i++ {
		a += pts[j].X*pts[i].Y - pts[i].X*pts[j].Y
		j = i
	}
	return a / 2
}

// PointInPolygon reports whether p lies inside the closed polygon pts
// using the even-odd rule. Points exactly on an edge may go either way.
func PointInPolygon(p Point, pts []Point) bool {
	in := false
	n := len(pts)
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				in = !in
			}
		}
		j = i
	}
	return in
}

// DistToLine returns the distance from p to the infinite line through a
// and b, or to a when a and b coincide.
func DistToLine(p, a, b Point) float64 {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return p.Dist(a)
	}
	return math.Abs(d.Cross(p.Sub(a))) / l
}

func sq(v float64) float64 { return v * v }
