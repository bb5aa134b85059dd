// Package slicer intersects a mesh with a horizontal plane and returns the
// unordered line segments the plane cuts through the surface.
package slicer

import (
	"math"

	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Options tunes plane classification.
type Options struct {
	// Epsilon is the half width of the band around the plane inside which
	// a vertex counts as lying on it. Zero picks DefaultEpsilon.
	Epsilon float64
}

// relEpsilon scales the classification band with the part height.
const relEpsilon = 1e-7

// DefaultEpsilon returns the classification band for m: a fixed fraction
// of its height, never below 1e-9.
func DefaultEpsilon(m *mesh.Mesh) float64 {
	bb := m.Bounds()
	return math.Max((bb.Max.Z-bb.Min.Z)*relEpsilon, 1e-9)
}

// side is the position of a vertex relative to the plane.
type side int

const (
	below side = -1
	on    side = 0
	above side = 1
)

// Slice returns every segment where the plane at height z crosses the
// surface of m. The result is unordered; an empty slice is a valid, empty
// layer.
//
// Triangles lying in the plane contribute nothing. An edge lying in the
// plane is emitted once, by the triangle whose third vertex is above it.
func Slice(m *mesh.Mesh, z float64, opts Options) []geom.Segment {
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon(m)
	}
	classify := func(v v3.Vec) side {
		switch {
		case v.Z < z-eps:
			return below
		case v.Z > z+eps:
			return above
		default:
			return on
		}
	}

	var segs []geom.Segment
	for _, t := range m.Triangles() {
		lo, hi := t.ZRange()
		if hi < z-eps || lo > z+eps {
			continue
		}
		var s [3]side
		var nOn, nAbove, nBelow int
		for i, v := range t {
			s[i] = classify(v)
			switch s[i] {
			case on:
				nOn++
			case above:
				nAbove++
			default:
				nBelow++
			}
		}

		var seg geom.Segment
		switch {
		case nOn == 3:
			continue
		case nOn == 2:
			if nAbove != 1 {
				continue
			}
			var pts []geom.Point3
			for i, v := range t {
				if s[i] == on {
					pts = append(pts, project(v, z))
				}
			}
			seg = geom.Segment{A: pts[0], B: pts[1]}
		case nOn == 1:
			if nAbove != 1 || nBelow != 1 {
				continue
			}
			var vOn geom.Point3
			var ends []v3.Vec
			for i, v := range t {
				if s[i] == on {
					vOn = project(v, z)
				} else {
					ends = append(ends, v)
				}
			}
			seg = geom.Segment{A: vOn, B: cross(ends[0], ends[1], z)}
		default:
			if nAbove == 0 || nBelow == 0 {
				continue
			}
			var pts []geom.Point3
			for i := 0; i < 3; i++ {
				j := (i + 1) % 3
				if s[i] != s[j] {
					pts = append(pts, cross(t[i], t[j], z))
				}
			}
			seg = geom.Segment{A: pts[0], B: pts[1]}
		}
		segs = append(segs, orient(seg, t.Normal()))
	}
	return segs
}

// project drops v onto the plane.
func project(v v3.Vec, z float64) geom.Point3 {
	return geom.Point3{X: v.X, Y: v.Y, Z: z}
}

// cross interpolates the point where edge a-b meets the plane. The
// endpoints are ordered first so the two triangles sharing an edge compute
// bit-identical points.
func cross(a, b v3.Vec, z float64) geom.Point3 {
	pa := geom.Point3{X: a.X, Y: a.Y, Z: a.Z}
	pb := geom.Point3{X: b.X, Y: b.Y, Z: b.Z}
	if pb.Less(pa) {
		pa, pb = pb, pa
	}
	alpha := (z - pa.Z) / (pb.Z - pa.Z)
	return geom.Point3{
		X: pa.X + alpha*(pb.X-pa.X),
		Y: pa.Y + alpha*(pb.Y-pa.Y),
		Z: z,
	}
}

// orient points seg so that, seen from above, the solid lies to its left.
// Outer boundaries then chain counter-clockwise.
func orient(seg geom.Segment, n v3.Vec) geom.Segment {
	d := geom.Point{X: seg.B.X - seg.A.X, Y: seg.B.Y - seg.A.Y}
	// The tangent of an outward facing wall, walking with material on the
	// left, is up x n.
	tangent := geom.Point{X: -n.Y, Y: n.X}
	if d.Dot(tangent) < 0 {
		seg.A, seg.B = seg.B, seg.A
	}
	return seg
}
