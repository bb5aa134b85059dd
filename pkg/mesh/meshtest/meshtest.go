// Package meshtest builds small exact meshes for tests: boxes, cones,
// hourglasses and extruded polygons.
package meshtest

import (
	"math"

	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

// BoxTriangles returns the 12 outward facing triangles of the box spanning
// min..max.
func BoxTriangles(min, max v3.Vec) []mesh.Triangle {
	poly := []geom.Point{{X: min.X, Y: min.Y}, {X: max.X, Y: min.Y}, {X: max.X, Y: max.Y}, {X: min.X, Y: max.Y}}
	return PrismTriangles(poly, min.Z, max.Z)
}

// Box returns a mesh of the box spanning min..max.
func Box(min, max v3.Vec) *mesh.Mesh {
	return must(mesh.New(BoxTriangles(min, max)))
}

// Cube returns the cube of side s with its minimum corner at the origin.
func Cube(s float64) *mesh.Mesh {
	return Box(v3.Vec{}, vec(s, s, s))
}

// Cone returns a cone of base radius r on z=0 with its apex at height h,
// approximated by n base segments.
func Cone(r, h float64, n int) *mesh.Mesh {
	return must(mesh.New(ConeTriangles(r, 0, h, n)))
}

// ConeTriangles builds a closed cone whose base circle of radius r lies at
// z0 and whose apex is at z1. The apex may be below the base.
func ConeTriangles(r, z0, z1 float64, n int) []mesh.Triangle {
	base := Circle(r, n)
	apex := vec(0, 0, z1)
	center := vec(0, 0, z0)
	up := z1 > z0
	var tris []mesh.Triangle
	for i := range base {
		a := vec(base[i].X, base[i].Y, z0)
		b := vec(base[(i+1)%n].X, base[(i+1)%n].Y, z0)
		if up {
			tris = append(tris, mesh.Triangle{a, b, apex}, mesh.Triangle{center, b, a})
		} else {
			tris = append(tris, mesh.Triangle{b, a, apex}, mesh.Triangle{center, a, b})
		}
	}
	return tris
}

// Hourglass returns two cones of radius r joined apex to apex at z=h. The
// waist is a single pinch vertex.
func Hourglass(r, h float64, n int) *mesh.Mesh {
	// The lower cone has its base at 0 and apex at h; the upper one has
	// its base at 2h and apex at h.
	tris := ConeTriangles(r, 0, h, n)
	tris = append(tris, ConeTriangles(r, 2*h, h, n)...)
	return must(mesh.New(tris))
}

// Circle returns n points on a counter-clockwise circle of radius r.
func Circle(r float64, n int) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

// Prism extrudes the simple counter-clockwise polygon poly from z0 to z1.
func Prism(poly []geom.Point, z0, z1 float64) *mesh.Mesh {
	return must(mesh.New(PrismTriangles(poly, z0, z1)))
}

// PrismTriangles returns the walls and ear-clipped caps of the extrusion
// of poly from z0 to z1.
func PrismTriangles(poly []geom.Point, z0, z1 float64) []mesh.Triangle {
	n := len(poly)
	var tris []mesh.Triangle
	for i := range poly {
		p, q := poly[i], poly[(i+1)%n]
		a, b := vec(p.X, p.Y, z0), vec(q.X, q.Y, z0)
		c, d := vec(q.X, q.Y, z1), vec(p.X, p.Y, z1)
		tris = append(tris, mesh.Triangle{a, b, c}, mesh.Triangle{a, c, d})
	}
	for _, ear := range earClip(poly) {
		p, q, r := poly[ear[0]], poly[ear[1]], poly[ear[2]]
		tris = append(tris,
			mesh.Triangle{vec(p.X, p.Y, z1), vec(q.X, q.Y, z1), vec(r.X, r.Y, z1)},
			mesh.Triangle{vec(r.X, r.Y, z0), vec(q.X, q.Y, z0), vec(p.X, p.Y, z0)},
		)
	}
	return tris
}

// earClip triangulates a simple counter-clockwise polygon.
func earClip(poly []geom.Point) [][3]int {
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	var out [][3]int
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			a, b, c := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			if poly[b].Sub(poly[a]).Cross(poly[c].Sub(poly[b])) <= 0 {
				continue
			}
			tri := []geom.Point{poly[a], poly[b], poly[c]}
			inside := false
			for _, j := range idx {
				if j != a && j != b && j != c && geom.PointInPolygon(poly[j], tri) {
					inside = true
					break
				}
			}
			if inside {
				continue
			}
			out = append(out, [3]int{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}
	if len(idx) == 3 {
		out = append(out, [3]int{idx[0], idx[1], idx[2]})
	}
	return out
}

func must(m *mesh.Mesh, err error) *mesh.Mesh {
	if err != nil {
		panic(err)
	}
	return m
}
