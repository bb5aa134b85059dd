// Package mesh holds the read-only triangle mesh that every layer is
// sliced from. Construction validates the input once; afterwards the mesh
// is shared by all slicing workers without locking.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrEmptyMesh is returned when no usable triangle remains.
var ErrEmptyMesh = errors.New("mesh: no valid triangles")

// Triangle is three vertices in counter-clockwise order seen from outside.
type Triangle [3]v3.Vec

// Normal returns the unit outward normal, or the zero vector for a
// degenerate triangle.
func (t Triangle) Normal() v3.Vec {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}

// Area returns the surface area of t.
func (t Triangle) Area() float64 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length() / 2
}

// ZRange returns the lowest and highest vertex Z.
func (t Triangle) ZRange() (lo, hi float64) {
	lo = math.Min(t[0].Z, math.Min(t[1].Z, t[2].Z))
	hi = math.Max(t[0].Z, math.Max(t[1].Z, t[2].Z))
	return lo, hi
}

func (t Triangle) finite() bool {
	for _, v := range t {
		for _, c := range []float64{v.X, v.Y, v.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

// GeometryError describes a triangle dropped during construction.
type GeometryError struct {
	Index  int // position in the input
	Reason string
	// MinZ and MaxZ are the finite part of the triangle's Z span, used to
	// report the problem on the layers it would have touched. Both are NaN
	// when no vertex Z is finite.
	MinZ, MaxZ float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("mesh: triangle %d: %s", e.Index, e.Reason)
}

// Mesh is an immutable list of valid triangles with their bounding box.
type Mesh struct {
	tris    []Triangle
	bounds  sdf.Box3
	skipped []*GeometryError
}

// minArea is the area below which a triangle is treated as degenerate.
const minArea = 1e-12

// New validates tris and builds a mesh. Triangles with non-finite
// coordinates or zero area are skipped and recorded; the mesh is an error
// only when nothing survives.
func New(tris []Triangle) (*Mesh, error) {
	m := &Mesh{tris: make([]Triangle, 0, len(tris))}
	first := true
	for i, t := range tris {
		if !t.finite() {
			m.skip(i, t, "non-finite vertex coordinate")
			continue
		}
		if !(t.Area() > minArea) {
			m.skip(i, t, "zero area")
			continue
		}
		m.tris = append(m.tris, t)
		for _, v := range t {
			if first {
				m.bounds = sdf.Box3{Min: v, Max: v}
				first = false
				continue
			}
			m.bounds.Min = m.bounds.Min.Min(v)
			m.bounds.Max = m.bounds.Max.Max(v)
		}
	}
	if len(m.tris) == 0 {
		return nil, fmt.Errorf("%w (%d skipped of %d)", ErrEmptyMesh, len(m.skipped), len(tris))
	}
	return m, nil
}

func (m *Mesh) skip(i int, t Triangle, reason string) {
	lo, hi := math.NaN(), math.NaN()
	for _, v := range t {
		if math.IsNaN(v.Z) || math.IsInf(v.Z, 0) {
			continue
		}
		if math.IsNaN(lo) || v.Z < lo {
			lo = v.Z
		}
		if math.IsNaN(hi) || v.Z > hi {
			hi = v.Z
		}
	}
	m.skipped = append(m.skipped, &GeometryError{Index: i, Reason: reason, MinZ: lo, MaxZ: hi})
}

// FromIndexed builds a mesh from a shared vertex list and triangle index
// triples. Faces referencing missing vertices are skipped like any other
// invalid triangle.
func FromIndexed(verts []v3.Vec, faces [][3]int) (*Mesh, error) {
	tris := make([]Triangle, len(faces))
	bad := make(map[int]bool)
	for i, f := range faces {
		for j, idx := range f {
			if idx < 0 || idx >= len(verts) {
				bad[i] = true
				break
			}
			tris[i][j] = verts[idx]
		}
	}
	if len(bad) == 0 {
		return New(tris)
	}
	nan := v3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	for i := range bad {
		tris[i] = Triangle{nan, nan, nan}
	}
	m, err := New(tris)
	if m != nil {
		for _, ge := range m.skipped {
			if bad[ge.Index] {
				ge.Reason = "vertex index out of range"
			}
		}
	}
	return m, err
}

// FromFlat builds a mesh from flat float32 vertex triples and uint32 index
// triples, the layout produced by kernel tessellation and accepted by the
// HTTP API.
func FromFlat(vertices []float32, indices []uint32) (*Mesh, error) {
	if len(vertices)%3 != 0 {
		return nil, fmt.Errorf("mesh: vertex array length %d is not a multiple of 3", len(vertices))
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh: index array length %d is not a multiple of 3", len(indices))
	}
	verts := make([]v3.Vec, len(vertices)/3)
	for i := range verts {
		verts[i] = v3.Vec{
			X: float64(vertices[3*i]),
			Y: float64(vertices[3*i+1]),
			Z: float64(vertices[3*i+2]),
		}
	}
	faces := make([][3]int, len(indices)/3)
	for i := range faces {
		faces[i] = [3]int{int(indices[3*i]), int(indices[3*i+1]), int(indices[3*i+2])}
	}
	return FromIndexed(verts, faces)
}

// Len returns the number of valid triangles.
func (m *Mesh) Len() int { return len(m.tris) }

// Triangles returns the valid triangles. The slice must not be modified.
func (m *Mesh) Triangles() []Triangle { return m.tris }

// Bounds returns the axis aligned bounding box of the valid triangles.
func (m *Mesh) Bounds() sdf.Box3 { return m.bounds }

// Skipped returns the triangles rejected by New.
func (m *Mesh) Skipped() []*GeometryError { return m.skipped }

// SkippedAt returns the skipped triangles whose Z span contains z.
func (m *Mesh) SkippedAt(z float64) []*GeometryError {
	var out []*GeometryError
	for _, ge := range m.skipped {
		if ge.MinZ <= z && z <= ge.MaxZ {
			out = append(out, ge)
		}
	}
	return out
}

// Translate returns a copy of m moved by d. Skipped triangles are carried
// over with their Z span shifted.
func (m *Mesh) Translate(d v3.Vec) *Mesh {
	out := &Mesh{
		tris:   make([]Triangle, len(m.tris)),
		bounds: sdf.Box3{Min: m.bounds.Min.Add(d), Max: m.bounds.Max.Add(d)},
	}
	for i, t := range m.tris {
		out.tris[i] = Triangle{t[0].Add(d), t[1].Add(d), t[2].Add(d)}
	}
	for _, ge := range m.skipped {
		moved := *ge
		moved.MinZ += d.Z
		moved.MaxZ += d.Z
		out.skipped = append(out.skipped, &moved)
	}
	return out
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var a float64
	for _, t := range m.tris {
		a += t.Area()
	}
	return a
}

// Volume returns the signed enclosed volume, positive for a closed mesh
// with outward facing normals.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, t := range m.tris {
		v += t[0].Dot(t[1].Cross(t[2]))
	}
	return v / 6
}
