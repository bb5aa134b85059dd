package meshio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/cncslice/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/hschendel/stl"
)

// LoadSTL reads an ASCII or binary STL file.
func LoadSTL(path string) (*mesh.Mesh, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: read stl %s: %w", path, err)
	}
	return fromSolid(solid)
}

// ReadSTL reads ASCII or binary STL data from r.
func ReadSTL(r io.Reader) (*mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("meshio: read stl: %w", err)
	}
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("meshio: read stl: %w", err)
	}
	return fromSolid(solid)
}

// fromSolid converts STL facets. Stored normals are ignored; the winding
// order defines the outward side.
func fromSolid(solid *stl.Solid) (*mesh.Mesh, error) {
	tris := make([]mesh.Triangle, len(solid.Triangles))
	for i, t := range solid.Triangles {
		for j, v := range t.Vertices {
			tris[i][j] = v3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
		}
	}
	m, err := mesh.New(tris)
	if err != nil {
		return nil, fmt.Errorf("meshio: stl %q: %w", solid.Name, err)
	}
	return m, nil
}

// WriteSTL writes m to w as a binary STL solid.
func WriteSTL(w io.Writer, m *mesh.Mesh, name string) error {
	solid := &stl.Solid{Name: name, Triangles: make([]stl.Triangle, m.Len())}
	for i, t := range m.Triangles() {
		n := t.Normal()
		solid.Triangles[i].Normal = stl.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
		for j, v := range t {
			solid.Triangles[i].Vertices[j] = stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
		}
	}
	if err := solid.WriteAll(w); err != nil {
		return fmt.Errorf("meshio: write stl: %w", err)
	}
	return nil
}
