package meshio

import (
	"fmt"
	"io"

	"github.com/chazu/cncslice/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/hpinc/go3mf"
)

// Load3MF reads the mesh objects of a 3MF package.
func Load3MF(path string) (*mesh.Mesh, error) {
	r, err := go3mf.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: open 3mf %s: %w", path, err)
	}
	defer r.Close()
	var model go3mf.Model
	if err := r.Decode(&model); err != nil {
		return nil, fmt.Errorf("meshio: decode 3mf %s: %w", path, err)
	}
	return fromModel(&model)
}

// Read3MF reads a 3MF package of the given size from r.
func Read3MF(r io.ReaderAt, size int64) (*mesh.Mesh, error) {
	var model go3mf.Model
	if err := go3mf.NewDecoder(r, size).Decode(&model); err != nil {
		return nil, fmt.Errorf("meshio: decode 3mf: %w", err)
	}
	return fromModel(&model)
}

// fromModel merges the mesh objects of the root model into one mesh.
// Component objects and build item transforms are not applied; coordinates
// are taken in the model's units as written.
func fromModel(model *go3mf.Model) (*mesh.Mesh, error) {
	var verts []v3.Vec
	var faces [][3]int
	for _, obj := range model.Resources.Objects {
		if obj.Mesh == nil {
			continue
		}
		base := len(verts)
		for _, p := range obj.Mesh.Vertices.Vertex {
			verts = append(verts, v3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
		}
		for _, t := range obj.Mesh.Triangles.Triangle {
			faces = append(faces, [3]int{base + int(t.V1), base + int(t.V2), base + int(t.V3)})
		}
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("meshio: 3mf: %w", mesh.ErrEmptyMesh)
	}
	m, err := mesh.FromIndexed(verts, faces)
	if err != nil {
		return nil, fmt.Errorf("meshio: 3mf: %w", err)
	}
	return m, nil
}

// Write3MF writes m to w as a 3MF package holding a single mesh object.
// Shared vertices are merged.
func Write3MF(w io.Writer, m *mesh.Mesh, name string) error {
	msh := new(go3mf.Mesh)
	index := make(map[v3.Vec]uint32)
	vertex := func(v v3.Vec) uint32 {
		if i, ok := index[v]; ok {
			return i
		}
		i := uint32(len(msh.Vertices.Vertex))
		msh.Vertices.Vertex = append(msh.Vertices.Vertex, go3mf.Point3D{float32(v.X), float32(v.Y), float32(v.Z)})
		index[v] = i
		return i
	}
	for _, t := range m.Triangles() {
		msh.Triangles.Triangle = append(msh.Triangles.Triangle, go3mf.Triangle{
			V1: vertex(t[0]), V2: vertex(t[1]), V3: vertex(t[2]),
		})
	}

	var model go3mf.Model
	model.Resources.Objects = append(model.Resources.Objects, &go3mf.Object{ID: 1, Name: name, Mesh: msh})
	model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: 1})
	if err := go3mf.NewEncoder(w).Encode(&model); err != nil {
		return fmt.Errorf("meshio: encode 3mf: %w", err)
	}
	return nil
}
