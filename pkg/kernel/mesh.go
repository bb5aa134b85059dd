package kernel

import "github.com/chazu/cncslice/pkg/mesh"

// Mesh is a flat triangle mesh as produced by tessellation.
// Vertices has 3 floats per vertex (x,y,z), normals has 3 floats per
// vertex, indices has 3 uint32s per triangle. The same layout is accepted
// as JSON by the slicing server.
type Mesh struct {
	Vertices []float32 `json:"vertices"`          // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals,omitempty"` // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`           // [i0,i1,i2, ...] triangles
	Name     string    `json:"name,omitempty"`    // part name, if any
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Build validates the flat arrays into a sliceable mesh.
func (m *Mesh) Build() (*mesh.Mesh, error) {
	return mesh.FromFlat(m.Vertices, m.Indices)
}
