package meshio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cncslice/pkg/mesh"
	"github.com/chazu/cncslice/pkg/mesh/meshtest"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const asciiTriangle = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 4 0 0
      vertex 0 3 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 1 1 1
      vertex 1 1 1
      vertex 2 2 2
    endloop
  endfacet
endsolid tri
`

func checkCube(t *testing.T, m *mesh.Mesh, side float64) {
	t.Helper()
	if m.Len() != 12 {
		t.Errorf("got %d triangles, want 12", m.Len())
	}
	b := m.Bounds()
	if b.Min != (v3.Vec{}) || b.Max != (v3.Vec{X: side, Y: side, Z: side}) {
		t.Errorf("bounds = %v..%v", b.Min, b.Max)
	}
	if v := m.Volume(); math.Abs(v-side*side*side) > 1e-6 {
		t.Errorf("volume = %g, want %g", v, side*side*side)
	}
}

func TestReadASCIISTL(t *testing.T) {
	m, err := ReadSTL(strings.NewReader(asciiTriangle))
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("got %d triangles", m.Len())
	}
	if a := m.Area(); a != 6 {
		t.Errorf("area = %g, want 6", a)
	}
	if sk := m.Skipped(); len(sk) != 1 || sk[0].Index != 1 {
		t.Errorf("skipped = %v", sk)
	}
}

func TestSTLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSTL(&buf, meshtest.Cube(10), "cube"); err != nil {
		t.Fatal(err)
	}
	// 80 byte header, count, 50 bytes per facet.
	if buf.Len() != 84+12*50 {
		t.Errorf("binary STL is %d bytes", buf.Len())
	}
	m, err := ReadSTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	checkCube(t, m, 10)
}

func Test3MFRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write3MF(&buf, meshtest.Cube(4), "cube"); err != nil {
		t.Fatal(err)
	}
	m, err := Read3MF(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	checkCube(t, m, 4)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"part.stl", "part.3mf", "PART.STL"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(path, meshtest.Cube(2)); err != nil {
				t.Fatal(err)
			}
			m, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			checkCube(t, m, 2)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "part.obj")); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("obj: %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.stl")); err == nil {
		t.Error("missing file loaded")
	}

	garbage := filepath.Join(dir, "garbage.3mf")
	if err := os.WriteFile(garbage, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); err == nil {
		t.Error("garbage 3mf loaded")
	}

	degenerate := "solid d\nfacet normal 0 0 0\nouter loop\nvertex 0 0 0\nvertex 0 0 0\nvertex 0 0 0\nendloop\nendfacet\nendsolid d\n"
	if _, err := ReadSTL(strings.NewReader(degenerate)); !errors.Is(err, mesh.ErrEmptyMesh) {
		t.Errorf("degenerate stl: %v", err)
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{"a.stl": FormatSTL, "b.3MF": Format3MF, "/x/y.Stl": FormatSTL}
	for path, want := range tests {
		if got, err := FormatOf(path); err != nil || got != want {
			t.Errorf("FormatOf(%q) = %q, %v", path, got, err)
		}
	}
	if _, err := FormatOf("part"); err == nil {
		t.Error("no extension accepted")
	}
}
