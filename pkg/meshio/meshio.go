// Package meshio reads and writes triangle meshes in STL and 3MF files.
package meshio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/mesh"
)

// Format identifies a mesh file format.
type Format string

const (
	FormatSTL Format = "stl"
	Format3MF Format = "3mf"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".stl":
		return FormatSTL, nil
	case ".3mf":
		return Format3MF, nil
	default:
		return "", fmt.Errorf("meshio: unsupported mesh format %q", ext)
	}
}

// Load reads the mesh file at path, choosing the reader by extension.
// Read and parse failures are fatal; individual bad triangles are skipped
// and reported by the mesh.
func Load(path string) (*mesh.Mesh, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	var m *mesh.Mesh
	switch format {
	case FormatSTL:
		m, err = LoadSTL(path)
	case Format3MF:
		m, err = Load3MF(path)
	}
	if err != nil {
		return nil, err
	}
	b := m.Bounds()
	logging.Logger().Debug("mesh loaded", "path", path, "format", string(format),
		"triangles", m.Len(), "skipped", len(m.Skipped()), "min", b.Min, "max", b.Max)
	return m, nil
}

// Save writes m to path in the format implied by its extension.
func Save(path string, m *mesh.Mesh) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch format {
	case FormatSTL:
		err = WriteSTL(f, m, name)
	case Format3MF:
		err = Write3MF(f, m, name)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("meshio: %w", cerr)
	}
	return err
}

// Read reads a mesh of the given format from r.
func Read(r io.Reader, format Format) (*mesh.Mesh, error) {
	switch format {
	case FormatSTL:
		return ReadSTL(r)
	case Format3MF:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("meshio: read 3mf: %w", err)
		}
		return Read3MF(bytes.NewReader(data), int64(len(data)))
	}
	return nil, fmt.Errorf("meshio: unsupported mesh format %q", format)
}
