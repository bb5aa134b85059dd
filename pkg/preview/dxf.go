package preview

import (
	"fmt"

	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/layer"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"
)

// DXF layer names.
const (
	DXFOutline = "OUTLINE"
	DXFPaths   = "TOOLPATH"
	DXFHatches = "HATCH"
)

// DXF writes all layers to a single drawing at path. Every entity is drawn
// at its layer's Z, so a CAD viewer shows the stack of slices. Outlines,
// tool paths and hatch passes go on separate DXF layers. The frame and
// scale options do not apply.
func DXF(path string, layers []layer.Layer, opts Options) error {
	d := dxf.NewDrawing()
	if _, err := d.AddLayer(DXFOutline, dxf.DefaultColor, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("preview: dxf: %w", err)
	}
	if opts.Paths {
		if _, err := d.AddLayer(DXFPaths, dxf.DefaultColor, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("preview: dxf: %w", err)
		}
	}
	if opts.Hatches {
		if _, err := d.AddLayer(DXFHatches, dxf.DefaultColor, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("preview: dxf: %w", err)
		}
	}

	for _, l := range layers {
		if err := drawLines(d, DXFOutline, segments(l.Contours), l.Z); err != nil {
			return err
		}
		if opts.Paths {
			if err := drawLines(d, DXFPaths, segments(l.Paths), l.Z); err != nil {
				return err
			}
		}
		if opts.Hatches {
			if err := drawLines(d, DXFHatches, l.Hatches, l.Z); err != nil {
				return err
			}
		}
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("preview: dxf: %w", err)
	}
	return nil
}

func drawLines(d *drawing.Drawing, name string, lines []geom.Line, z float64) error {
	if len(lines) == 0 {
		return nil
	}
	if err := d.ChangeLayer(name); err != nil {
		return fmt.Errorf("preview: dxf: %w", err)
	}
	for _, ln := range lines {
		if _, err := d.Line(ln.A.X, ln.A.Y, z, ln.B.X, ln.B.Y, z); err != nil {
			return fmt.Errorf("preview: dxf: %w", err)
		}
	}
	return nil
}
