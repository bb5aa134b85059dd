// Package layer defines the per-Z result of slicing and the schedule of Z
// heights a job is cut at.
package layer

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/mesh"
	"github.com/chazu/cncslice/pkg/offset"
)

// Kind classifies a layer warning by the stage that produced it.
type Kind int

const (
	KindGeometry Kind = iota // skipped mesh triangles touching this layer
	KindAssembly             // open or degenerate contours
	KindOffset               // contours lost while offsetting
	KindInternal             // recovered panic while computing the layer
)

func (k Kind) String() string {
	switch k {
	case KindGeometry:
		return "geometry"
	case KindAssembly:
		return "assembly"
	case KindOffset:
		return "offset"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Warning is a recovered, non-fatal problem attached to one layer.
type Warning struct {
	Layer int
	Z     float64
	Kind  Kind
	Err   error
}

func (w Warning) Error() string {
	return fmt.Sprintf("layer %d (z=%g) %s: %v", w.Layer, w.Z, w.Kind, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Classify picks the warning kind for err from its concrete type.
func Classify(err error) Kind {
	var ge *mesh.GeometryError
	var ae *contour.AssemblyError
	var oe *offset.OffsetError
	switch {
	case errors.As(err, &ge):
		return KindGeometry
	case errors.As(err, &ae):
		return KindAssembly
	case errors.As(err, &oe):
		return KindOffset
	default:
		return KindInternal
	}
}

// Layer is everything computed for one Z height. Layers are built by one
// worker and read-only once handed to the planner.
type Layer struct {
	Index int     // position in machining order
	Z     float64 // slicing height in model coordinates

	Contours []contour.Contour // assembled part outline, normalized
	Paths    []contour.Contour // tool-center paths after compensation
	Hatches  []geom.Line       // fill passes, in cutting order

	Warnings []Warning
}

// Warn records err as a warning on l.
func (l *Layer) Warn(err error) {
	l.Warnings = append(l.Warnings, Warning{Layer: l.Index, Z: l.Z, Kind: Classify(err), Err: err})
}

// Empty reports whether the layer has nothing to cut.
func (l Layer) Empty() bool {
	return len(l.Paths) == 0 && len(l.Hatches) == 0
}

// Heights returns the slicing heights for a part spanning minZ..maxZ with
// layer thickness h. Layer i covers [minZ+i*h, minZ+(i+1)*h) and is sliced
// at its middle; a thinner final layer is sliced at the middle of the
// remainder. TopDown returns the heights from the top of the part.
func Heights(minZ, maxZ, h float64, dir config.Direction) []float64 {
	if !(h > 0) || !(maxZ > minZ) || math.IsInf(maxZ-minZ, 0) {
		return nil
	}
	span := maxZ - minZ
	n := int(math.Floor(span/h + 1e-9))
	var zs []float64
	for i := 0; i < n; i++ {
		zs = append(zs, minZ+(float64(i)+0.5)*h)
	}
	if rest := span - float64(n)*h; rest > h*1e-6 {
		zs = append(zs, minZ+float64(n)*h+rest/2)
	}
	if dir != config.BottomUp {
		for i, j := 0, len(zs)-1; i < j; i, j = i+1, j-1 {
			zs[i], zs[j] = zs[j], zs[i]
		}
	}
	return zs
}
