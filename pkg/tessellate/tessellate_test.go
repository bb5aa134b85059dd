package tessellate_test

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/chazu/cncslice/pkg/graph"
	"github.com/chazu/cncslice/pkg/kernel"
	"github.com/chazu/cncslice/pkg/kernel/sdfx"
	"github.com/chazu/cncslice/pkg/tessellate"
)

// exprSolid records how a solid was built.
type exprSolid string

func (exprSolid) BoundingBox() (min, max [3]float64) { return }

// exprKernel builds solids as expressions so the walk order can be checked
// without tessellating.
type exprKernel struct{}

func (exprKernel) Box(x, y, z float64) (kernel.Solid, error) {
	return exprSolid(fmt.Sprintf("box(%g,%g,%g)", x, y, z)), nil
}
func (exprKernel) Cylinder(h, r float64) (kernel.Solid, error) {
	return exprSolid(fmt.Sprintf("cylinder(%g,%g)", h, r)), nil
}
func (exprKernel) Cone(h, b, t float64) (kernel.Solid, error) {
	return exprSolid(fmt.Sprintf("cone(%g,%g,%g)", h, b, t)), nil
}
func (exprKernel) Sphere(r float64) (kernel.Solid, error) {
	return exprSolid(fmt.Sprintf("sphere(%g)", r)), nil
}
func (exprKernel) Union(a, b kernel.Solid) kernel.Solid {
	return exprSolid(fmt.Sprintf("union(%s,%s)", a, b))
}
func (exprKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return exprSolid(fmt.Sprintf("difference(%s,%s)", a, b))
}
func (exprKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return exprSolid(fmt.Sprintf("intersection(%s,%s)", a, b))
}
func (exprKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return exprSolid(fmt.Sprintf("translate(%s,%g,%g,%g)", s, x, y, z))
}
func (exprKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return exprSolid(fmt.Sprintf("rotate(%s,%g,%g,%g)", s, x, y, z))
}
func (exprKernel) ToMesh(kernel.Solid) (*kernel.Mesh, error) {
	return &kernel.Mesh{}, nil
}

// graphBuilder numbers nodes in creation order.
type graphBuilder struct {
	g *graph.DesignGraph
	n int
}

func newBuilder() *graphBuilder { return &graphBuilder{g: graph.New()} }

func (b *graphBuilder) add(kind graph.NodeKind, data graph.NodeData, children ...graph.NodeID) graph.NodeID {
	id := graph.NewNodeID(fmt.Sprintf("node/%d", b.n))
	b.n++
	b.g.AddNode(&graph.Node{ID: id, Kind: kind, Children: children, Data: data})
	return id
}

func (b *graphBuilder) box(x, y, z float64) graph.NodeID {
	return b.add(graph.NodePrimitive, graph.BoxData{Size: graph.Vec3{X: x, Y: y, Z: z}})
}

func (b *graphBuilder) translate(child graph.NodeID, x, y, z float64) graph.NodeID {
	v := graph.Vec3{X: x, Y: y, Z: z}
	return b.add(graph.NodeTransform, graph.TransformData{Translation: &v}, child)
}

// plate is a 40x40x10 box with a radius 5 through hole at its center.
func plate() *graph.DesignGraph {
	b := newBuilder()
	box := b.box(40, 40, 10)
	hole := b.translate(b.add(graph.NodePrimitive, graph.CylinderData{Height: 12, Radius: 5}), 20, 20, -1)
	b.g.AddRoot(b.add(graph.NodeBoolean, graph.BooleanData{Op: graph.OpDifference}, box, hole))
	return b.g
}

func TestSolidExpressions(t *testing.T) {
	tests := []struct {
		name  string
		build func() *graph.DesignGraph
		want  string
	}{
		{"plate", plate, "difference(box(40,40,10),translate(cylinder(12,5),20,20,-1))"},
		{"roots are unioned", func() *graph.DesignGraph {
			b := newBuilder()
			b.g.AddRoot(b.box(1, 2, 3))
			b.g.AddRoot(b.add(graph.NodePrimitive, graph.SphereData{Radius: 4}))
			return b.g
		}, "union(box(1,2,3),sphere(4))"},
		{"rotate before translate", func() *graph.DesignGraph {
			b := newBuilder()
			r := graph.Vec3{Z: 90}
			tr := graph.Vec3{X: 5}
			b.g.AddRoot(b.add(graph.NodeTransform, graph.TransformData{Translation: &tr, Rotation: &r}, b.box(1, 1, 1)))
			return b.g
		}, "translate(rotate(box(1,1,1),0,0,90),5,0,0)"},
		{"difference folds left", func() *graph.DesignGraph {
			b := newBuilder()
			c := b.add(graph.NodePrimitive, graph.ConeData{Height: 3, Bottom: 2})
			b.g.AddRoot(b.add(graph.NodeBoolean, graph.BooleanData{Op: graph.OpDifference}, b.box(9, 9, 9), c, b.box(1, 1, 1)))
			return b.g
		}, "difference(difference(box(9,9,9),cone(3,2,0)),box(1,1,1))"},
		{"group unions children", func() *graph.DesignGraph {
			b := newBuilder()
			x := b.add(graph.NodeBoolean, graph.BooleanData{Op: graph.OpIntersection}, b.box(2, 2, 2), b.translate(b.box(2, 2, 2), 1, 0, 0))
			b.g.AddRoot(b.add(graph.NodeGroup, graph.GroupData{}, x, b.box(1, 1, 1)))
			return b.g
		}, "union(intersection(box(2,2,2),translate(box(2,2,2),1,0,0)),box(1,1,1))"},
		{"zero translation is skipped", func() *graph.DesignGraph {
			b := newBuilder()
			b.g.AddRoot(b.translate(b.box(1, 1, 1), 0, 0, 0))
			return b.g
		}, "box(1,1,1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tessellate.Solid(tt.build(), exprKernel{})
			if err != nil {
				t.Fatal(err)
			}
			if got := string(s.(exprSolid)); got != tt.want {
				t.Errorf("solid = %s\nwant    %s", got, tt.want)
			}
		})
	}
}

func TestInvalidGraph(t *testing.T) {
	if _, err := tessellate.Solid(nil, exprKernel{}); err == nil {
		t.Error("nil graph accepted")
	}
	if _, err := tessellate.Solid(graph.New(), exprKernel{}); err == nil || !strings.Contains(err.Error(), "no roots") {
		t.Errorf("empty graph: %v", err)
	}
	b := newBuilder()
	b.g.AddRoot(b.box(10, 0, 10))
	if _, err := tessellate.Tessellate(b.g, exprKernel{}); err == nil || !strings.Contains(err.Error(), "must be positive") {
		t.Errorf("zero-size box: %v", err)
	}
}

func TestTessellatePlate(t *testing.T) {
	k := sdfx.NewWithCells(60)

	m, err := tessellate.Tessellate(plate(), k)
	if err != nil {
		t.Fatal(err)
	}
	b := m.Bounds()
	const tol = 1.0
	if math.Abs(b.Min.X) > tol || math.Abs(b.Max.X-40) > tol || math.Abs(b.Min.Z) > tol || math.Abs(b.Max.Z-10) > tol {
		t.Errorf("plate bounds = %v", b)
	}
	// 40*40*10 minus the hole of pi*25*10.
	want := 16000 - math.Pi*25*10
	if v := math.Abs(m.Volume()); math.Abs(v-want) > 0.05*want {
		t.Errorf("plate volume = %f, want ~%f", v, want)
	}
}
