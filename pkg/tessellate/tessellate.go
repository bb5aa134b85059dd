// Package tessellate walks a part graph and produces the triangle mesh that
// is sliced, using a geometry kernel.
package tessellate

import (
	"fmt"

	"github.com/chazu/cncslice/pkg/graph"
	"github.com/chazu/cncslice/pkg/kernel"
	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/mesh"
)

// Tessellate validates g, builds the union of its roots as one solid and
// turns it into a mesh. The tessellator is read-only and never mutates the
// graph.
func Tessellate(g *graph.DesignGraph, k kernel.Kernel) (*mesh.Mesh, error) {
	s, err := Solid(g, k)
	if err != nil {
		return nil, err
	}
	km, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	m, err := km.Build()
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	lo, hi := s.BoundingBox()
	logging.Logger().Debug("tessellated part graph",
		"nodes", g.NodeCount(), "triangles", m.Len(), "skipped", len(m.Skipped()),
		"min", lo, "max", hi)
	return m, nil
}

// Solid validates g and builds the union of its roots.
func Solid(g *graph.DesignGraph, k kernel.Kernel) (kernel.Solid, error) {
	if g == nil {
		return nil, fmt.Errorf("tessellate: no part graph")
	}
	if err := graph.Err(graph.Validate(g)); err != nil {
		return nil, fmt.Errorf("tessellate: invalid part graph: %w", err)
	}

	var out kernel.Solid
	for _, rootID := range g.Roots {
		s, err := walkNode(g, k, g.Get(rootID))
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		if out == nil {
			out = s
		} else {
			out = k.Union(out, s)
		}
	}
	return out, nil
}

// walkNode recursively builds the solid of a node and its children.
func walkNode(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	switch n.Kind {
	case graph.NodePrimitive:
		return handlePrimitive(k, n)

	case graph.NodeTransform:
		return handleTransform(g, k, n)

	case graph.NodeBoolean:
		return handleBoolean(g, k, n)

	case graph.NodeGroup:
		return fold(g, k, n, k.Union)

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// handlePrimitive creates the kernel primitive for a node.
func handlePrimitive(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	var (
		s   kernel.Solid
		err error
	)
	switch d := n.Data.(type) {
	case graph.BoxData:
		s, err = k.Box(d.Size.X, d.Size.Y, d.Size.Z)
	case graph.CylinderData:
		s, err = k.Cylinder(d.Height, d.Radius)
	case graph.ConeData:
		s, err = k.Cone(d.Height, d.Bottom, d.Top)
	case graph.SphereData:
		s, err = k.Sphere(d.Radius)
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("primitive node %s: %w", n.ID.Short(), err)
	}
	return s, nil
}

// handleTransform builds the child, rotates it about the origin, then
// translates it.
func handleTransform(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	s, err := fold(g, k, n, k.Union)
	if err != nil {
		return nil, err
	}
	if r := td.Rotation; r != nil && !r.IsZero() {
		s = k.Rotate(s, r.X, r.Y, r.Z)
	}
	if t := td.Translation; t != nil && !t.IsZero() {
		s = k.Translate(s, t.X, t.Y, t.Z)
	}
	return s, nil
}

func handleBoolean(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	bd, ok := n.Data.(graph.BooleanData)
	if !ok {
		return nil, fmt.Errorf("boolean node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	switch bd.Op {
	case graph.OpUnion:
		return fold(g, k, n, k.Union)
	case graph.OpDifference:
		return fold(g, k, n, k.Difference)
	case graph.OpIntersection:
		return fold(g, k, n, k.Intersection)
	default:
		return nil, fmt.Errorf("boolean node %s has unknown op %v", n.ID.Short(), bd.Op)
	}
}

// fold combines the children of n left to right with op.
func fold(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node, op func(a, b kernel.Solid) kernel.Solid) (kernel.Solid, error) {
	var out kernel.Solid
	for _, child := range g.Children(n) {
		s, err := walkNode(g, k, child)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = s
		} else {
			out = op(out, s)
		}
	}
	if out == nil {
		return nil, fmt.Errorf("%s node %s has no children", n.Kind, n.ID.Short())
	}
	return out, nil
}
