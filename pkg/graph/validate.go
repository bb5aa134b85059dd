package graph

import (
	"errors"
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a validation finding blocks
// tessellation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks tessellation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// Validate runs the structural and shape checks on the graph and returns
// every finding. An empty slice means the graph is valid. Validate never
// mutates the graph.
func Validate(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	errs = append(errs, validateShapes(g)...)
	return errs
}

// Err joins the error-severity findings of errs, or returns nil when there
// are none.
func Err(errs []ValidationError) error {
	var out []error
	for _, e := range errs {
		if e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	return errors.Join(out...)
}

func errorAt(id NodeID, format string, args ...any) ValidationError {
	return ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(g *DesignGraph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, errorAt(id, "cycle detected: node %s is part of a cycle", id.Short()))
			return true
		}

		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range g.Nodes {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every child reference points to a node
// that exists in g.Nodes.
func validateReferences(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for _, node := range g.Nodes {
		for _, childID := range node.Children {
			if _, ok := g.Nodes[childID]; !ok {
				errs = append(errs, errorAt(node.ID, "child reference %s does not exist", childID.Short()))
			}
		}
	}
	return errs
}

// validateNames checks that the NameIndex is injective and that every entry
// points to an existing node.
func validateNames(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for name, id := range g.NameIndex {
		if _, ok := g.Nodes[id]; !ok {
			errs = append(errs, errorAt(NodeID{}, "name index entry %q references non-existent node %s", name, id.Short()))
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range g.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, errorAt(NodeID{}, "duplicate name %q assigned to %d nodes", name, len(ids)))
		}
	}
	return errs
}

// validateRoots checks that the graph has roots, that every root exists, and
// warns about nodes unreachable from any root.
func validateRoots(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	if len(g.Roots) == 0 {
		errs = append(errs, errorAt(NodeID{}, "graph has no roots"))
	}
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; !ok {
			errs = append(errs, errorAt(NodeID{}, "root reference %s does not exist", rid.Short()))
		}
	}

	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(g.Roots))
	for _, rid := range g.Roots {
		if _, ok := g.Nodes[rid]; ok && !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}
	for len(queue) > 0 {
		node := g.Nodes[queue[0]]
		queue = queue[1:]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range g.Nodes {
		if !reachable[id] {
			name := node.Name
			if name == "" {
				name = id.Short()
			}
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", name),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateShapes checks that each node carries the data for its kind, that
// primitive dimensions are positive and finite, and that every kind has the
// number of children it needs.
func validateShapes(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	for _, node := range g.Nodes {
		n := len(node.Children)
		switch node.Kind {
		case NodePrimitive:
			if n != 0 {
				errs = append(errs, errorAt(node.ID, "primitive has %d children", n))
			}
			errs = append(errs, validateDims(node)...)
		case NodeTransform:
			td, ok := node.Data.(TransformData)
			if !ok {
				errs = append(errs, errorAt(node.ID, "transform carries %T", node.Data))
				continue
			}
			if n != 1 {
				errs = append(errs, errorAt(node.ID, "transform needs exactly 1 child, has %d", n))
			}
			for _, v := range []*Vec3{td.Translation, td.Rotation} {
				if v != nil && !finite(v.X, v.Y, v.Z) {
					errs = append(errs, errorAt(node.ID, "transform vector %v is not finite", *v))
				}
			}
		case NodeBoolean:
			if _, ok := node.Data.(BooleanData); !ok {
				errs = append(errs, errorAt(node.ID, "boolean carries %T", node.Data))
				continue
			}
			if n < 2 {
				errs = append(errs, errorAt(node.ID, "boolean needs at least 2 children, has %d", n))
			}
		case NodeGroup:
			if n == 0 {
				errs = append(errs, errorAt(node.ID, "group is empty"))
			}
		default:
			errs = append(errs, errorAt(node.ID, "unknown node kind %v", node.Kind))
		}
	}
	return errs
}

func validateDims(node *Node) []ValidationError {
	var dims map[string]float64
	switch d := node.Data.(type) {
	case BoxData:
		dims = map[string]float64{"x": d.Size.X, "y": d.Size.Y, "z": d.Size.Z}
	case CylinderData:
		dims = map[string]float64{"height": d.Height, "radius": d.Radius}
	case ConeData:
		dims = map[string]float64{"height": d.Height, "bottom radius": d.Bottom}
		if d.Top < 0 || !finite(d.Top) {
			return []ValidationError{errorAt(node.ID, "cone top radius %g must be zero or positive", d.Top)}
		}
	case SphereData:
		dims = map[string]float64{"radius": d.Radius}
	default:
		return []ValidationError{errorAt(node.ID, "primitive carries %T", node.Data)}
	}
	var errs []ValidationError
	for _, name := range []string{"x", "y", "z", "height", "radius", "bottom radius"} {
		v, ok := dims[name]
		if ok && (v <= 0 || !finite(v)) {
			errs = append(errs, errorAt(node.ID, "%s %s %g must be positive", shapeName(node.Data), name, v))
		}
	}
	return errs
}

func shapeName(d NodeData) string {
	switch d.(type) {
	case BoxData:
		return "box"
	case CylinderData:
		return "cylinder"
	case ConeData:
		return "cone"
	case SphereData:
		return "sphere"
	default:
		return "primitive"
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
