package graph

import "testing"

func TestNewDesignGraph(t *testing.T) {
	g := New()
	if g.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if g.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	g := New()

	id := NewNodeID("box/0")
	g.AddNode(&Node{
		ID:   id,
		Kind: NodePrimitive,
		Name: "stock",
		Data: BoxData{Size: Vec3{40, 40, 10}},
	})
	g.AddRoot(id)

	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}
	found := g.Lookup("stock")
	if found == nil || found.ID != id {
		t.Fatal("Lookup('stock') did not return the node")
	}
	if g.MustLookup("stock").ID != id {
		t.Errorf("MustLookup returned wrong node")
	}
	if g.Lookup("nonexistent") != nil {
		t.Error("Lookup should return nil for missing name")
	}
	if got := g.Get(id); got == nil || got.Name != "stock" {
		t.Errorf("Get by ID failed")
	}
	if len(g.Roots) != 1 || g.Roots[0] != id {
		t.Errorf("roots = %v, want [%s]", g.Roots, id.Short())
	}
}

func TestMustLookupPanics(t *testing.T) {
	g := New()
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustLookup should panic on missing name")
		}
	}()
	g.MustLookup("missing")
}

func TestPrimitivesAndChildren(t *testing.T) {
	g := New()

	boxID := NewNodeID("box/0")
	holeID := NewNodeID("cylinder/1")
	cutID := NewNodeID("difference/2")

	g.AddNode(&Node{ID: boxID, Kind: NodePrimitive, Data: BoxData{Size: Vec3{40, 40, 10}}})
	g.AddNode(&Node{ID: holeID, Kind: NodePrimitive, Data: CylinderData{Height: 12, Radius: 5}})
	g.AddNode(&Node{
		ID: cutID, Kind: NodeBoolean, Name: "plate",
		Children: []NodeID{boxID, holeID},
		Data:     BooleanData{Op: OpDifference},
	})

	if n := len(g.Primitives()); n != 2 {
		t.Errorf("Primitives() count = %d, want 2", n)
	}
	children := g.Children(g.Get(cutID))
	if len(children) != 2 {
		t.Fatalf("Children count = %d, want 2", len(children))
	}
	if children[0].ID != boxID || children[1].ID != holeID {
		t.Error("children are not in declaration order")
	}
}

func TestNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("box/0")
	if a != NewNodeID("box/0") {
		t.Error("same path should produce same NodeID")
	}
	if a == NewNodeID("box/1") {
		t.Error("different paths should produce different NodeIDs")
	}
}

func TestNodeIDZero(t *testing.T) {
	var id NodeID
	if !id.IsZero() {
		t.Error("zero-value NodeID should be zero")
	}
	if NewNodeID("something").IsZero() {
		t.Error("non-zero NodeID should not be zero")
	}
}

func TestVec3(t *testing.T) {
	a := Vec3{1, 2, 3}
	if sum := a.Add(Vec3{4, 5, 6}); sum != (Vec3{5, 7, 9}) {
		t.Errorf("Add = %v, want (5, 7, 9)", sum)
	}
	if scaled := a.Scale(2); scaled != (Vec3{2, 4, 6}) {
		t.Errorf("Scale = %v, want (2, 4, 6)", scaled)
	}
	if a.IsZero() || !(Vec3{}).IsZero() {
		t.Error("IsZero is wrong")
	}
}

func TestNodeDataInterface(t *testing.T) {
	var _ NodeData = BoxData{}
	var _ NodeData = CylinderData{}
	var _ NodeData = ConeData{}
	var _ NodeData = SphereData{}
	var _ NodeData = TransformData{}
	var _ NodeData = BooleanData{}
	var _ NodeData = GroupData{}
}

func TestStringers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{NodePrimitive.String(), "primitive"},
		{NodeBoolean.String(), "boolean"},
		{NodeKind(99).String(), "unknown"},
		{OpDifference.String(), "difference"},
		{OpIntersection.String(), "intersection"},
		{SeverityWarning.String(), "warning"},
		{Vec3{1.5, 2.5, 3.5}.String(), "(1.5, 2.5, 3.5)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
	if n := len(NewNodeID("test").Short()); n != 12 {
		t.Errorf("Short() len = %d, want 12", n)
	}
}
