package graph

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

var quiet = log.New(io.Discard)

func nodeIDs(v Visible) []string {
	ids := make([]string, len(v.Nodes))
	for i, n := range v.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func edgeKeys(v Visible) []string {
	keys := make([]string, len(v.Edges))
	for i, e := range v.Edges {
		keys[i] = e.Key()
	}
	return keys
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// mustStore builds a store from patches in order.
func mustStore(t *testing.T, patches ...Patch) *Store {
	t.Helper()
	s := NewStore()
	for _, p := range patches {
		if _, err := s.Upsert(p); err != nil {
			t.Fatalf("Upsert(%s) error: %v", p.ID, err)
		}
	}
	return s
}

func TestComputeVisibleEmpty(t *testing.T) {
	v := ComputeVisible(NewStore(), quiet)
	if len(v.Nodes) != 0 || len(v.Edges) != 0 {
		t.Errorf("ComputeVisible(empty) = %d nodes, %d edges", len(v.Nodes), len(v.Edges))
	}
}

func TestComputeVisibleRootOnly(t *testing.T) {
	s := mustStore(t, Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A"}))}, Patch{ID: "A"})
	v := ComputeVisible(s, quiet)
	if got := nodeIDs(v); !equal(got, []string{"P"}) {
		t.Errorf("nodes = %v, want [P] while collapsed", got)
	}
	if len(v.Edges) != 0 {
		t.Errorf("edges = %v, want none", edgeKeys(v))
	}
}

func TestComputeVisibleExpansion(t *testing.T) {
	// P -> A, B; A -> C, D
	s := mustStore(t,
		Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A", "B"}))},
		Patch{ID: "A", Children: ptr(LoadedChildren([]string{"C", "D"}))},
		Patch{ID: "B"},
		Patch{ID: "C"},
		Patch{ID: "D"},
	)
	_ = s.SetExpanded("P", true)

	tests := []struct {
		name      string
		expandA   bool
		wantNodes []string
		wantEdges []string
	}{
		{
			name:      "A collapsed",
			wantNodes: []string{"P", "A", "B"},
			wantEdges: []string{"P-A", "P-B"},
		},
		{
			name:      "A expanded",
			expandA:   true,
			wantNodes: []string{"P", "A", "C", "D", "B"},
			wantEdges: []string{"P-A", "A-C", "A-D", "P-B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = s.SetExpanded("A", tt.expandA)
			v := ComputeVisible(s, quiet)
			if got := nodeIDs(v); !equal(got, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", got, tt.wantNodes)
			}
			if got := edgeKeys(v); !equal(got, tt.wantEdges) {
				t.Errorf("edges = %v, want %v", got, tt.wantEdges)
			}
		})
	}

	_ = s.SetExpanded("A", true)
	v := ComputeVisible(s, quiet)
	c, _ := v.Node("C")
	if c.Depth != 2 {
		t.Errorf("C depth = %d, want 2", c.Depth)
	}
}

func TestComputeVisibleCollapseHidesDescendants(t *testing.T) {
	s := mustStore(t,
		Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A"}))},
		Patch{ID: "A", Children: ptr(LoadedChildren([]string{"B"}))},
		Patch{ID: "B", Children: ptr(LoadedChildren([]string{"C"}))},
		Patch{ID: "C"},
	)
	for _, id := range []string{"P", "A", "B"} {
		_ = s.SetExpanded(id, true)
	}
	if got := nodeIDs(ComputeVisible(s, quiet)); !equal(got, []string{"P", "A", "B", "C"}) {
		t.Fatalf("expanded nodes = %v", got)
	}

	_ = s.SetExpanded("A", false)
	v := ComputeVisible(s, quiet)
	if got := nodeIDs(v); !equal(got, []string{"P", "A"}) {
		t.Errorf("nodes after collapse = %v, want [P A]", got)
	}
	b, _ := s.Get("B")
	if !b.IsExpanded {
		t.Error("collapsing an ancestor changed a descendant's expansion")
	}
}

func TestComputeVisibleSkipsMissingChild(t *testing.T) {
	s := mustStore(t,
		Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A", "ghost", "B"}))},
		Patch{ID: "A"},
		Patch{ID: "B"},
	)
	_ = s.SetExpanded("P", true)
	v := ComputeVisible(s, quiet)
	if got := nodeIDs(v); !equal(got, []string{"P", "A", "B"}) {
		t.Errorf("nodes = %v, want [P A B]", got)
	}
	if got := edgeKeys(v); !equal(got, []string{"P-A", "P-B"}) {
		t.Errorf("edges = %v, want [P-A P-B]", got)
	}
}

func TestComputeVisibleCycleTerminates(t *testing.T) {
	s := mustStore(t,
		Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A"}))},
		Patch{ID: "A", Children: ptr(LoadedChildren([]string{"B"}))},
		Patch{ID: "B", Children: ptr(LoadedChildren([]string{"A", "P"}))},
	)
	for _, id := range []string{"P", "A", "B"} {
		_ = s.SetExpanded(id, true)
	}
	v := ComputeVisible(s, quiet)
	if got := nodeIDs(v); !equal(got, []string{"P", "A", "B"}) {
		t.Errorf("nodes = %v, want [P A B]", got)
	}
	if got := edgeKeys(v); !equal(got, []string{"P-A", "A-B", "B-A"}) {
		t.Errorf("edges = %v, want [P-A A-B B-A]", got)
	}
	root, _ := s.Root()
	if root.Depth != 0 {
		t.Errorf("root depth = %d, want 0", root.Depth)
	}
}

func TestComputeVisibleSharedChild(t *testing.T) {
	s := mustStore(t,
		Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A", "B"}))},
		Patch{ID: "A", Children: ptr(LoadedChildren([]string{"S"}))},
		Patch{ID: "B", Children: ptr(LoadedChildren([]string{"S"}))},
		Patch{ID: "S"},
	)
	for _, id := range []string{"P", "A", "B"} {
		_ = s.SetExpanded(id, true)
	}
	v := ComputeVisible(s, quiet)
	if got := nodeIDs(v); !equal(got, []string{"P", "A", "S", "B"}) {
		t.Errorf("nodes = %v, want S once", got)
	}
	if got := edgeKeys(v); !equal(got, []string{"P-A", "A-S", "P-B", "B-S"}) {
		t.Errorf("edges = %v", got)
	}
}

func TestComputeVisibleIdempotent(t *testing.T) {
	s := mustStore(t,
		Patch{ID: "P", IsPharmacy: true, Children: ptr(LoadedChildren([]string{"A", "B"}))},
		Patch{ID: "A"},
		Patch{ID: "B"},
	)
	_ = s.SetExpanded("P", true)
	first := ComputeVisible(s, quiet)
	second := ComputeVisible(s, quiet)
	if !equal(nodeIDs(first), nodeIDs(second)) || !equal(edgeKeys(first), edgeKeys(second)) {
		t.Error("ComputeVisible() is not stable across calls")
	}
}
