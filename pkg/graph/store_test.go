package graph

import (
	"errors"
	"testing"

	"github.com/matzehuels/contractmap/pkg/provider"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if _, err := s.Upsert(Patch{
		ID:         "root",
		Name:       "제약사",
		IsPharmacy: true,
		Children:   ptr(LoadedChildren([]string{"a", "b"})),
	}); err != nil {
		t.Fatalf("Upsert(root) error: %v", err)
	}
	s.nodes["root"].IsExpanded = true
	for _, id := range []string{"a", "b"} {
		if _, err := s.Upsert(Patch{ID: id, Name: id, Depth: 1, ChildrenCount: 2}); err != nil {
			t.Fatalf("Upsert(%s) error: %v", id, err)
		}
	}
	return s
}

func TestUpsertInsert(t *testing.T) {
	s := NewStore()
	n, err := s.Upsert(Patch{ID: "x", Name: "주식회사 가나다", ChildrenCount: 3, Depth: 2})
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if n.DisplayName != "가나다" {
		t.Errorf("DisplayName = %q, want %q", n.DisplayName, "가나다")
	}
	if n.Children.State() != ChildrenUnknown {
		t.Errorf("Children = %v, want unknown", n.Children.State())
	}
	if n.Depth != 2 || n.ChildrenCount != 3 {
		t.Errorf("Depth/ChildrenCount = %d/%d, want 2/3", n.Depth, n.ChildrenCount)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := NewStore()
	p := Patch{ID: "x", Name: "가나", CEOName: "홍길동", ChildrenCount: 2}
	first, _ := s.Upsert(p)
	before := *first.Clone()
	second, _ := s.Upsert(p)

	if first != second {
		t.Error("Upsert() returned a different node for the same id")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if second.Name != before.Name || second.CEOName != before.CEOName ||
		second.ChildrenCount != before.ChildrenCount || second.Children.State() != before.Children.State() {
		t.Errorf("second Upsert() changed node: %+v -> %+v", before, *second)
	}
}

func TestUpsertMerge(t *testing.T) {
	tests := []struct {
		name      string
		initial   Patch
		patch     Patch
		wantState ChildrenState
		wantCount int
		wantCEO   string
	}{
		{
			name:      "children fill unknown",
			initial:   Patch{ID: "x", CEOName: "홍"},
			patch:     Patch{ID: "x", Children: ptr(LoadedChildren([]string{"c"}))},
			wantState: ChildrenLoaded,
			wantCount: 1,
			wantCEO:   "홍",
		},
		{
			name:      "children kept when known",
			initial:   Patch{ID: "x", Children: ptr(LoadedChildren([]string{"c", "d"}))},
			patch:     Patch{ID: "x", Children: ptr(EmptyChildren()), ChildrenCount: 7},
			wantState: ChildrenLoaded,
			wantCount: 2,
		},
		{
			name:      "explicit replace",
			initial:   Patch{ID: "x", Children: ptr(LoadedChildren([]string{"c", "d"}))},
			patch:     Patch{ID: "x", Children: ptr(EmptyChildren()), ReplaceChildren: true},
			wantState: ChildrenEmpty,
			wantCount: 0,
		},
		{
			name:      "count overwrites while unknown",
			initial:   Patch{ID: "x", ChildrenCount: 4},
			patch:     Patch{ID: "x", ChildrenCount: 9, CEOName: "김"},
			wantState: ChildrenUnknown,
			wantCount: 9,
			wantCEO:   "김",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if _, err := s.Upsert(tt.initial); err != nil {
				t.Fatalf("Upsert(initial) error: %v", err)
			}
			n, err := s.Upsert(tt.patch)
			if err != nil {
				t.Fatalf("Upsert(patch) error: %v", err)
			}
			if n.Children.State() != tt.wantState {
				t.Errorf("Children = %v, want %v", n.Children.State(), tt.wantState)
			}
			if n.ChildrenCount != tt.wantCount {
				t.Errorf("ChildrenCount = %d, want %d", n.ChildrenCount, tt.wantCount)
			}
			if n.CEOName != tt.wantCEO {
				t.Errorf("CEOName = %q, want %q", n.CEOName, tt.wantCEO)
			}
		})
	}
}

func TestUpsertErrors(t *testing.T) {
	s := NewStore()
	if _, err := s.Upsert(Patch{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("Upsert(empty) error = %v, want ErrInvalidNodeID", err)
	}
	if _, err := s.Upsert(Patch{ID: "p1", IsPharmacy: true}); err != nil {
		t.Fatalf("Upsert(p1) error: %v", err)
	}
	if _, err := s.Upsert(Patch{ID: "p2", IsPharmacy: true}); !errors.Is(err, ErrDuplicateRoot) {
		t.Errorf("Upsert(p2) error = %v, want ErrDuplicateRoot", err)
	}
}

func TestStoreOrder(t *testing.T) {
	s := newTestStore(t)
	all := s.All()
	want := []string{"root", "a", "b"}
	if len(all) != len(want) {
		t.Fatalf("All() len = %d, want %d", len(all), len(want))
	}
	for i, n := range all {
		if n.ID != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, n.ID, want[i])
		}
	}
	root, ok := s.Root()
	if !ok || root.ID != "root" {
		t.Errorf("Root() = %v, %v", root, ok)
	}
}

func TestApplyChildren(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Upsert(Patch{ID: "b", Children: ptr(LoadedChildren([]string{"z"}))}); err != nil {
		t.Fatal(err)
	}

	parent, err := s.ApplyChildren("a", []provider.Company{
		{ID: "c", Name: "씨", ChildrenCount: 1},
		{ID: "b", Name: "비", ChildrenCount: 5},
		{ID: "c", Name: "씨"},
	})
	if err != nil {
		t.Fatalf("ApplyChildren() error: %v", err)
	}

	if got := parent.Children.IDs(); len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Errorf("Children.IDs() = %v, want [c b]", got)
	}
	if parent.ChildrenCount != 2 || !parent.IsExpanded {
		t.Errorf("parent count/expanded = %d/%v, want 2/true", parent.ChildrenCount, parent.IsExpanded)
	}

	c, _ := s.Get("c")
	if c.Children.State() != ChildrenUnknown || c.Depth != 2 {
		t.Errorf("new child state/depth = %v/%d, want unknown/2", c.Children.State(), c.Depth)
	}
	b, _ := s.Get("b")
	if b.Children.State() != ChildrenLoaded || b.ChildrenCount != 1 {
		t.Errorf("re-seen child state/count = %v/%d, want loaded/1", b.Children.State(), b.ChildrenCount)
	}
}

func TestApplyChildrenEmpty(t *testing.T) {
	s := newTestStore(t)
	parent, err := s.ApplyChildren("a", nil)
	if err != nil {
		t.Fatalf("ApplyChildren() error: %v", err)
	}
	if parent.Children.State() != ChildrenEmpty || parent.ChildrenCount != 0 {
		t.Errorf("state/count = %v/%d, want empty/0", parent.Children.State(), parent.ChildrenCount)
	}
}

func TestApplyChildrenAtomic(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ApplyChildren("a", []provider.Company{{ID: "c"}, {ID: "root"}})
	if !errors.Is(err, ErrRootAsChild) {
		t.Fatalf("ApplyChildren() error = %v, want ErrRootAsChild", err)
	}
	if _, ok := s.Get("c"); ok {
		t.Error("ApplyChildren() wrote a child before failing")
	}
	a, _ := s.Get("a")
	if a.Children.Known() {
		t.Error("ApplyChildren() changed parent before failing")
	}

	if _, err := s.ApplyChildren("missing", nil); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("ApplyChildren(missing) error = %v, want ErrUnknownNode", err)
	}
}

func TestMarkFetchFailed(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetExpanded("a", true); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkFetchFailed("a"); err != nil {
		t.Fatalf("MarkFetchFailed() error: %v", err)
	}
	a, _ := s.Get("a")
	if a.Children.State() != ChildrenEmpty || a.ChildrenCount != 0 || a.IsExpanded {
		t.Errorf("after failure: %v/%d/%v, want empty/0/false", a.Children.State(), a.ChildrenCount, a.IsExpanded)
	}
}

func TestChildrenJSON(t *testing.T) {
	tests := []struct {
		c    Children
		want string
	}{
		{UnknownChildren(), "null"},
		{EmptyChildren(), "[]"},
		{LoadedChildren([]string{"a"}), `["a"]`},
	}
	for _, tt := range tests {
		t.Run(tt.c.State().String(), func(t *testing.T) {
			b, err := tt.c.MarshalJSON()
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", b, tt.want)
			}
			var back Children
			if err := back.UnmarshalJSON(b); err != nil {
				t.Fatal(err)
			}
			if back.State() != tt.c.State() {
				t.Errorf("round trip state = %v, want %v", back.State(), tt.c.State())
			}
		})
	}
}
