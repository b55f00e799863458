package graph

import (
	"testing"

	"github.com/matzehuels/contractmap/pkg/provider"
)

func TestBuildAncestors(t *testing.T) {
	a := BuildAncestors([]provider.Relation{
		{ParentID: " P ", ChildID: "A"},
		{ParentID: "A", ChildID: "B"},
		{ParentID: "", ChildID: "X"},
		{ParentID: "C", ChildID: "C"},
		{ParentID: "Q", ChildID: "B"},
	}, quiet)

	tests := []struct {
		child  string
		want   string
		wantOK bool
	}{
		{child: "A", want: "P", wantOK: true},
		{child: "B", want: "Q", wantOK: true},
		{child: "P", wantOK: false},
		{child: "X", wantOK: false},
		{child: "C", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.child, func(t *testing.T) {
			got, ok := a.Parent(tt.child)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Parent(%s) = %q, %v, want %q, %v", tt.child, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}
	if got := a.IDs(); !equal(got, []string{"P", "A", "B", "Q"}) {
		t.Errorf("IDs() = %v, want [P A B Q]", got)
	}
}

func TestAncestorsNil(t *testing.T) {
	var a *Ancestors
	if _, ok := a.Parent("x"); ok {
		t.Error("nil Ancestors reported a parent")
	}
	if a.Len() != 0 || a.IDs() != nil {
		t.Error("nil Ancestors is not empty")
	}
}
