package graph

import (
	"encoding/json"
	"slices"
)

// =============================================================================
// Children
// =============================================================================

// ChildrenState distinguishes "never fetched" from "fetched, none".
type ChildrenState int

const (
	// ChildrenUnknown means the node's children were never fetched.
	ChildrenUnknown ChildrenState = iota
	// ChildrenEmpty means the children were fetched and there are none.
	ChildrenEmpty
	// ChildrenLoaded means the children were fetched and their ids are known.
	ChildrenLoaded
)

func (s ChildrenState) String() string {
	switch s {
	case ChildrenEmpty:
		return "empty"
	case ChildrenLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Children is the fetched-children variant of a node.
// The zero value is ChildrenUnknown.
type Children struct {
	state ChildrenState
	ids   []string
}

// UnknownChildren returns the never-fetched variant.
func UnknownChildren() Children { return Children{} }

// EmptyChildren returns the fetched-none variant.
func EmptyChildren() Children { return Children{state: ChildrenEmpty} }

// LoadedChildren returns the fetched variant holding ids.
// An empty id list yields EmptyChildren.
func LoadedChildren(ids []string) Children {
	if len(ids) == 0 {
		return EmptyChildren()
	}
	return Children{state: ChildrenLoaded, ids: slices.Clone(ids)}
}

// State reports which variant c is.
func (c Children) State() ChildrenState { return c.state }

// Known reports whether the children were fetched.
func (c Children) Known() bool { return c.state != ChildrenUnknown }

// IDs returns a copy of the child ids. Nil unless loaded.
func (c Children) IDs() []string { return slices.Clone(c.ids) }

// Len returns the number of known child ids.
func (c Children) Len() int { return len(c.ids) }

// MarshalJSON encodes Unknown as null, Empty as [] and Loaded as the id list.
func (c Children) MarshalJSON() ([]byte, error) {
	switch c.state {
	case ChildrenUnknown:
		return []byte("null"), nil
	case ChildrenEmpty:
		return []byte("[]"), nil
	default:
		return json.Marshal(c.ids)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Children) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	switch {
	case ids == nil:
		*c = UnknownChildren()
	default:
		*c = LoadedChildren(ids)
	}
	return nil
}

// =============================================================================
// Node and Edge
// =============================================================================

// Node is one company in the hierarchy. Layout positions are not part of the
// node; the layout engine owns them keyed by ID.
type Node struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	DisplayName        string   `json:"display_name"`
	CEOName            string   `json:"ceo_name,omitempty"`
	Address            string   `json:"address,omitempty"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	IsPharmacy         bool     `json:"is_pharmacy"`
	Depth              int      `json:"depth"`
	ChildrenCount      int      `json:"children_count"`
	Children           Children `json:"children"`
	IsExpanded         bool     `json:"is_expanded"`
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = Children{state: n.Children.state, ids: n.Children.IDs()}
	return &c
}

// Expandable reports whether toggling the node could reveal children.
func (n *Node) Expandable() bool {
	return n.Children.State() == ChildrenLoaded
}

// Edge is a visible parent-to-child link.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Key returns the edge identity used for keyed rendering.
func (e Edge) Key() string { return e.Source + "-" + e.Target }

// Visible is the output of ComputeVisible.
type Visible struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Clone returns a copy of v whose nodes are detached from the store.
func (v Visible) Clone() Visible {
	out := Visible{Nodes: make([]*Node, len(v.Nodes)), Edges: slices.Clone(v.Edges)}
	for i, n := range v.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// Node returns the visible node with the given id.
func (v Visible) Node(id string) (*Node, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// =============================================================================
// Patch
// =============================================================================

// Patch is an insert-or-merge request for Store.Upsert.
//
// Descriptive fields overwrite when non-empty. ChildrenCount always
// overwrites. Children is applied when non-nil and either the stored value
// is unknown or ReplaceChildren is set. Depth and IsPharmacy only apply when
// the node is created.
type Patch struct {
	ID                 string
	Name               string
	CEOName            string
	Address            string
	RegistrationNumber string
	IsPharmacy         bool
	Depth              int
	ChildrenCount      int
	Children           *Children
	ReplaceChildren    bool
}
