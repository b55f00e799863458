package graph

import (
	"errors"

	"github.com/matzehuels/contractmap/pkg/provider"
)

var (
	// ErrInvalidNodeID is returned when a patch carries an empty id.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateRoot is returned when a second pharmacy node is inserted.
	ErrDuplicateRoot = errors.New("store already has a pharmacy root")

	// ErrUnknownNode is returned when an operation names a node not in the store.
	ErrUnknownNode = errors.New("unknown node")

	// ErrRootAsChild is returned when the pharmacy is listed as someone's child.
	ErrRootAsChild = errors.New("pharmacy cannot be a child")
)

// Store is the persistent superset of every discovered node.
// Nodes are kept in insertion order and never removed.
type Store struct {
	nodes  map[string]*Node
	order  []string
	rootID string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{nodes: make(map[string]*Node)}
}

// Upsert inserts a node or merges p into the existing node with the same id.
// Applying the same patch twice leaves the store unchanged.
func (s *Store) Upsert(p Patch) (*Node, error) {
	if p.ID == "" {
		return nil, ErrInvalidNodeID
	}
	if n, ok := s.nodes[p.ID]; ok {
		merge(n, p)
		return n, nil
	}
	if p.IsPharmacy && s.rootID != "" {
		return nil, ErrDuplicateRoot
	}

	n := &Node{ID: p.ID, IsPharmacy: p.IsPharmacy, Depth: p.Depth}
	merge(n, p)
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	if n.IsPharmacy {
		s.rootID = n.ID
		n.Depth = 0
	}
	return n, nil
}

func merge(n *Node, p Patch) {
	if p.Name != "" {
		n.Name = p.Name
		n.DisplayName = FormatName(p.Name)
	}
	if p.CEOName != "" {
		n.CEOName = p.CEOName
	}
	if p.Address != "" {
		n.Address = p.Address
	}
	if p.RegistrationNumber != "" {
		n.RegistrationNumber = p.RegistrationNumber
	}
	n.ChildrenCount = p.ChildrenCount
	if p.Children != nil && (!n.Children.Known() || p.ReplaceChildren) {
		n.Children = *p.Children
	}
	// A fetched child list is authoritative for the count.
	if n.Children.Known() {
		n.ChildrenCount = n.Children.Len()
	}
	if n.DisplayName == "" {
		n.DisplayName = n.ID
	}
}

// Get returns the node with the given id.
func (s *Store) Get(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// All returns every node in insertion order.
func (s *Store) All() []*Node {
	out := make([]*Node, len(s.order))
	for i, id := range s.order {
		out[i] = s.nodes[id]
	}
	return out
}

// Root returns the pharmacy node.
func (s *Store) Root() (*Node, bool) {
	if s.rootID == "" {
		return nil, false
	}
	return s.nodes[s.rootID], true
}

// Len returns the number of stored nodes.
func (s *Store) Len() int { return len(s.nodes) }

// ApplyChildren records a completed child fetch for parentID.
//
// Every child is upserted: new nodes start with unknown children, and an
// already-known node keeps its children. The parent's children become the
// fetched id list (duplicates collapsed), its count is set to match and it is
// expanded. The input is validated before anything is written.
func (s *Store) ApplyChildren(parentID string, children []provider.Company) (*Node, error) {
	parent, ok := s.nodes[parentID]
	if !ok {
		return nil, ErrUnknownNode
	}

	ids := make([]string, 0, len(children))
	seen := make(map[string]struct{}, len(children))
	patches := make([]Patch, 0, len(children))
	for _, c := range children {
		if c.ID == "" {
			return nil, ErrInvalidNodeID
		}
		if c.ID == s.rootID {
			return nil, ErrRootAsChild
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
		patches = append(patches, PatchFromCompany(c, parent.Depth+1))
	}

	for _, p := range patches {
		if _, err := s.Upsert(p); err != nil {
			return nil, err
		}
	}

	parent.Children = LoadedChildren(ids)
	parent.ChildrenCount = len(ids)
	parent.IsExpanded = true
	return parent, nil
}

// MarkFetchFailed applies the fetch-failure policy: the node's children become
// empty, its count zero and it is collapsed.
func (s *Store) MarkFetchFailed(id string) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	n.Children = EmptyChildren()
	n.ChildrenCount = 0
	n.IsExpanded = false
	return nil
}

// SetExpanded sets the expansion flag of a node.
func (s *Store) SetExpanded(id string, expanded bool) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	n.IsExpanded = expanded
	return nil
}

// PatchFromCompany converts a provider record into a patch for a node at depth.
// The children variant is left unset so existing nodes keep theirs.
func PatchFromCompany(c provider.Company, depth int) Patch {
	return Patch{
		ID:                 c.ID,
		Name:               c.Name,
		CEOName:            c.CEOName,
		Address:            c.Address,
		RegistrationNumber: c.RegistrationNumber,
		Depth:              depth,
		ChildrenCount:      c.ChildrenCount,
	}
}
