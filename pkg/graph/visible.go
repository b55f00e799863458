package graph

import "github.com/charmbracelet/log"

// ComputeVisible derives the visible nodes and edges from store state.
//
// The root is always visible. Starting from it, every expanded node with
// loaded children contributes its resolvable children and the connecting
// edges. Child ids missing from the store are skipped with a warning. Each
// (parent, child) pair is traversed at most once, so cyclic child lists
// terminate. A node's depth is its parent's depth plus one, last write wins.
//
// Output order is first-seen; nodes and edges are unique by id and key.
func ComputeVisible(s *Store, logger *log.Logger) Visible {
	if logger == nil {
		logger = log.Default()
	}
	root, ok := s.Root()
	if !ok {
		return Visible{}
	}

	t := &traversal{
		store:   s,
		logger:  logger,
		visited: make(map[[2]string]struct{}),
		nodeSet: make(map[string]struct{}),
		edgeSet: make(map[string]struct{}),
	}
	root.Depth = 0
	t.addNode(root)
	t.walk(root)

	return Visible{
		Nodes: dedupeNodes(t.nodes),
		Edges: dedupeEdges(t.edges),
	}
}

// traversal accumulates the visible set during one ComputeVisible pass.
type traversal struct {
	store   *Store
	logger  *log.Logger
	visited map[[2]string]struct{}
	nodeSet map[string]struct{}
	edgeSet map[string]struct{}
	nodes   []*Node
	edges   []Edge
}

func (t *traversal) walk(parent *Node) {
	if !parent.IsExpanded || parent.Children.State() != ChildrenLoaded {
		return
	}
	for _, childID := range parent.Children.ids {
		pair := [2]string{parent.ID, childID}
		if _, done := t.visited[pair]; done {
			continue
		}
		t.visited[pair] = struct{}{}

		child, ok := t.store.Get(childID)
		if !ok {
			t.logger.Warn("child not found in store", "parent", parent.ID, "child", childID)
			continue
		}
		if child.IsPharmacy {
			t.logger.Warn("pharmacy listed as child", "parent", parent.ID, "child", childID)
			continue
		}

		child.Depth = parent.Depth + 1
		t.addNode(child)
		t.addEdge(Edge{Source: parent.ID, Target: child.ID})
		if child.IsExpanded {
			t.walk(child)
		}
	}
}

func (t *traversal) addNode(n *Node) {
	if _, ok := t.nodeSet[n.ID]; ok {
		return
	}
	t.nodeSet[n.ID] = struct{}{}
	t.nodes = append(t.nodes, n)
}

func (t *traversal) addEdge(e Edge) {
	k := e.Key()
	if _, ok := t.edgeSet[k]; ok {
		return
	}
	t.edgeSet[k] = struct{}{}
	t.edges = append(t.edges, e)
}

// dedupeNodes keeps the first position of each id and the last value for it.
func dedupeNodes(nodes []*Node) []*Node {
	index := make(map[string]int, len(nodes))
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if i, ok := index[n.ID]; ok {
			out[i] = n
			continue
		}
		index[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}

func dedupeEdges(edges []Edge) []Edge {
	index := make(map[string]int, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		k := e.Key()
		if i, ok := index[k]; ok {
			out[i] = e
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}
