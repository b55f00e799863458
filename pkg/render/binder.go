package render

import (
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/layout"
)

// NodeElement is what a surface draws for one node.
type NodeElement struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Name       string    `json:"name"`
	IsPharmacy bool      `json:"is_pharmacy"`
	Depth      int       `json:"depth"`
	Expanded   bool      `json:"expanded"`
	Style      NodeStyle `json:"style"`
}

// EdgeElement is what a surface draws for one edge.
type EdgeElement struct {
	Key    string    `json:"key"`
	Source string    `json:"source"`
	Target string    `json:"target"`
	Style  EdgeStyle `json:"style"`
}

// Surface receives keyed element changes from a Binder.
type Surface interface {
	CreateNode(NodeElement)
	UpdateNode(NodeElement)
	RemoveNode(id string)
	CreateEdge(EdgeElement)
	UpdateEdge(EdgeElement)
	RemoveEdge(key string)
	// Move receives the latest body positions from the layout engine.
	Move([]layout.Position)
}

// Diff summarizes one Bind call.
type Diff struct {
	NodesCreated, NodesUpdated, NodesRemoved int
	EdgesCreated, EdgesUpdated, EdgesRemoved int
}

// Changed reports whether the element sets changed, which is when the
// layout should be reheated.
func (d Diff) Changed() bool {
	return d.NodesCreated+d.NodesRemoved+d.EdgesCreated+d.EdgesRemoved > 0
}

// Binder reconciles visible sets with the elements on a surface.
// It is not safe for concurrent use.
type Binder struct {
	surface Surface
	nodes   map[string]struct{}
	edges   map[string]struct{}
}

// NewBinder creates a binder drawing on s.
func NewBinder(s Surface) *Binder {
	return &Binder{
		surface: s,
		nodes:   make(map[string]struct{}),
		edges:   make(map[string]struct{}),
	}
}

// Bind brings the surface in line with vis. Elements no longer visible are
// removed (edges before nodes), then nodes and edges are created or
// restyled in visible order.
func (b *Binder) Bind(vis graph.Visible, selected string) Diff {
	var d Diff

	nextNodes := make(map[string]struct{}, len(vis.Nodes))
	for _, n := range vis.Nodes {
		nextNodes[n.ID] = struct{}{}
	}
	nextEdges := make(map[string]struct{}, len(vis.Edges))
	for _, e := range vis.Edges {
		nextEdges[e.Key()] = struct{}{}
	}

	for key := range b.edges {
		if _, ok := nextEdges[key]; !ok {
			b.surface.RemoveEdge(key)
			delete(b.edges, key)
			d.EdgesRemoved++
		}
	}
	for id := range b.nodes {
		if _, ok := nextNodes[id]; !ok {
			b.surface.RemoveNode(id)
			delete(b.nodes, id)
			d.NodesRemoved++
		}
	}

	for _, n := range vis.Nodes {
		el := NewNodeElement(n, selected)
		if _, ok := b.nodes[n.ID]; ok {
			b.surface.UpdateNode(el)
			d.NodesUpdated++
			continue
		}
		b.surface.CreateNode(el)
		b.nodes[n.ID] = struct{}{}
		d.NodesCreated++
	}

	for _, e := range vis.Edges {
		el := EdgeElement{Key: e.Key(), Source: e.Source, Target: e.Target, Style: StyleEdge(e, selected)}
		if _, ok := b.edges[el.Key]; ok {
			b.surface.UpdateEdge(el)
			d.EdgesUpdated++
			continue
		}
		b.surface.CreateEdge(el)
		b.edges[el.Key] = struct{}{}
		d.EdgesCreated++
	}
	return d
}

// Move forwards layout positions to the surface.
func (b *Binder) Move(pos []layout.Position) {
	b.surface.Move(pos)
}

// NewNodeElement builds the drawable element of a node.
func NewNodeElement(n *graph.Node, selected string) NodeElement {
	return NodeElement{
		ID:         n.ID,
		Label:      n.DisplayName,
		Name:       n.Name,
		IsPharmacy: n.IsPharmacy,
		Depth:      n.Depth,
		Expanded:   n.IsExpanded,
		Style:      StyleNode(n, selected),
	}
}
