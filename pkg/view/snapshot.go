package view

import (
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/render"
)

// NodeView is a visible node with its drawable state and position.
type NodeView struct {
	render.NodeElement
	ChildrenCount int     `json:"children_count"`
	Children      string  `json:"children"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Pinned        bool    `json:"pinned,omitempty"`
}

// Snapshot is a consistent read of the whole view.
type Snapshot struct {
	PharmacyID  string               `json:"pharmacy_id"`
	Selected    string               `json:"selected,omitempty"`
	Blocked     string               `json:"blocked,omitempty"`
	Details     *Details             `json:"details,omitempty"`
	Nodes       []NodeView           `json:"nodes"`
	Edges       []render.EdgeElement `json:"edges"`
	Alpha       float64              `json:"alpha"`
	SearchReady bool                 `json:"search_ready"`
}

// Snapshot returns the visible nodes with positions and styles, the
// visible edges and the selection.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		PharmacyID:  c.pharmacyID,
		Selected:    c.selected,
		Blocked:     c.blocked,
		Nodes:       make([]NodeView, 0, len(c.visible.Nodes)),
		Edges:       make([]render.EdgeElement, 0, len(c.visible.Edges)),
		Alpha:       c.sim.Alpha(),
		SearchReady: c.index != nil,
	}

	focus := c.selected
	if focus == "" {
		if root, ok := c.store.Root(); ok {
			focus = root.ID
		}
	}
	if n, ok := c.store.Get(focus); ok {
		d := NewDetails(n, Summary(n))
		if _, loading := c.inflight[focus]; loading {
			d.Summary = SummaryLoading
		}
		snap.Details = &d
	}

	for _, n := range c.visible.Nodes {
		nv := NodeView{
			NodeElement:   render.NewNodeElement(n, c.selected),
			ChildrenCount: n.ChildrenCount,
			Children:      n.Children.State().String(),
		}
		if b, ok := c.sim.Body(n.ID); ok {
			nv.X, nv.Y, nv.Pinned = b.X, b.Y, b.Pinned()
		}
		snap.Nodes = append(snap.Nodes, nv)
	}
	for _, e := range c.visible.Edges {
		snap.Edges = append(snap.Edges, edgeElement(e, c.selected))
	}
	return snap
}

func edgeElement(e graph.Edge, selected string) render.EdgeElement {
	return render.EdgeElement{Key: e.Key(), Source: e.Source, Target: e.Target, Style: render.StyleEdge(e, selected)}
}
