package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/provider"
	"github.com/matzehuels/contractmap/pkg/provider/memory"
)

// storeGraph drives a real store with children from a memory provider.
type storeGraph struct {
	store    *graph.Store
	p        *memory.Provider
	expanded []string
}

func (g *storeGraph) Node(id string) (*graph.Node, bool) {
	n, ok := g.store.Get(id)
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

func (g *storeGraph) Expand(ctx context.Context, id string) error {
	n, ok := g.store.Get(id)
	if !ok {
		return graph.ErrUnknownNode
	}
	g.expanded = append(g.expanded, id)
	if n.Children.Known() {
		return g.store.SetExpanded(id, true)
	}
	kids, err := g.p.SubContractors(ctx, "P", id)
	if err != nil {
		_ = g.store.MarkFetchFailed(id)
		return err
	}
	_, err = g.store.ApplyChildren(id, kids)
	return err
}

var chainRelations = []provider.Relation{
	{ParentID: "P", ChildID: "A"},
	{ParentID: "P", ChildID: "D"},
	{ParentID: "A", ChildID: "B"},
	{ParentID: "B", ChildID: "C"},
	{ParentID: "M", ChildID: "N"},
	{ParentID: "N", ChildID: "M"},
}

func newChain(t *testing.T) (*storeGraph, *Expander) {
	t.Helper()
	ds := memory.Dataset{
		Pharmacy: provider.Company{ID: "P", Name: "약국"},
		Companies: []provider.Company{
			{ID: "A", Name: "에이"}, {ID: "B", Name: "비"},
			{ID: "C", Name: "씨"}, {ID: "D", Name: "디"},
		},
		Relations: chainRelations,
	}
	p := memory.New(ds)

	s := graph.NewStore()
	_, err := s.Upsert(graph.Patch{ID: "P", Name: "약국", IsPharmacy: true})
	require.NoError(t, err)
	top, err := p.ImmediateContractors(context.Background(), "P")
	require.NoError(t, err)
	_, err = s.ApplyChildren("P", top)
	require.NoError(t, err)

	g := &storeGraph{store: s, p: p}
	return g, NewExpander(g, graph.BuildAncestors(chainRelations, quiet))
}

func TestExpandToPresent(t *testing.T) {
	g, e := newChain(t)
	n, err := e.ExpandTo(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", n.ID)
	assert.Empty(t, g.expanded)
}

func TestExpandToHiddenTarget(t *testing.T) {
	g, e := newChain(t)
	_, err := e.ExpandTo(context.Background(), "C")
	require.NoError(t, err)
	require.NoError(t, g.store.SetExpanded("A", false))
	g.expanded = nil

	vis := graph.ComputeVisible(g.store, quiet)
	_, ok := vis.Node("C")
	require.False(t, ok, "C is hidden under the collapsed A")

	n, err := e.ExpandTo(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, "C", n.ID)
	assert.Equal(t, []string{"A"}, g.expanded, "only the collapsed ancestor is expanded")

	vis = graph.ComputeVisible(g.store, quiet)
	_, ok = vis.Node("C")
	assert.True(t, ok, "target is visible again")
}

func TestExpandToDeepTarget(t *testing.T) {
	g, e := newChain(t)
	n, err := e.ExpandTo(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, "C", n.ID)
	assert.Equal(t, 3, n.Depth)
	assert.Equal(t, []string{"A", "B"}, g.expanded)

	vis := graph.ComputeVisible(g.store, quiet)
	_, ok := vis.Node("C")
	assert.True(t, ok, "target is visible after expansion")
}

func TestExpandToUnknownAncestor(t *testing.T) {
	_, e := newChain(t)
	_, err := e.ExpandTo(context.Background(), "Z")
	assert.ErrorIs(t, err, ErrNotReachable)
}

func TestExpandToCycle(t *testing.T) {
	g, e := newChain(t)
	_, err := e.ExpandTo(context.Background(), "N")
	assert.ErrorIs(t, err, ErrNotReachable)
	assert.Empty(t, g.expanded)
}

func TestExpandToFetchFailureKeepsProgress(t *testing.T) {
	g, e := newChain(t)
	boom := errors.New("boom")
	g.p.FailSubContractors("B", boom)

	_, err := e.ExpandTo(context.Background(), "C")
	assert.ErrorIs(t, err, ErrNotReachable)
	assert.ErrorIs(t, err, boom)

	a, _ := g.store.Get("A")
	assert.True(t, a.IsExpanded, "completed expansions are kept")
	b, _ := g.store.Get("B")
	assert.Equal(t, graph.ChildrenEmpty, b.Children.State())
}

func TestExpandToBrokenChain(t *testing.T) {
	g, _ := newChain(t)
	// Z claims A as parent but A's fetched children do not include it.
	e := NewExpander(g, graph.BuildAncestors([]provider.Relation{{ParentID: "A", ChildID: "Z"}}, quiet))

	_, err := e.ExpandTo(context.Background(), "Z")
	assert.ErrorIs(t, err, ErrNotReachable)
	assert.Equal(t, []string{"A"}, g.expanded)
}

func TestExpandToCancelled(t *testing.T) {
	_, e := newChain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ExpandTo(ctx, "C")
	assert.ErrorIs(t, err, context.Canceled)
}
