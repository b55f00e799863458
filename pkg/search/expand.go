package search

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/observability"
)

// ErrNotReachable is returned when the target cannot be materialized from
// the nodes already in the graph.
var ErrNotReachable = errors.New("company not reachable from the loaded graph")

// Graph is the view of the node store the expander drives.
type Graph interface {
	// Node returns a snapshot of the node with id, if present.
	Node(id string) (*graph.Node, bool)

	// Expand marks id expanded, loading its children first when unknown.
	Expand(ctx context.Context, id string) error
}

// Expander materializes a target node by expanding its ancestor chain.
type Expander struct {
	g   Graph
	anc *graph.Ancestors
}

// NewExpander returns an expander over g using the given ancestor map.
func NewExpander(g Graph, anc *graph.Ancestors) *Expander {
	return &Expander{g: g, anc: anc}
}

// ExpandTo returns the node for id, expanding every ancestor between the
// nearest node already present and id. Present ancestors that are
// collapsed are expanded as well so the target ends up visible.
// Expansions completed before a failure are kept.
func (e *Expander) ExpandTo(ctx context.Context, id string) (n *graph.Node, err error) {
	steps := 0
	defer func() { observability.View().OnExpandToRoot(ctx, steps, err) }()

	if _, ok := e.g.Node(id); ok {
		return e.reveal(ctx, id, &steps)
	}

	path, err := e.chain(id)
	if err != nil {
		return nil, err
	}

	// path runs from the present ancestor down to id's parent.
	for i, ancestor := range path {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.g.Expand(ctx, ancestor); err != nil {
			return nil, fmt.Errorf("%w: expand %s: %w", ErrNotReachable, ancestor, err)
		}
		steps++

		next := id
		if i+1 < len(path) {
			next = path[i+1]
		}
		if _, ok := e.g.Node(next); !ok {
			return nil, fmt.Errorf("%w: %s is not a child of %s", ErrNotReachable, next, ancestor)
		}
	}

	if _, ok := e.g.Node(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotReachable, id)
	}
	return e.reveal(ctx, id, &steps)
}

// reveal expands the collapsed ancestors of a present node, top-down, up
// to the first ancestor missing from the graph or the map.
func (e *Expander) reveal(ctx context.Context, id string, steps *int) (*graph.Node, error) {
	visited := map[string]struct{}{id: {}}
	var collapsed []string
	for cur := id; ; {
		parent, ok := e.anc.Parent(cur)
		if !ok {
			break
		}
		if _, seen := visited[parent]; seen {
			break
		}
		visited[parent] = struct{}{}
		pn, ok := e.g.Node(parent)
		if !ok {
			break
		}
		if !pn.IsExpanded {
			collapsed = append(collapsed, parent)
		}
		cur = parent
	}
	slices.Reverse(collapsed)

	for _, ancestor := range collapsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.g.Expand(ctx, ancestor); err != nil {
			return nil, fmt.Errorf("%w: expand %s: %w", ErrNotReachable, ancestor, err)
		}
		*steps++
	}

	n, ok := e.g.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotReachable, id)
	}
	return n, nil
}

// chain climbs from id to the nearest ancestor present in the graph and
// returns the ancestors top-down.
func (e *Expander) chain(id string) ([]string, error) {
	visited := map[string]struct{}{id: {}}
	var up []string
	for cur := id; ; {
		parent, ok := e.anc.Parent(cur)
		if !ok {
			return nil, fmt.Errorf("%w: no recorded parent for %s", ErrNotReachable, cur)
		}
		if _, seen := visited[parent]; seen {
			return nil, fmt.Errorf("%w: cycle at %s", ErrNotReachable, parent)
		}
		visited[parent] = struct{}{}
		up = append(up, parent)
		if _, ok := e.g.Node(parent); ok {
			break
		}
		cur = parent
	}
	slices.Reverse(up)
	return up, nil
}
