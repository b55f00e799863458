package view

import (
	"context"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/observability"
	"github.com/matzehuels/contractmap/pkg/search"
)

// Suggest returns the suggestions for a keyword typed into the search box.
func (c *Controller) Suggest(keyword string) search.Result {
	c.mu.Lock()
	idx := c.index
	c.mu.Unlock()

	res := search.Suggest(idx, keyword)
	if len(res.Companies) > 0 || res.Message == search.MsgNoMatch {
		observability.View().OnSearch(c.ctx, res.Total)
	}
	return res
}

// SelectAndExpand brings the company id into the graph by expanding its
// ancestors, selects it and expands it in turn when it has children.
// It returns an error wrapping search.ErrNotReachable when the company
// cannot be reached; expansions made on the way are kept.
func (c *Controller) SelectAndExpand(ctx context.Context, id string) error {
	if err := cerrors.ValidateCompanyID(id); err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	anc := c.index.Ancestors()
	c.mu.Unlock()

	n, err := search.NewExpander(viewGraph{c}, anc).ExpandTo(ctx, id)
	if err != nil {
		if cerrors.GetCode(err) == cerrors.ErrCodeViewClosed {
			return err
		}
		c.alertf(MsgNotInGraph)
		return cerrors.Wrap(cerrors.ErrCodeNotReachable, err, "%s", MsgNotInGraph)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	node, ok := c.store.Get(n.ID)
	if !ok {
		c.mu.Unlock()
		return cerrors.New(cerrors.ErrCodeInternal, "node %s vanished", n.ID)
	}
	c.selected = node.ID
	needsLoad := node.ChildrenCount > 0 && !node.Children.Known()
	if !needsLoad && node.ChildrenCount > 0 {
		node.IsExpanded = true
	}
	c.refreshLocked()
	summary := Summary(node)
	if needsLoad {
		summary = SummaryLoading
	}
	emit := c.detailsLocked(node, summary)
	c.mu.Unlock()
	emit()

	if needsLoad {
		if err := c.load(ctx, node.ID); err != nil {
			c.logger.Warn("could not expand search target", "id", node.ID, "err", err)
		}
	}
	return nil
}

// viewGraph exposes the controller to the search expander.
type viewGraph struct{ c *Controller }

func (g viewGraph) Node(id string) (*graph.Node, bool) { return g.c.Node(id) }

func (g viewGraph) Expand(ctx context.Context, id string) error { return g.c.expand(ctx, id) }
