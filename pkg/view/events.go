package view

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/observability"
	"github.com/matzehuels/contractmap/pkg/provider"
)

// Events is the input surface of a view. Hosts translate clicks, drags and
// search submissions into these calls.
type Events interface {
	OnNodeSelect(ctx context.Context, id string) error
	OnNodeDragStart(id string) error
	OnNodeDragMove(id string, x, y float64) error
	OnNodeDragEnd(id string) error
	OnNodeRelease(id string) error
	OnSearchSubmit(ctx context.Context, id string) error
}

// OnNodeSelect handles a click on a node.
//
// Clicking the pharmacy toggles its expansion and clears the selection.
// Clicking a contractor selects it and then loads its children when they
// are unknown, or toggles its expansion otherwise. Clicks on a node whose
// children are still loading are ignored.
func (c *Controller) OnNodeSelect(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	n, ok := c.store.Get(id)
	if !ok {
		c.mu.Unlock()
		return cerrors.New(cerrors.ErrCodeNotFound, "node %s is not in the graph", id)
	}

	if n.IsPharmacy {
		n.IsExpanded = !n.IsExpanded
		c.selected = ""
		c.refreshLocked()
		emit := c.detailsLocked(n, Summary(n))
		c.mu.Unlock()
		observability.View().OnExpand(ctx, n.Depth, n.IsExpanded)
		emit()
		return nil
	}

	c.selected = id
	if n.Children.Known() {
		n.IsExpanded = !n.IsExpanded
		c.refreshLocked()
		emit := c.detailsLocked(n, Summary(n))
		c.mu.Unlock()
		observability.View().OnExpand(ctx, n.Depth, n.IsExpanded)
		emit()
		return nil
	}

	if _, busy := c.inflight[id]; busy {
		c.mu.Unlock()
		c.logger.Debug("ignoring click while loading", "id", id)
		return nil
	}
	c.inflight[id] = struct{}{}
	c.refreshLocked()
	emit := c.detailsLocked(n, SummaryLoading)
	c.mu.Unlock()
	emit()

	return c.load(ctx, id)
}

// Focus selects a node without changing its expansion. Hosts use it for
// keyboard navigation.
func (c *Controller) Focus(id string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	n, ok := c.store.Get(id)
	if !ok {
		c.mu.Unlock()
		return cerrors.New(cerrors.ErrCodeNotFound, "node %s is not in the graph", id)
	}
	c.selected = id
	c.refreshLocked()
	summary := Summary(n)
	if _, loading := c.inflight[id]; loading {
		summary = SummaryLoading
	}
	emit := c.detailsLocked(n, summary)
	c.mu.Unlock()
	emit()
	return nil
}

// OnNodeDragStart pins the node where it is and warms the layout.
func (c *Controller) OnNodeDragStart(id string) error {
	if err := c.usable(); err != nil {
		return err
	}
	return c.sim.DragStart(id)
}

// OnNodeDragMove moves the pin of a dragged node.
func (c *Controller) OnNodeDragMove(id string, x, y float64) error {
	if err := c.usable(); err != nil {
		return err
	}
	return c.sim.DragMove(id, x, y)
}

// OnNodeDragEnd lets the layout cool. The node stays where it was dropped.
func (c *Controller) OnNodeDragEnd(id string) error {
	if err := c.usable(); err != nil {
		return err
	}
	return c.sim.DragEnd(id)
}

// OnNodeRelease frees a dropped node so the layout places it again. The
// pharmacy stays pinned at the center.
func (c *Controller) OnNodeRelease(id string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	n, ok := c.store.Get(id)
	anchored := ok && n.IsPharmacy
	c.mu.Unlock()
	if anchored {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "the pharmacy stays at the center")
	}
	return c.sim.Unpin(id)
}

// OnSearchSubmit selects a suggestion picked by the user. An empty id
// means nothing was picked.
func (c *Controller) OnSearchSubmit(ctx context.Context, id string) error {
	if id == "" {
		c.alertf(MsgChooseCompany)
		return cerrors.New(cerrors.ErrCodeInvalidInput, "%s", MsgChooseCompany)
	}
	return c.SelectAndExpand(ctx, id)
}

func (c *Controller) usable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usableLocked()
}

func (c *Controller) usableLocked() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.blocked != "":
		return cerrors.New(cerrors.ErrCodeInit, "%s", c.blocked)
	case !c.initialized:
		return cerrors.New(cerrors.ErrCodeInit, "view is not initialized")
	}
	return nil
}

// load fetches the children of id and applies them. Concurrent loads of the
// same id share one backend call, which runs under the view's context so
// that one caller giving up does not fail the others. A caller whose ctx
// ends returns early and leaves the children unknown. On a backend failure
// the node is settled as having no children and the error is returned.
func (c *Controller) load(ctx context.Context, id string) error {
	ch := c.group.DoChan(id, func() (any, error) {
		return c.fetch(c.ctx, "subcontractors", func(ctx context.Context) ([]provider.Company, error) {
			return c.p.SubContractors(ctx, c.pharmacyID, id)
		})
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	err := res.Err

	c.mu.Lock()
	delete(c.inflight, id)
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping late fetch result", "id", id)
		return ErrClosed
	}
	n, ok := c.store.Get(id)
	if !ok {
		c.mu.Unlock()
		return cerrors.New(cerrors.ErrCodeInternal, "node %s vanished", id)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Nobody learned anything about the children; they stay unknown.
			emit := func() {}
			if c.selected == id {
				emit = c.detailsLocked(n, Summary(n))
			}
			c.mu.Unlock()
			emit()
			return err
		}
		_ = c.store.MarkFetchFailed(id)
		c.refreshLocked()
		emit := func() {}
		if c.selected == id {
			emit = c.detailsLocked(n, SummaryError)
		}
		c.mu.Unlock()
		c.logger.Warn("failed to load sub-contractors", "id", id, "err", err)
		emit()
		return cerrors.Wrap(cerrors.ErrCodeFetch, err, "load sub-contractors of %s", id)
	}

	if n.Children.Known() {
		// Another caller of the shared fetch applied it already.
		n.IsExpanded = true
	} else if _, err := c.store.ApplyChildren(id, c.filterChildren(id, res.Val.([]provider.Company))); err != nil {
		c.logger.Warn("inconsistent sub-contractors", "id", id, "err", err)
		_ = c.store.MarkFetchFailed(id)
	}
	c.refreshLocked()
	emit := func() {}
	if c.selected == id {
		emit = c.detailsLocked(n, Summary(n))
	}
	depth, expanded := n.Depth, n.IsExpanded
	c.mu.Unlock()

	observability.View().OnExpand(ctx, depth, expanded)
	emit()
	return nil
}

// expand marks id expanded, loading its children first when unknown.
func (c *Controller) expand(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	n, ok := c.store.Get(id)
	if !ok {
		c.mu.Unlock()
		return graph.ErrUnknownNode
	}
	if n.Children.Known() {
		if !n.IsExpanded {
			n.IsExpanded = true
			c.refreshLocked()
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.load(ctx, id)
}
