package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/contractmap/pkg/render/sink"
	"github.com/matzehuels/contractmap/pkg/view"
)

// Scene is an initialized view drawn on an SVG scene.
type Scene struct {
	View *view.Controller
	SVG  *sink.SVG
}

// Close closes the view.
func (s *Scene) Close() error { return s.View.Close() }

// Open initializes a view of opts.PharmacyID, expands it to opts.Depth and
// selects opts.Select. The layout does not run in the background; call
// Settle on the view.
func (r *Runner) Open(ctx context.Context, opts Options) (*Scene, int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, 0, fmt.Errorf("invalid options: %w", err)
	}
	scene := sink.NewSVG(sink.WithSize(opts.Layout.Width, opts.Layout.Height), sink.WithoutAnimation())
	viewOpts := []view.Option{
		view.WithSurface(scene),
		view.WithLayout(opts.Layout),
		view.WithLogger(r.Logger),
		view.WithManualLayout(),
		view.WithAlert(func(msg string) { r.Logger.Warn(msg) }),
	}
	if opts.Select == "" {
		viewOpts = append(viewOpts, view.WithoutSearch())
	}
	c := view.New(r.Provider, opts.PharmacyID, viewOpts...)
	if err := c.Init(ctx); err != nil {
		_ = c.Close()
		return nil, 0, err
	}

	expanded, err := ExpandToDepth(ctx, c, opts.Depth)
	if err != nil {
		_ = c.Close()
		return nil, 0, err
	}

	if opts.Select != "" {
		select {
		case <-c.IndexReady():
		case <-ctx.Done():
			_ = c.Close()
			return nil, 0, ctx.Err()
		}
		if err := c.SelectAndExpand(ctx, opts.Select); err != nil {
			_ = c.Close()
			return nil, 0, err
		}
	} else if root := c.Snapshot().PharmacyID; root != "" {
		if err := c.Focus(root); err != nil {
			_ = c.Close()
			return nil, 0, err
		}
	}
	return &Scene{View: c, SVG: scene}, expanded, nil
}

// ExpandToDepth expands every visible company above depth levels below the
// pharmacy, level by level, and returns the number of expansions made.
// Companies whose children cannot be loaded are logged by the view and
// skipped.
func ExpandToDepth(ctx context.Context, c *view.Controller, depth int) (int, error) {
	expanded := 0
	for level := 1; level < depth; level++ {
		var targets []string
		for _, n := range c.Visible().Nodes {
			if n.Depth == level {
				targets = append(targets, n.ID)
			}
		}
		for _, id := range targets {
			if err := ctx.Err(); err != nil {
				return expanded, err
			}
			n, ok := c.Node(id)
			if !ok || n.IsExpanded || n.ChildrenCount == 0 {
				continue
			}
			if err := c.OnNodeSelect(ctx, id); err != nil {
				if ctx.Err() != nil {
					return expanded, ctx.Err()
				}
				continue
			}
			expanded++
		}
	}
	return expanded, nil
}
