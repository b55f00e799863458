package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/contractmap/pkg/cache"
	"github.com/matzehuels/contractmap/pkg/provider"
)

// Runner executes the pipeline against one provider. It keeps no state
// between runs apart from the artifact cache, so one Runner can serve
// concurrent renders.
type Runner struct {
	Provider provider.Provider
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil cache disables artifact caching; a nil
// keyer uses DefaultKeyer.
func NewRunner(p provider.Provider, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Provider: p,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Execute runs open, layout and render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}

	// Stage 1: Open
	openStart := time.Now()
	scene, expanded, err := r.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer scene.Close()
	result.Stats.OpenTime = time.Since(openStart)
	result.Stats.Expanded = expanded

	// Stage 2: Layout
	layoutStart := time.Now()
	result.Stats.Ticks = scene.View.Settle(opts.Ticks)
	result.Stats.LayoutTime = time.Since(layoutStart)

	snap := scene.View.Snapshot()
	result.Snapshot = snap
	result.Stats.NodeCount = len(snap.Nodes)
	result.Stats.EdgeCount = len(snap.Edges)
	r.Logger.Info("view ready",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"expanded", expanded,
		"ticks", result.Stats.Ticks,
		"duration", result.Stats.OpenTime+result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, scene, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// RenderWithCacheInfo renders the scene, serving every format from cache
// when all of them are there, and reports whether it did.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, s *Scene, opts Options) (map[string][]byte, bool, error) {
	hash, err := sceneHash(s, opts)
	if err != nil {
		return nil, false, fmt.Errorf("hash scene: %w", err)
	}

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(hash, format))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := Render(ctx, s, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		if err := r.Cache.Set(ctx, r.Keyer.ArtifactKey(hash, format), data, ArtifactTTL); err != nil {
			r.Logger.Debug("artifact cache write failed", "format", format, "err", err)
		}
	}
	return rendered, false, nil
}

// sceneHash identifies the settled scene and the options that shape its
// renderings.
func sceneHash(s *Scene, opts Options) (string, error) {
	data, err := json.Marshal(struct {
		Snapshot    any  `json:"snapshot"`
		Detailed    bool `json:"detailed"`
		LeftToRight bool `json:"left_to_right"`
	}{s.View.Snapshot(), opts.Detailed, opts.LeftToRight})
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// Close releases the artifact cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
