// Package pipeline renders a pharmacy's hierarchy without an interactive
// host.
//
// The pipeline has three stages:
//
//  1. Open: initialize a view, expand it to a depth and select a company
//  2. Layout: run the force simulation until it cools
//  3. Render: write the scene in one or more formats (SVG, DOT, Graphviz
//     SVG, JSON)
//
// Rendered artifacts are cached by a hash of the settled scene, so a
// repeated render of unchanged data skips Graphviz.
//
//	runner := pipeline.NewRunner(p, c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    PharmacyID: "123-45-67890",
//	    Depth:      2,
//	    Formats:    []string{pipeline.FormatSVG},
//	})
//	svg := result.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/contractmap/pkg/layout"
	"github.com/matzehuels/contractmap/pkg/view"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDepth shows the pharmacy and its immediate contractors.
	DefaultDepth = 1

	// MaxDepth bounds eager expansion.
	MaxDepth = 10

	// DefaultTicks bounds the layout stage.
	DefaultTicks = 300

	// ArtifactTTL is how long rendered outputs are reused.
	ArtifactTTL = 24 * time.Hour
)

// Output formats.
const (
	FormatSVG      = "svg"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
	FormatJSON     = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatDOT:      true,
	FormatGraphviz: true,
	FormatJSON:     true,
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %s", format)
	}
	return nil
}

// ValidateFormats checks every format in formats.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	switch format {
	case FormatGraphviz:
		return "graphviz.svg"
	default:
		return format
	}
}

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	PharmacyID string `json:"pharmacy_id"`

	// Depth is the number of contractor levels to expand eagerly.
	Depth int `json:"depth,omitempty"`
	// Select brings a company into view and selects it.
	Select string `json:"select,omitempty"`

	Ticks  int           `json:"ticks,omitempty"`
	Layout layout.Config `json:"-"`

	Formats     []string `json:"formats"`
	Detailed    bool     `json:"detailed,omitempty"`
	LeftToRight bool     `json:"left_to_right,omitempty"`

	// Refresh bypasses cached artifacts.
	Refresh bool `json:"refresh,omitempty"`
}

// ValidateAndSetDefaults fills defaults and rejects unusable options.
func (o *Options) ValidateAndSetDefaults() error {
	o.PharmacyID = strings.TrimSpace(o.PharmacyID)
	if o.PharmacyID == "" {
		return fmt.Errorf("pharmacy id is required")
	}
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	if o.Depth > MaxDepth {
		return fmt.Errorf("depth %d exceeds maximum %d", o.Depth, MaxDepth)
	}
	if o.Ticks <= 0 {
		o.Ticks = DefaultTicks
	}
	if o.Layout == (layout.Config{}) {
		o.Layout = layout.DefaultConfig()
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Formats = slices.Compact(slices.Sorted(slices.Values(o.Formats)))
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result is the output of Execute.
type Result struct {
	Snapshot  view.Snapshot
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timing and size information.
type Stats struct {
	OpenTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
	NodeCount  int
	EdgeCount  int
	Expanded   int
	Ticks      int
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	RenderHit bool
}
