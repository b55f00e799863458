package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/contractmap/pkg/render/nodelink"
)

// Render writes the scene in each requested format.
func Render(ctx context.Context, s *Scene, opts Options) (map[string][]byte, error) {
	vis, selected := s.View.Tree()
	dotOpts := nodelink.Options{Detailed: opts.Detailed, LeftToRight: opts.LeftToRight}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = s.SVG.Bytes()
		case FormatDOT:
			data = []byte(nodelink.ToDOT(vis, selected, dotOpts))
		case FormatGraphviz:
			data, err = nodelink.RenderSVG(ctx, nodelink.ToDOT(vis, selected, dotOpts))
		case FormatJSON:
			data, err = json.MarshalIndent(s.View.Snapshot(), "", "  ")
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
