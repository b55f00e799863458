package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/contractmap/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string // output file (single format) or base path (several)
	formats     string // comma-separated formats
	depth       int    // contractor levels to expand
	selectID    string // company to bring into view and select
	ticks       int    // layout steps before rendering
	detailed    bool   // show CEO and address in Graphviz labels
	leftToRight bool   // Graphviz rank direction LR instead of TB
	refresh     bool   // bypass cached artifacts
}

// renderCommand creates the render command writing a view to files.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{depth: pipeline.DefaultDepth, ticks: pipeline.DefaultTicks}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a pharmacy's hierarchy to SVG, DOT or JSON",
		Long: `Render opens a view of the pharmacy, expands it to the given depth,
optionally brings a company into view with --select, lets the layout
settle and writes the scene.

Formats:
  svg       force layout scene
  dot       Graphviz source of the visible tree
  graphviz  the visible tree laid out by Graphviz
  json      snapshot of nodes, edges, positions and details`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), dot, graphviz, json (comma-separated)")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", opts.depth, "contractor levels to expand")
	cmd.Flags().StringVarP(&opts.selectID, "select", "s", "", "company to bring into view and select")
	cmd.Flags().IntVar(&opts.ticks, "ticks", opts.ticks, "maximum layout steps")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show CEO and address (dot, graphviz)")
	cmd.Flags().BoolVar(&opts.leftToRight, "lr", false, "lay the tree out left to right (dot, graphviz)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached renderings")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	b, err := c.openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	popts := pipeline.Options{
		PharmacyID:  cfg.Pharmacy.ID,
		Depth:       opts.depth,
		Select:      opts.selectID,
		Ticks:       opts.ticks,
		Layout:      cfg.Layout,
		Formats:     parseFormats(opts.formats),
		Detailed:    opts.detailed,
		LeftToRight: opts.leftToRight,
		Refresh:     opts.refresh,
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner := pipeline.NewRunner(b, b.Cache, nil, logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", popts.PharmacyID))
	spinner.Start()
	prog := newProgress(logger)
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done("Rendered view")

	printSuccess("Rendered %s", StyleHighlight.Render(popts.PharmacyID))
	printViewStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.RenderHit)

	paths := outputPaths(opts.output, popts.PharmacyID, popts.Formats)
	for _, format := range popts.Formats {
		path := paths[format]
		if err := writeOutput(path, result.Artifacts[format]); err != nil {
			return err
		}
		printArtifact(format, path)
	}
	return nil
}

// parseFormats parses the --format flag. Empty yields svg.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputPaths maps each format to its file. A single format is written to
// output as given; several formats share output as a base path. Without
// output the pharmacy id names the files.
func outputPaths(output, pharmacyID string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, pharmacyID)
	for _, f := range formats {
		paths[f] = base + "." + pipeline.Extension(f)
	}
	return paths
}

// basePath strips a known format extension from output, or derives a
// file name from the pharmacy id.
func basePath(output, pharmacyID string) string {
	if output == "" {
		return strings.ReplaceAll(pharmacyID, "-", "")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
