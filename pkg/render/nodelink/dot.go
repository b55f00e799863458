package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/render"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the registration number and CEO name to node labels.
	Detailed bool
	// LeftToRight ranks the tree horizontally.
	LeftToRight bool
}

// ToDOT converts a visible set to Graphviz DOT source. Node colors follow
// the interactive styles for the given selection.
func ToDOT(vis graph.Visible, selected string, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.LeftToRight {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=12, fixedsize=false, margin=\"0.05\"];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range vis.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, selected, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range vis.Edges {
		s := render.StyleEdge(e, selected)
		fmt.Fprintf(&buf, "  %q -> %q [color=%q];\n", e.Source, e.Target, dotColor(s.Stroke))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, detailed bool) string {
	label := n.DisplayName
	if label == "" {
		label = n.ID
	}
	if !detailed {
		return label
	}
	parts := []string{label, n.ID}
	if n.CEOName != "" {
		parts = append(parts, n.CEOName)
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, selected string, detailed bool) []string {
	s := render.StyleNode(n, selected)
	fill := s.Fill
	if s.FillOpacity == 0 {
		fill = "white"
	}
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, detailed)),
		fmt.Sprintf("fillcolor=%q", dotColor(fill)),
		fmt.Sprintf("color=%q", dotColor(s.Stroke)),
		fmt.Sprintf("penwidth=%.1f", s.StrokeWidth),
		fmt.Sprintf("fontcolor=%q", dotColor(s.LabelFill)),
	}
	if s.LabelBold {
		attrs = append(attrs, `fontname="Helvetica-Bold"`)
	}
	return attrs
}

var rgbRe = regexp.MustCompile(`^rgb\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)$`)

// dotColor converts CSS rgb() notation, which Graphviz does not accept, to hex.
func dotColor(c string) string {
	m := rgbRe.FindStringSubmatch(c)
	if m == nil {
		return c
	}
	var rgb [3]int
	for i := range rgb {
		rgb[i], _ = strconv.Atoi(m[i+1])
	}
	return fmt.Sprintf("#%02X%02X%02X", rgb[0], rgb[1], rgb[2])
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one
// whose viewBox starts at the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
