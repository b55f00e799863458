// Package nodelink renders the visible hierarchy as a static Graphviz diagram.
//
// # Overview
//
// The force layout is interactive and never settles to the same picture
// twice. For reports and printouts this package lays the same visible set
// out top-down with Graphviz instead, using the interactive palette:
//
//	dot := nodelink.ToDOT(vis, selected, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: labels carry the registration number and CEO under the name
//   - LeftToRight: rank the tree horizontally instead of top-down
package nodelink
