// Package render binds the visible graph to a drawing surface.
//
// # Overview
//
// A [Binder] performs keyed enter/update/exit reconciliation: each call to
// [Binder.Bind] compares the new visible set against the elements it created
// before, by node id and by edge key ("source-target"), and issues the
// minimal set of create, update and remove calls on a [Surface]. Retained
// elements are restyled in place so the surface can keep their identity and
// position.
//
//	b := render.NewBinder(surface)
//	diff := b.Bind(graph.ComputeVisible(store, logger), selectedID)
//	if diff.Changed() {
//	    sim.Reheat(0)
//	}
//
// Styling is a pure function of the node, its child count and the current
// selection; see [StyleNode] and [StyleEdge].
//
// # Surfaces
//
//   - [sink]: in-memory scene rendered to a standalone SVG document
//   - [Recorder]: records calls, for tests and debugging
//
// The [nodelink] subpackage renders the visible tree statically through
// Graphviz instead of the force layout.
//
// [sink]: github.com/matzehuels/contractmap/pkg/render/sink
// [nodelink]: github.com/matzehuels/contractmap/pkg/render/nodelink
package render
