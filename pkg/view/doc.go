// Package view owns one interactive graph view of a pharmacy's
// subcontracting hierarchy.
//
// A [Controller] is the single context object behind a view. It holds the
// node store, the ancestor map and search index, the current selection, the
// layout simulation and the render binder, and it is the only thing that
// mutates them. Hosts (the HTTP server, the terminal UI, the render command)
// drive it through [Events] and read it back through [Controller.Snapshot].
//
// # Lifecycle
//
//	c := view.New(p, pharmacyID, view.WithSurface(svg), view.WithLogger(logger))
//	if err := c.Init(ctx); err != nil {
//	    // c.Blocked() holds the message to show instead of the graph
//	}
//	defer c.Close()
//
// Init resolves the pharmacy, loads its immediate contractors, selects the
// root and starts the layout. The search index loads in the background.
//
// # Concurrency
//
// Every state change happens under the controller's mutex. Backend calls run
// without it and apply their results under it; results that arrive after
// Close are dropped. Concurrent loads of the same node are collapsed into one
// backend call, and repeated clicks on a node that is still loading are
// ignored.
package view
