// Package graph holds the in-memory model of one pharmacy's subcontracting
// hierarchy and derives what is currently visible from it.
//
// # Architecture
//
// The package has three parts:
//
//   - [Store]: the persistent superset of every company discovered so far,
//     keyed by business registration number. Nodes are created at initial load
//     or when a child fetch resolves and are never deleted.
//   - [Ancestors]: the child-to-parent map built from the full relation list,
//     used to reach a search hit that is not loaded yet.
//   - [ComputeVisible]: the pure function from store state to the visible
//     nodes and edges.
//
// # Children
//
// A node's children are a tagged variant, [Children], with three states:
//
//	graph.ChildrenUnknown  // never fetched
//	graph.ChildrenEmpty    // fetched, none
//	graph.ChildrenLoaded   // fetched, ids known
//
// Once a node's children are loaded, ChildrenCount equals the number of ids.
//
// # Visibility
//
// The pharmacy root is always visible. A child is visible when its parent is
// visible, expanded, and has loaded children. An edge is visible iff both
// endpoints are visible and the parent is expanded:
//
//	vis := graph.ComputeVisible(store, logger)
//	for _, e := range vis.Edges {
//	    fmt.Println(e.Key()) // "parent-child"
//	}
//
// The store is not safe for concurrent use; the view controller serializes
// access to it.
package graph
