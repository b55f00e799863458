// Package search finds companies anywhere in a pharmacy's hierarchy and
// materializes the path to them in the graph.
//
// The [Index] is built once per view from the full relation list: every
// company that takes part in a relation is resolved through batched lookups
// and normalized for substring matching on name, registration number and CEO
// name. The same relation list yields the [graph.Ancestors] map that
// [Expander] climbs when the target is not in the store yet.
//
//	idx, err := search.Load(ctx, p, pharmacyID, logger)
//	res := search.Suggest(idx, "가나")
//	node, err := search.NewExpander(g, idx.Ancestors()).ExpandTo(ctx, res.Companies[0].ID)
package search
