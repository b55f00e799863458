// Package pkg provides the core libraries for contractmap.
//
// # Overview
//
// Contractmap shows a pharmacy the contract sales organisations (CSOs) it
// works with and the companies those CSOs re-delegate to. The pkg
// directory is organized into these areas:
//
//  1. [graph] - Node store, visible-tree computation and ancestor index
//  2. [provider] - Data backends (PostgREST, PostgreSQL, MongoDB, Neo4j, memory)
//  3. [layout] - Force simulation placing visible nodes
//  4. [render] - Binding snapshots to scene elements, SVG/DOT/JSON sinks
//  5. [search] - Keyword suggestions over the ancestor index
//  6. [view] - Controller tying the above to selection and expansion
//  7. [pipeline] - Headless render runs with artifact caching
//  8. [cache], [config], [errors], [httputil], [observability] - Infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	Provider (primary contractors, sub-contractors, company details)
//	         ↓
//	    [graph] store (lazy children, expanded flags)
//	         ↓
//	    [graph] visible tree  →  [layout] simulation
//	         ↓                         ↓
//	    [render] binder  ←─────── positions
//	         ↓
//	    SVG/DOT/JSON output, terminal browser, HTTP views
//
// # Quick Start
//
//	p, _ := memory.Open("fixture.toml")
//	v := view.New(p, "123-45-67890")
//	if err := v.Init(ctx); err != nil {
//	    return err
//	}
//	defer v.Close()
//	_ = v.OnNodeSelect(ctx, "220-81-12345")
//	snap := v.Snapshot()
package pkg
