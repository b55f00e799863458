// Package provider defines the remote data provider consumed by the graph view.
//
// A provider answers five questions about one pharmacy's subcontracting
// hierarchy: who the pharmacy is, who its immediate contractors are, who a
// given company reported as sub-contractors, which (parent, child) relations
// exist, and what the company records for a batch of ids look like.
//
// # Backends
//
// Implementations live in sub-packages:
//   - postgrest: Supabase REST/RPC API over HTTP
//   - postgres: direct Postgres access with pgx
//   - mongo: MongoDB collections
//   - neo4j: a Neo4j graph of companies and SUBCONTRACTS relationships
//   - memory: in-process fixtures (tests, demos, offline rendering)
//
// # Batch Lookups
//
// Backends limit how many ids a single lookup may carry. [LookupAll] splits
// an arbitrary id list into batches of at most [BatchSize] ids:
//
//	companies, err := provider.LookupAll(ctx, p, ids, logger)
package provider

import (
	"context"
	"errors"
)

// BatchSize is the maximum number of ids passed to a single
// [Lookuper.LookupCompanies] call.
const BatchSize = 1000

var (
	// ErrNotFound is returned when the pharmacy or company does not exist.
	ErrNotFound = errors.New("company not found")

	// ErrBatchTooLarge is returned by backends when a lookup exceeds BatchSize ids.
	ErrBatchTooLarge = errors.New("lookup batch exceeds limit")
)

// Company is a company record as reported by the backend.
// ChildrenCount is only meaningful for contractor listings; plain lookups
// leave it zero.
type Company struct {
	ID                 string `json:"id" toml:"id" yaml:"id"`
	Name               string `json:"name" toml:"name" yaml:"name"`
	CEOName            string `json:"ceo_name,omitempty" toml:"ceo_name" yaml:"ceo_name"`
	Address            string `json:"address,omitempty" toml:"address" yaml:"address"`
	RegistrationNumber string `json:"registration_number,omitempty" toml:"registration_number" yaml:"registration_number"`
	ChildrenCount      int    `json:"children_count" toml:"children_count" yaml:"children_count"`
}

// Relation is a reported (parent, child) subcontracting edge.
type Relation struct {
	ParentID string `json:"parent_id" toml:"parent" yaml:"parent"`
	ChildID  string `json:"child_id" toml:"child" yaml:"child"`
}

// Contractors lists companies below the pharmacy.
type Contractors interface {
	// ImmediateContractors returns the companies directly contracted by the pharmacy.
	ImmediateContractors(ctx context.Context, pharmacyID string) ([]Company, error)

	// SubContractors returns the companies parentID reported as its sub-contractors,
	// scoped to the pharmacy's hierarchy.
	SubContractors(ctx context.Context, pharmacyID, parentID string) ([]Company, error)
}

// Lookuper resolves company records by id.
type Lookuper interface {
	// LookupCompanies returns the records for at most BatchSize ids.
	// Unknown ids are omitted from the result.
	LookupCompanies(ctx context.Context, ids []string) ([]Company, error)
}

// Provider is the complete remote data provider.
type Provider interface {
	Contractors
	Lookuper

	// Pharmacy returns the pharmacy's own company record.
	// Returns ErrNotFound if the id is unknown.
	Pharmacy(ctx context.Context, pharmacyID string) (Company, error)

	// Relations returns every (parent, child) relation under the pharmacy.
	Relations(ctx context.Context, pharmacyID string) ([]Relation, error)

	// Close releases backend resources.
	Close() error
}
