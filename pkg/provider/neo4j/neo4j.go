// Package neo4j implements provider.Provider over a Neo4j graph.
//
// Companies are (:Company) nodes carrying biz_no, company_name, ceo_name,
// address and cso_regist_no. A reported relation is a
// (:Company)-[:SUBCONTRACTS {pharmacist_biz_no}]->(:Company) relationship.
package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matzehuels/contractmap/pkg/provider"
)

const companyFields = `c.biz_no AS biz_no, c.company_name AS company_name,
coalesce(c.ceo_name, '') AS ceo_name, coalesce(c.address, '') AS address,
coalesce(c.cso_regist_no, '') AS cso_regist_no`

const (
	pharmacyCypher = `MATCH (c:Company {biz_no: $id}) RETURN ` + companyFields

	contractorsCypher = `MATCH (:Company {biz_no: $parent})-[:SUBCONTRACTS {pharmacist_biz_no: $pharmacy}]->(c:Company)
OPTIONAL MATCH (c)-[r:SUBCONTRACTS {pharmacist_biz_no: $pharmacy}]->()
RETURN ` + companyFields + `, count(r) AS children_count
ORDER BY company_name`

	relationsCypher = `MATCH (p:Company)-[:SUBCONTRACTS {pharmacist_biz_no: $pharmacy}]->(c:Company)
RETURN p.biz_no AS parent, c.biz_no AS child`

	lookupCypher = `MATCH (c:Company) WHERE c.biz_no IN $ids RETURN ` + companyFields
)

// Runner executes a Cypher query and buffers the result.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// Config holds connection settings.
type Config struct {
	URI      string `toml:"uri" yaml:"uri"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	Database string `toml:"database" yaml:"database"`
}

// Executor is a Runner backed by a driver.
type Executor struct {
	Driver   neo4j.DriverWithContext
	Database string
}

func (e *Executor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, e.Driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.Database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("neo4j query: %w", err)
	}
	return res, nil
}

// Provider reads companies and relations from Neo4j.
type Provider struct {
	run    Runner
	driver neo4j.DriverWithContext
	logger *log.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates a driver and verifies connectivity.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Provider, error) {
	if cfg.URI == "" {
		return nil, errors.New("neo4j: uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}
	p := NewFromRunner(&Executor{Driver: driver, Database: cfg.Database}, logger)
	p.driver = driver
	return p, nil
}

// NewFromRunner wraps a Runner. Close is a no-op.
func NewFromRunner(r Runner, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Default()
	}
	return &Provider{run: r, logger: logger}
}

func (p *Provider) Pharmacy(ctx context.Context, pharmacyID string) (provider.Company, error) {
	res, err := p.run.Run(ctx, pharmacyCypher, map[string]any{"id": pharmacyID})
	if err != nil {
		return provider.Company{}, err
	}
	if len(res.Records) == 0 {
		return provider.Company{}, fmt.Errorf("pharmacy %s: %w", pharmacyID, provider.ErrNotFound)
	}
	return toCompany(res.Records[0]), nil
}

func (p *Provider) ImmediateContractors(ctx context.Context, pharmacyID string) ([]provider.Company, error) {
	return p.contractors(ctx, pharmacyID, pharmacyID)
}

func (p *Provider) SubContractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	return p.contractors(ctx, pharmacyID, parentID)
}

func (p *Provider) contractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	res, err := p.run.Run(ctx, contractorsCypher, map[string]any{"pharmacy": pharmacyID, "parent": parentID})
	if err != nil {
		return nil, err
	}
	out := make([]provider.Company, 0, len(res.Records))
	for _, rec := range res.Records {
		c := toCompany(rec)
		c.ChildrenCount = int(integer(rec, "children_count"))
		out = append(out, c)
	}
	p.logger.Debug("contractors loaded", "parent", parentID, "count", len(out))
	return out, nil
}

func (p *Provider) Relations(ctx context.Context, pharmacyID string) ([]provider.Relation, error) {
	res, err := p.run.Run(ctx, relationsCypher, map[string]any{"pharmacy": pharmacyID})
	if err != nil {
		return nil, err
	}
	out := make([]provider.Relation, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, provider.Relation{ParentID: str(rec, "parent"), ChildID: str(rec, "child")})
	}
	return out, nil
}

func (p *Provider) LookupCompanies(ctx context.Context, ids []string) ([]provider.Company, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > provider.BatchSize {
		return nil, provider.ErrBatchTooLarge
	}
	res, err := p.run.Run(ctx, lookupCypher, map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	out := make([]provider.Company, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, toCompany(rec))
	}
	return out, nil
}

func (p *Provider) Close() error {
	if p.driver == nil {
		return nil
	}
	return p.driver.Close(context.Background())
}

func toCompany(rec *neo4j.Record) provider.Company {
	return provider.Company{
		ID:                 str(rec, "biz_no"),
		Name:               str(rec, "company_name"),
		CEOName:            str(rec, "ceo_name"),
		Address:            str(rec, "address"),
		RegistrationNumber: str(rec, "cso_regist_no"),
	}
}

func str(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func integer(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	n, _ := v.(int64)
	return n
}
