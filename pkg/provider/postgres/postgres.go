// Package postgres implements provider.Provider directly against the
// Supabase Postgres schema using pgx.
//
// Two tables are read:
//
//	companies(biz_no, company_name, ceo_name, address, cso_regist_no)
//	subcontract_relation(parent_biz_no, child_biz_no, pharmacist_biz_no)
//
// Every relation query is scoped to one pharmacy through pharmacist_biz_no.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matzehuels/contractmap/pkg/provider"
)

const pharmacySQL = `
SELECT biz_no, company_name,
       coalesce(ceo_name, ''), coalesce(address, ''), coalesce(cso_regist_no, '')
FROM companies
WHERE biz_no = $1`

// contractorsSQL lists the children of $2 under pharmacy $1 with the number
// of children each of them reported in turn.
const contractorsSQL = `
SELECT c.biz_no, c.company_name,
       coalesce(c.ceo_name, ''), coalesce(c.address, ''), coalesce(c.cso_regist_no, ''),
       (SELECT count(*) FROM subcontract_relation s
         WHERE s.pharmacist_biz_no = $1 AND s.parent_biz_no = c.biz_no)::int
FROM subcontract_relation r
JOIN companies c ON c.biz_no = r.child_biz_no
WHERE r.pharmacist_biz_no = $1 AND r.parent_biz_no = $2
ORDER BY c.company_name`

const relationsSQL = `
SELECT parent_biz_no, child_biz_no
FROM subcontract_relation
WHERE pharmacist_biz_no = $1`

const lookupSQL = `
SELECT biz_no, company_name,
       coalesce(ceo_name, ''), coalesce(address, ''), coalesce(cso_regist_no, '')
FROM companies
WHERE biz_no = ANY($1)`

// Querier is the subset of pgxpool.Pool the provider uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config configures a pooled connection.
type Config struct {
	DSN      string `toml:"dsn" yaml:"dsn"`
	MaxConns int32  `toml:"max_conns" yaml:"max_conns"`
}

// Provider reads companies and relations from Postgres.
type Provider struct {
	q      Querier
	pool   *pgxpool.Pool
	logger *log.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Provider, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	p := NewFromQuerier(pool, logger)
	p.pool = pool
	return p, nil
}

// NewFromQuerier wraps an existing pool or transaction. Close is a no-op.
func NewFromQuerier(q Querier, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Default()
	}
	return &Provider{q: q, logger: logger}
}

func (p *Provider) Pharmacy(ctx context.Context, pharmacyID string) (provider.Company, error) {
	var c provider.Company
	err := p.q.QueryRow(ctx, pharmacySQL, pharmacyID).
		Scan(&c.ID, &c.Name, &c.CEOName, &c.Address, &c.RegistrationNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return provider.Company{}, fmt.Errorf("pharmacy %s: %w", pharmacyID, provider.ErrNotFound)
	}
	if err != nil {
		return provider.Company{}, fmt.Errorf("query pharmacy: %w", err)
	}
	return c, nil
}

func (p *Provider) ImmediateContractors(ctx context.Context, pharmacyID string) ([]provider.Company, error) {
	return p.contractors(ctx, pharmacyID, pharmacyID)
}

func (p *Provider) SubContractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	return p.contractors(ctx, pharmacyID, parentID)
}

func (p *Provider) contractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	rows, err := p.q.Query(ctx, contractorsSQL, pharmacyID, parentID)
	if err != nil {
		return nil, fmt.Errorf("query contractors of %s: %w", parentID, err)
	}
	defer rows.Close()

	var out []provider.Company
	for rows.Next() {
		var c provider.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CEOName, &c.Address, &c.RegistrationNumber, &c.ChildrenCount); err != nil {
			return nil, fmt.Errorf("scan contractor: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contractors: %w", err)
	}
	p.logger.Debug("contractors loaded", "parent", parentID, "count", len(out))
	return out, nil
}

func (p *Provider) Relations(ctx context.Context, pharmacyID string) ([]provider.Relation, error) {
	rows, err := p.q.Query(ctx, relationsSQL, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	var out []provider.Relation
	for rows.Next() {
		var r provider.Relation
		if err := rows.Scan(&r.ParentID, &r.ChildID); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
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
	rows, err := p.q.Query(ctx, lookupSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	out := make([]provider.Company, 0, len(ids))
	for rows.Next() {
		var c provider.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CEOName, &c.Address, &c.RegistrationNumber); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return out, nil
}

func (p *Provider) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
