// Package postgrest implements provider.Provider against a Supabase
// (PostgREST) project.
//
// Contractor listings go through the project's RPC functions; the pharmacy
// record, relations and company lookups read the companies and
// subcontract_relation tables directly:
//
//	POST /rest/v1/rpc/get_primary_contractors_for_current_user
//	POST /rest/v1/rpc/get_reported_sub_contractors
//	GET  /rest/v1/companies?biz_no=eq.<id>
//	GET  /rest/v1/subcontract_relation?pharmacist_biz_no=eq.<id>
//	GET  /rest/v1/companies?biz_no=in.(<ids>)
//
// Responses are cached in a cache.Cache when one is configured.
package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/contractmap/pkg/cache"
	"github.com/matzehuels/contractmap/pkg/httputil"
	"github.com/matzehuels/contractmap/pkg/provider"
)

const companyColumns = "biz_no,company_name,ceo_name,address,cso_regist_no"

// Config holds the connection settings.
type Config struct {
	// URL is the project URL, e.g. https://<ref>.supabase.co.
	URL string
	// APIKey is the anon or service key sent as the apikey header.
	APIKey string
	// AccessToken is the signed-in user's JWT. Empty uses APIKey.
	AccessToken string

	ContractorsRPC    string
	SubContractorsRPC string

	// CacheTTL bounds how long responses are reused. Zero disables caching.
	CacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.ContractorsRPC == "" {
		c.ContractorsRPC = "get_primary_contractors_for_current_user"
	}
	if c.SubContractorsRPC == "" {
		c.SubContractorsRPC = "get_reported_sub_contractors"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	return c
}

// companyRow is the wire shape shared by the RPCs and the companies table.
type companyRow struct {
	BizNo         string `json:"biz_no"`
	CompanyName   string `json:"company_name"`
	CEOName       string `json:"ceo_name"`
	Address       string `json:"address"`
	CSORegistNo   string `json:"cso_regist_no"`
	ChildrenCount int    `json:"children_count"`
}

func (r companyRow) company() provider.Company {
	return provider.Company{
		ID:                 strings.TrimSpace(r.BizNo),
		Name:               r.CompanyName,
		CEOName:            r.CEOName,
		Address:            r.Address,
		RegistrationNumber: r.CSORegistNo,
		ChildrenCount:      r.ChildrenCount,
	}
}

type relationRow struct {
	ParentBizNo string `json:"parent_biz_no"`
	ChildBizNo  string `json:"child_biz_no"`
}

// Provider talks to one Supabase project.
type Provider struct {
	cfg    Config
	http   *httputil.Client
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates a provider. Nil cache, keyer or logger use no-op defaults.
func New(cfg Config, c cache.Cache, keyer cache.Keyer, logger *log.Logger, opts ...httputil.ClientOption) (*Provider, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, errors.New("postgrest: URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("postgrest: invalid URL: %w", err)
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	token := cfg.AccessToken
	if token == "" {
		token = cfg.APIKey
	}
	headers := map[string]string{"apikey": cfg.APIKey}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Provider{
		cfg:    cfg,
		http:   httputil.NewClient(headers, opts...),
		cache:  c,
		keyer:  keyer,
		logger: logger,
	}, nil
}

// cached serves v from the cache or runs fetch and stores its result.
func (p *Provider) cached(ctx context.Context, kind, key string, v any, fetch func() error) error {
	if p.cfg.CacheTTL > 0 {
		if ok, err := cache.GetJSON(ctx, p.cache, kind, key, v); err != nil {
			p.logger.Debug("cache read failed", "kind", kind, "err", err)
		} else if ok {
			return nil
		}
	}
	if err := fetch(); err != nil {
		return err
	}
	if p.cfg.CacheTTL > 0 {
		if err := cache.SetJSON(ctx, p.cache, kind, key, v, p.cfg.CacheTTL); err != nil {
			p.logger.Debug("cache write failed", "kind", kind, "err", err)
		}
	}
	return nil
}

func (p *Provider) rest(table string, q url.Values) string {
	return p.cfg.URL + "/rest/v1/" + table + "?" + q.Encode()
}

func (p *Provider) rpc(name string) string {
	return p.cfg.URL + "/rest/v1/rpc/" + name
}

func (p *Provider) Pharmacy(ctx context.Context, pharmacyID string) (provider.Company, error) {
	q := url.Values{"select": {companyColumns}, "biz_no": {"eq." + pharmacyID}}
	var rows []companyRow
	err := p.cached(ctx, "pharmacy", p.keyer.ProviderKey("pharmacy", pharmacyID), &rows, func() error {
		return p.http.GetJSON(ctx, p.rest("companies", q), &rows)
	})
	if err != nil {
		return provider.Company{}, fmt.Errorf("pharmacy %s: %w", pharmacyID, err)
	}
	if len(rows) == 0 {
		return provider.Company{}, fmt.Errorf("pharmacy %s: %w", pharmacyID, provider.ErrNotFound)
	}
	return rows[0].company(), nil
}

func (p *Provider) ImmediateContractors(ctx context.Context, pharmacyID string) ([]provider.Company, error) {
	var rows []companyRow
	err := p.cached(ctx, "contractors", p.keyer.ProviderKey("contractors", pharmacyID), &rows, func() error {
		return p.http.PostJSON(ctx, p.rpc(p.cfg.ContractorsRPC), map[string]string{}, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("contractors of %s: %w", pharmacyID, err)
	}
	return companies(rows), nil
}

func (p *Provider) SubContractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	body := map[string]string{
		"selected_pharmacist_biz_no": pharmacyID,
		"selected_parent_biz_no":     parentID,
	}
	var rows []companyRow
	err := p.cached(ctx, "subcontractors", p.keyer.ProviderKey("subcontractors", pharmacyID, parentID), &rows, func() error {
		return p.http.PostJSON(ctx, p.rpc(p.cfg.SubContractorsRPC), body, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("sub-contractors of %s: %w", parentID, err)
	}
	return companies(rows), nil
}

func (p *Provider) Relations(ctx context.Context, pharmacyID string) ([]provider.Relation, error) {
	q := url.Values{"select": {"parent_biz_no,child_biz_no"}, "pharmacist_biz_no": {"eq." + pharmacyID}}
	var rows []relationRow
	err := p.cached(ctx, "relations", p.keyer.ProviderKey("relations", pharmacyID), &rows, func() error {
		return p.http.GetJSON(ctx, p.rest("subcontract_relation", q), &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("relations of %s: %w", pharmacyID, err)
	}
	out := make([]provider.Relation, len(rows))
	for i, r := range rows {
		out[i] = provider.Relation{ParentID: r.ParentBizNo, ChildID: r.ChildBizNo}
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
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	q := url.Values{"select": {companyColumns}, "biz_no": {"in.(" + strings.Join(quoted, ",") + ")"}}
	var rows []companyRow
	err := p.cached(ctx, "lookup", p.keyer.ProviderKey("lookup", ids...), &rows, func() error {
		return p.http.GetJSON(ctx, p.rest("companies", q), &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("lookup %d companies: %w", len(ids), err)
	}
	return companies(rows), nil
}

// Close does nothing; the cache is owned by the caller.
func (p *Provider) Close() error { return nil }

func companies(rows []companyRow) []provider.Company {
	out := make([]provider.Company, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.company())
	}
	return out
}
