// Package memory implements provider.Provider over an in-process dataset.
//
// Datasets load from TOML or YAML fixture files:
//
//	[pharmacy]
//	id = "123-45-67890"
//	name = "가나제약"
//
//	[[companies]]
//	id = "111-11-11111"
//	name = "(주)다라"
//
//	[[relations]]
//	parent = "123-45-67890"
//	child = "111-11-11111"
//
// Child counts are derived from the relations. The provider is used by tests,
// demos and offline rendering.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/contractmap/pkg/provider"
)

// Dataset is the fixture content.
type Dataset struct {
	Pharmacy  provider.Company    `toml:"pharmacy" yaml:"pharmacy"`
	Companies []provider.Company  `toml:"companies" yaml:"companies"`
	Relations []provider.Relation `toml:"relations" yaml:"relations"`
}

// Load reads a dataset from a .toml, .yaml or .yml file.
func Load(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, err
	}
	var ds Dataset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &ds)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ds)
	default:
		return Dataset{}, fmt.Errorf("unsupported fixture format %q", ext)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

// Provider serves a Dataset. It is safe for concurrent use.
type Provider struct {
	mu        sync.Mutex
	pharmacy  provider.Company
	companies map[string]provider.Company
	children  map[string][]string
	relations []provider.Relation

	delay time.Duration
	fail  map[string]error
	calls map[string]int
}

var _ provider.Provider = (*Provider)(nil)

// New indexes a dataset.
func New(ds Dataset) *Provider {
	p := &Provider{
		pharmacy:  ds.Pharmacy,
		companies: make(map[string]provider.Company, len(ds.Companies)+1),
		children:  make(map[string][]string),
		relations: append([]provider.Relation(nil), ds.Relations...),
		fail:      make(map[string]error),
		calls:     make(map[string]int),
	}
	if ds.Pharmacy.ID != "" {
		p.companies[ds.Pharmacy.ID] = ds.Pharmacy
	}
	for _, c := range ds.Companies {
		p.companies[c.ID] = c
	}
	for _, r := range ds.Relations {
		p.children[r.ParentID] = append(p.children[r.ParentID], r.ChildID)
	}
	return p
}

// Open loads a fixture file and indexes it.
func Open(path string) (*Provider, error) {
	ds, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

// SetDelay makes every call wait d or until the context is done.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// FailSubContractors makes SubContractors fail for parentID. A nil err clears it.
func (p *Provider) FailSubContractors(parentID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, parentID)
		return
	}
	p.fail[parentID] = err
}

// Calls returns how often a call was made; key is the method name, or
// "SubContractors:<parent>" for per-parent counts.
func (p *Provider) Calls(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

func (p *Provider) enter(ctx context.Context, keys ...string) error {
	p.mu.Lock()
	for _, k := range keys {
		p.calls[k]++
	}
	d := p.delay
	p.mu.Unlock()

	if d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return ctx.Err()
}

func (p *Provider) Pharmacy(ctx context.Context, pharmacyID string) (provider.Company, error) {
	if err := p.enter(ctx, "Pharmacy"); err != nil {
		return provider.Company{}, err
	}
	if p.pharmacy.ID == "" || p.pharmacy.ID != pharmacyID {
		return provider.Company{}, fmt.Errorf("pharmacy %s: %w", pharmacyID, provider.ErrNotFound)
	}
	return p.pharmacy, nil
}

func (p *Provider) ImmediateContractors(ctx context.Context, pharmacyID string) ([]provider.Company, error) {
	if err := p.enter(ctx, "ImmediateContractors"); err != nil {
		return nil, err
	}
	return p.listChildren(pharmacyID), nil
}

func (p *Provider) SubContractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	if err := p.enter(ctx, "SubContractors", "SubContractors:"+parentID); err != nil {
		return nil, err
	}
	p.mu.Lock()
	err := p.fail[parentID]
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.listChildren(parentID), nil
}

func (p *Provider) listChildren(parentID string) []provider.Company {
	ids := p.children[parentID]
	out := make([]provider.Company, 0, len(ids))
	for _, id := range ids {
		c, ok := p.companies[id]
		if !ok {
			c = provider.Company{ID: id}
		}
		c.ChildrenCount = len(p.children[id])
		out = append(out, c)
	}
	return out
}

func (p *Provider) Relations(ctx context.Context, pharmacyID string) ([]provider.Relation, error) {
	if err := p.enter(ctx, "Relations"); err != nil {
		return nil, err
	}
	return append([]provider.Relation(nil), p.relations...), nil
}

func (p *Provider) LookupCompanies(ctx context.Context, ids []string) ([]provider.Company, error) {
	if len(ids) > provider.BatchSize {
		return nil, provider.ErrBatchTooLarge
	}
	if err := p.enter(ctx, "LookupCompanies"); err != nil {
		return nil, err
	}
	out := make([]provider.Company, 0, len(ids))
	for _, id := range ids {
		if c, ok := p.companies[id]; ok {
			c.ChildrenCount = 0
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *Provider) Close() error { return nil }
