// Package mongo implements provider.Provider over MongoDB collections that
// mirror the Supabase tables: "companies" and "subcontract_relation".
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/contractmap/pkg/provider"
)

const (
	companiesColl = "companies"
	relationsColl = "subcontract_relation"
)

// Config selects the deployment and database.
type Config struct {
	URI      string `toml:"uri" yaml:"uri"`
	Database string `toml:"database" yaml:"database"`
}

type companyDoc struct {
	BizNo       string `bson:"biz_no"`
	CompanyName string `bson:"company_name"`
	CEOName     string `bson:"ceo_name,omitempty"`
	Address     string `bson:"address,omitempty"`
	CSORegistNo string `bson:"cso_regist_no,omitempty"`
}

func (d companyDoc) company() provider.Company {
	return provider.Company{
		ID:                 d.BizNo,
		Name:               d.CompanyName,
		CEOName:            d.CEOName,
		Address:            d.Address,
		RegistrationNumber: d.CSORegistNo,
	}
}

type relationDoc struct {
	ParentBizNo     string `bson:"parent_biz_no"`
	ChildBizNo      string `bson:"child_biz_no"`
	PharmacistBizNo string `bson:"pharmacist_biz_no"`
}

type countDoc struct {
	ID    string `bson:"_id"`
	Count int    `bson:"count"`
}

// Provider reads from a MongoDB database.
type Provider struct {
	db     *mongo.Database
	client *mongo.Client
	logger *log.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New connects to cfg.URI and verifies the deployment with a ping.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Provider, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = "contractmap"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	p := NewFromDatabase(client.Database(cfg.Database), logger)
	p.client = client
	return p, nil
}

// NewFromDatabase wraps an existing database handle. Close does not
// disconnect the client.
func NewFromDatabase(db *mongo.Database, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Default()
	}
	return &Provider{db: db, logger: logger}
}

func (p *Provider) Pharmacy(ctx context.Context, pharmacyID string) (provider.Company, error) {
	var doc companyDoc
	err := p.db.Collection(companiesColl).FindOne(ctx, bson.D{{Key: "biz_no", Value: pharmacyID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return provider.Company{}, fmt.Errorf("pharmacy %s: %w", pharmacyID, provider.ErrNotFound)
	}
	if err != nil {
		return provider.Company{}, fmt.Errorf("find pharmacy: %w", err)
	}
	return doc.company(), nil
}

func (p *Provider) ImmediateContractors(ctx context.Context, pharmacyID string) ([]provider.Company, error) {
	return p.contractors(ctx, pharmacyID, pharmacyID)
}

func (p *Provider) SubContractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	return p.contractors(ctx, pharmacyID, parentID)
}

// contractors resolves the children of parentID in three round trips:
// relation ids, company records, then per-child relation counts.
func (p *Provider) contractors(ctx context.Context, pharmacyID, parentID string) ([]provider.Company, error) {
	var rels []relationDoc
	if err := p.find(ctx, relationsColl, bson.D{
		{Key: "pharmacist_biz_no", Value: pharmacyID},
		{Key: "parent_biz_no", Value: parentID},
	}, &rels); err != nil {
		return nil, fmt.Errorf("find relations of %s: %w", parentID, err)
	}
	if len(rels) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, r.ChildBizNo)
	}

	var docs []companyDoc
	if err := p.find(ctx, companiesColl, bson.D{{Key: "biz_no", Value: bson.D{{Key: "$in", Value: ids}}}}, &docs); err != nil {
		return nil, fmt.Errorf("find companies: %w", err)
	}

	cur, err := p.db.Collection(relationsColl).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "pharmacist_biz_no", Value: pharmacyID},
			{Key: "parent_biz_no", Value: bson.D{{Key: "$in", Value: ids}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$parent_biz_no"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("count children: %w", err)
	}
	var counts []countDoc
	if err := cur.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	byID := make(map[string]int, len(counts))
	for _, c := range counts {
		byID[c.ID] = c.Count
	}

	out := make([]provider.Company, 0, len(docs))
	for _, d := range docs {
		c := d.company()
		c.ChildrenCount = byID[c.ID]
		out = append(out, c)
	}
	p.logger.Debug("contractors loaded", "parent", parentID, "count", len(out))
	return out, nil
}

func (p *Provider) Relations(ctx context.Context, pharmacyID string) ([]provider.Relation, error) {
	var rels []relationDoc
	if err := p.find(ctx, relationsColl, bson.D{{Key: "pharmacist_biz_no", Value: pharmacyID}}, &rels); err != nil {
		return nil, fmt.Errorf("find relations: %w", err)
	}
	out := make([]provider.Relation, 0, len(rels))
	for _, r := range rels {
		out = append(out, provider.Relation{ParentID: r.ParentBizNo, ChildID: r.ChildBizNo})
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
	var docs []companyDoc
	if err := p.find(ctx, companiesColl, bson.D{{Key: "biz_no", Value: bson.D{{Key: "$in", Value: ids}}}}, &docs); err != nil {
		return nil, fmt.Errorf("find companies: %w", err)
	}
	out := make([]provider.Company, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.company())
	}
	return out, nil
}

func (p *Provider) find(ctx context.Context, coll string, filter bson.D, out any) error {
	cur, err := p.db.Collection(coll).Find(ctx, filter)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Disconnect(context.Background())
}
