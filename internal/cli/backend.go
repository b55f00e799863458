package cli

import (
	"context"
	"fmt"

	"github.com/matzehuels/contractmap/pkg/cache"
	"github.com/matzehuels/contractmap/pkg/config"
	"github.com/matzehuels/contractmap/pkg/provider"
	"github.com/matzehuels/contractmap/pkg/provider/memory"
	"github.com/matzehuels/contractmap/pkg/provider/mongo"
	"github.com/matzehuels/contractmap/pkg/provider/neo4j"
	"github.com/matzehuels/contractmap/pkg/provider/postgres"
	"github.com/matzehuels/contractmap/pkg/provider/postgrest"
)

// =============================================================================
// Backend Factory
// =============================================================================

// backend is an opened provider with the cache it was given.
type backend struct {
	provider.Provider
	Cache cache.Cache
}

// Close releases the provider and the cache.
func (b *backend) Close() error {
	perr := b.Provider.Close()
	cerr := b.Cache.Close()
	if perr != nil {
		return perr
	}
	return cerr
}

// openBackend connects the configured provider. The cache is opened even
// for backends that do not use it; render reuses it for artifacts.
func (c *CLI) openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	store, err := newCache(ctx, cfg.Cache)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "kind", cfg.Cache.Kind, "err", err)
		store = cache.NewNullCache()
	}

	p, err := c.newProvider(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	c.Logger.Debug("backend ready", "provider", cfg.Provider.Kind, "cache", cfg.Cache.Kind)
	return &backend{Provider: p, Cache: store}, nil
}

func (c *CLI) newProvider(ctx context.Context, cfg *config.Config, store cache.Cache) (provider.Provider, error) {
	pc := cfg.Provider
	switch pc.Kind {
	case config.ProviderMemory:
		return memory.Open(pc.Fixture)
	case config.ProviderPostgREST:
		keyer := cache.NewScopedKeyer(nil, "pharmacy:"+cfg.Pharmacy.ID+":")
		return postgrest.New(postgrest.Config{
			URL:               pc.PostgREST.URL,
			APIKey:            pc.PostgREST.APIKey,
			AccessToken:       pc.PostgREST.AccessToken,
			ContractorsRPC:    pc.PostgREST.ContractorsRPC,
			SubContractorsRPC: pc.PostgREST.SubContractorsRPC,
			CacheTTL:          cfg.Cache.TTL,
		}, store, keyer, c.Logger)
	case config.ProviderPostgres:
		return postgres.New(ctx, postgres.Config{
			DSN:      pc.Postgres.DSN,
			MaxConns: pc.Postgres.MaxConns,
		}, c.Logger)
	case config.ProviderMongo:
		return mongo.New(ctx, mongo.Config{
			URI:      pc.Mongo.URI,
			Database: pc.Mongo.Database,
		}, c.Logger)
	case config.ProviderNeo4j:
		return neo4j.New(ctx, neo4j.Config{
			URI:      pc.Neo4j.URI,
			Username: pc.Neo4j.Username,
			Password: pc.Neo4j.Password,
			Database: pc.Neo4j.Database,
		}, c.Logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Kind)
	}
}

// newCache opens the configured response cache.
func newCache(ctx context.Context, cc config.Cache) (cache.Cache, error) {
	switch cc.Kind {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
			Prefix:   cc.Redis.Prefix,
		})
	case config.CacheFile, "":
		return cache.NewFileCache(cc.Dir)
	default:
		return nil, fmt.Errorf("unknown cache kind %q", cc.Kind)
	}
}
