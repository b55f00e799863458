// Package config loads contractmap settings from TOML or YAML files.
//
// The format follows the file extension (.toml, .yaml, .yml). Values absent
// from the file keep their defaults from [Default]. Command-line flags are
// applied on top by the CLI before [Config.Validate] runs.
//
//	[pharmacy]
//	id = "123-45-67890"
//
//	[provider]
//	kind = "postgrest"
//
//	[provider.postgrest]
//	url = "https://example.supabase.co"
//	api_key = "..."
//
//	[cache]
//	kind = "redis"
//	ttl = "10m"
//
//	[layout]
//	charge_strength = -350
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/layout"
)

// Provider kinds.
const (
	ProviderPostgREST = "postgrest"
	ProviderPostgres  = "postgres"
	ProviderMongo     = "mongo"
	ProviderNeo4j     = "neo4j"
	ProviderMemory    = "memory"
)

// Cache kinds.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete configuration.
type Config struct {
	Pharmacy Pharmacy      `toml:"pharmacy" yaml:"pharmacy"`
	Provider Provider      `toml:"provider" yaml:"provider"`
	Cache    Cache         `toml:"cache" yaml:"cache"`
	Layout   layout.Config `toml:"layout" yaml:"layout"`
	Server   Server        `toml:"server" yaml:"server"`
	Search   Search        `toml:"search" yaml:"search"`
	Log      Log           `toml:"log" yaml:"log"`
}

// Pharmacy identifies whose hierarchy is shown.
type Pharmacy struct {
	ID string `toml:"id" yaml:"id"`
}

// Provider selects and configures the data backend.
type Provider struct {
	Kind string `toml:"kind" yaml:"kind"`
	// Fixture is the dataset file of the memory provider.
	Fixture string `toml:"fixture" yaml:"fixture"`

	PostgREST PostgREST `toml:"postgrest" yaml:"postgrest"`
	Postgres  Postgres  `toml:"postgres" yaml:"postgres"`
	Mongo     Mongo     `toml:"mongo" yaml:"mongo"`
	Neo4j     Neo4j     `toml:"neo4j" yaml:"neo4j"`
}

type PostgREST struct {
	URL               string `toml:"url" yaml:"url"`
	APIKey            string `toml:"api_key" yaml:"api_key"`
	AccessToken       string `toml:"access_token" yaml:"access_token"`
	ContractorsRPC    string `toml:"contractors_rpc" yaml:"contractors_rpc"`
	SubContractorsRPC string `toml:"sub_contractors_rpc" yaml:"sub_contractors_rpc"`
}

type Postgres struct {
	DSN      string `toml:"dsn" yaml:"dsn"`
	MaxConns int32  `toml:"max_conns" yaml:"max_conns"`
}

type Mongo struct {
	URI      string `toml:"uri" yaml:"uri"`
	Database string `toml:"database" yaml:"database"`
}

type Neo4j struct {
	URI      string `toml:"uri" yaml:"uri"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
	Database string `toml:"database" yaml:"database"`
}

// Cache configures where provider responses are reused.
type Cache struct {
	Kind string        `toml:"kind" yaml:"kind"`
	Dir  string        `toml:"dir" yaml:"dir"`
	TTL  time.Duration `toml:"ttl" yaml:"ttl"`

	Redis Redis `toml:"redis" yaml:"redis"`
}

type Redis struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
}

// Server configures the HTTP host.
type Server struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	// MaxViews caps concurrently open views.
	MaxViews int `toml:"max_views" yaml:"max_views"`
	// ViewTTL closes views idle for longer. Zero keeps them open.
	ViewTTL time.Duration `toml:"view_ttl" yaml:"view_ttl"`
}

// Search configures the background search index.
type Search struct {
	Disabled bool `toml:"disabled" yaml:"disabled"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Provider: Provider{
			Kind: ProviderPostgREST,
			PostgREST: PostgREST{
				ContractorsRPC:    "get_primary_contractors_for_current_user",
				SubContractorsRPC: "get_reported_sub_contractors",
			},
			Mongo: Mongo{Database: "contractmap"},
			Neo4j: Neo4j{Username: "neo4j"},
		},
		Cache: Cache{
			Kind:  CacheFile,
			TTL:   10 * time.Minute,
			Redis: Redis{Addr: "localhost:6379", Prefix: "contractmap:"},
		},
		Layout: layout.DefaultConfig(),
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxViews:        100,
			ViewTTL:         30 * time.Minute,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return nil, cerrors.New(cerrors.ErrCodeInvalidConfig, "unsupported config format %q", ext)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults restores defaults a file explicitly zeroed.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	if c.Provider.PostgREST.ContractorsRPC == "" {
		c.Provider.PostgREST.ContractorsRPC = d.Provider.PostgREST.ContractorsRPC
	}
	if c.Provider.PostgREST.SubContractorsRPC == "" {
		c.Provider.PostgREST.SubContractorsRPC = d.Provider.PostgREST.SubContractorsRPC
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = d.Cache.Kind
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.MaxViews <= 0 {
		c.Server.MaxViews = d.Server.MaxViews
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate reports every problem found in c at once.
func (c *Config) Validate() error { return c.validate(true) }

// ValidateForServer is Validate with the pharmacy optional; server clients
// name the pharmacy per view.
func (c *Config) ValidateForServer() error { return c.validate(false) }

func (c *Config) validate(needPharmacy bool) error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if c.Pharmacy.ID == "" {
		if needPharmacy {
			add("pharmacy.id is required")
		}
	} else if err := cerrors.ValidateCompanyID(c.Pharmacy.ID); err != nil {
		add("pharmacy.id: %s", cerrors.UserMessage(err))
	}

	switch p := c.Provider; p.Kind {
	case ProviderPostgREST:
		if p.PostgREST.URL == "" {
			add("provider.postgrest.url is required")
		}
		if p.PostgREST.APIKey == "" {
			add("provider.postgrest.api_key is required")
		}
	case ProviderPostgres:
		if p.Postgres.DSN == "" {
			add("provider.postgres.dsn is required")
		}
	case ProviderMongo:
		if p.Mongo.URI == "" {
			add("provider.mongo.uri is required")
		}
	case ProviderNeo4j:
		if p.Neo4j.URI == "" {
			add("provider.neo4j.uri is required")
		}
	case ProviderMemory:
		if p.Fixture == "" {
			add("provider.fixture is required for the memory provider")
		}
	default:
		add("provider.kind %q is not one of postgrest, postgres, mongo, neo4j, memory", p.Kind)
	}

	switch c.Cache.Kind {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			add("cache.redis.addr is required")
		}
	default:
		add("cache.kind %q is not one of file, redis, none", c.Cache.Kind)
	}
	if c.Cache.TTL < 0 {
		add("cache.ttl must not be negative")
	}

	if c.Layout.Width < 0 || c.Layout.Height < 0 {
		add("layout width and height must not be negative")
	}
	if c.Layout.ChargeStrength > 0 {
		add("layout.charge_strength must be negative (repulsive)")
	}

	if len(errs) > 0 {
		return cerrors.New(cerrors.ErrCodeInvalidConfig, "config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
