// Package cli implements the contractmap command-line interface.
//
// # Commands
//
//   - serve: host views over HTTP
//   - browse: explore a pharmacy's hierarchy in the terminal
//   - render: write a view as SVG, DOT, Graphviz SVG or JSON
//   - search: list companies matching a keyword
//   - cache: clear or locate the response cache
//
// # Configuration
//
// Settings come from the --config file (TOML or YAML) and are overridden
// by the persistent flags --pharmacy, --provider, --fixture and --no-cache.
//
// # Logging
//
// Commands log through the CLI's charmbracelet logger, which the root
// command attaches to the command context. --verbose switches it to debug;
// otherwise log.level from the config applies. browse sends logs to
// --log-file so they do not draw over the UI.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/contractmap/pkg/buildinfo"
	"github.com/matzehuels/contractmap/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "contractmap"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	flags  globalFlags
}

// globalFlags are the persistent flags every command shares.
type globalFlags struct {
	configPath string
	verbose    bool
	pharmacy   string
	provider   string
	fixture    string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Contractmap explores a pharmacy's subcontractor hierarchy",
		Long: `Contractmap shows which contract sales organisations a pharmacy works with,
whom they re-delegate to, and how a company found by search connects back
to the pharmacy. Views can be browsed in the terminal, served over HTTP
or rendered to files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.flags.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.configPath, "config", "c", "", "config file (.toml, .yaml)")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVarP(&c.flags.pharmacy, "pharmacy", "p", "", "pharmacy business registration number")
	pf.StringVar(&c.flags.provider, "provider", "", "data backend: postgrest, postgres, mongo, neo4j, memory")
	pf.StringVar(&c.flags.fixture, "fixture", "", "dataset file for the memory backend (implies --provider memory)")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the response cache")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	registerCompletions(root)

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the --config file, or the defaults without one, and
// applies the command-line flags on top.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.flags.configPath != "" {
		loaded, err := config.Load(c.flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := c.applyFlags(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFlags overrides cfg with the flags that were set and adopts the
// configured log level unless --verbose asked for debug output.
func (c *CLI) applyFlags(cfg *config.Config) error {
	if c.flags.pharmacy != "" {
		cfg.Pharmacy.ID = c.flags.pharmacy
	}
	if c.flags.provider != "" {
		cfg.Provider.Kind = c.flags.provider
	}
	if c.flags.fixture != "" {
		cfg.Provider.Kind = config.ProviderMemory
		cfg.Provider.Fixture = c.flags.fixture
	}
	if c.flags.noCache {
		cfg.Cache.Kind = config.CacheNone
	}
	if c.flags.verbose {
		return nil
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	c.SetLogLevel(level)
	return nil
}
