package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/contractmap/internal/metrics"
	"github.com/matzehuels/contractmap/internal/server"
	"github.com/matzehuels/contractmap/pkg/config"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr   string
	manual bool
	watch  bool
}

// serveCommand creates the serve command hosting views over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve views over HTTP",
		Long: `Serve hosts any number of views behind a JSON API. Each view is opened
for one pharmacy and driven by select, drag and search requests; its scene
is available as SVG. Metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&opts.manual, "manual-layout", false, "advance layouts only when a scene is requested")
	cmd.Flags().BoolVar(&opts.watch, "watch", true, "reload layout settings when the config file changes")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	var loader *config.Loader
	cfg := config.Default()
	if c.flags.configPath != "" {
		l, err := config.NewLoader(c.flags.configPath, logger)
		if err != nil {
			return err
		}
		loader = l
		cfg = *l.Config()
	}
	if err := c.applyFlags(&cfg); err != nil {
		return err
	}
	if err := cfg.ValidateForServer(); err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	b, err := c.openBackend(ctx, &cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	m.Install()

	srv := server.New(b, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxViews:        cfg.Server.MaxViews,
		ViewTTL:         cfg.Server.ViewTTL,
		Pharmacy:        cfg.Pharmacy.ID,
		Layout:          cfg.Layout,
		SearchDisabled:  cfg.Search.Disabled,
		ManualLayout:    opts.manual,
	}, server.WithLogger(logger), server.WithMetrics(m, prometheus.DefaultGatherer))

	if loader != nil && opts.watch {
		loader.OnChange(func(next *config.Config) {
			if err := next.ValidateForServer(); err != nil {
				logger.Warn("ignoring invalid config", "err", err)
				return
			}
			srv.SetLayout(next.Layout)
			logger.Info("layout settings applied to open views")
		})
		stop, err := loader.Watch()
		if err != nil {
			logger.Warn("config watch unavailable", "err", err)
		} else {
			defer stop()
		}
	}

	printInfo("Serving on %s", StyleHighlight.Render(cfg.Server.Addr))
	return srv.Run(ctx)
}
