// Package server exposes views over HTTP.
//
// Every POST /views opens a view of one pharmacy's hierarchy backed by an
// SVG scene. Clients drive it with select, drag and search calls and read
// it back as JSON snapshots or SVG documents:
//
//	POST   /views                          open a view
//	GET    /views                          list open views
//	GET    /views/{id}                     snapshot
//	DELETE /views/{id}                     close
//	GET    /views/{id}/svg                 force layout scene
//	GET    /views/{id}/dot                 Graphviz source of the visible tree
//	GET    /views/{id}/dot.svg             Graphviz rendering
//	POST   /views/{id}/nodes/{node}/select click a node
//	POST   /views/{id}/nodes/{node}/drag   drag a node
//	GET    /views/{id}/search?q=           suggestions
//	POST   /views/{id}/search              submit a suggestion
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/contractmap/internal/metrics"
	"github.com/matzehuels/contractmap/pkg/layout"
	"github.com/matzehuels/contractmap/pkg/provider"
)

// Config holds the server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MaxViews caps the number of open views.
	MaxViews int
	// ViewTTL closes views idle for longer. Zero keeps them open.
	ViewTTL time.Duration

	// Pharmacy is opened when a create request names none.
	Pharmacy string

	Layout         layout.Config
	SearchDisabled bool
	// ManualLayout keeps the layout loops off. Views then move only when
	// a client asks for a settled scene.
	ManualLayout bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxViews <= 0 {
		c.MaxViews = 100
	}
	if c.Layout == (layout.Config{}) {
		c.Layout = layout.DefaultConfig()
	}
	return c
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil means log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records API requests on m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// Server hosts views of a provider's hierarchies.
type Server struct {
	cfg      Config
	p        provider.Provider
	logger   *log.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	views    *registry
	handler  http.Handler

	mu     sync.Mutex
	layout layout.Config
}

// New creates a server for p.
func New(p provider.Provider, cfg Config, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:    cfg,
		p:      p,
		logger: log.Default(),
		views:  newRegistry(cfg.MaxViews),
		layout: cfg.Layout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// SetLayout applies new simulation tuning to open views and to views
// opened later.
func (s *Server) SetLayout(cfg layout.Config) {
	s.mu.Lock()
	s.layout = cfg
	s.mu.Unlock()
	for _, e := range s.views.all() {
		e.ctrl.SetLayout(cfg)
	}
	s.logger.Info("layout updated", "views", s.views.len())
}

func (s *Server) layoutConfig() layout.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// every open view.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		s.Close()
		return err
	})
	if s.cfg.ViewTTL > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(s.cfg.ViewTTL / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case now := <-ticker.C:
					s.sweep(now)
				}
			}
		})
	}
	return g.Wait()
}

// sweep closes views idle since before now minus ViewTTL.
func (s *Server) sweep(now time.Time) int {
	n := 0
	for _, e := range s.views.idle(now.Add(-s.cfg.ViewTTL)) {
		s.views.remove(e.id)
		_ = e.ctrl.Close()
		n++
	}
	if n > 0 {
		s.logger.Info("closed idle views", "count", n)
	}
	return n
}

// Close closes every open view.
func (s *Server) Close() {
	for _, e := range s.views.all() {
		s.views.remove(e.id)
		_ = e.ctrl.Close()
	}
}
