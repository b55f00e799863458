// Package metrics implements the observability hooks with Prometheus
// collectors.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/contractmap/pkg/observability"
)

const namespace = "contractmap"

// Metrics holds every collector. It implements all observability hook
// interfaces.
type Metrics struct {
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	FetchedRecords *prometheus.CounterVec

	ViewsOpen       prometheus.Gauge
	ExpansionsTotal *prometheus.CounterVec
	NodeDepth       prometheus.Histogram
	SearchesTotal   prometheus.Counter
	SearchMatches   prometheus.Histogram
	ExpandToRoot    *prometheus.CounterVec

	LayoutRuns     prometheus.Counter
	LayoutBodies   prometheus.Gauge
	LayoutCoolTime prometheus.Histogram

	CacheOps *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPErrors   *prometheus.CounterVec

	APIRequests *prometheus.CounterVec
	APIDuration *prometheus.HistogramVec
}

var (
	_ observability.FetchHooks  = (*Metrics)(nil)
	_ observability.ViewHooks   = (*Metrics)(nil)
	_ observability.LayoutHooks = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)

// New creates the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Backend listing calls, labelled by kind and status.",
		}, []string{"kind", "status"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Backend listing latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		FetchedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_records_total",
			Help:      "Company records returned by backend listings.",
		}, []string{"kind"}),

		ViewsOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "views_open",
			Help:      "Currently open views.",
		}),
		ExpansionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_total",
			Help:      "Node expansion toggles, labelled by direction.",
		}, []string{"direction"}),
		NodeDepth: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expanded_node_depth",
			Help:      "Depth of expanded nodes.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
		}),
		SearchesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Suggestion queries.",
		}),
		SearchMatches: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_matches",
			Help:      "Matches per suggestion query.",
			Buckets:   []float64{0, 1, 5, 20, 50, 100, 500},
		}),
		ExpandToRoot: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expand_to_target_total",
			Help:      "Search-driven expansions, labelled by status.",
		}, []string{"status"}),

		LayoutRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_runs_total",
			Help:      "Background simulation runs started.",
		}),
		LayoutBodies: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_bodies",
			Help:      "Bodies in the most recently started run.",
		}),
		LayoutCoolTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_cool_seconds",
			Help:      "Time for a run to cool below the minimum alpha.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),

		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache operations, labelled by key type and result.",
		}, []string{"key_type", "result"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_http_requests_total",
			Help:      "Outgoing backend HTTP responses, labelled by method, host and status.",
		}, []string{"method", "host", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_http_duration_seconds",
			Help:      "Outgoing backend HTTP latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host"}),
		HTTPErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_http_errors_total",
			Help:      "Outgoing backend HTTP failures without a response.",
		}, []string{"method", "host"}),

		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API requests served, labelled by route and status.",
		}, []string{"method", "route", "status"}),
		APIDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetFetchHooks(m)
	observability.SetViewHooks(m)
	observability.SetLayoutHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnFetchStart(context.Context, string) {}

func (m *Metrics) OnFetchComplete(_ context.Context, kind string, count int, d time.Duration, err error) {
	m.FetchesTotal.WithLabelValues(kind, status(err)).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.FetchedRecords.WithLabelValues(kind).Add(float64(count))
}

func (m *Metrics) OnViewOpen(context.Context)  { m.ViewsOpen.Inc() }
func (m *Metrics) OnViewClose(context.Context) { m.ViewsOpen.Dec() }

func (m *Metrics) OnExpand(_ context.Context, depth int, expanded bool) {
	direction := "collapse"
	if expanded {
		direction = "expand"
		m.NodeDepth.Observe(float64(depth))
	}
	m.ExpansionsTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) OnSearch(_ context.Context, matches int) {
	m.SearchesTotal.Inc()
	m.SearchMatches.Observe(float64(matches))
}

func (m *Metrics) OnExpandToRoot(_ context.Context, _ int, err error) {
	m.ExpandToRoot.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) OnLayoutRun(bodies int) {
	m.LayoutRuns.Inc()
	m.LayoutBodies.Set(float64(bodies))
}

func (m *Metrics) OnLayoutCool(_ int, d time.Duration) {
	m.LayoutCoolTime.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.CacheOps.WithLabelValues(keyType, "set").Inc()
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, host, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, host, _ string, _ error) {
	m.HTTPErrors.WithLabelValues(method, host).Inc()
}

// ObserveAPI records one served API request.
func (m *Metrics) ObserveAPI(method, route string, code int, d time.Duration) {
	m.APIRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.APIDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
