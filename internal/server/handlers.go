package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/render/nodelink"
	"github.com/matzehuels/contractmap/pkg/render/sink"
	"github.com/matzehuels/contractmap/pkg/view"
)

// maxSettleTicks bounds the ticks a client can request per scene read.
const maxSettleTicks = 1000

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.healthz)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/views", func(r chi.Router) {
		r.Post("/", s.createView)
		r.Get("/", s.listViews)
		r.Route("/{view}", func(r chi.Router) {
			r.Get("/", s.getView)
			r.Delete("/", s.deleteView)
			r.Get("/svg", s.sceneSVG)
			r.Get("/dot", s.treeDOT)
			r.Get("/dot.svg", s.treeSVG)
			r.Post("/nodes/{node}/select", s.selectNode)
			r.Post("/nodes/{node}/drag", s.dragNode)
			r.Get("/search", s.suggest)
			r.Post("/search", s.submitSearch)
		})
	})
	return r
}

// observe logs every request and records it on the metrics, if any.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		d := time.Since(start)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", ww.Status(),
			"duration", d.Round(time.Microsecond), "request_id", middleware.GetReqID(r.Context()))
		if s.metrics != nil {
			s.metrics.ObserveAPI(r.Method, route, ww.Status(), d)
		}
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "views": s.views.len()})
}

// viewResponse is a snapshot plus the alerts raised since the last read.
type viewResponse struct {
	ID string `json:"id"`
	view.Snapshot
	Alerts []string `json:"alerts,omitempty"`
}

func respond(w http.ResponseWriter, status int, e *entry) {
	writeJSON(w, status, viewResponse{ID: e.id, Snapshot: e.ctrl.Snapshot(), Alerts: e.drainAlerts()})
}

type createRequest struct {
	PharmacyID string `json:"pharmacy_id"`
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.PharmacyID) == "" {
		req.PharmacyID = s.cfg.Pharmacy
	}

	cfg := s.layoutConfig()
	now := time.Now()
	e := &entry{
		id:       uuid.NewString(),
		pharmacy: strings.TrimSpace(req.PharmacyID),
		scene:    sink.NewSVG(sink.WithSize(cfg.Width, cfg.Height)),
		created:  now,
		lastUsed: now,
	}
	opts := []view.Option{
		view.WithSurface(e.scene),
		view.WithLayout(cfg),
		view.WithLogger(s.logger.With("view", e.id)),
		view.WithAlert(e.alert),
	}
	if s.cfg.SearchDisabled {
		opts = append(opts, view.WithoutSearch())
	}
	if s.cfg.ManualLayout {
		opts = append(opts, view.WithManualLayout())
	}
	e.ctrl = view.New(s.p, req.PharmacyID, opts...)

	if err := s.views.add(e); err != nil {
		_ = e.ctrl.Close()
		writeError(w, err)
		return
	}
	if err := e.ctrl.Init(r.Context()); err != nil {
		s.views.remove(e.id)
		_ = e.ctrl.Close()
		writeError(w, err)
		return
	}
	s.logger.Info("view created", "view", e.id, "pharmacy", req.PharmacyID)
	respond(w, http.StatusCreated, e)
}

type viewSummary struct {
	ID         string    `json:"id"`
	PharmacyID string    `json:"pharmacy_id"`
	Created    time.Time `json:"created"`
}

func (s *Server) listViews(w http.ResponseWriter, _ *http.Request) {
	out := []viewSummary{}
	for _, e := range s.views.all() {
		out = append(out, viewSummary{ID: e.id, PharmacyID: e.pharmacy, Created: e.created})
	}
	writeJSON(w, http.StatusOK, out)
}

// lookup resolves the {view} parameter and marks the view as used.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*entry, bool) {
	id := chi.URLParam(r, "view")
	e, ok := s.views.get(id)
	if !ok {
		writeError(w, cerrors.New(cerrors.ErrCodeNotFound, "view %s not found", id))
		return nil, false
	}
	e.touch(time.Now())
	return e, true
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.lookup(w, r); ok {
		respond(w, http.StatusOK, e)
	}
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "view")
	e, ok := s.views.remove(id)
	if !ok {
		writeError(w, cerrors.New(cerrors.ErrCodeNotFound, "view %s not found", id))
		return
	}
	_ = e.ctrl.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sceneSVG(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if v := r.URL.Query().Get("settle"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, cerrors.New(cerrors.ErrCodeInvalidInput, "settle must be a non-negative integer"))
			return
		}
		e.ctrl.Settle(min(n, maxSettleTicks))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(e.scene.Bytes())
}

func dotOptions(r *http.Request) nodelink.Options {
	q := r.URL.Query()
	return nodelink.Options{
		Detailed:    q.Get("detailed") == "1" || q.Get("detailed") == "true",
		LeftToRight: q.Get("rankdir") == "LR",
	}
}

func (s *Server) treeDOT(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	vis, selected := e.ctrl.Tree()
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, nodelink.ToDOT(vis, selected, dotOptions(r)))
}

func (s *Server) treeSVG(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	vis, selected := e.ctrl.Tree()
	svg, err := nodelink.RenderSVG(r.Context(), nodelink.ToDOT(vis, selected, dotOptions(r)))
	if err != nil {
		writeError(w, cerrors.Wrap(cerrors.ErrCodeInternal, err, "render graphviz"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) selectNode(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := e.ctrl.OnNodeSelect(r.Context(), chi.URLParam(r, "node")); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, e)
}

// Drag phases.
const (
	dragStart   = "start"
	dragMove    = "move"
	dragEnd     = "end"
	dragRelease = "release"
)

type dragRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (s *Server) dragNode(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	node := chi.URLParam(r, "node")

	var err error
	switch req.Phase {
	case dragStart:
		err = e.ctrl.OnNodeDragStart(node)
	case dragMove:
		err = e.ctrl.OnNodeDragMove(node, req.X, req.Y)
	case dragEnd:
		err = e.ctrl.OnNodeDragEnd(node)
	case dragRelease:
		err = e.ctrl.OnNodeRelease(node)
	default:
		err = cerrors.New(cerrors.ErrCodeInvalidInput, "unknown drag phase %q", req.Phase)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, e)
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.ctrl.Suggest(r.URL.Query().Get("q")))
}

type submitRequest struct {
	ID string `json:"id"`
}

func (s *Server) submitSearch(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := e.ctrl.OnSearchSubmit(r.Context(), strings.TrimSpace(req.ID)); err != nil {
		e.drainAlerts()
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, e)
}

// decode reads an optional JSON body into v.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "invalid JSON body")
}
