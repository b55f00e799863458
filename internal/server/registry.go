package server

import (
	"slices"
	"sync"
	"time"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/render/sink"
	"github.com/matzehuels/contractmap/pkg/view"
)

// entry is one open view.
type entry struct {
	id       string
	pharmacy string
	ctrl     *view.Controller
	scene    *sink.SVG
	created  time.Time

	mu       sync.Mutex
	alerts   []string
	lastUsed time.Time
}

func (e *entry) alert(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, msg)
}

// drainAlerts returns the alerts raised since the last call.
func (e *entry) drainAlerts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.alerts
	e.alerts = nil
	return out
}

func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = now
}

func (e *entry) idleSince(t time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed.Before(t)
}

type registry struct {
	mu    sync.Mutex
	limit int
	views map[string]*entry
}

func newRegistry(limit int) *registry {
	return &registry{limit: limit, views: make(map[string]*entry)}
}

// add reserves a slot for e.
func (r *registry) add(e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) >= r.limit {
		return cerrors.New(cerrors.ErrCodeLimit, "too many open views (max %d)", r.limit)
	}
	r.views[e.id] = e
	return nil
}

func (r *registry) get(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[id]
	return e, ok
}

func (r *registry) remove(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[id]
	delete(r.views, id)
	return e, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// all returns the open views, oldest first.
func (r *registry) all() []*entry {
	r.mu.Lock()
	out := make([]*entry, 0, len(r.views))
	for _, e := range r.views {
		out = append(out, e)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b *entry) int { return a.created.Compare(b.created) })
	return out
}

func (r *registry) idle(before time.Time) []*entry {
	var out []*entry
	for _, e := range r.all() {
		if e.idleSince(before) {
			out = append(out, e)
		}
	}
	return out
}
