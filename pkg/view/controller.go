package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/layout"
	"github.com/matzehuels/contractmap/pkg/observability"
	"github.com/matzehuels/contractmap/pkg/provider"
	"github.com/matzehuels/contractmap/pkg/render"
	"github.com/matzehuels/contractmap/pkg/search"
)

// User-facing messages.
const (
	MsgPharmacyUnknown   = "제약사 정보를 확인할 수 없어 데이터를 표시할 수 없습니다. 관리자에게 문의하세요."
	MsgContractorsFailed = "1차 위탁업체 데이터 로드 실패: "
	MsgNotInGraph        = "해당 업체는 현재 그래프에서 찾을 수 없습니다. (부모 노드부터 수동으로 펼쳐주세요)"
	MsgChooseCompany     = "업체를 선택해 주세요."
)

// ErrClosed is returned by operations on a closed view.
var ErrClosed = cerrors.New(cerrors.ErrCodeViewClosed, "view is closed")

// Option configures a Controller.
type Option func(*Controller)

// WithSurface draws the view on s. The default is a render.Recorder.
func WithSurface(s render.Surface) Option {
	return func(c *Controller) { c.surface = s }
}

// WithLayout sets the simulation tuning.
func WithLayout(cfg layout.Config) Option {
	return func(c *Controller) { c.layoutCfg = cfg }
}

// WithLogger sets the logger. Nil means log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDetails registers the details panel callback.
func WithDetails(fn DetailsFunc) Option {
	return func(c *Controller) { c.details = fn }
}

// WithAlert registers the callback for modal messages.
func WithAlert(fn func(msg string)) Option {
	return func(c *Controller) { c.alert = fn }
}

// WithManualLayout keeps the background layout loop off. Callers advance
// the simulation with Settle.
func WithManualLayout() Option {
	return func(c *Controller) { c.manual = true }
}

// WithoutSearch skips loading the search index. Suggestions stay in the
// loading state and search submissions cannot reach unexpanded companies.
func WithoutSearch() Option {
	return func(c *Controller) { c.noSearch = true }
}

// Controller is the context object of one view.
type Controller struct {
	p          provider.Provider
	pharmacyID string
	logger     *log.Logger
	surface    render.Surface
	layoutCfg  layout.Config
	details    DetailsFunc
	alert      func(string)
	manual     bool
	noSearch   bool

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	bg     sync.WaitGroup
	ready  chan struct{}
	once   sync.Once

	mu          sync.Mutex
	store       *graph.Store
	index       *search.Index
	selected    string
	sim         *layout.Simulation
	binder      *render.Binder
	visible     graph.Visible
	inflight    map[string]struct{}
	initialized bool
	closed      bool
	blocked     string
}

// Compile-time check that Controller accepts input events.
var _ Events = (*Controller)(nil)

// New creates a view of pharmacyID's hierarchy served by p.
func New(p provider.Provider, pharmacyID string, opts ...Option) *Controller {
	c := &Controller{
		p:          p,
		pharmacyID: strings.TrimSpace(pharmacyID),
		logger:     log.Default(),
		layoutCfg:  layout.DefaultConfig(),
		store:      graph.NewStore(),
		inflight:   make(map[string]struct{}),
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.surface == nil {
		c.surface = render.NewRecorder()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.sim = layout.New(c.layoutCfg)
	c.binder = render.NewBinder(c.surface)
	c.sim.OnTick(c.onTick)
	return c
}

// Init loads the pharmacy and its immediate contractors and shows them.
// On failure the view is blocked with a message and the layout never starts.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.markReady()
		return ErrClosed
	}
	if c.initialized {
		c.mu.Unlock()
		return cerrors.New(cerrors.ErrCodeInit, "view already initialized")
	}
	c.initialized = true
	c.mu.Unlock()

	if err := cerrors.ValidateCompanyID(c.pharmacyID); err != nil {
		return c.block(MsgPharmacyUnknown, cerrors.Wrap(cerrors.ErrCodeInit, err, "%s", MsgPharmacyUnknown))
	}

	pharmacy, err := c.p.Pharmacy(ctx, c.pharmacyID)
	if err != nil {
		return c.block(MsgPharmacyUnknown, cerrors.Wrap(cerrors.ErrCodeInit, err, "%s", MsgPharmacyUnknown))
	}

	top, err := c.fetch(ctx, "contractors", func(ctx context.Context) ([]provider.Company, error) {
		return c.p.ImmediateContractors(ctx, c.pharmacyID)
	})
	if err != nil {
		msg := MsgContractorsFailed + err.Error()
		return c.block(msg, cerrors.Wrap(cerrors.ErrCodeInit, err, "%s", msg))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.markReady()
		return ErrClosed
	}
	root, err := c.store.Upsert(graph.Patch{
		ID:                 c.pharmacyID,
		Name:               pharmacy.Name,
		CEOName:            pharmacy.CEOName,
		Address:            pharmacy.Address,
		RegistrationNumber: pharmacy.RegistrationNumber,
		IsPharmacy:         true,
	})
	if err == nil {
		root, err = c.store.ApplyChildren(root.ID, c.filterChildren(root.ID, top))
	}
	if err != nil {
		c.mu.Unlock()
		return c.block(MsgPharmacyUnknown, cerrors.Wrap(cerrors.ErrCodeInternal, err, "build root"))
	}
	c.selected = root.ID
	c.refreshLocked()
	emit := c.detailsLocked(root, Summary(root))
	if !c.manual {
		c.sim.Start(c.ctx)
	}
	c.mu.Unlock()

	c.logger.Info("view opened", "pharmacy", c.pharmacyID, "contractors", root.ChildrenCount)
	observability.View().OnViewOpen(ctx)
	emit()

	if c.noSearch {
		c.markReady()
		return nil
	}
	c.bg.Add(1)
	go c.loadIndex()
	return nil
}

func (c *Controller) block(msg string, err error) error {
	c.mu.Lock()
	c.blocked = msg
	c.mu.Unlock()
	c.logger.Error("view blocked", "pharmacy", c.pharmacyID, "err", err)
	c.markReady()
	return err
}

// markReady releases IndexReady waiters. Safe to call more than once.
func (c *Controller) markReady() {
	c.once.Do(func() { close(c.ready) })
}

func (c *Controller) loadIndex() {
	defer c.bg.Done()
	defer c.markReady()

	idx, err := search.Load(c.ctx, c.p, c.pharmacyID, c.logger)
	if err != nil {
		c.logger.Warn("search index unavailable", "pharmacy", c.pharmacyID, "err", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.index = idx
	c.logger.Debug("search index ready", "companies", idx.Len(), "ancestors", idx.Ancestors().Len())
}

// IndexReady is closed once the background index load has finished,
// successfully or not, or when the view can no longer load it.
func (c *Controller) IndexReady() <-chan struct{} { return c.ready }

// Blocked returns the message shown instead of the graph, if any.
func (c *Controller) Blocked() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}

// Selected returns the selected node id.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Node returns a copy of the stored node with id.
func (c *Controller) Node(id string) (*graph.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.store.Get(id)
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Visible returns a copy of the current visible set.
func (c *Controller) Visible() graph.Visible {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible.Clone()
}

// Tree returns a copy of the visible set together with the selection it
// was drawn with.
func (c *Controller) Tree() (graph.Visible, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible.Clone(), c.selected
}

// SetLayout applies new simulation tuning to the running view.
func (c *Controller) SetLayout(cfg layout.Config) {
	c.sim.SetConfig(cfg)
	c.sim.Reheat(0)
}

// Settle advances the simulation until it cools or maxTicks elapse and
// pushes the final positions to the surface. It returns the ticks run.
func (c *Controller) Settle(maxTicks int) int {
	n := c.sim.RunUntilCool(maxTicks)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.binder.Move(c.sim.Positions())
	}
	return n
}

// Close stops the layout and drops any late backend results.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	// The tick callback takes c.mu, so the loop is stopped without it.
	c.cancel()
	c.sim.Stop()
	c.bg.Wait()
	c.markReady()

	observability.View().OnViewClose(context.Background())
	c.logger.Debug("view closed", "pharmacy", c.pharmacyID)
	return nil
}

func (c *Controller) onTick(pos []layout.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.binder.Move(pos)
}

// refreshLocked recomputes the visible set, rebinds the surface and feeds
// the simulation. Callers hold c.mu.
func (c *Controller) refreshLocked() {
	vis := graph.ComputeVisible(c.store, c.logger)
	c.visible = vis
	diff := c.binder.Bind(vis, c.selected)

	parents := make(map[string]string, len(vis.Edges))
	for _, e := range vis.Edges {
		parents[e.Target] = e.Source
	}
	nodes := make([]layout.NodeSpec, 0, len(vis.Nodes))
	depth := make(map[string]int, len(vis.Nodes))
	for _, n := range vis.Nodes {
		depth[n.ID] = n.Depth
		nodes = append(nodes, layout.NodeSpec{
			ID:       n.ID,
			ParentID: parents[n.ID],
			Radius:   layout.NodeRadius(n.IsPharmacy, n.ChildrenCount),
			Anchor:   n.IsPharmacy,
		})
	}
	links := make([]layout.LinkSpec, 0, len(vis.Edges))
	for _, e := range vis.Edges {
		links = append(links, layout.LinkSpec{Source: e.Source, Target: e.Target, TargetDepth: depth[e.Target]})
	}

	c.sim.SetGraph(nodes, links)
	c.binder.Move(c.sim.Positions())
	if diff.Changed() {
		c.sim.Reheat(0)
	}
	c.logger.Debug("view refreshed", "nodes", len(vis.Nodes), "edges", len(vis.Edges),
		"created", diff.NodesCreated, "removed", diff.NodesRemoved)
}

// detailsLocked captures what the details callback should receive and
// returns a function delivering it after the lock is released.
func (c *Controller) detailsLocked(n *graph.Node, summary string) func() {
	if c.details == nil || n == nil {
		return func() {}
	}
	snap := n.Clone()
	return func() { c.details(snap, summary) }
}

func (c *Controller) alertf(msg string) {
	c.logger.Warn(msg)
	if c.alert != nil {
		c.alert(msg)
	}
}

// filterChildren drops child records that would break the tree: empty ids
// and the pharmacy itself.
func (c *Controller) filterChildren(parentID string, kids []provider.Company) []provider.Company {
	out := kids[:0:0]
	for _, k := range kids {
		k.ID = strings.TrimSpace(k.ID)
		switch {
		case k.ID == "":
			c.logger.Warn("skipping child without id", "parent", parentID)
		case k.ID == c.pharmacyID:
			c.logger.Warn("skipping pharmacy listed as child", "parent", parentID)
		default:
			out = append(out, k)
		}
	}
	return out
}

// fetch runs one backend listing with fetch hooks around it.
func (c *Controller) fetch(ctx context.Context, kind string, fn func(context.Context) ([]provider.Company, error)) ([]provider.Company, error) {
	hooks := observability.Fetch()
	hooks.OnFetchStart(ctx, kind)
	start := time.Now()
	out, err := fn(ctx)
	hooks.OnFetchComplete(ctx, kind, len(out), time.Since(start), err)
	return out, err
}
