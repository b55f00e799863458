package layout

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/matzehuels/contractmap/pkg/observability"
)

// ErrUnknownBody is returned when an operation names an id without a body.
var ErrUnknownBody = errors.New("unknown body")

// spiralAngle is the golden angle used to place bodies without a parent.
var spiralAngle = math.Pi * (3 - math.Sqrt(5))

// Body is the physical state of one node.
// FX and FY pin the body when non-nil.
type Body struct {
	ID     string
	X, Y   float64
	VX, VY float64
	FX, FY *float64
	Radius float64
}

// Pinned reports whether the body is fixed in place.
func (b *Body) Pinned() bool { return b.FX != nil && b.FY != nil }

// NodeSpec describes an active node for SetGraph.
type NodeSpec struct {
	ID       string
	ParentID string
	Radius   float64
	// Anchor pins the body at the canvas center when it is created.
	Anchor bool
}

// LinkSpec describes an active parent-to-child link for SetGraph.
type LinkSpec struct {
	Source      string
	Target      string
	TargetDepth int
}

// Position is a snapshot of one body's coordinates.
type Position struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

// Simulation is a force-directed layout over a changing node set.
// It is safe for concurrent use.
type Simulation struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	bodies map[string]*Body
	active []*Body
	links  []link
	spawn  int

	alpha       float64
	alphaTarget float64

	onTick func([]Position)

	base    context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	stopped bool
	ticks   int
	runFrom time.Time
}

// New creates a simulation with the given tuning. Unset fields take their
// defaults.
func New(cfg Config) *Simulation {
	cfg = cfg.withDefaults()
	return &Simulation{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xdeadbeef)),
		bodies: make(map[string]*Body),
		alpha:  1,
	}
}

// Config returns the active tuning.
func (s *Simulation) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the tuning. Canvas size changes move anchored bodies to
// the new center.
func (s *Simulation) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg = cfg.withDefaults()
	cfg.Seed = s.cfg.Seed
	old := s.cfg
	s.cfg = cfg
	if old.Width == cfg.Width && old.Height == cfg.Height {
		return
	}
	for _, b := range s.bodies {
		if b.Pinned() && *b.FX == old.Width/2 && *b.FY == old.Height/2 {
			cx, cy := cfg.Width/2, cfg.Height/2
			b.FX, b.FY = &cx, &cy
		}
	}
}

// OnTick registers a callback receiving a positions snapshot after every
// background tick. The callback runs on the loop goroutine without the
// simulation lock held.
func (s *Simulation) OnTick(fn func([]Position)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// SetGraph replaces the active node and link sets.
//
// Bodies of nodes that leave the set are kept and reused if the node comes
// back. New bodies spawn near their parent's body with random jitter, or on
// a spiral around the center when the parent has no body yet.
func (s *Simulation) SetGraph(nodes []NodeSpec, links []LinkSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]*Body, 0, len(nodes))
	index := make(map[string]*Body, len(nodes))
	for _, n := range nodes {
		b, ok := s.bodies[n.ID]
		if !ok {
			b = s.newBody(n)
			s.bodies[n.ID] = b
		}
		b.Radius = n.Radius
		active = append(active, b)
		index[n.ID] = b
	}
	s.active = active

	count := make(map[*Body]int, len(active))
	resolved := make([]link, 0, len(links))
	for _, l := range links {
		src, okS := index[l.Source]
		dst, okT := index[l.Target]
		if !okS || !okT {
			continue
		}
		dist := s.cfg.LinkDistance
		if l.TargetDepth == 1 {
			dist = s.cfg.RootLinkDistance
		}
		resolved = append(resolved, link{source: src, target: dst, distance: dist})
		count[src]++
		count[dst]++
	}
	for i := range resolved {
		l := &resolved[i]
		l.bias = float64(count[l.source]) / float64(count[l.source]+count[l.target])
	}
	s.links = resolved
}

func (s *Simulation) newBody(n NodeSpec) *Body {
	b := &Body{ID: n.ID, Radius: n.Radius}
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	switch parent, ok := s.bodies[n.ParentID]; {
	case n.Anchor:
		b.X, b.Y = cx, cy
		b.FX, b.FY = &cx, &cy
	case ok:
		b.X = parent.X + (s.rng.Float64()-0.5)*s.cfg.SpawnJitter
		b.Y = parent.Y + (s.rng.Float64()-0.5)*s.cfg.SpawnJitter
	default:
		r := 10 * math.Sqrt(0.5+float64(s.spawn))
		a := float64(s.spawn) * spiralAngle
		b.X, b.Y = cx+r*math.Cos(a), cy+r*math.Sin(a)
		s.spawn++
	}
	return b
}

// Tick advances the simulation by one step regardless of alpha.
func (s *Simulation) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
}

// RunUntilCool steps until alpha falls below AlphaMin or maxTicks steps have
// run, and returns the number of steps taken.
func (s *Simulation) RunUntilCool(maxTicks int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for n < maxTicks && s.alpha >= s.cfg.AlphaMin {
		s.step()
		n++
	}
	return n
}

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// AlphaTarget sets the temperature alpha decays toward.
func (s *Simulation) AlphaTarget(target float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alphaTarget = target
	if target >= s.cfg.AlphaMin {
		s.ensureRunning()
	}
}

// Reheat sets alpha and restarts the background loop if it cooled down.
// A non-positive alpha uses the configured ReheatAlpha.
func (s *Simulation) Reheat(alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alpha <= 0 {
		alpha = s.cfg.ReheatAlpha
	}
	s.alpha = alpha
	s.ensureRunning()
}

// Start launches the background loop. Calling Start on a running
// simulation only resets alpha to 1.
func (s *Simulation) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = ctx
	s.stopped = false
	s.alpha = 1
	s.ensureRunning()
}

// Stop terminates the background loop and waits for it to exit. Later
// Reheat calls do not restart it.
func (s *Simulation) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Running reports whether the background loop is active.
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ensureRunning spawns the loop goroutine if Start was called and no loop
// is active. Callers hold s.mu.
func (s *Simulation) ensureRunning() {
	if s.running || s.stopped || s.base == nil || s.base.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.running = true
	s.ticks = 0
	s.runFrom = time.Now()
	observability.Layout().OnLayoutRun(len(s.active))
	go s.loop(ctx, done)
}

func (s *Simulation) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		s.step()
		s.ticks++
		cool := s.alpha < s.cfg.AlphaMin
		if cool {
			s.running = false
			observability.Layout().OnLayoutCool(s.ticks, time.Since(s.runFrom))
		}
		fn := s.onTick
		var pos []Position
		if fn != nil {
			pos = s.positions()
		}
		s.mu.Unlock()

		if fn != nil {
			fn(pos)
		}
		if cool {
			return
		}
	}
}

// Pin fixes a body at (x, y).
func (s *Simulation) Pin(id string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return ErrUnknownBody
	}
	b.FX, b.FY = &x, &y
	return nil
}

// Unpin releases a pinned body and warms the simulation to at least
// ReheatAlpha so the body can settle among its neighbours.
func (s *Simulation) Unpin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return ErrUnknownBody
	}
	b.FX, b.FY = nil, nil
	s.alpha = max(s.alpha, s.cfg.ReheatAlpha)
	s.ensureRunning()
	return nil
}

// DragStart warms the simulation and pins the body where it is.
func (s *Simulation) DragStart(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return ErrUnknownBody
	}
	x, y := b.X, b.Y
	b.FX, b.FY = &x, &y
	s.alphaTarget = s.cfg.DragAlphaTarget
	s.ensureRunning()
	return nil
}

// DragMove moves the pin of a dragged body.
func (s *Simulation) DragMove(id string, x, y float64) error {
	return s.Pin(id, x, y)
}

// DragEnd lets the simulation cool again. The body stays pinned at its
// last drag position until Unpin.
func (s *Simulation) DragEnd(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bodies[id]; !ok {
		return ErrUnknownBody
	}
	s.alphaTarget = 0
	return nil
}

// Body returns a copy of the body with the given id.
func (s *Simulation) Body(id string) (Body, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Positions returns the coordinates of the active bodies in SetGraph order.
func (s *Simulation) Positions() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions()
}

func (s *Simulation) positions() []Position {
	out := make([]Position, len(s.active))
	for i, b := range s.active {
		out[i] = Position{ID: b.ID, X: b.X, Y: b.Y, Pinned: b.Pinned()}
	}
	return out
}
