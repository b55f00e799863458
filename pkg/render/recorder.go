package render

import (
	"sync"

	"github.com/matzehuels/contractmap/pkg/layout"
)

// Op is one recorded surface call.
type Op struct {
	Kind string // create-node, update-node, remove-node, create-edge, update-edge, remove-edge, move
	ID   string // node id or edge key; empty for move
}

// Recorder is a Surface that records every call.
type Recorder struct {
	mu        sync.Mutex
	ops       []Op
	nodes     map[string]NodeElement
	edges     map[string]EdgeElement
	positions map[string]layout.Position
}

var _ Surface = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		nodes:     make(map[string]NodeElement),
		edges:     make(map[string]EdgeElement),
		positions: make(map[string]layout.Position),
	}
}

func (r *Recorder) record(kind, id string) {
	r.ops = append(r.ops, Op{Kind: kind, ID: id})
}

func (r *Recorder) CreateNode(el NodeElement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("create-node", el.ID)
	r.nodes[el.ID] = el
}

func (r *Recorder) UpdateNode(el NodeElement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("update-node", el.ID)
	r.nodes[el.ID] = el
}

func (r *Recorder) RemoveNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("remove-node", id)
	delete(r.nodes, id)
}

func (r *Recorder) CreateEdge(el EdgeElement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("create-edge", el.Key)
	r.edges[el.Key] = el
}

func (r *Recorder) UpdateEdge(el EdgeElement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("update-edge", el.Key)
	r.edges[el.Key] = el
}

func (r *Recorder) RemoveEdge(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("remove-edge", key)
	delete(r.edges, key)
}

func (r *Recorder) Move(pos []layout.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("move", "")
	for _, p := range pos {
		r.positions[p.ID] = p
	}
}

// Ops returns the recorded calls and clears the log.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := r.ops
	r.ops = nil
	return ops
}

// Node returns the current element of a node.
func (r *Recorder) Node(id string) (NodeElement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.nodes[id]
	return el, ok
}

// Edge returns the current element of an edge.
func (r *Recorder) Edge(key string) (EdgeElement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.edges[key]
	return el, ok
}

// Position returns the last position received for a node.
func (r *Recorder) Position(id string) (layout.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	return p, ok
}

// Counts returns the number of live node and edge elements.
func (r *Recorder) Counts() (nodes, edges int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes), len(r.edges)
}
