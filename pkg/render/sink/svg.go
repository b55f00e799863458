// Package sink provides drawing surfaces for the render binder.
//
// [SVG] keeps an in-memory scene of node and edge elements plus their latest
// positions and serializes it as a standalone SVG document. Elements created
// since the previous render fade and grow in through SMIL animations.
//
//	scene := sink.NewSVG(sink.WithSize(960, 720))
//	binder := render.NewBinder(scene)
//	binder.Bind(vis, selected)
//	binder.Move(sim.Positions())
//	svg := scene.Bytes()
package sink

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/matzehuels/contractmap/pkg/layout"
	"github.com/matzehuels/contractmap/pkg/render"
)

const markerDefs = `  <defs>
    <marker id="end" viewBox="0 -5 10 10" refX="8" refY="0" markerWidth="8" markerHeight="12" orient="auto"><path d="M0,-5L10,0L0,5" fill="#bbb"/></marker>
    <marker id="start" viewBox="0 -5 10 10" refX="2" refY="0" markerWidth="8" markerHeight="12" orient="auto"><path d="M10,-5L0,0L10,5" fill="#bbb"/></marker>
    <marker id="end-selected" viewBox="0 -5 10 10" refX="8" refY="0" markerWidth="12" markerHeight="18" orient="auto"><path d="M0,-5L10,0L0,5" fill="rgb(30, 102, 161)"/></marker>
    <marker id="start-selected" viewBox="0 -5 10 10" refX="2" refY="0" markerWidth="12" markerHeight="18" orient="auto"><path d="M10,-5L0,0L10,5" fill="rgb(30, 102, 161)"/></marker>
  </defs>
`

type SVGOption func(*SVG)

// WithSize sets the canvas size.
func WithSize(width, height float64) SVGOption {
	return func(s *SVG) { s.width, s.height = width, height }
}

// WithoutAnimation disables the entry animation of new elements.
func WithoutAnimation() SVGOption { return func(s *SVG) { s.animate = false } }

// SVG is an in-memory scene that implements render.Surface.
type SVG struct {
	mu      sync.Mutex
	width   float64
	height  float64
	animate bool

	nodeOrder []string
	nodes     map[string]render.NodeElement
	edgeOrder []string
	edges     map[string]render.EdgeElement
	pos       map[string]layout.Position
	fresh     map[string]struct{}
}

var _ render.Surface = (*SVG)(nil)

// NewSVG creates an empty scene.
func NewSVG(opts ...SVGOption) *SVG {
	s := &SVG{
		width:   960,
		height:  720,
		animate: true,
		nodes:   make(map[string]render.NodeElement),
		edges:   make(map[string]render.EdgeElement),
		pos:     make(map[string]layout.Position),
		fresh:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SVG) CreateNode(el render.NodeElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeOrder = append(s.nodeOrder, el.ID)
	s.nodes[el.ID] = el
	s.fresh["n:"+el.ID] = struct{}{}
}

func (s *SVG) UpdateNode(el render.NodeElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[el.ID] = el
}

func (s *SVG) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	delete(s.fresh, "n:"+id)
	s.nodeOrder = remove(s.nodeOrder, id)
}

func (s *SVG) CreateEdge(el render.EdgeElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edgeOrder = append(s.edgeOrder, el.Key)
	s.edges[el.Key] = el
	s.fresh["e:"+el.Key] = struct{}{}
}

func (s *SVG) UpdateEdge(el render.EdgeElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[el.Key] = el
}

func (s *SVG) RemoveEdge(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, key)
	delete(s.fresh, "e:"+key)
	s.edgeOrder = remove(s.edgeOrder, key)
}

func (s *SVG) Move(pos []layout.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pos {
		s.pos[p.ID] = p
	}
}

func remove(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// Bytes renders the scene and marks every element as no longer new.
func (s *SVG) Bytes() []byte {
	var buf bytes.Buffer
	_ = s.Render(&buf)
	return buf.Bytes()
}

// Render writes the scene as an SVG document. Elements without a known
// position are drawn at the canvas center.
func (s *SVG) Render(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		s.width, s.height, s.width, s.height)
	buf.WriteString(markerDefs)

	buf.WriteString(`  <g class="links">` + "\n")
	for _, key := range s.edgeOrder {
		s.renderEdge(&buf, s.edges[key])
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="nodes">` + "\n")
	for _, id := range s.nodeOrder {
		s.renderNode(&buf, s.nodes[id])
	}
	buf.WriteString("  </g>\n")
	buf.WriteString("</svg>\n")

	clear(s.fresh)
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *SVG) point(id string) (float64, float64) {
	if p, ok := s.pos[id]; ok {
		return p.X, p.Y
	}
	return s.width / 2, s.height / 2
}

func (s *SVG) renderEdge(buf *bytes.Buffer, e render.EdgeElement) {
	x1, y1 := s.point(e.Source)
	x2, y2 := s.point(e.Target)

	// Stop short of the target's rim so the arrow head stays visible.
	if target, ok := s.nodes[e.Target]; ok {
		angle := math.Atan2(y2-y1, x2-x1)
		gap := target.Style.Radius + render.EdgeGap
		x2 -= math.Cos(angle) * gap
		y2 -= math.Sin(angle) * gap
	}

	fmt.Fprintf(buf, `    <line id="edge-%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.1f" marker-start="url(#%s)" marker-end="url(#%s)">`,
		esc(e.Key), x1, y1, x2, y2, e.Style.Stroke, e.Style.Width, e.Style.MarkerStart, e.Style.MarkerEnd)
	if _, ok := s.fresh["e:"+e.Key]; ok && s.animate {
		buf.WriteString(`<animate attributeName="opacity" from="0" to="1" dur="0.5s" fill="freeze"/>`)
	}
	buf.WriteString("</line>\n")
}

func (s *SVG) renderNode(buf *bytes.Buffer, n render.NodeElement) {
	x, y := s.point(n.ID)
	st := n.Style
	fresh := false
	if _, ok := s.fresh["n:"+n.ID]; ok && s.animate {
		fresh = true
	}

	kind := "contractor"
	if n.IsPharmacy {
		kind = "pharmacy"
	}
	fmt.Fprintf(buf, `    <g class="node-group %s" id="node-%s" transform="translate(%.2f,%.2f)">`+"\n", kind, esc(n.ID), x, y)
	fmt.Fprintf(buf, `      <circle r="%.2f" fill="%s" fill-opacity="%.2f" stroke="%s" stroke-width="%.1f" stroke-opacity="%.2f">`,
		st.Radius, st.Fill, st.FillOpacity, st.Stroke, st.StrokeWidth, st.StrokeOpacity)
	if fresh {
		fmt.Fprintf(buf, `<animate attributeName="r" from="0" to="%.2f" dur="0.5s" fill="freeze"/>`, st.Radius)
	}
	buf.WriteString("</circle>\n")

	weight := "normal"
	if st.LabelBold {
		weight = "bold"
	}
	fmt.Fprintf(buf, `      <text text-anchor="middle" y="%.2f" font-size="%.0fpx" font-weight="%s" fill="%s">`,
		st.LabelOffset, st.LabelSize, weight, st.LabelFill)
	for i, line := range strings.Split(n.Label, "\n") {
		dy := "0.35em"
		if i > 0 {
			dy = "1.1em"
		}
		fmt.Fprintf(buf, `<tspan x="0" dy="%s">%s</tspan>`, dy, esc(line))
	}
	if fresh {
		buf.WriteString(`<animate attributeName="opacity" from="0" to="1" dur="0.5s" fill="freeze"/>`)
	}
	buf.WriteString("</text>\n")
	fmt.Fprintf(buf, "      <title>%s</title>\n", esc(n.Name))
	buf.WriteString("    </g>\n")
}

func esc(s string) string { return html.EscapeString(s) }
