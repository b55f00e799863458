package sink

import (
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/layout"
	"github.com/matzehuels/contractmap/pkg/render"
)

func testVisible() graph.Visible {
	return graph.Visible{
		Nodes: []*graph.Node{
			{ID: "P", Name: "제약사", DisplayName: "제약사", IsPharmacy: true, ChildrenCount: 1},
			{ID: "A", Name: "가나다라마바사", DisplayName: "가나다라\n마바사", Depth: 1, ChildrenCount: 2},
		},
		Edges: []graph.Edge{{Source: "P", Target: "A"}},
	}
}

func TestSVGRender(t *testing.T) {
	scene := NewSVG(WithSize(400, 300))
	b := render.NewBinder(scene)
	b.Bind(testVisible(), "A")
	b.Move([]layout.Position{{ID: "P", X: 200, Y: 150}, {ID: "A", X: 300, Y: 150}})

	out := string(scene.Bytes())

	for _, want := range []string{
		`viewBox="0 0 400.0 300.0"`,
		`id="node-P" transform="translate(200.00,150.00)"`,
		`fill="crimson"`,
		`fill="rgb(255, 255, 128)"`,
		`<tspan x="0" dy="0.35em">가나다라</tspan><tspan x="0" dy="1.1em">마바사</tspan>`,
		`marker-end="url(#end-selected)"`,
		`<animate attributeName="r"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}

	// Edge stops short of A by its radius plus the gap.
	r := layout.NodeRadius(false, 2)
	wantX2 := 300 - (r + render.EdgeGap)
	if !strings.Contains(out, `x2="`+formatCoord(wantX2)+`"`) {
		t.Errorf("edge end not shortened to %v", wantX2)
	}

	// Second render has no entry animations.
	if again := string(scene.Bytes()); strings.Contains(again, "<animate") {
		t.Error("entry animation repeated on second render")
	}
}

func TestSVGRemove(t *testing.T) {
	scene := NewSVG(WithoutAnimation())
	b := render.NewBinder(scene)
	b.Bind(testVisible(), "")
	b.Bind(graph.Visible{Nodes: testVisible().Nodes[:1]}, "")

	out := string(scene.Bytes())
	if strings.Contains(out, `id="node-A"`) || strings.Contains(out, `id="edge-P-A"`) {
		t.Error("removed elements still rendered")
	}
	if !strings.Contains(out, `id="node-P"`) {
		t.Error("retained node missing")
	}
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
