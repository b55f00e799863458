package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/contractmap/pkg/graph"
)

func TestToDOT(t *testing.T) {
	vis := graph.Visible{
		Nodes: []*graph.Node{
			{ID: "P", DisplayName: "제약사", IsPharmacy: true},
			{ID: "A", DisplayName: "가나", CEOName: "홍길동", ChildrenCount: 2},
			{ID: "B", DisplayName: "다라"},
		},
		Edges: []graph.Edge{{Source: "P", Target: "A"}, {Source: "P", Target: "B"}},
	}

	tests := []struct {
		name    string
		opts    Options
		want    []string
		notWant []string
	}{
		{
			name: "default",
			want: []string{"rankdir=TB", `"P" -> "A"`, `"P" -> "B"`, `fillcolor="crimson"`, `label="가나"`, `fillcolor="white"`, `fillcolor="#FFFF80"`, `color="#1E66A1"`},
		},
		{
			name:    "detailed",
			opts:    Options{Detailed: true, LeftToRight: true},
			want:    []string{"rankdir=LR", `label="가나\nA\n홍길동"`},
			notWant: []string{"rankdir=TB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(vis, "A", tt.opts)
			for _, w := range tt.want {
				if !strings.Contains(dot, w) {
					t.Errorf("DOT missing %q\n%s", w, dot)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(dot, w) {
					t.Errorf("DOT unexpectedly contains %q", w)
				}
			}
		})
	}
}

func TestDotColor(t *testing.T) {
	tests := map[string]string{
		"rgb(255, 255, 128)": "#FFFF80",
		"rgb(30,102,161)":    "#1E66A1",
		"crimson":            "crimson",
		"#8DB3D3":            "#8DB3D3",
	}
	for in, want := range tests {
		if got := dotColor(in); got != want {
			t.Errorf("dotColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg></svg>")); string(got) != "<svg></svg>" {
		t.Errorf("normalizeViewBox() changed svg without viewBox: %s", got)
	}
}
