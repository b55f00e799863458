package pipeline

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/contractmap/pkg/cache"
	"github.com/matzehuels/contractmap/pkg/provider"
	"github.com/matzehuels/contractmap/pkg/provider/memory"
)

// P -> A -> B -> C, P -> D
func testProvider() *memory.Provider {
	return memory.New(memory.Dataset{
		Pharmacy: provider.Company{ID: "P", Name: "가나제약(제약사)"},
		Companies: []provider.Company{
			{ID: "A", Name: "에이상사"},
			{ID: "B", Name: "비상사"},
			{ID: "C", Name: "씨상사"},
			{ID: "D", Name: "디상사"},
		},
		Relations: []provider.Relation{
			{ParentID: "P", ChildID: "A"},
			{ParentID: "P", ChildID: "D"},
			{ParentID: "A", ChildID: "B"},
			{ParentID: "B", ChildID: "C"},
		},
	})
}

func newTestRunner(c cache.Cache) *Runner {
	return NewRunner(testProvider(), c, nil, log.New(io.Discard))
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"dot", false},
		{"graphviz", false},
		{"json", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{PharmacyID: " P ", Formats: []string{"json", "svg", "json"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.PharmacyID != "P" || opts.Depth != DefaultDepth || opts.Ticks != DefaultTicks {
		t.Errorf("defaults not applied: %+v", opts)
	}
	if strings.Join(opts.Formats, ",") != "json,svg" {
		t.Errorf("Formats = %v, want [json svg]", opts.Formats)
	}
	if opts.Layout.ChargeStrength != -350 {
		t.Errorf("Layout not defaulted: %+v", opts.Layout)
	}

	for _, bad := range []Options{
		{},
		{PharmacyID: "P", Depth: MaxDepth + 1},
		{PharmacyID: "P", Formats: []string{"pdf"}},
	} {
		if err := bad.ValidateAndSetDefaults(); err == nil {
			t.Errorf("ValidateAndSetDefaults(%+v) should fail", bad)
		}
	}
}

func TestExtension(t *testing.T) {
	if Extension(FormatGraphviz) != "graphviz.svg" || Extension(FormatSVG) != "svg" {
		t.Error("unexpected extensions")
	}
}

func TestExecuteExpandsToDepth(t *testing.T) {
	r := newTestRunner(nil)
	res, err := r.Execute(context.Background(), Options{
		PharmacyID: "P",
		Depth:      3,
		Ticks:      50,
		Formats:    []string{FormatSVG, FormatDOT, FormatJSON},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Stats.NodeCount != 5 || res.Stats.EdgeCount != 4 {
		t.Errorf("stats = %+v, want 5 nodes and 4 edges", res.Stats)
	}
	if res.Stats.Expanded != 2 {
		t.Errorf("Expanded = %d, want 2", res.Stats.Expanded)
	}
	if res.Snapshot.Selected != "P" {
		t.Errorf("Selected = %q, want P", res.Snapshot.Selected)
	}
	if !strings.Contains(string(res.Artifacts[FormatSVG]), "<svg") {
		t.Error("svg artifact missing")
	}
	if !strings.Contains(string(res.Artifacts[FormatDOT]), `"B" -> "C"`) {
		t.Errorf("dot artifact missing edge:\n%s", res.Artifacts[FormatDOT])
	}
	if !strings.Contains(string(res.Artifacts[FormatJSON]), `"pharmacy_id": "P"`) {
		t.Error("json artifact missing pharmacy id")
	}
	if res.CacheInfo.RenderHit {
		t.Error("first render cannot be a cache hit")
	}
}

func TestExecuteSelect(t *testing.T) {
	r := newTestRunner(nil)
	res, err := r.Execute(context.Background(), Options{PharmacyID: "P", Select: "C", Ticks: 10})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Snapshot.Selected != "C" {
		t.Errorf("Selected = %q, want C", res.Snapshot.Selected)
	}
	found := false
	for _, n := range res.Snapshot.Nodes {
		found = found || n.ID == "C"
	}
	if !found {
		t.Error("selected company should be visible")
	}
}

func TestExecuteUnknownPharmacy(t *testing.T) {
	r := newTestRunner(nil)
	if _, err := r.Execute(context.Background(), Options{PharmacyID: "Q"}); err == nil {
		t.Error("Execute() should fail for an unknown pharmacy")
	}
}

func TestExecuteCachesArtifacts(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	r := newTestRunner(fc)
	opts := Options{PharmacyID: "P", Depth: 2, Ticks: 30, Formats: []string{FormatDOT}}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second render of the same scene should hit the cache")
	}
	if string(first.Artifacts[FormatDOT]) != string(second.Artifacts[FormatDOT]) {
		t.Error("cached artifact differs")
	}

	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if third.CacheInfo.RenderHit {
		t.Error("Refresh should bypass the cache")
	}
}
