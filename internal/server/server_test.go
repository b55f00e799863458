package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/contractmap/internal/metrics"
	cerrors "github.com/matzehuels/contractmap/pkg/errors"
	"github.com/matzehuels/contractmap/pkg/provider"
	"github.com/matzehuels/contractmap/pkg/provider/memory"
	"github.com/matzehuels/contractmap/pkg/search"
	"github.com/matzehuels/contractmap/pkg/view"
)

// P -> A -> B -> C, P -> D
func dataset() memory.Dataset {
	return memory.Dataset{
		Pharmacy: provider.Company{ID: "P", Name: "가나제약(제약사)"},
		Companies: []provider.Company{
			{ID: "A", Name: "에이상사"},
			{ID: "B", Name: "비상사"},
			{ID: "C", Name: "씨상사", CEOName: "박씨"},
			{ID: "D", Name: "디상사"},
		},
		Relations: []provider.Relation{
			{ParentID: "P", ChildID: "A"},
			{ParentID: "P", ChildID: "D"},
			{ParentID: "A", ChildID: "B"},
			{ParentID: "B", ChildID: "C"},
		},
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg.ManualLayout = true
	s := New(memory.New(dataset()), cfg,
		WithLogger(log.New(io.Discard)),
		WithMetrics(metrics.New(reg), reg),
	)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeView(t *testing.T, data []byte) viewResponse {
	t.Helper()
	var v viewResponse
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func nodeIDs(v viewResponse) []string {
	ids := make([]string, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func createView(t *testing.T, ts *httptest.Server) viewResponse {
	t.Helper()
	resp, data := do(t, ts, http.MethodPost, "/views", createRequest{PharmacyID: "P"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	return decodeView(t, data)
}

func TestCreateAndGetView(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	v := createView(t, ts)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "P", v.PharmacyID)
	assert.Equal(t, "P", v.Selected)
	assert.Equal(t, []string{"P", "A", "D"}, nodeIDs(v))
	require.NotNil(t, v.Details)
	assert.Equal(t, "2개", v.Details.Summary)

	resp, data := do(t, ts, http.MethodGet, "/views/"+v.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, v.ID, decodeView(t, data).ID)

	resp, data = do(t, ts, http.MethodGet, "/views", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []viewSummary
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "P", list[0].PharmacyID)
}

func TestCreateViewDefaultPharmacy(t *testing.T) {
	_, ts := newTestServer(t, Config{Pharmacy: "P"})
	resp, data := do(t, ts, http.MethodPost, "/views", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.Equal(t, "P", decodeView(t, data).PharmacyID)
}

func TestCreateViewUnknownPharmacy(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	resp, data := do(t, ts, http.MethodPost, "/views", createRequest{PharmacyID: "Q"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var e errorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, view.MsgPharmacyUnknown, e.Error)
	assert.Equal(t, 0, s.views.len(), "failed views are not kept")
}

func TestCreateViewBadJSON(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	resp, err := ts.Client().Post(ts.URL+"/views", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMaxViews(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxViews: 1})
	createView(t, ts)
	resp, _ := do(t, ts, http.MethodPost, "/views", createRequest{PharmacyID: "P"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestUnknownView(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	resp, _ := do(t, ts, http.MethodGet, "/views/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectNode(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	v := createView(t, ts)

	resp, data := do(t, ts, http.MethodPost, "/views/"+v.ID+"/nodes/A/select", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	got := decodeView(t, data)
	assert.Equal(t, "A", got.Selected)
	assert.ElementsMatch(t, []string{"P", "A", "B", "D"}, nodeIDs(got))

	resp, data = do(t, ts, http.MethodPost, "/views/"+v.ID+"/nodes/A/select", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []string{"P", "A", "D"}, nodeIDs(decodeView(t, data)), "second click collapses")

	resp, _ = do(t, ts, http.MethodPost, "/views/"+v.ID+"/nodes/Z/select", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDragNode(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	v := createView(t, ts)
	path := "/views/" + v.ID + "/nodes/A/drag"

	resp, _ := do(t, ts, http.MethodPost, path, dragRequest{Phase: dragStart})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodPost, path, dragRequest{Phase: dragMove, X: 10, Y: 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, data := do(t, ts, http.MethodPost, path, dragRequest{Phase: dragEnd})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, n := range decodeView(t, data).Nodes {
		if n.ID == "A" {
			assert.True(t, n.Pinned)
			assert.InDelta(t, 10, n.X, 1e-9)
			assert.InDelta(t, 20, n.Y, 1e-9)
		}
	}

	resp, data = do(t, ts, http.MethodPost, path, dragRequest{Phase: dragRelease})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, n := range decodeView(t, data).Nodes {
		if n.ID == "A" {
			assert.False(t, n.Pinned, "release frees the node")
		}
	}
	resp, _ = do(t, ts, http.MethodPost, "/views/"+v.ID+"/nodes/P/drag", dragRequest{Phase: dragRelease})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "the pharmacy stays pinned")

	resp, _ = do(t, ts, http.MethodPost, path, dragRequest{Phase: "fling"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, ts, http.MethodPost, "/views/"+v.ID+"/nodes/Z/drag", dragRequest{Phase: dragStart})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	v := createView(t, ts)
	e, ok := s.views.get(v.ID)
	require.True(t, ok)
	select {
	case <-e.ctrl.IndexReady():
	case <-time.After(5 * time.Second):
		t.Fatal("index not ready")
	}

	resp, data := do(t, ts, http.MethodGet, "/views/"+v.ID+"/search?q=%EC%94%A8%EC%83%81", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res search.Result
	require.NoError(t, json.Unmarshal(data, &res))
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "C", res.Companies[0].ID)

	resp, data = do(t, ts, http.MethodPost, "/views/"+v.ID+"/search", submitRequest{ID: "C"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	got := decodeView(t, data)
	assert.Equal(t, "C", got.Selected)
	assert.Contains(t, nodeIDs(got), "C")
}

func TestSearchSubmitErrors(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	v := createView(t, ts)
	e, _ := s.views.get(v.ID)
	<-e.ctrl.IndexReady()

	resp, data := do(t, ts, http.MethodPost, "/views/"+v.ID+"/search", submitRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), view.MsgChooseCompany)

	resp, data = do(t, ts, http.MethodPost, "/views/"+v.ID+"/search", submitRequest{ID: "Z"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(data), view.MsgNotInGraph)
}

func TestSceneSVG(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	v := createView(t, ts)

	resp, data := do(t, ts, http.MethodGet, "/views/"+v.ID+"/svg?settle=50", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(data), "<svg")
	assert.Contains(t, string(data), "가나제약")

	resp, _ = do(t, ts, http.MethodGet, "/views/"+v.ID+"/svg?settle=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTreeDOT(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	v := createView(t, ts)

	resp, data := do(t, ts, http.MethodGet, "/views/"+v.ID+"/dot?rankdir=LR", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dot := string(data)
	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, "rankdir=LR")
	assert.Contains(t, dot, `"P" -> "A"`)
}

func TestDeleteView(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	v := createView(t, ts)

	resp, _ := do(t, ts, http.MethodDelete, "/views/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, s.views.len())

	resp, _ = do(t, ts, http.MethodDelete, "/views/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSweepIdleViews(t *testing.T) {
	s, ts := newTestServer(t, Config{ViewTTL: time.Minute})
	createView(t, ts)

	assert.Equal(t, 0, s.sweep(time.Now()))
	assert.Equal(t, 1, s.sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, s.views.len())
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, data := do(t, ts, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"ok"`)

	resp, data = do(t, ts, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "contractmap_api_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"INVALID_ID", http.StatusBadRequest},
		{"NOT_FOUND", http.StatusNotFound},
		{"VIEW_CLOSED", http.StatusGone},
		{"FETCH_FAILED", http.StatusBadGateway},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(cerrors.New(cerrors.Code(tt.code), "boom")))
		})
	}
}
