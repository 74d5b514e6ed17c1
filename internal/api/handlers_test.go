package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/salescube-io/salescube/internal/olap"
	"github.com/salescube-io/salescube/internal/warehouse"
)

// fakeExecutor serves canned aggregate rows and records the last
// request it saw.
type fakeExecutor struct {
	cubeRows []olap.AggregateRow
	setRows  []olap.AggregateRow
	err      error
	lastReq  olap.AggregationRequest
}

func (f *fakeExecutor) Query(_ context.Context, req olap.AggregationRequest) ([]olap.AggregateRow, error) {
	f.lastReq = req

	if f.err != nil {
		return nil, f.err
	}

	if req.Mode == olap.ModeGroupingSets {
		return f.setRows, nil
	}

	return f.cubeRows, nil
}

type fakeSummarizer struct {
	stats *warehouse.SummaryStats
	err   error
}

func (f *fakeSummarizer) Summary(_ context.Context) (*warehouse.SummaryStats, error) {
	return f.stats, f.err
}

func detailAggRow(geo, tm, product string, qty int64, revenue float64) olap.AggregateRow {
	return olap.AggregateRow{
		Values:   [olap.NumDimensions]string{geo, tm, product},
		Measures: olap.Measures{Quantity: qty, Revenue: revenue, Count: 1},
	}
}

// defaultFakeExecutor returns one detail row plus the margins every
// mode needs, consistent so cross-tab reconciliation passes.
func defaultFakeExecutor() *fakeExecutor {
	detail := detailAggRow("North", "2019-Q1", "Beverages", 5, 10)

	margin := func(collapsed [olap.NumDimensions]bool) olap.AggregateRow {
		row := detail
		row.Collapsed = collapsed

		for d := olap.Geography; d < olap.NumDimensions; d++ {
			if collapsed[d] {
				row.Values[d] = ""
			}
		}

		return row
	}

	return &fakeExecutor{
		cubeRows: []olap.AggregateRow{
			detail,
			margin([olap.NumDimensions]bool{true, true, true}),
		},
		setRows: []olap.AggregateRow{
			detail,
			margin([olap.NumDimensions]bool{false, false, true}),
			margin([olap.NumDimensions]bool{false, true, false}),
			margin([olap.NumDimensions]bool{false, true, true}),
			margin([olap.NumDimensions]bool{true, true, true}),
		},
	}
}

// newTestServer wires handlers to a mux without the middleware chain,
// which has its own tests.
func newTestServer(exec olap.Executor, summarizer Summarizer) (*Server, *http.ServeMux) {
	server := &Server{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: &ServerConfig{
			Port:            8080,
			Host:            "127.0.0.1",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			MaxRequestSize:  1 << 20,
		},
		catalog:    olap.DefaultCatalog(),
		executor:   exec,
		summarizer: summarizer,
		sessions:   NewSessionRegistry(),
	}

	mux := http.NewServeMux()
	server.setupRoutes(mux)

	return server, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if out != nil && rec.Code < http.StatusMultipleChoices {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
		}
	}

	return rec
}

func TestHandlePing(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodGet, "/ping", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	if rec.Body.String() != "pong" {
		t.Errorf("Expected body %q, got %q", "pong", rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	var health HealthStatus

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/health", "", &health)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	if health.Status != "healthy" {
		t.Errorf("Expected status healthy, got %q", health.Status)
	}

	if health.ServiceName != "salescube" {
		t.Errorf("Expected service name salescube, got %q", health.ServiceName)
	}
}

func TestHandleVersion(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	var version Version

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/version", "", &version)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	if version.Version == "" || version.ServiceName != "salescube" {
		t.Errorf("Unexpected version payload: %+v", version)
	}
}

func TestHandleNotFound(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodGet, "/nope", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Expected problem+json content type, got %q", ct)
	}
}

func TestSessionLifecycle(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	// Create at the default levels.
	var created SessionResponse

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/sessions", "", &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if created.SessionID == "" {
		t.Fatal("Expected non-empty session ID")
	}

	if len(created.Position) != 3 {
		t.Fatalf("Expected 3 position entries, got %d", len(created.Position))
	}

	if created.Position[0].Level != "region" || created.Position[1].Level != "quarter" {
		t.Errorf("Unexpected default position: %+v", created.Position)
	}

	base := "/api/v1/sessions/" + created.SessionID

	// Drill geography: region to city.
	var nav NavigationResponse

	rec = doJSON(t, mux, http.MethodPost, base+"/drill", `{"dimension":"geography"}`, &nav)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if nav.Position[0].Level != "city" {
		t.Errorf("Expected geography at city after drill, got %q", nav.Position[0].Level)
	}

	if len(nav.Detail) != 1 || nav.Detail[0].Quantity != 5 {
		t.Errorf("Unexpected detail rows: %+v", nav.Detail)
	}

	// Roll geography back up to region.
	rec = doJSON(t, mux, http.MethodPost, base+"/roll", `{"dimension":"geo"}`, &nav)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if nav.Position[0].Level != "region" {
		t.Errorf("Expected geography back at region after roll, got %q", nav.Position[0].Level)
	}

	// Position reflects the navigation.
	var position SessionResponse

	rec = doJSON(t, mux, http.MethodGet, base+"/position", "", &position)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	if position.Position[0].Level != "region" {
		t.Errorf("Expected geography at region, got %q", position.Position[0].Level)
	}

	// Delete and verify the session is gone.
	rec = doJSON(t, mux, http.MethodDelete, base, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, base+"/position", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rec.Code)
	}
}

func TestCreateSession_UnknownLevel(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/sessions", `{"geography":"continent"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNavigation_BoundaryViolation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	var created SessionResponse

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/sessions", `{"geography":"shop"}`, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	// Geography is already at its most detailed level.
	rec = doJSON(t, mux, http.MethodPost,
		"/api/v1/sessions/"+created.SessionID+"/drill", `{"dimension":"geography"}`, nil)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNavigation_UnknownDimension(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	var created SessionResponse

	doJSON(t, mux, http.MethodPost, "/api/v1/sessions", "", &created)

	rec := doJSON(t, mux, http.MethodPost,
		"/api/v1/sessions/"+created.SessionID+"/drill", `{"dimension":"color"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestNavigation_UnknownSession(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodPost,
		"/api/v1/sessions/no-such-session/drill", `{"dimension":"time"}`, nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestNavigation_ExecutorFailure(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	exec := defaultFakeExecutor()
	_, mux := newTestServer(exec, nil)

	var created SessionResponse

	doJSON(t, mux, http.MethodPost, "/api/v1/sessions", "", &created)

	exec.err = errors.New("connection refused")

	rec := doJSON(t, mux, http.MethodPost,
		"/api/v1/sessions/"+created.SessionID+"/drill", `{"dimension":"time"}`, nil)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d: %s", rec.Code, rec.Body.String())
	}

	// A failed move must not change the position.
	exec.err = nil

	var position SessionResponse

	doJSON(t, mux, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/position", "", &position)

	if position.Position[1].Level != "quarter" {
		t.Errorf("Expected time still at quarter after failed drill, got %q", position.Position[1].Level)
	}
}

func TestHandleCube(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	exec := defaultFakeExecutor()
	_, mux := newTestServer(exec, nil)

	var resp CubeResponse

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/analysis/cube?year=2019", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if exec.lastReq.Mode != olap.ModeCube {
		t.Errorf("Expected cube mode request, got %v", exec.lastReq.Mode)
	}

	if exec.lastReq.Filter.Year != 2019 {
		t.Errorf("Expected year filter 2019, got %d", exec.lastReq.Filter.Year)
	}

	if len(resp.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(resp.Rows))
	}

	detail, ok := resp.Groups["Detail Level"]
	if !ok || len(detail) != 1 {
		t.Fatalf("Expected one detail row, got %+v", resp.Groups)
	}

	if detail[0].Geography == nil || *detail[0].Geography != "North" {
		t.Errorf("Unexpected detail geography: %+v", detail[0])
	}

	grand, ok := resp.Groups["Grand Total"]
	if !ok || len(grand) != 1 {
		t.Fatalf("Expected one grand total row, got %+v", resp.Groups)
	}

	if grand[0].Geography != nil {
		t.Errorf("Expected collapsed geography to render as null, got %q", *grand[0].Geography)
	}
}

func TestHandleCube_InvalidYear(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/analysis/cube?year=abc", "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestHandleCrossTab(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	exec := defaultFakeExecutor()
	_, mux := newTestServer(exec, nil)

	var resp CrossTabResponse

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/analysis/crosstab", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if exec.lastReq.Mode != olap.ModeGroupingSets {
		t.Errorf("Expected grouping-sets mode request, got %v", exec.lastReq.Mode)
	}

	if resp.Metric != "quantity" {
		t.Errorf("Expected default metric quantity, got %q", resp.Metric)
	}

	if resp.Warning != "" {
		t.Errorf("Expected no reconciliation warning, got %q", resp.Warning)
	}

	if resp.CrossTab == nil {
		t.Fatal("Expected a cross-tab payload")
	}

	if len(resp.Sets) != 5 {
		t.Errorf("Expected 5 grouping sets, got %d", len(resp.Sets))
	}

	if detail := resp.Sets["Detail"]; len(detail) != 1 || detail[0].Set != "Detail" {
		t.Errorf("Unexpected detail set rows: %+v", detail)
	}

	if len(resp.Matrix) != 1 || len(resp.Matrix[0]) != 1 || resp.Matrix[0][0] != 5 {
		t.Errorf("Unexpected quantity matrix: %+v", resp.Matrix)
	}

	// The revenue metric projects the other measure.
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/analysis/crosstab?metric=revenue", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	if resp.Matrix[0][0] != 10 {
		t.Errorf("Expected revenue matrix cell 10, got %v", resp.Matrix[0][0])
	}
}

func TestHandleCrossTab_UnknownMetric(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/analysis/crosstab?metric=weight", "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestHandleCrossTab_ReconciliationWarning(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	exec := defaultFakeExecutor()
	// Inflate the grand total so the detail cells no longer add up.
	exec.setRows[len(exec.setRows)-1].Measures.Quantity = 999

	_, mux := newTestServer(exec, nil)

	var resp CrossTabResponse

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/analysis/crosstab", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if resp.Warning == "" {
		t.Error("Expected a reconciliation warning")
	}

	if resp.CrossTab == nil {
		t.Error("Expected the suspect cross-tab to still be returned")
	}
}

func TestHandleSummary(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	summarizer := &fakeSummarizer{stats: &warehouse.SummaryStats{
		TotalRevenue:      1234.5,
		TotalTransactions: 42,
		UniqueProducts:    7,
		UniqueShops:       3,
	}}

	_, mux := newTestServer(defaultFakeExecutor(), summarizer)

	var stats warehouse.SummaryStats

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/summary", "", &stats)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	if stats.TotalTransactions != 42 || stats.TotalRevenue != 1234.5 {
		t.Errorf("Unexpected summary: %+v", stats)
	}
}

func TestHandleSummary_Unavailable(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, mux := newTestServer(defaultFakeExecutor(), nil)

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/summary", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
