package router

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/glance/internal/auth"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/export"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/internal/web"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, authEnabled bool, opts ...func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)

	cfg := config.Default()
	cfg.Server.BasePath = "/glance"
	cfg.Auth.Enabled = authEnabled
	cfg.Auth.Username = "ci"
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	hash, err := auth.HashPassword("Secret-Pass-1")
	require.NoError(t, err)
	cfg.Auth.PasswordHash = hash

	renderer, err := web.New(&cfg.Viewer, cfg.Server.BasePath)
	require.NoError(t, err)

	r := gin.New()
	deps := Deps{
		Config:   cfg,
		Catalog:  catalog.New(s.Run(), catalog.OptionsFromConfig(&cfg.Viewer)),
		Runs:     s.Run(),
		Renderer: renderer,
		Exports:  export.NewDefaultManager(renderer, export.DefaultPDFOptions()),
		Auth:     auth.New(&cfg.Auth),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("report_status 1\n"))
		}),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	Setup(r, deps)
	return &testServer{router: r}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func uploadBody(t *testing.T) map[string]any {
	t.Helper()
	table := report.NewTable("Counts", []string{"table", "rows"}, [][]any{{"users", 10.0}}, nil)
	table.AllowDataExport = true
	doc := &report.Document{
		Title:     "Nightly Data",
		RunID:     "r1",
		Timestamp: report.Timestamp{Time: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		Sections: []*report.Section{{Title: "Data", Blocks: []*report.Block{
			{Title: "Rows", Tags: []string{"db"}, Results: []*report.Result{table}},
			{Title: "Plot", Results: []*report.Result{report.NewImage("Trend", "plot", "trend.png")}},
		}}},
	}
	data, err := report.Encode(doc, report.FormatJSON)
	require.NoError(t, err)
	return map[string]any{
		"document":  json.RawMessage(data),
		"resources": []map[string]any{{"key": "plot", "data": pngHeader}},
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestSetup_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, "GET", "/glance/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = ts.do(t, "GET", "/glance/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report_status")

	w = ts.do(t, "GET", "/glance/uistatic/glance.css", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetup_HealthCheckFailure(t *testing.T) {
	ts := newTestServer(t, false, func(d *Deps) {
		d.HealthCheck = func(context.Context) error { return errors.New("database is closed") }
	})

	w := ts.do(t, "GET", "/glance/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode(t, w)["status"])
}

func TestSetup_WriteRequiresToken(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, "POST", "/glance/api/v1/auth/token", map[string]string{"username": "ci", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, "POST", "/glance/api/v1/auth/token", map[string]string{"username": "ci", "password": "Secret-Pass-1"})
	require.Equal(t, http.StatusOK, w.Code)
	ts.token = decode(t, w)["token"].(string)

	w = ts.do(t, "GET", "/glance/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ci", decode(t, w)["username"])

	w = ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "nightly-data", body["report_id"])
	assert.Equal(t, "r1", body["run_id"])
	assert.Equal(t, "/glance/reports/nightly-data/r1", body["url"])

	// uploading the same run again replaces it
	w = ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["replaced"])
}

func TestSetup_InvalidUpload(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, "POST", "/glance/api/v1/runs", map[string]any{"document": `[{"version": 99}, {"title": "x"}]`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := uploadBody(t)
	body["resources"] = []map[string]any{{"key": "plot", "filename": "../x.png", "data": pngHeader}}
	w = ts.do(t, "POST", "/glance/api/v1/runs", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetup_ReadRoutes(t *testing.T) {
	ts := newTestServer(t, false)
	require.Equal(t, http.StatusCreated, ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t)).Code)

	w := ts.do(t, "GET", "/glance/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = ts.do(t, "GET", "/glance/api/v1/index", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", decode(t, w)["latest"])

	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data/runs/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "r1", body["run_id"])
	assert.Equal(t, float64(1), body["tags"].(map[string]any)["db"])

	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data/runs/r1?match=data/rows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data/runs/r1?element=0-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data/runs/r1?element=5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/glance/api/v1/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetup_Pages(t *testing.T) {
	ts := newTestServer(t, false)
	require.Equal(t, http.StatusCreated, ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t)).Code)

	w := ts.do(t, "GET", "/glance/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nightly Data")

	w = ts.do(t, "GET", "/glance/reports/nightly-data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-block-id="0-0"`)

	w = ts.do(t, "GET", "/glance/reports/nightly-data/r1/1?collapsed=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="block-0-1" class="collapse show"`)

	w = ts.do(t, "GET", "/glance/reports/nightly-data/unknown/1?tags=db", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/glance/reports/nightly-data/r1/1?tags=db", w.Header().Get("Location"))

	w = ts.do(t, "GET", "/glance/reports/nightly-data/r1/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/glance/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestSetup_Downloads(t *testing.T) {
	ts := newTestServer(t, false)
	require.Equal(t, http.StatusCreated, ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t)).Code)

	w := ts.do(t, "GET", "/glance/nightly-data/r1/data-export/csv/0-0-0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "table,rows\nusers,10\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "counts.csv")

	w = ts.do(t, "GET", "/glance/nightly-data/r1/data-export/json/0-0-0.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"table": "users", "rows": 10}]`, w.Body.String())

	w = ts.do(t, "GET", "/glance/nightly-data/r1/data-export/csv/0-1-0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/glance/nightly-data/latest/resource/plot/trend.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, w.Body.Bytes())

	etag := w.Header().Get("ETag")
	w = ts.do(t, "GET", "/glance/nightly-data/r1/resource/plot/trend.png", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data/runs/r1/export?format=markdown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Nightly Data"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "nightly-data-r1.md")

	w = ts.do(t, "GET", "/glance/api/v1/reports/nightly-data/runs/r1/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetup_DeleteRun(t *testing.T) {
	ts := newTestServer(t, false)
	require.Equal(t, http.StatusCreated, ts.do(t, "POST", "/glance/api/v1/runs", uploadBody(t)).Code)

	w := ts.do(t, "DELETE", "/glance/api/v1/reports/nightly-data/runs/latest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "DELETE", "/glance/api/v1/reports/nightly-data/runs/r1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "DELETE", "/glance/api/v1/reports/nightly-data/runs/r1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/glance/reports/nightly-data", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
