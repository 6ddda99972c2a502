package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"depsentry/internal/core/app"
	"depsentry/internal/engine/findings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStatusServer(latest func() *findings.AnalysisResult) *statusServer {
	return newStatusServer("127.0.0.1:0", app.NewHealthService(app.New(), false), latest)
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusServer_Health(t *testing.T) {
	rec := serve(t, newTestStatusServer(nil).routes(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status app.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "no analysis yet", status.Components["graph"])
	assert.Contains(t, status.Components["memory"], "MB heap")
}

func TestStatusServer_HealthDownOnCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)

	rec := serve(t, newTestStatusServer(nil).routes(), req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusServer_Metrics(t *testing.T) {
	rec := serve(t, newTestStatusServer(nil).routes(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "depsentry_")
}

func TestStatusServer_Summary(t *testing.T) {
	var latest *findings.AnalysisResult
	h := newTestStatusServer(func() *findings.AnalysisResult { return latest }).routes()

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	latest = &findings.AnalysisResult{
		Severity: findings.SeverityHigh,
		Summary:  findings.Summary{TotalIssues: 3, CriticalIssues: 1, FilesAnalyzed: 7},
	}
	latest.Metadata.AnalysisID = "run-1"

	rec = serve(t, h, httptest.NewRequest(http.MethodGet, "/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.AnalysisID)
	assert.Equal(t, findings.SeverityHigh, body.Severity)
	assert.Equal(t, 3, body.Summary.TotalIssues)
	assert.Equal(t, 7, body.Summary.FilesAnalyzed)
}

func TestStatusServer_RejectsOtherMethods(t *testing.T) {
	rec := serve(t, newTestStatusServer(nil).routes(), httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusServer_ThrottlesPerClient(t *testing.T) {
	h := newTestStatusServer(nil).routes()

	limited := false
	for i := 0; i < scrapeBurst+5 && !limited; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		limited = serve(t, h, req).Code == http.StatusTooManyRequests
	}
	require.True(t, limited, "requests beyond the burst should be rejected")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusOK, serve(t, h, req).Code)
}

func TestStatusServer_StartReportsBindErrors(t *testing.T) {
	first := newTestStatusServer(nil)
	require.NoError(t, first.start())
	defer first.stop(time.Second)
	assert.NotEqual(t, "127.0.0.1:0", first.addr)

	second := newStatusServer(first.addr, app.NewHealthService(app.New(), false), nil)
	assert.Error(t, second.start())
}
