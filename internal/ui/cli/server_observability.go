package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"depsentry/internal/core/app"
	"depsentry/internal/engine/findings"
	"depsentry/internal/shared/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	scrapeRatePerSecond = 5
	scrapeBurst         = 20
	clientIdleTTL       = 10 * time.Minute
)

// statusServer exposes /metrics, /health and /summary for long-running
// watch and UI sessions.
type statusServer struct {
	addr    string
	health  *app.HealthService
	latest  func() *findings.AnalysisResult
	clients *util.KeyedLimiter
	srv     *http.Server
}

type summaryResponse struct {
	AnalysisID string            `json:"analysisId"`
	Timestamp  time.Time         `json:"timestamp"`
	Severity   findings.Severity `json:"severity"`
	Summary    findings.Summary  `json:"summary"`
}

func newStatusServer(addr string, health *app.HealthService, latest func() *findings.AnalysisResult) *statusServer {
	return &statusServer{
		addr:    addr,
		health:  health,
		latest:  latest,
		clients: util.NewKeyedLimiter(scrapeRatePerSecond, scrapeBurst, clientIdleTTL),
	}
}

func (s *statusServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /summary", s.handleSummary)
	return s.throttle(mux)
}

func (s *statusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *statusServer) handleSummary(w http.ResponseWriter, _ *http.Request) {
	var result *findings.AnalysisResult
	if s.latest != nil {
		result = s.latest()
	}
	if result == nil {
		http.Error(w, "no analysis has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		AnalysisID: result.Metadata.AnalysisID,
		Timestamp:  result.Metadata.AnalysisTimestamp,
		Severity:   result.Severity,
		Summary:    result.Summary,
	})
}

func (s *statusServer) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.clients.Allow(host) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("status response write failed", "error", err)
	}
}

// start binds the listener synchronously so address errors surface to the
// caller, then serves in the background.
func (s *statusServer) start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.routes(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("status server listening", "addr", s.addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status server stopped", "error", err)
		}
	}()
	return nil
}

func (s *statusServer) stop(timeout time.Duration) {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Warn("status server shutdown failed", "error", err)
	}
}
