// Package api exposes the dashboard HTTP surface: upload processing, group
// mutation, chart rendering and the JSON feeds the front-end consumes.
package api

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fleet-data/completion.report/internal/columns"
	"github.com/fleet-data/completion.report/internal/config"
	"github.com/fleet-data/completion.report/internal/groups"
	"github.com/fleet-data/completion.report/internal/httputil"
	"github.com/fleet-data/completion.report/internal/report"
	"github.com/fleet-data/completion.report/internal/timeutil"
	"github.com/fleet-data/completion.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles the dashboard API. The group store is the only durable
// collaborator; the most recent upload is held in memory purely so the
// chart endpoint has something to draw, and is discarded on restart.
type Server struct {
	store *groups.Store
	cfg   *config.DashboardConfig
	clock timeutil.Clock

	mu   sync.Mutex
	last *uploadRun
}

// uploadRun is the transient result of the most recent upload.
type uploadRun struct {
	RunID      string
	At         time.Time
	Filename   string
	Resolution columns.Resolution
	Report     *report.Report
}

// NewServer creates an API server over the given store and configuration.
func NewServer(store *groups.Store, cfg *config.DashboardConfig, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{store: store, cfg: cfg, clock: clock}
}

// ServeMux returns the API route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/groups", s.handleGroups)
	mux.HandleFunc("/groups/assign", s.handleAssign)
	mux.HandleFunc("/chart/completion", s.handleCompletionChart)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// handleConfig reports the resolved control defaults so the front-end can
// initialise its threshold inputs.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"low_completion_pct": s.cfg.GetLowCompletionPct(),
		"inactive_hours":     s.cfg.GetInactiveHours(),
		"preview_rows":       s.cfg.GetPreviewRows(),
		"max_upload_bytes":   s.cfg.GetMaxUploadBytes(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

// snapshot returns the most recent upload run, or nil before any upload.
func (s *Server) snapshot() *uploadRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Server) setSnapshot(run *uploadRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = run
}
