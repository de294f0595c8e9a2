package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l3heatmap"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/httputil"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
)

// ANSI escape codes for request logs
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server exposes one Planner. The rasterized layers never change; every
// request runs the later stages against them.
type Server struct {
	planner *pipeline.Planner
	cfg     *config.PlannerConfig

	mu   sync.Mutex
	last *pipeline.Result
}

// NewServer serves p. cfg is the configuration p was built with; request
// overrides are merged on top of it.
func NewServer(p *pipeline.Planner, cfg *config.PlannerConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyPlannerConfig()
	}
	return &Server{planner: p, cfg: cfg.Clone()}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/plan", s.handlePlan)
	mux.HandleFunc("/api/plan.png", s.handlePlanPNG)
	mux.HandleFunc("/api/heatmap", s.handleHeatmap)
	mux.HandleFunc("/api/layers", s.handleLayers)
	mux.HandleFunc("/api/version", s.handleVersion)
	return mux
}

// Latest returns the most recent successful result, running the default
// parameters if no request has produced one yet.
func (s *Server) Latest() (*pipeline.Result, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return last, nil
	}
	return s.run(s.planner.Params(), s.planner.Thresholds())
}

func (s *Server) run(params map[string]l3heatmap.LayerParams, th pipeline.Thresholds) (*pipeline.Result, error) {
	res, err := s.planner.Run(params, th)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, nil
}

// writeError maps pipeline errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coverage.ErrConfiguration), errors.Is(err, coverage.ErrInputType):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, coverage.ErrEmptyResult):
		httputil.UnprocessableEntity(w, err.Error())
	default:
		monitoring.Logf("plan failed: %v", err)
		httputil.InternalServerError(w, fmt.Sprintf("plan failed: %v", err))
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
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
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
