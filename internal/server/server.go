// Package server exposes a segmentation engine over HTTP.
//
// Routes:
//
//   - GET  /segment?q=INPUT  segments one input.
//   - POST /segment          segments {"inputs": [...]} concurrently.
//   - GET  /healthz          liveness probe.
//   - GET  /readyz           readiness probe; fails until the prism is built.
//   - GET  /metrics          Prometheus scrape endpoint.
//
// The engine can be swapped at runtime with [Server.SetEngine], e.g. from a
// config watcher; in-flight requests finish on the engine they started with.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/syllabify/internal/engine"
	"github.com/MrWong99/syllabify/internal/observe"
)

// Defaults for [Option] values.
const (
	DefaultMaxBatch     = 256
	DefaultMaxBodyBytes = 1 << 20
)

// Server serves segmentation requests. It is safe for concurrent use.
type Server struct {
	engine       atomic.Pointer[engine.Engine]
	metrics      *observe.Metrics
	metricsPage  http.Handler
	maxBatch     int
	maxBodyBytes int64
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the instruments used by the request middleware. The
// default is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsHandler replaces the /metrics handler. The default serves the
// default Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metricsPage = h
		}
	}
}

// WithMaxBatch caps the number of inputs in one POST /segment request.
func WithMaxBatch(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// New returns a Server segmenting with e. e may be nil until
// [Server.SetEngine] is called; /readyz reports the server as not ready
// meanwhile.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		maxBatch:     DefaultMaxBatch,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsPage == nil {
		s.metricsPage = promhttp.Handler()
	}
	if e != nil {
		s.engine.Store(e)
	}
	return s
}

// SetEngine atomically replaces the engine used for new requests.
func (s *Server) SetEngine(e *engine.Engine) { s.engine.Store(e) }

// Engine returns the current engine, or nil.
func (s *Server) Engine() *engine.Engine { return s.engine.Load() }

// Handler returns the HTTP handler with all routes and the observability
// middleware installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /segment", s.segmentOne)
	mux.HandleFunc("POST /segment", s.segmentBatch)
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("GET /readyz", readyz(s.checkers()))
	mux.Handle("GET /metrics", s.metricsPage)
	return observe.Middleware(s.metrics, "/segment", "/healthz", "/readyz", "/metrics")(mux)
}

func (s *Server) checkers() []Checker {
	return []Checker{
		{Name: "engine", Check: func(context.Context) error {
			if s.Engine() == nil {
				return errors.New("no engine loaded")
			}
			return nil
		}},
		{Name: "prism", Check: func(context.Context) error {
			e := s.Engine()
			if e == nil || !e.Prism().Built() {
				return errors.New("prism not built")
			}
			return nil
		}},
	}
}

// BatchRequest is the body of POST /segment.
type BatchRequest struct {
	Inputs []string `json:"inputs"`
}

// BatchResponse is the reply to POST /segment. Results[i] belongs to
// Inputs[i].
type BatchResponse struct {
	Results []engine.Segmentation `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) segmentOne(w http.ResponseWriter, r *http.Request) {
	e := s.Engine()
	if e == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "engine not ready"})
		return
	}
	q := r.URL.Query()
	if !q.Has("q") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter q"})
		return
	}
	input := q.Get("q")
	g := e.Segment(r.Context(), input)
	writeJSON(w, http.StatusOK, e.Summarize(input, g))
}

func (s *Server) segmentBatch(w http.ResponseWriter, r *http.Request) {
	e := s.Engine()
	if e == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "engine not ready"})
		return
	}

	var req BatchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if len(req.Inputs) > s.maxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorResponse{Error: fmt.Sprintf("%d inputs exceed the limit of %d", len(req.Inputs), s.maxBatch)})
		return
	}

	graphs, err := e.SegmentAll(r.Context(), req.Inputs)
	if err != nil {
		observe.Logger(r.Context()).Warn("batch segmentation aborted", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	resp := BatchResponse{Results: make([]engine.Segmentation, len(graphs))}
	for i, g := range graphs {
		resp.Results[i] = e.Summarize(req.Inputs[i], g)
	}
	writeJSON(w, http.StatusOK, resp)
}
