// Package server exposes record search engines over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/metrics"
)

// Options configures a Server.
type Options struct {
	// RateLimit is requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int
	// Timeout bounds each API request.
	Timeout time.Duration
}

// Server serves one engine per record kind.
type Server struct {
	engines map[string]*unitsearch.Engine
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a Server. engines is keyed by record kind ("units", "users").
func New(engines map[string]*unitsearch.Engine, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engines: engines,
		timeout: opts.Timeout,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/{kind}/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/{kind}/explain", s.handleExplain)
	s.mux.HandleFunc("GET /api/{kind}/facets", s.handleFacets)
	s.mux.HandleFunc("GET /api/{kind}/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/{kind}/fields", s.handleFields)
	s.mux.HandleFunc("POST /api/{kind}/records", s.handlePut)
	s.mux.HandleFunc("DELETE /api/{kind}/records/{id}", s.handleDelete)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

// ServeHTTP applies request ids, rate limiting, access logging and
// request metrics around the route table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	if s.limiter != nil && !s.limiter.Allow() {
		writeError(sw, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
	} else {
		s.mux.ServeHTTP(sw, r)
	}

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	metrics.ObserveRequest(route, strconv.Itoa(sw.status))
	s.logger.LogAttrs(r.Context(), slog.LevelInfo, "request",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", sw.status),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) engine(w http.ResponseWriter, r *http.Request) (*unitsearch.Engine, bool) {
	kind := r.PathValue("kind")
	e, ok := s.engines[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown record kind "+strconv.Quote(kind), nil)
		return nil, false
	}
	return e, true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Span    *spanBody `json:"span,omitempty"`
}

type spanBody struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func writeError(w http.ResponseWriter, status int, kind, message string, span *spanBody) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Kind: kind, Message: message, Span: span},
	})
}

// writeEngineError maps an engine error to a status code and a JSON body
// carrying the offending span of the query text.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "search timed out", nil)
		return
	case errors.Is(err, context.Canceled):
		writeError(w, 499, "canceled", "request canceled", nil)
		return
	}

	var ue *unitsearch.Error
	if !errors.As(err, &ue) {
		s.logger.ErrorContext(r.Context(), "unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}

	body := errorBody{Kind: string(ue.Kind), Message: ue.Message, Field: ue.Field}
	if ue.Span != nil {
		body.Span = &spanBody{Start: ue.Span.Start, End: ue.Span.End}
	}
	status := http.StatusBadRequest
	switch ue.Kind {
	case unitsearch.ErrExecution:
		status = http.StatusInternalServerError
		s.logger.ErrorContext(r.Context(), "store failure", "error", err)
	case unitsearch.ErrFeature:
		status = http.StatusNotImplemented
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}
