// Package http provides the gateway's HTTP API server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"aigate/internal/config"
	"aigate/internal/domain"
	"aigate/internal/orchestrator"
	"aigate/internal/ratelimit"
	"aigate/internal/telemetry"
)

// Server is the HTTP API server
type Server struct {
	config       *config.Config
	orchestrator *orchestrator.Orchestrator
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	mux          *http.ServeMux
}

// NewServer creates the server and wires its routes. The general limiter
// guards /v1/generate, the expensive limiter guards /v1/analyze.
func NewServer(
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	metrics *telemetry.Metrics,
	general, expensive *ratelimit.Limiter,
	logger *slog.Logger,
) *Server {
	s := &Server{
		config:       cfg,
		orchestrator: orch,
		metrics:      metrics,
		logger:       logger,
		mux:          http.NewServeMux(),
	}
	s.setupRoutes(general, expensive)
	return s
}

func (s *Server) setupRoutes(general, expensive *ratelimit.Limiter) {
	limited := func(l *ratelimit.Limiter, h http.HandlerFunc) http.Handler {
		if l == nil {
			return h
		}
		return l.Middleware(h)
	}

	s.mux.Handle("POST /v1/generate", limited(general, s.handleGenerate))
	s.mux.Handle("POST /v1/analyze", limited(expensive, s.handleAnalyze))
	s.mux.HandleFunc("GET /v1/providers/status", s.handleProviderStatus)
	s.mux.HandleFunc("POST /v1/cache/clear", s.handleCacheClear)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.BindAddress, s.config.Server.HTTPPort),
		Handler:      http.MaxBytesHandler(s.Handler(), s.config.Server.MaxRequestSize),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleGenerate serves ordinary chat-class requests
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.serveGeneration(w, r, domain.ClassChat)
}

// handleAnalyze serves vision-class requests, which run under the longer
// timeout and the stricter rate limit.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.serveGeneration(w, r, domain.ClassVision)
}

func (s *Server) serveGeneration(w http.ResponseWriter, r *http.Request, class domain.OperationClass) {
	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, &domain.ValidationError{Field: "body", Message: "invalid JSON body"})
		return
	}

	req := body.toDomain(class, r.Header.Get("X-User-ID"))

	resp, err := s.orchestrator.Execute(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	status := s.orchestrator.ProviderStatus()

	out := StatusResponse{
		Providers: make(map[string]bool, len(status.Providers)),
		CheckedAt: status.CheckedAt.Format(time.RFC3339),
	}
	for p, configured := range status.Providers {
		out.Providers[string(p)] = configured
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var body ClearCacheRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, &domain.ValidationError{Field: "body", Message: "invalid JSON body"})
			return
		}
	}

	if err := s.orchestrator.ClearCache(r.Context(), body.Key); err != nil {
		s.logger.Error("cache clear failed", "error", err)
		s.writeError(w, &domain.InternalError{Message: "cache clear failed", Err: err})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Helper methods

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps taxonomy errors to HTTP status codes and writes the
// structured payload. Anything outside the taxonomy degrades to a generic
// 500 without leaking the raw message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		cfgErr  *domain.ConfigurationError
		provErr *domain.ProviderError
		valErr  *domain.ValidationError
		rlErr   *domain.RateLimitError
	)
	switch {
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
	case errors.As(err, &rlErr):
		status = http.StatusTooManyRequests
	case errors.As(err, &cfgErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &provErr):
		switch provErr.Code {
		case domain.CodeTimeout:
			status = http.StatusGatewayTimeout
		case domain.CodeRateLimited:
			status = http.StatusTooManyRequests
		default:
			status = http.StatusBadGateway
		}
	}

	s.writeJSON(w, status, domain.PayloadFor(err))
}
