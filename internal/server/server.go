// Package server exposes the matching engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/metrics"
)

const (
	defaultAddr         = ":8080"
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultUploadSize   = 10 << 20
	multipartMemory     = 1 << 20
	shutdownGracePeriod = 15 * time.Second
	defaultPageSize     = 10
	headerRequestID     = "X-Request-ID"
	formatLegacy        = "legacy"
)

type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	LegacyJSON    bool
	MaxUploadSize int64
}

type Server struct {
	cfg        Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	engine     engine.Engine
	httpServer *http.Server
}

func New(log *zap.Logger, m *metrics.Metrics, eng engine.Engine, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultUploadSize
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger.OrNop(log),
		metrics: m,
		engine:  eng,
	}

	mux := http.NewServeMux()
	s.handle(mux, http.MethodGet, "/health", s.handleHealth)
	s.handle(mux, http.MethodGet, "/persons/{personId}/occupation-matchings", s.handleOccupationMatchings)
	s.handle(mux, http.MethodGet, "/persons/{personId}/occupations/{occupationId}/skill-matchings", s.handleSkillMatchings)
	s.handle(mux, http.MethodPost, "/cv/skills", s.handleExtractSkills)
	s.handle(mux, http.MethodPost, "/cv/skills/count", s.handleCountSkills)
	mux.Handle("GET /metrics", m.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withRequestID(s.withLogging(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  2 * cfg.ReadTimeout,
	}

	return s
}

func (s *Server) handle(mux *http.ServeMux, method, route string, h http.HandlerFunc) {
	mux.Handle(method+" "+route, s.withMetrics(route, h))
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
