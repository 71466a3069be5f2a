package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitrelay/internal/config"
	"gitrelay/internal/log"
)

// Headers carrying the event kind and signature on inbound requests.
const (
	EventHeader     = "X-Gitea-Event"
	SignatureHeader = "X-Gitea-Signature"
)

// Server is the webhook HTTP listener.
type Server struct {
	cfg       config.ServerConfig
	processor *Processor
	logger    *slog.Logger
	server    *http.Server
}

// NewServer creates the listener around a processor.
func NewServer(cfg config.ServerConfig, processor *Processor) *Server {
	return &Server{
		cfg:       cfg,
		processor: processor,
		logger:    log.WithComponent("server"),
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully so in-flight requests can finish.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.cfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rateLimitMiddleware(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// loggingMiddleware logs requests without payload content.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	limited := io.LimitReader(r.Body, s.cfg.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		s.respond(w, http.StatusInternalServerError, StatusError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		s.respond(w, http.StatusRequestEntityTooLarge, StatusError, "payload too large")
		return
	}

	outcome := s.processor.Process(
		r.Context(),
		r.Header.Get(EventHeader),
		r.Header.Get(SignatureHeader),
		body,
	)
	s.respond(w, outcome.Code, outcome.Status, outcome.Message)
}

type response struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (s *Server) respond(w http.ResponseWriter, code int, status Status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response{Status: status, Message: message})
}
