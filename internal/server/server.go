// Package server exposes the site API over HTTP: public lead-capture
// endpoints and bearer-token-gated admin endpoints, all thin callers of the
// content store client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alabrestoise/siteapi/internal/config"
	"github.com/alabrestoise/siteapi/internal/email"
	"github.com/alabrestoise/siteapi/internal/notify"
	"github.com/alabrestoise/siteapi/internal/store"
	"github.com/alabrestoise/siteapi/internal/version"
)

const (
	// HTTP server timeouts.
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Server is the site API HTTP server.
type Server struct {
	handler    *Handler
	httpServer *http.Server
	cfg        *config.Config
	logger     *slog.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(
	cfg *config.Config,
	content *store.Client,
	mailer email.Sender,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Server {
	handler := NewHandler(cfg, content, mailer, notifier, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.HandleHealth)
	mux.HandleFunc("GET /api/version", handler.HandleVersion)

	mux.HandleFunc("POST /api/subscribe", handler.HandleSubscribe)
	mux.HandleFunc("POST /api/contact", handler.HandleContact)
	mux.HandleFunc("POST /api/testimonial", handler.HandleTestimonialSubmit)

	mux.HandleFunc("GET /api/testimonials", handler.HandleTestimonialList)
	mux.HandleFunc("PATCH /api/testimonials/{id}", handler.HandleTestimonialStatus)
	mux.HandleFunc("DELETE /api/testimonials/{id}", handler.HandleTestimonialDelete)

	mux.HandleFunc("GET /api/home-gallery", handler.HandleGalleryGet)
	mux.HandleFunc("PUT /api/home-gallery", handler.HandleGalleryPut)

	mux.HandleFunc("POST /api/upload-image", handler.HandleUpload)
	mux.HandleFunc("POST /api/admin-auth", handler.HandleAdminAuth)

	loggedHandler := loggingMiddleware(mux, logger)

	return &Server{
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           loggedHandler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start starts the HTTP server. This method blocks until the server is stopped.
func (s *Server) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting site API server",
		"port", s.cfg.Port,
		"version", version.Version,
		"commit", version.Commit,
		"build_time", version.BuildTime)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "shutting down site API server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Addr returns the server's address. Useful for testing.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// loggingMiddleware logs all HTTP requests.
func loggingMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			written:        false,
		}

		next.ServeHTTP(wrapped, req)

		logger.Info("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", wrapped.statusCode,
			"remote_addr", req.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
