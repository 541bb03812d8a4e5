// Package server implements the notification server containers call back
// into when a task finishes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	NotifyTitle   = "Claude Code"
	NotifyMessage = "Task completed."

	// RequestIDHeader carries the id assigned to every request.
	RequestIDHeader = "X-Request-Id"

	shutdownTimeout = 5 * time.Second
)

// Notifier delivers a desktop notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Config holds server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "0.0.0.0:9876")
	ListenAddr string

	Notifier Notifier

	// Logger for server operations
	Logger *slog.Logger
}

// Handler serves /health and /notify.
type Handler struct {
	notifier Notifier
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewHandler creates the request handler.
func NewHandler(notifier Notifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{notifier: notifier, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/notify", h.notify)
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set(RequestIDHeader, id)

	lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	start := time.Now()
	h.mux.ServeHTTP(lw, r.WithContext(withRequestID(r.Context(), id)))

	h.logger.Info("request",
		"id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", lw.statusCode,
		"remote", r.RemoteAddr,
		"duration", time.Since(start))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeOK(w)
}

// notify always answers 200: the caller sits inside a container and has no
// way to act on a delivery failure.
func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if h.notifier != nil {
		if err := h.notifier.Notify(r.Context(), NotifyTitle, NotifyMessage); err != nil {
			h.logger.Warn("notification delivery failed", "id", requestID(r.Context()), "error", err)
		}
	}
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Server wraps the handler with lifecycle management
type Server struct {
	config *Config
	server *http.Server
}

// New creates a server for cfg.
func New(cfg *Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           NewHandler(cfg.Notifier, cfg.Logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// ListenAddr returns the wildcard address for port.
func ListenAddr(port int) string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info("starting notification server", "addr", ln.Addr().String())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.config.Logger.Info("shutting down notification server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
