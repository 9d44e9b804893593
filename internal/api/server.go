package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Version is reported by GET /health.
const Version = "1.0.0"

// Server represents the HTTP API server.
type Server struct {
	httpServer     *http.Server
	controller     ControllerPort
	streams        StreamPort
	metricsHandler http.Handler
	startTime      time.Time
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new API server.
func NewServer(controller ControllerPort, streams StreamPort, readTimeout, writeTimeout, idleTimeout time.Duration) *Server {
	return &Server{
		controller:   controller,
		streams:      streams,
		startTime:    time.Now(),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		idleTimeout:  idleTimeout,
	}
}

// SetMetricsHandler mounts h on GET /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metricsHandler = h
}

// Handler returns the routed handler with CORS and client tagging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return withCORS(withClient(mux))
}

// Start binds addr and serves until Stop. Bind failures are returned at once.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
