// Package http exposes the prediction service over REST and WebSocket.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"irisclass/monitoring"
)

// Server wraps the standard library server with the service routes.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DefaultServerConfig returns the settings used when config.yaml leaves
// them out.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// NewServer builds the route tree and middleware chain. The WebSocket
// endpoint sits outside the timeout wrapper because http.TimeoutHandler
// buffers responses and would break the protocol upgrade.
func NewServer(config ServerConfig, handlers *Handlers, hub *monitoring.WebSocketHub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	apiMux := http.NewServeMux()
	handlers.Register(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/", TimeoutMiddleware(config.Timeout)(apiMux))
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWebSocket)
	}

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		MetricsMiddleware,
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)

	return &Server{
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			Handler:     chain(mux),
			ReadTimeout: config.Timeout,
			// WriteTimeout stays zero so long-lived WebSocket
			// connections are not cut mid-stream.
			IdleTimeout: 120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("websocket", fmt.Sprintf("ws://localhost%s/ws", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests for up to five seconds.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
