package ddbui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultAddr = ":3070"

// ServerConfig configures the API server.
type ServerConfig struct {
	// Addr is the listen address, DefaultAddr when empty.
	Addr string
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	// PageSize is used when a request has no limit.
	PageSize int32
	Log      *slog.Logger
	// ShutdownTimeout bounds graceful shutdown, 5s when zero.
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	config     ServerConfig
	api        *APIHandler
	log        *slog.Logger
	httpServer *http.Server
}

func NewServer(config ServerConfig, exec *ddbsdk.Executor, schemas *ddbsdk.SchemaCache) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	log := config.Log
	if log == nil {
		log = logger.Get()
	}
	return &Server{
		config: config,
		api:    NewAPIHandler(exec, schemas, config.PageSize),
		log:    log,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.api.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	return requestIDMiddleware(loggingMiddleware(s.log, corsMiddleware(mux)))
}

// Run serves until ctx is done or the process receives SIGINT or SIGTERM,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()
	s.log.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
