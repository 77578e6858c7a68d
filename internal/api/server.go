// Package api exposes the question→SQL pipeline over HTTP.
//
// Endpoints:
//
//	GET  /health                     → liveness probe
//	GET  /ready                      → database readiness probe
//	POST /api/v1/generate            → question to SQL (optionally executed)
//	POST /api/v1/execute             → run a statement
//	POST /api/v1/train/ddl           → add schema context (body or live DB)
//	POST /api/v1/train/documentation → add documentation context
//	POST /api/v1/train/example       → add a question→SQL pair
//	GET  /api/v1/status              → connectivity + training data counts
//	GET  /api/v1/history             → recent answered questions
//
// A request may carry its own model credential in X-API-Key; requests
// without one use the configured default. Engines are cached per
// credential for the process lifetime.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/queryloom/queryloom/internal/engine"
	"github.com/queryloom/queryloom/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation calls a remote model, so this stays generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     log.Logger
	Registry   *engine.Registry // Required
	Executor   QueryExecutor    // Required
	TrustProxy bool             // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst  int              // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("engine registry is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("query executor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	qh := &queryHandler{
		registry: cfg.Registry,
		executor: cfg.Executor,
		history:  &history{},
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/generate", qh.generate)
	mux.HandleFunc("POST /api/v1/execute", qh.execute)
	mux.HandleFunc("POST /api/v1/train/ddl", qh.trainDDL)
	mux.HandleFunc("POST /api/v1/train/documentation", qh.trainDocumentation)
	mux.HandleFunc("POST /api/v1/train/example", qh.trainExample)
	mux.HandleFunc("GET /api/v1/status", qh.status)
	mux.HandleFunc("GET /api/v1/history", qh.historyList)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → Logging → RateLimit → Routes
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Executor, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, logger log.Logger) error {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = log.NewNop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
