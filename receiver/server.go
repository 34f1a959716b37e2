// Package receiver is an upload sink for exercising multipart clients. It
// accepts any request, reads the body part by part and replies with a JSON
// description of what arrived: part names, filenames, content types, sizes
// and the decoded value of every text part. Upload counts are served in the
// Prometheus text format on /metrics.
//
//	srv := receiver.New(
//	    receiver.WithAddr("127.0.0.1:8080"),
//	    receiver.WithOnUpload(func(u receiver.Upload) { fmt.Println(u.Path) }),
//	)
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
package receiver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/propagation"
)

// Server wraps http.Server with graceful shutdown and lifecycle logging.
type Server struct {
	httpServer *http.Server
	config     Config
	logger     zerolog.Logger
}

// New creates a Server from DefaultConfig and opts.
func New(opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "courier-receiver"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxTextValue <= 0 {
		cfg.MaxTextValue = DefaultConfig().MaxTextValue
	}
	if cfg.Propagator == nil {
		cfg.Propagator = propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)
	}

	middlewares := []Middleware{
		Recovery(cfg.Logger),
		RequestID(),
	}
	if cfg.TracerProvider != nil {
		middlewares = append(middlewares, Tracing(cfg.TracerProvider, cfg.Propagator, cfg.ServiceName))
	}
	middlewares = append(middlewares, Logger(cfg.Logger, cfg.ServiceName))

	m := newMetrics()
	mux := http.NewServeMux()
	if cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, m.handler())
	}
	mux.Handle("/", newUploadHandler(cfg, m))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Chain(middlewares...)(mux),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	return &Server{
		httpServer: httpServer,
		config:     cfg,
		logger:     cfg.Logger,
	}
}

// Handler returns the server's handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails. It returns
// nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErrChan := make(chan error, 1)

	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("service", s.config.ServiceName).
			Msg("receiver starting")

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
		close(serverErrChan)
	}()

	select {
	case err := <-serverErrChan:
		if err != nil {
			s.logger.Error().Err(err).Msg("receiver error")
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info().
			Err(ctx.Err()).
			Msg("context cancelled, shutting down")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.logger.Info().
		Dur("timeout", s.config.ShutdownTimeout).
		Msg("starting graceful shutdown")

	// ctx is already done here; the grace period gets a fresh one.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("graceful shutdown failed, forcing close")

		if closeErr := s.httpServer.Close(); closeErr != nil {
			s.logger.Error().Err(closeErr).Msg("force close failed")
		}
		return err
	}

	s.logger.Info().Msg("receiver stopped gracefully")
	return nil
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
