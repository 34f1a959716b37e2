package receiver

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the receiver configuration.
//
// There is no read or write timeout: large uploads stream for as long as the
// client keeps sending.
//
// Example:
//
//	cfg := receiver.DefaultConfig()
//	cfg.Addr = "127.0.0.1:9090"
//
//	srv := receiver.New(receiver.WithConfig(cfg))
type Config struct {
	// Addr is the TCP address to listen on.
	//
	// Default: ":8080"
	Addr string

	// ServiceName is reported in logs and server spans.
	//
	// Default: "courier-receiver"
	ServiceName string

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	//
	// Default: 10s
	ReadHeaderTimeout time.Duration

	// IdleTimeout is how long a kept-alive connection waits for the next
	// request.
	//
	// Default: 60s
	IdleTimeout time.Duration

	// ShutdownTimeout bounds the wait for in-flight uploads on shutdown.
	//
	// Default: 30s
	ShutdownTimeout time.Duration

	// MaxHeaderBytes limits the size of request headers.
	//
	// Default: 1MB
	MaxHeaderBytes int

	// MaxTextValue is the number of bytes of a text part decoded into
	// Part.Value. Longer parts are counted in full but marked Truncated.
	//
	// Default: 4KB
	MaxTextValue int

	// MetricsPath serves Prometheus metrics for received uploads. Empty
	// disables the endpoint.
	//
	// Default: "/metrics"
	MetricsPath string

	// Logger receives lifecycle and per-request logs.
	Logger zerolog.Logger

	// TracerProvider enables server spans when set.
	TracerProvider trace.TracerProvider

	// Propagator extracts the caller's trace context. Defaults to W3C trace
	// context and baggage.
	Propagator propagation.TextMapPropagator

	// OnUpload is called with every upload after it was fully read.
	OnUpload func(Upload)
}

// DefaultConfig returns the default receiver configuration.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ServiceName:       "courier-receiver",
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MaxHeaderBytes:    1 << 20,
		MaxTextValue:      4 * 1024,
		MetricsPath:       "/metrics",
		Logger:            zerolog.Nop(),
	}
}

// Option configures a Server.
type Option func(*Config)

// WithConfig replaces the whole configuration. Options given after it still
// apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithMetricsPath sets the metrics endpoint path; empty disables it.
func WithMetricsPath(path string) Option {
	return func(c *Config) {
		c.MetricsPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTracerProvider enables server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithPropagator sets the propagator used to extract the caller's trace.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Config) {
		c.Propagator = p
	}
}

// WithOnUpload registers a callback for every received upload.
func WithOnUpload(fn func(Upload)) Option {
	return func(c *Config) {
		c.OnUpload = fn
	}
}
