package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/courier-go/httpclient"
)

// =============================================================================
// Config - HTTP Transport Configuration
// =============================================================================

// Config holds the HTTP transport configuration parameters.
// Use DefaultConfig() to get a properly initialized configuration,
// then modify specific fields as needed.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = 5 * time.Minute
//
//	client := httpclient.New(
//	    httpclient.WithConfig(cfg),
//	    httpclient.WithServiceName("report-uploader"),
//	)
type Config struct {
	// Timeout limits the entire exchange, including streaming the request
	// body and reading the response body. Zero means no timeout.
	//
	// Uploads of large files need a generous value, or zero with a context
	// deadline instead.
	//
	// Default: 60s
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections across all hosts.
	//
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections kept per
	// host.
	//
	// Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits the total number of connections (idle + active)
	// per host. Zero means unlimited.
	//
	// Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout is the maximum time to wait for a TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ExpectContinueTimeout is how long to wait for "100 Continue" when the
	// request carries "Expect: 100-continue".
	//
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers after
	// the request, body included, is fully written. Zero disables it.
	//
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// DialTimeout is the maximum time to wait for a TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive specifies the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	// WriteBufferSize is the size of the connection write buffer. Streamed
	// request bodies are flushed through it, so larger values help uploads.
	//
	// Default: 64KB
	WriteBufferSize int

	// ReadBufferSize is the size of the connection read buffer.
	//
	// Default: 64KB
	ReadBufferSize int

	// DisableKeepAlives forces a new connection for each request.
	//
	// Default: false
	DisableKeepAlives bool

	// DisableCompression disables the "Accept-Encoding: gzip" header.
	//
	// Default: true
	DisableCompression bool

	// ForceHTTP2 forces attempting HTTP/2 (requires HTTPS).
	//
	// Default: false
	ForceHTTP2 bool
}

// DefaultConfig returns a balanced configuration suitable for most use cases,
// with a timeout generous enough for moderate uploads.
func DefaultConfig() Config {
	return Config{
		Timeout: 60 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DialTimeout: 5 * time.Second,
		KeepAlive:   30 * time.Second,

		WriteBufferSize: 64 * 1024,
		ReadBufferSize:  64 * 1024,

		DisableCompression: true,
	}
}

// LowLatencyConfig returns a configuration for small, latency-sensitive
// calls: short timeouts and a quick dial.
func LowLatencyConfig() Config {
	return Config{
		Timeout: 5 * time.Second,

		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 25,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     60 * time.Second,

		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 500 * time.Millisecond,
		ResponseHeaderTimeout: 3 * time.Second,

		DialTimeout: 2 * time.Second,
		KeepAlive:   15 * time.Second,

		WriteBufferSize: 32 * 1024,
		ReadBufferSize:  32 * 1024,

		DisableCompression: true,
		ForceHTTP2:         true,
	}
}

// UploadConfig returns a configuration for large streamed uploads: no
// overall timeout (use a context deadline) and large write buffers.
func UploadConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 0
	cfg.ResponseHeaderTimeout = 2 * time.Minute
	cfg.WriteBufferSize = 256 * 1024
	return cfg
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds all configuration including HTTP transport and OTel settings.
type internalConfig struct {
	// HTTP transport configuration
	httpConfig Config

	// === Request Defaults ===

	// DefaultHeaders are sent with every request unless overridden.
	DefaultHeaders http.Header

	// DefaultCharset is assumed for responses that declare none.
	DefaultCharset Charset

	// === OpenTelemetry Configuration ===

	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// Propagators configures the context propagators.
	// Default: TraceContext + Baggage (W3C standard)
	Propagators propagation.TextMapPropagator

	// ServiceName identifies the HTTP client for tracing purposes.
	// Added as "http.client.name" attribute on spans.
	ServiceName string

	// === Debugging ===

	// Debug logs every request and response at debug level.
	Debug bool

	// Logger receives debug output. Defaults to stdout.
	Logger zerolog.Logger

	// GenerateCurl attaches a cURL command to every RawResponse.
	GenerateCurl bool

	// === Request Pipeline ===

	// Interceptors run on every outgoing request after headers are merged.
	Interceptors *InterceptorChain

	// RateLimit enables client-side rate limiting when RequestsPerSecond > 0.
	RateLimit RateLimitConfig

	// Transport replaces the default *http.Transport built from httpConfig.
	Transport http.RoundTripper

	// MockTransport replaces every transport; used in tests.
	MockTransport *MockTransport

	// === Advanced Settings ===

	// TLSConfig specifies the TLS configuration.
	TLSConfig *tls.Config

	// ProxyURL specifies a proxy URL for requests.
	// If nil, HTTP_PROXY, HTTPS_PROXY and NO_PROXY are honored.
	ProxyURL *url.URL
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:     DefaultConfig(),
		DefaultHeaders: make(http.Header),
		DefaultCharset: UTF8,
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Propagators: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		Logger:       zerolog.New(os.Stdout).With().Timestamp().Logger(),
		Interceptors: NewInterceptorChain(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// Initialize tracer and meter after options are applied
	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Initialize metrics (ignore errors, will just be nil if fails)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates an http.Transport from the configuration.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       hc.MaxConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		ExpectContinueTimeout: hc.ExpectContinueTimeout,
		DisableKeepAlives:     hc.DisableKeepAlives,
		DisableCompression:    hc.DisableCompression,
		WriteBufferSize:       hc.WriteBufferSize,
		ReadBufferSize:        hc.ReadBufferSize,
		TLSClientConfig:       cfg.TLSConfig,
		ForceAttemptHTTP2:     hc.ForceHTTP2,
		Proxy:                 http.ProxyFromEnvironment,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}

	return transport
}

// baseTransport returns the innermost RoundTripper.
func (cfg *internalConfig) baseTransport() http.RoundTripper {
	switch {
	case cfg.MockTransport != nil:
		return cfg.MockTransport
	case cfg.Transport != nil:
		return cfg.Transport
	default:
		return cfg.buildTransport()
	}
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Option configures the HTTP client.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport configuration.
// Use DefaultConfig(), LowLatencyConfig() or UploadConfig() as a starting
// point, then customize as needed.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithConfig(httpclient.UploadConfig()),
//	)
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithDefaultHeaders adds headers sent with every request. A header set on
// the request itself, or the Content-Type derived from its body, takes
// precedence.
//
// The given header is cloned; later changes to it have no effect.
func WithDefaultHeaders(h http.Header) Option {
	return func(cfg *internalConfig) {
		for k, vs := range h {
			for _, v := range vs {
				cfg.DefaultHeaders.Add(k, v)
			}
		}
	}
}

// WithDefaultHeader sets a single default header.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithDefaultHeader("X-Api-Version", "2"),
//	)
func WithDefaultHeader(key, value string) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultHeaders.Set(key, value)
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return WithDefaultHeader("User-Agent", userAgent)
}

// WithDefaultCharset sets the charset assumed for responses that declare
// none. A StringParser without a Fallback decodes with it.
// Default: UTF8.
func WithDefaultCharset(cs Charset) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultCharset = cs
	}
}

// WithServiceName sets an identifier for this HTTP client in traces.
// This value is added as the "http.client.name" attribute on all spans
// and metrics.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("invoice-uploader"),
//	)
//
//	// In your traces, you'll see:
//	//   Span: HTTP POST
//	//   └── http.client.name: invoice-uploader
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// If not called, the global provider from otel.GetTracerProvider() is used.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	)
//
//	client := httpclient.New(
//	    httpclient.WithTracerProvider(tp),
//	)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithPropagators sets custom context propagators for trace context injection.
// By default, W3C TraceContext and Baggage propagators are used.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		cfg.Propagators = p
	}
}

// WithDebug enables debug logging of every request and response.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithDebug(true),
//	    httpclient.WithLogger(zerolog.New(os.Stderr).Level(zerolog.DebugLevel)),
//	)
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}

// WithLogger sets the zerolog logger used for debug output and body write
// warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithGenerateCurl attaches an equivalent cURL command to each RawResponse.
// Multipart parts are rendered as -F arguments; streamed bodies that are
// not multipart are rendered as --data-binary @-.
func WithGenerateCurl(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.GenerateCurl = enabled
	}
}

// WithRequestInterceptor adds an interceptor that runs on every outgoing
// request, after default, body and request headers have been merged.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithRequestInterceptor(httpclient.AuthBearerInterceptor(token)),
//	)
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors.AddRequestInterceptor(i)
	}
}

// WithResponseInterceptor adds an interceptor that runs on every response
// before it is returned. An interceptor error fails the call.
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors.AddResponseInterceptor(i)
	}
}

// WithRateLimit enables client-side rate limiting.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithRateLimit(httpclient.DefaultRateLimitConfig()),
//	)
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = rl
	}
}

// WithTransport replaces the default transport built from Config. The
// given transport is still wrapped with tracing, metrics and rate limiting.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = rt
	}
}

// WithMockTransport routes every request to mock.
//
// Example:
//
//	mock := httpclient.NewMockTransport().StubResponse(200, "ok")
//	client := httpclient.New(httpclient.WithMockTransport(mock))
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}

// WithTLSConfig sets a custom TLS configuration, e.g. for client
// certificates.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL sets a specific proxy URL for all requests, taking
// precedence over environment variables.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
	}
}
