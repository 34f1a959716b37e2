package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClient executes a Request and returns the raw response.
//
// Implementations stream the request body, pass transport failures through
// unchanged, and report body source failures as *BodyError. The caller owns
// the returned RawResponse.Body.
type HTTPClient interface {
	Execute(ctx context.Context, req *Request) (*RawResponse, error)
}

// Compile-time interface check.
var _ HTTPClient = (*Client)(nil)

// Client is an HTTPClient backed by net/http, with OpenTelemetry
// instrumentation, debug logging and optional rate limiting.
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("report-uploader"),
//	    httpclient.WithUserAgent("courier/1.0"),
//	)
//
//	api, _ := httpclient.ParseEndpoint("https://api.example.com/v1")
//	reports, _ := api.Resolve("reports")
//
//	resp, err := httpclient.ExecuteBuilder(ctx,
//	    reports.Post().
//	        FormField("title", "Q4 Report").
//	        File("document", "/path/to/report.pdf"),
//	    client,
//	    httpclient.StringParser{},
//	)
//
// A Client is safe for concurrent use; its configuration is read-only after
// construction.
type Client struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// config holds all client configuration.
	config *internalConfig

	// defaultHeaders are applied to all requests. Never mutated.
	defaultHeaders http.Header

	// defaultCharset is assumed for responses without a charset.
	defaultCharset Charset

	// logger receives debug output and body failure warnings.
	logger zerolog.Logger

	// debug enables request/response logging.
	debug bool

	// generateCurl enables cURL command generation.
	generateCurl bool

	// interceptors run on every outgoing request and incoming response.
	interceptors *InterceptorChain
}

// New creates a Client with production-ready defaults and OpenTelemetry
// instrumentation.
//
// The transport chain, outermost first, is: tracing and metrics, rate
// limiting (when configured), then the base transport.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithConfig(httpclient.UploadConfig()),
//	    httpclient.WithDefaultHeader("X-Tenant", tenant),
//	    httpclient.WithDebug(true),
//	)
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	limited := newRateLimitTransport(cfg.baseTransport(), cfg.RateLimit)
	instrumented := newOtelTransport(limited, cfg)

	httpClient := &http.Client{
		Transport: instrumented,
		Timeout:   cfg.httpConfig.Timeout,
	}

	return &Client{
		httpClient:     httpClient,
		config:         cfg,
		defaultHeaders: cfg.DefaultHeaders.Clone(),
		defaultCharset: cfg.DefaultCharset,
		logger:         cfg.Logger,
		debug:          cfg.Debug,
		generateCurl:   cfg.GenerateCurl,
		interceptors:   cfg.Interceptors,
	}
}

// NewWithTransport creates a Client using a custom base transport
// with OpenTelemetry instrumentation wrapped around it.
//
// Example:
//
//	transport := &http.Transport{
//	    MaxIdleConnsPerHost: 50,
//	}
//	client := httpclient.NewWithTransport(transport,
//	    httpclient.WithServiceName("my-service"),
//	)
func NewWithTransport(base http.RoundTripper, opts ...Option) *Client {
	return New(append(opts, WithTransport(base))...)
}

// NewTransport creates an instrumented http.RoundTripper that can be used
// with a custom http.Client.
//
// Example:
//
//	transport := httpclient.NewTransport(http.DefaultTransport,
//	    httpclient.WithServiceName("my-service"),
//	)
//	client := &http.Client{Transport: transport}
func NewTransport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	return newOtelTransport(base, cfg)
}

// HTTP returns the underlying *http.Client for advanced use cases.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// DefaultHeaders returns a copy of the headers sent with every request.
func (c *Client) DefaultHeaders() http.Header {
	return c.defaultHeaders.Clone()
}

// DefaultCharset returns the charset assumed for responses without one.
func (c *Client) DefaultCharset() Charset {
	return c.defaultCharset
}

// Execute sends req and returns the raw response. The caller must close
// RawResponse.Body.
//
// The request body is streamed with chunked transfer encoding: it is
// written into a pipe by a separate goroutine while the transport reads
// from the other end. If the transport fails, Execute waits for that
// goroutine; when the body source itself failed, the *BodyError is
// returned instead of the transport error it caused. After a timeout or a
// cancelled ctx it does not wait: the transport error is returned and the
// goroutine exits once its source returns.
func (c *Client) Execute(ctx context.Context, req *Request) (*RawResponse, error) {
	if req == nil || req.endpoint.u == nil {
		return nil, ErrMalformedEndpoint
	}

	httpReq, err := http.NewRequestWithContext(
		withOperation(ctx, req.operation),
		req.method,
		req.endpoint.String(),
		nil,
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header = c.mergeHeaders(req)

	sent := new(atomic.Int64)
	var pipe *bodyPipe
	if req.body != nil {
		pipe = newBodyPipe(req.body, sent, c.bodyDone(ctx, req.body))
		httpReq.Body = pipe
		httpReq.ContentLength = -1
	}

	if err := c.interceptors.ApplyRequestInterceptors(httpReq); err != nil {
		if pipe != nil {
			pipe.Close()
		}
		return nil, err
	}

	if c.debug {
		logRequest(c.logger, httpReq, req)
	}

	start := time.Now()

	// The caller is responsible for closing the response body.
	//nolint:bodyclose // Caller closes via RawResponse
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A source stalled in Read cannot be interrupted, so the writer is
		// not joined once the call timed out or was cancelled.
		stop := ctx.Done()
		switch classifyError(err) {
		case ErrorTypeTimeout, ErrorTypeCancelled:
			stop = closedStop
		}
		if berr := c.bodyFailure(pipe, true, stop); berr != nil {
			logBodyFailure(c.logger, httpReq, berr, sent.Load())
			return nil, berr
		}
		return nil, err
	}

	if c.debug {
		logResponse(c.logger, httpResp, time.Since(start), sent.Load())
	}

	if err := c.interceptors.ApplyResponseInterceptors(httpResp, httpReq); err != nil {
		httpResp.Body.Close()
		if pipe != nil {
			pipe.Close()
		}
		return nil, err
	}

	body := httpResp.Body
	if body == nil {
		body = http.NoBody
	}

	if pipe != nil {
		// The server may answer before the body write is over. A write that
		// already failed still fails the call; otherwise the pipe is
		// released, and the writer joined, when the response body closes.
		if berr := c.bodyFailure(pipe, false, nil); berr != nil {
			body.Close()
			logBodyFailure(c.logger, httpReq, berr, sent.Load())
			return nil, berr
		}
		body = &closeHook{ReadCloser: body, fn: func() {
			pipe.Close()
			_ = pipe.waitUntil(ctx.Done())
		}}
	}

	raw := &RawResponse{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       body,
		request:    req,
		bytesSent:  sent,

		defaultCharset: c.defaultCharset,
	}

	if c.generateCurl {
		raw.curlCommand = generateCurlCommand(httpReq, req.body)
	}

	return raw, nil
}

// mergeHeaders applies, in increasing precedence: client default headers,
// the body's Content-Type, then the request's own headers.
func (c *Client) mergeHeaders(req *Request) http.Header {
	h := c.defaultHeaders.Clone()
	if h == nil {
		h = make(http.Header)
	}

	if req.body != nil {
		if ct := req.body.ContentType(); ct != "" {
			h.Set("Content-Type", ct)
		}
	}

	for k, vs := range req.header {
		h[k] = append([]string(nil), vs...)
	}

	return h
}

// bodyDone returns the callback run when a request body finishes streaming.
func (c *Client) bodyDone(ctx context.Context, body RequestBody) func(n int64, err error) {
	return func(n int64, err error) {
		attrs := c.config.baseAttributes()
		c.config.Metrics.recordRequestBodySize(ctx, n, attrs)
		if mp, ok := body.(*MultipartBody); ok && err == nil {
			c.config.Metrics.recordMultipartParts(ctx, mp, attrs)
		}
	}
}

// closedStop makes a join give up at once.
var closedStop = func() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// bodyFailure reports the body writer's error, unless the writer only
// stopped because the transport closed the pipe. With join set it closes
// the pipe and waits for the writer until stop is closed; otherwise it only
// looks at a finished one.
func (c *Client) bodyFailure(pipe *bodyPipe, join bool, stop <-chan struct{}) error {
	if pipe == nil {
		return nil
	}

	var err error
	if join {
		pipe.Close()
		err = pipe.waitUntil(stop)
	} else {
		select {
		case <-pipe.done:
			err = pipe.err
		default:
			return nil
		}
	}

	if err == nil || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

// bodyPipe is the http.Request body for a streamed RequestBody.
//
// The writer goroutine starts on the first Read, so a request the transport
// rejects up front never opens its body source.
type bodyPipe struct {
	body   RequestBody
	pr     *io.PipeReader
	pw     *io.PipeWriter
	sent   *atomic.Int64
	onDone func(n int64, err error)

	start sync.Once
	done  chan struct{}

	// err is the writer's result, valid once done is closed.
	err error
}

func newBodyPipe(body RequestBody, sent *atomic.Int64, onDone func(int64, error)) *bodyPipe {
	pr, pw := io.Pipe()
	return &bodyPipe{
		body:   body,
		pr:     pr,
		pw:     pw,
		sent:   sent,
		onDone: onDone,
		done:   make(chan struct{}),
	}
}

func (p *bodyPipe) Read(b []byte) (int, error) {
	p.start.Do(p.run)
	return p.pr.Read(b)
}

// Close releases the reading side. A writer that has not started never
// will; a running one fails its next write with io.ErrClosedPipe.
func (p *bodyPipe) Close() error {
	p.start.Do(func() { close(p.done) })
	return p.pr.Close()
}

func (p *bodyPipe) run() {
	go func() {
		defer close(p.done)

		n, err := p.body.WriteTo(&atomicCountingWriter{w: p.pw, n: p.sent})
		p.err = err
		p.pw.CloseWithError(err)

		if p.onDone != nil {
			p.onDone(n, err)
		}
	}()
}

// waitUntil blocks until the writer has finished, Close ran before it ever
// started, or stop is closed. A writer still running when stop fires is left
// to exit once its source returns; the result is then nil.
func (p *bodyPipe) waitUntil(stop <-chan struct{}) error {
	select {
	case <-p.done:
		return p.err
	default:
	}

	select {
	case <-p.done:
		return p.err
	case <-stop:
		return nil
	}
}

// atomicCountingWriter counts bytes written so they can be read while the
// write is still in progress.
type atomicCountingWriter struct {
	w io.Writer
	n *atomic.Int64
}

func (c *atomicCountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}
