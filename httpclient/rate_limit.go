package httpclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-level rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained request rate.
	// Zero or negative disables rate limiting.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed in a burst.
	Burst int

	// WaitOnLimit determines behavior when rate limit is hit.
	// If true, requests wait for a token (respecting context deadline).
	// If false, requests immediately return ErrRateLimited.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 10 requests per second with a burst of 5,
// waiting for a token when the limit is hit.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// RateLimitBehavior specifies how to handle rate limit exceeded.
type RateLimitBehavior int

const (
	// RateLimitWait waits for a token to become available (default).
	RateLimitWait RateLimitBehavior = iota
	// RateLimitFailFast immediately returns ErrRateLimited.
	RateLimitFailFast
)

// NewRateLimitConfig creates a rate limit config with the given behavior.
func NewRateLimitConfig(rps float64, burst int, behavior RateLimitBehavior) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: rps,
		Burst:             burst,
		WaitOnLimit:       behavior == RateLimitWait,
	}
}

// ErrRateLimited is returned when a request is rejected due to rate limiting.
var ErrRateLimited = errors.New("httpclient: rate limit exceeded")

// rateLimitTransport implements http.RoundTripper with rate limiting.
//
// The token is taken before the request body starts streaming, so a rejected
// request never opens its body source.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

// newRateLimitTransport creates a rate-limited transport wrapper.
func newRateLimitTransport(next http.RoundTripper, cfg RateLimitConfig) http.RoundTripper {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		wait:    cfg.WaitOnLimit,
	}
}

func (t *rateLimitTransport) Unwrap() http.RoundTripper { return t.next }

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.acquire(req.Context()); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	return t.next.RoundTrip(req)
}

func (t *rateLimitTransport) acquire(ctx context.Context) error {
	if !t.wait {
		if !t.limiter.Allow() {
			return ErrRateLimited
		}
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		// Wait fails without a context error when the deadline is closer
		// than the next token
		return ErrRateLimited
	}
	return nil
}
