package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitConfig_Default(t *testing.T) {
	t.Parallel()

	cfg := DefaultRateLimitConfig()

	assert.InDelta(t, float64(10), cfg.RequestsPerSecond, 0.0001)
	assert.Equal(t, 5, cfg.Burst)
	assert.True(t, cfg.WaitOnLimit)
}

func TestNewRateLimitConfig(t *testing.T) {
	t.Parallel()

	assert.True(t, NewRateLimitConfig(5, 1, RateLimitWait).WaitOnLimit)
	assert.False(t, NewRateLimitConfig(5, 1, RateLimitFailFast).WaitOnLimit)
}

func TestNewRateLimitTransport_Disabled(t *testing.T) {
	t.Parallel()

	base := NewMockTransport()
	rt := newRateLimitTransport(base, RateLimitConfig{})

	assert.Same(t, base, rt)
}

func TestRateLimitTransport_AllowsWithinLimit(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := quietClient(
		WithMockTransport(mock),
		WithRateLimit(RateLimitConfig{RequestsPerSecond: 100, Burst: 10, WaitOnLimit: true}),
	)

	for i := 0; i < 5; i++ {
		raw, err := mustEndpoint(t, "http://localhost/test").Get().Send(context.Background(), client)
		require.NoError(t, err)
		raw.Body.Close()
	}

	assert.Equal(t, 5, mock.RequestCount())
}

func TestRateLimitTransport_FailFast(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := quietClient(
		WithMockTransport(mock),
		WithRateLimit(NewRateLimitConfig(0.001, 1, RateLimitFailFast)),
	)
	e := mustEndpoint(t, "http://localhost/upload")

	raw, err := e.Post().Text("first").Send(context.Background(), client)
	require.NoError(t, err)
	raw.Body.Close()

	opened := false
	_, err = e.Post().
		Body(NewStreamingBody("text/plain", func() (io.ReadCloser, error) {
			opened = true
			return io.NopCloser(strings.NewReader("second")), nil
		})).
		Send(context.Background(), client)

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, opened, "a rejected request must not open its body")
	assert.Equal(t, 1, mock.RequestCount())
}

func TestRateLimitTransport_WaitMode(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := quietClient(
		WithMockTransport(mock),
		WithRateLimit(RateLimitConfig{RequestsPerSecond: 20, Burst: 1, WaitOnLimit: true}),
	)

	start := time.Now()
	for i := 0; i < 3; i++ {
		raw, err := mustEndpoint(t, "http://localhost").Get().Send(context.Background(), client)
		require.NoError(t, err)
		raw.Body.Close()
	}

	// Two waits of ~50ms each after the first token
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, mock.RequestCount())
}

func TestRateLimit_ContextCancellation(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := quietClient(
		WithMockTransport(mock),
		WithRateLimit(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, WaitOnLimit: true}),
	)
	e := mustEndpoint(t, "http://localhost")

	raw, err := e.Get().Send(context.Background(), client)
	require.NoError(t, err)
	raw.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = e.Get().Send(ctx, client)
	assert.Error(t, err)
	assert.Equal(t, 1, mock.RequestCount())
}
