package httpclient

import (
	"net/http"
	"time"
)

// PoolStats is a snapshot of the connection and buffer settings of the
// client's base *http.Transport.
//
// Example:
//
//	client := httpclient.New(httpclient.WithConfig(httpclient.UploadConfig()))
//	stats := client.PoolStats()
//	fmt.Printf("write buffer: %d\n", stats.WriteBufferSize)
type PoolStats struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DisableKeepAlives   bool

	// WriteBufferSize bounds each flush of a streamed request body.
	WriteBufferSize int
	ReadBufferSize  int

	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration
}

// PoolStats returns the settings of the base transport. It returns the zero
// value when the base is not an *http.Transport, e.g. with WithMockTransport
// or a custom WithTransport.
func (c *Client) PoolStats() PoolStats {
	if c.httpClient == nil {
		return PoolStats{}
	}

	transport := unwrapTransport(c.httpClient.Transport)
	if transport == nil {
		return PoolStats{}
	}

	return PoolStats{
		MaxIdleConns:          transport.MaxIdleConns,
		MaxIdleConnsPerHost:   transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:       transport.MaxConnsPerHost,
		IdleConnTimeout:       transport.IdleConnTimeout,
		DisableKeepAlives:     transport.DisableKeepAlives,
		WriteBufferSize:       transport.WriteBufferSize,
		ReadBufferSize:        transport.ReadBufferSize,
		ResponseHeaderTimeout: transport.ResponseHeaderTimeout,
		ExpectContinueTimeout: transport.ExpectContinueTimeout,
	}
}

// unwrapTransport follows Unwrap through the instrumentation and rate limit
// wrappers down to the base *http.Transport.
func unwrapTransport(rt http.RoundTripper) *http.Transport {
	for rt != nil {
		switch t := rt.(type) {
		case *http.Transport:
			return t
		case interface{ Unwrap() http.RoundTripper }:
			rt = t.Unwrap()
		default:
			return nil
		}
	}
	return nil
}
