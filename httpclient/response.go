package httpclient

import (
	"io"
	"net/http"
	"sync/atomic"
)

// RawResponse is what an HTTPClient returns: status, headers and the
// unread body stream.
//
// Header keeps every value the server sent, in the order it sent them;
// repeated headers appear as multiple values under one key.
//
// The caller owns Body and must close it. Execute does this automatically.
type RawResponse struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int

	// Status is the status line text, e.g. "200 OK".
	Status string

	// Header holds the response headers.
	Header http.Header

	// Body streams the response payload. Never nil for responses returned
	// by Client; it is http.NoBody when the server sent nothing.
	Body io.ReadCloser

	// request is the Request that produced this response.
	request *Request

	// bytesSent is updated by the body writer as the request body streams.
	bytesSent *atomic.Int64

	// curlCommand is populated when WithGenerateCurl(true) is set.
	curlCommand string

	// defaultCharset is the producing client's WithDefaultCharset.
	defaultCharset Charset
}

// Request returns the Request that produced this response.
func (r *RawResponse) Request() *Request {
	return r.request
}

// BytesSent returns the number of request body bytes written so far. Once
// the body write has finished it is the final size.
func (r *RawResponse) BytesSent() int64 {
	if r.bytesSent == nil {
		return 0
	}
	return r.bytesSent.Load()
}

// DefaultCharset returns the charset the producing client assumes for
// bodies that declare none. It is UTF8 unless the client was created with
// WithDefaultCharset.
func (r *RawResponse) DefaultCharset() Charset {
	if r.defaultCharset.isZero() {
		return UTF8
	}
	return r.defaultCharset
}

// CurlCommand returns the cURL command equivalent for this request.
//
// This is only populated if WithGenerateCurl(true) was set on the client.
func (r *RawResponse) CurlCommand() string {
	return r.curlCommand
}

// IsSuccess returns true if the response status code is 2xx.
func (r *RawResponse) IsSuccess() bool {
	return isSuccess(r.StatusCode)
}

// IsError returns true if the response status code is 4xx or 5xx.
func (r *RawResponse) IsError() bool {
	return isError(r.StatusCode)
}

// Response is a parsed response.
//
// Example:
//
//	resp, err := httpclient.Execute(ctx, req, client, httpclient.StringParser{})
//	if err != nil {
//	    return err
//	}
//	if resp.IsError() {
//	    return fmt.Errorf("upload rejected: %d %s", resp.StatusCode, resp.Value)
//	}
type Response[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// MediaType is the parsed Content-Type of the response.
	MediaType MediaType

	// Value is what the ResponseParser produced.
	Value T

	raw *RawResponse
}

// Raw returns the underlying RawResponse. Its body has already been closed.
func (r *Response[T]) Raw() *RawResponse {
	return r.raw
}

// IsSuccess returns true if the response status code is 2xx.
func (r *Response[T]) IsSuccess() bool {
	return isSuccess(r.StatusCode)
}

// IsError returns true if the response status code is 4xx or 5xx.
func (r *Response[T]) IsError() bool {
	return isError(r.StatusCode)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func isError(code int) bool {
	return code >= 400
}
