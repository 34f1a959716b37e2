package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// URL schemes accepted by Endpoint.
const (
	HTTP  = "http"
	HTTPS = "https"
)

// Endpoint is an immutable base URL that requests are built against.
//
// Resolve returns a new Endpoint with extra path segments; the receiver is
// never modified, so a single Endpoint can be shared freely.
//
// Example:
//
//	api, err := httpclient.ForHost(httpclient.HTTPS, "api.example.com")
//	users, err := api.Resolve("v1", "users", userID)
//	resp, err := users.Get().Send(ctx, client)
type Endpoint struct {
	u *url.URL
}

// ParseEndpoint parses an absolute http or https URL.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrMalformedEndpoint, err)
	}
	if err := validateURL(u); err != nil {
		return Endpoint{}, err
	}
	return Endpoint{u: u}, nil
}

// ForHost returns the root Endpoint of host for the given scheme.
func ForHost(scheme, host string) (Endpoint, error) {
	u := &url.URL{Scheme: scheme, Host: host, Path: "/"}
	if err := validateURL(u); err != nil {
		return Endpoint{}, err
	}
	return Endpoint{u: u}, nil
}

// ForHostAndPort returns the root Endpoint of host:port for the given scheme.
func ForHostAndPort(scheme, host string, port int) (Endpoint, error) {
	if port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: port %d out of range", ErrMalformedEndpoint, port)
	}
	return ForHost(scheme, host+":"+strconv.Itoa(port))
}

func validateURL(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case HTTP, HTTPS:
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrMalformedEndpoint, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedEndpoint)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("%w: invalid port %q", ErrMalformedEndpoint, p)
		}
	}
	return nil
}

// URL returns a copy of the endpoint URL.
func (e Endpoint) URL() *url.URL {
	if e.u == nil {
		return &url.URL{}
	}
	u := *e.u
	return &u
}

// String returns the endpoint URL.
func (e Endpoint) String() string {
	if e.u == nil {
		return ""
	}
	return e.u.String()
}

// Resolve appends UTF-8 encoded path segments. See ResolveWithCharset.
func (e Endpoint) Resolve(segments ...string) (Endpoint, error) {
	return e.ResolveWithCharset(UTF8, segments...)
}

// ResolveWithCharset returns a new Endpoint with segments appended to the
// path. Each segment is encoded with cs and percent-escaped on its own, so
// "/" or "?" inside a segment never changes the URL structure. The existing
// query string is carried over unchanged.
//
// Example:
//
//	e, _ := httpclient.ParseEndpoint("http://localhost/api?key=1")
//	e, _ = e.Resolve("a", "b c")
//	// http://localhost/api/a/b%20c?key=1
func (e Endpoint) ResolveWithCharset(cs Charset, segments ...string) (Endpoint, error) {
	if e.u == nil {
		return Endpoint{}, fmt.Errorf("%w: empty endpoint", ErrMalformedEndpoint)
	}
	if len(segments) == 0 {
		return Endpoint{u: e.URL()}, nil
	}

	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		b, err := cs.Encode(segment)
		if err != nil {
			return Endpoint{}, err
		}
		escaped = append(escaped, url.PathEscape(string(b)))
	}

	rawPath := strings.TrimSuffix(e.u.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")

	u := *e.u
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrMalformedEndpoint, err)
	}
	u.Path = path
	u.RawPath = rawPath
	return Endpoint{u: &u}, nil
}

// Request starts a request with the given method against this endpoint.
func (e Endpoint) Request(method string) *RequestBuilder {
	return newRequestBuilder(e, method)
}

// Get starts a GET request.
func (e Endpoint) Get() *RequestBuilder { return e.Request(http.MethodGet) }

// Head starts a HEAD request.
func (e Endpoint) Head() *RequestBuilder { return e.Request(http.MethodHead) }

// Post starts a POST request.
func (e Endpoint) Post() *RequestBuilder { return e.Request(http.MethodPost) }

// Put starts a PUT request.
func (e Endpoint) Put() *RequestBuilder { return e.Request(http.MethodPut) }

// Patch starts a PATCH request.
func (e Endpoint) Patch() *RequestBuilder { return e.Request(http.MethodPatch) }

// Delete starts a DELETE request.
func (e Endpoint) Delete() *RequestBuilder { return e.Request(http.MethodDelete) }

// Options starts an OPTIONS request.
func (e Endpoint) Options() *RequestBuilder { return e.Request(http.MethodOptions) }
