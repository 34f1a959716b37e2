package httpclient

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
)

// RequestBuilder provides a fluent API for constructing a Request against an
// Endpoint.
//
// Create a RequestBuilder from an Endpoint:
//
//	resp, err := httpclient.ExecuteBuilder(ctx,
//	    endpoint.Post().
//	        Header("Idempotency-Key", key).
//	        FormField("title", "Q4 Report").
//	        File("document", "/path/to/report.pdf"),
//	    client,
//	    httpclient.VoidParser{},
//	)
//
// Errors raised while building (unsupported charset, JSON marshal failure,
// a body on a GET) are remembered and returned by Build, so the chain never
// has to be broken up for error checks.
type RequestBuilder struct {
	endpoint  Endpoint
	method    string
	operation string
	header    http.Header
	query     url.Values
	body      RequestBody
	parts     []FormDataParameter
	charset   Charset
	err       error
}

func newRequestBuilder(e Endpoint, method string) *RequestBuilder {
	return &RequestBuilder{
		endpoint: e,
		method:   strings.ToUpper(method),
		header:   make(http.Header),
		charset:  UTF8,
	}
}

// permitsBody reports whether requests with method may carry a body.
func permitsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func (rb *RequestBuilder) fail(err error) *RequestBuilder {
	if rb.err == nil {
		rb.err = err
	}
	return rb
}

// Operation names the request for spans and debug logs
// (e.g. "HTTP POST UploadReport").
func (rb *RequestBuilder) Operation(name string) *RequestBuilder {
	rb.operation = name
	return rb
}

// Charset sets the charset used by Text and FormField.
// Default: UTF8.
func (rb *RequestBuilder) Charset(cs Charset) *RequestBuilder {
	rb.charset = cs
	return rb
}

// Header sets a request header, replacing any previous value.
//
// Request headers take precedence over the client's default headers and
// over the Content-Type derived from the body.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.header.Set(key, value)
	return rb
}

// AddHeader appends a value to a request header.
func (rb *RequestBuilder) AddHeader(key, value string) *RequestBuilder {
	rb.header.Add(key, value)
	return rb
}

// Headers sets multiple request headers.
func (rb *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	for k, v := range headers {
		rb.header.Set(k, v)
	}
	return rb
}

// Query adds a query parameter. When any is added, the endpoint's own query
// string is merged with them and re-encoded.
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	if rb.query == nil {
		rb.query = make(url.Values)
	}
	rb.query.Add(key, value)
	return rb
}

// Body sets the request body.
func (rb *RequestBuilder) Body(body RequestBody) *RequestBuilder {
	if !permitsBody(rb.method) {
		return rb.fail(ErrBodyNotAllowed)
	}
	rb.body = body
	return rb
}

// Text sets a text/plain body encoded with the builder's charset.
func (rb *RequestBuilder) Text(text string) *RequestBuilder {
	body, err := TextBody(text, rb.charset)
	if err != nil {
		return rb.fail(err)
	}
	return rb.Body(body)
}

// JSON sets a JSON body marshaled with goccy/go-json.
//
// Example:
//
//	endpoint.Post().JSON(user)
func (rb *RequestBuilder) JSON(v any) *RequestBuilder {
	body, err := JSONBody(v)
	if err != nil {
		return rb.fail(err)
	}
	return rb.Body(body)
}

// XML sets an application/xml body.
func (rb *RequestBuilder) XML(v any) *RequestBuilder {
	data, err := xml.Marshal(v)
	if err != nil {
		return rb.fail(err)
	}
	return rb.Body(BytesBody("application/xml", data))
}

// FormURLEncoded sets an application/x-www-form-urlencoded body.
func (rb *RequestBuilder) FormURLEncoded(values url.Values) *RequestBuilder {
	return rb.Body(FormURLEncodedBody(values))
}

// Form appends form-data parts. Any part turns the body into
// multipart/form-data, with parts in the order they were added.
func (rb *RequestBuilder) Form(parts ...FormDataParameter) *RequestBuilder {
	if !permitsBody(rb.method) {
		return rb.fail(ErrBodyNotAllowed)
	}
	rb.parts = append(rb.parts, parts...)
	return rb
}

// FormField appends a text part encoded with the builder's charset.
//
// Example:
//
//	endpoint.Post().
//	    File("document", "/path/to/file.pdf").
//	    FormField("title", "My Document")
func (rb *RequestBuilder) FormField(name, value string) *RequestBuilder {
	part, err := FormText(name, value, rb.charset)
	if err != nil {
		return rb.fail(err)
	}
	return rb.Form(part)
}

// File appends a binary part streaming the file at path. The file is opened
// when the request is executed; a missing file fails the execution.
func (rb *RequestBuilder) File(name, path string) *RequestBuilder {
	return rb.Form(FormFile(name, path))
}

// Build returns the immutable Request, or the first error recorded while
// building.
func (rb *RequestBuilder) Build() (*Request, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	if rb.endpoint.u == nil {
		return nil, ErrMalformedEndpoint
	}

	body := rb.body
	if len(rb.parts) > 0 {
		if body != nil {
			return nil, ErrBodyConflict
		}
		body = NewMultipartBody(rb.parts...)
	}

	endpoint := rb.endpoint
	if len(rb.query) > 0 {
		u := endpoint.URL()
		q := u.Query()
		for k, vs := range rb.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		endpoint = Endpoint{u: u}
	}

	return &Request{
		method:    rb.method,
		endpoint:  endpoint,
		operation: rb.operation,
		header:    rb.header.Clone(),
		body:      body,
	}, nil
}

// Send builds the request and sends it with client.
func (rb *RequestBuilder) Send(ctx context.Context, client HTTPClient) (*RawResponse, error) {
	req, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return req.Send(ctx, client)
}

// Request is an immutable, single-use HTTP request.
//
// A Request holding a streaming body must not be executed twice or
// concurrently; build a new one instead.
type Request struct {
	method    string
	endpoint  Endpoint
	operation string
	header    http.Header
	body      RequestBody
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// Endpoint returns the target endpoint.
func (r *Request) Endpoint() Endpoint { return r.endpoint }

// Operation returns the operation name, if any.
func (r *Request) Operation() string { return r.operation }

// Header returns a copy of the explicit request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// Body returns the request body, or nil.
func (r *Request) Body() RequestBody { return r.body }

// Send executes the request with client and returns the raw response.
// The caller must close RawResponse.Body.
func (r *Request) Send(ctx context.Context, client HTTPClient) (*RawResponse, error) {
	return client.Execute(ctx, r)
}

// Execute sends req with client and decodes the response with parser.
//
// The parser receives the response together with its parsed Content-Type.
// The response body is closed once parsing returns. If parsing fails, the
// returned Response still carries the status and headers.
//
// Example:
//
//	resp, err := httpclient.Execute(ctx, req, client, httpclient.JSONParser[User]{})
//	if err == nil && resp.IsSuccess() {
//	    fmt.Println(resp.Value.Name)
//	}
func Execute[T any](
	ctx context.Context,
	req *Request,
	client HTTPClient,
	parser ResponseParser[T],
) (*Response[T], error) {
	raw, err := req.Send(ctx, client)
	if err != nil {
		return nil, err
	}
	if raw.Body != nil {
		defer raw.Body.Close()
	}

	mt := ParseContentType(raw.Header.Get("Content-Type"))
	value, err := parser.Parse(raw, mt)

	resp := &Response[T]{
		StatusCode: raw.StatusCode,
		Header:     raw.Header,
		MediaType:  mt,
		Value:      value,
		raw:        raw,
	}
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// ExecuteBuilder builds the request from rb and runs Execute.
func ExecuteBuilder[T any](
	ctx context.Context,
	rb *RequestBuilder,
	client HTTPClient,
	parser ResponseParser[T],
) (*Response[T], error) {
	req, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return Execute(ctx, req, client, parser)
}
