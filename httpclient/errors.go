package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedEndpoint is returned when an Endpoint cannot be built from
	// the given scheme, host, port or raw URL.
	ErrMalformedEndpoint = errors.New("httpclient: malformed endpoint")

	// ErrEncoding is matched by every *EncodingError.
	ErrEncoding = errors.New("httpclient: encoding error")

	// ErrIO is matched by every *BodyError.
	ErrIO = errors.New("httpclient: body i/o error")

	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("httpclient: response parse error")

	// ErrBodyNotAllowed is returned by RequestBuilder.Build when a body was
	// set on a method that does not carry one (GET, HEAD, DELETE, OPTIONS).
	ErrBodyNotAllowed = errors.New("httpclient: request method does not permit a body")

	// ErrBodyConflict is returned by RequestBuilder.Build when both a body
	// and form-data parts were set.
	ErrBodyConflict = errors.New("httpclient: request has both a body and form-data parts")
)

// EncodingError reports a charset that is unknown, unsupported, or unable to
// represent the given text.
type EncodingError struct {
	Charset string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("httpclient: unsupported charset %q", e.Charset)
	}
	return fmt.Sprintf("httpclient: charset %q: %v", e.Charset, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// BodyError reports a failure while streaming a request body: the byte
// source could not be opened or read, or the sink rejected a write.
//
// Part is set when the failure happened inside a multipart body.
type BodyError struct {
	Op   string
	Part string
	Err  error
}

func (e *BodyError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("httpclient: %s body part %q: %v", e.Op, e.Part, e.Err)
	}
	return fmt.Sprintf("httpclient: %s body: %v", e.Op, e.Err)
}

func (e *BodyError) Unwrap() error { return e.Err }

func (e *BodyError) Is(target error) bool { return target == ErrIO }

// ParseError reports a response body that a ResponseParser could not decode.
type ParseError struct {
	MediaType string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("httpclient: parse %q response: %v", e.MediaType, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Body operations reported in BodyError.Op.
const (
	opOpen  = "open"
	opRead  = "read"
	opWrite = "write"
	opClose = "close"
)
