package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

// Common content types.
const (
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypeJSON        = "application/json"
	ContentTypeText        = "text/plain"
	ContentTypeForm        = "application/x-www-form-urlencoded"
	ContentTypeMultipart   = "multipart/form-data"
)

// RequestBody is anything that can declare a content type and stream its
// bytes into a sink.
//
// RequestBody carries no length: the client sends it with chunked transfer
// encoding. WriteTo is called at most once per request execution.
type RequestBody interface {
	// ContentType is sent as the request's Content-Type header.
	ContentType() string

	io.WriterTo
}

// StreamOpener opens the byte source of a streaming body.
//
// It is invoked lazily, once per WriteTo, never at construction time.
type StreamOpener func() (io.ReadCloser, error)

// streamingBody is a RequestBody backed by a deferred byte source.
type streamingBody struct {
	contentType string
	open        StreamOpener

	// path is set for file bodies; debug output refers to it.
	path string
}

// NewStreamingBody returns a RequestBody whose bytes come from open.
//
// The source is opened inside WriteTo and always closed before WriteTo
// returns, whether the copy succeeded or not. Failures are reported as
// *BodyError and are never retried.
//
// Example:
//
//	body := httpclient.NewStreamingBody("text/csv", func() (io.ReadCloser, error) {
//	    return exporter.Open(ctx, reportID)
//	})
func NewStreamingBody(contentType string, open StreamOpener) RequestBody {
	return &streamingBody{contentType: contentType, open: open}
}

func (b *streamingBody) ContentType() string {
	return b.contentType
}

func (b *streamingBody) WriteTo(w io.Writer) (n int64, err error) {
	src, err := b.open()
	if err != nil {
		return 0, &BodyError{Op: opOpen, Err: err}
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = &BodyError{Op: opClose, Err: cerr}
		}
	}()

	return copyBody(w, src)
}

// copyBody copies src into w, tagging the failing side of the copy.
func copyBody(w io.Writer, src io.Reader) (int64, error) {
	sw := &sinkWriter{w: w}
	n, err := io.Copy(sw, src)
	if err == nil {
		return n, nil
	}

	var be *BodyError
	if errors.As(err, &be) {
		return n, err
	}
	if sw.err != nil {
		return n, &BodyError{Op: opWrite, Err: sw.err}
	}
	return n, &BodyError{Op: opRead, Err: err}
}

// sinkWriter remembers the sink's error so read and write failures can be
// told apart after io.Copy.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// ReaderBody returns a RequestBody whose bytes come from open, invoked when
// the body is written. It is NewStreamingBody under the name used next to
// the other factories.
//
// Example:
//
//	body := httpclient.ReaderBody("application/x-ndjson", func() (io.ReadCloser, error) {
//	    return os.Open(exportPath)
//	})
func ReaderBody(contentType string, open StreamOpener) RequestBody {
	return NewStreamingBody(contentType, open)
}

// BytesBody returns a RequestBody that writes b.
//
// The slice is not copied; callers must not modify it until the request
// has been executed.
func BytesBody(contentType string, b []byte) RequestBody {
	return newMemoryBody(contentType, b)
}

// memoryBody is a streaming body whose bytes are already in memory, which
// lets the multipart encoder check them for boundary collisions.
type memoryBody struct {
	streamingBody
	data []byte
}

func newMemoryBody(contentType string, b []byte) *memoryBody {
	return &memoryBody{
		streamingBody: streamingBody{contentType: contentType, open: bytesOpener(b)},
		data:          b,
	}
}

func (b *memoryBody) content() []byte {
	return b.data
}

// FileBody returns a RequestBody that streams the file at path.
//
// The file is opened only when the body is written, so a missing file is
// reported by the request execution, not here.
func FileBody(contentType, path string) RequestBody {
	return &streamingBody{contentType: contentType, open: fileOpener(path), path: path}
}

// TextBody encodes text with cs and returns it as a
// text/plain; charset="NAME" body.
func TextBody(text string, cs Charset) (RequestBody, error) {
	return textBody(ContentTypeText, text, cs)
}

func textBody(mediaType, text string, cs Charset) (RequestBody, error) {
	data, err := cs.Encode(text)
	if err != nil {
		return nil, err
	}
	return BytesBody(withCharset(mediaType, cs), data), nil
}

// JSONBody marshals v with goccy/go-json into an application/json body.
//
// Example:
//
//	body, err := httpclient.JSONBody(map[string]string{"name": "John"})
func JSONBody(v any) (RequestBody, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return BytesBody(withCharset(ContentTypeJSON, UTF8), data), nil
}

// FormURLEncodedBody returns an application/x-www-form-urlencoded body.
func FormURLEncodedBody(values url.Values) RequestBody {
	return NewStreamingBody(ContentTypeForm, stringOpener(values.Encode()))
}

// withCharset renders `mediaType; charset="NAME"`.
func withCharset(mediaType string, cs Charset) string {
	return mediaType + `; charset="` + cs.Name() + `"`
}

func bytesOpener(b []byte) StreamOpener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

func fileOpener(path string) StreamOpener {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// stringOpener is used for bodies built from already-encoded text.
func stringOpener(s string) StreamOpener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}
