package httpclient

import (
	"io"
	"sync/atomic"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// wrappedBody wraps a response body to count the bytes read, record read
// errors on the span, and end the span on EOF or Close.
type wrappedBody struct {
	span   trace.Span
	body   io.ReadCloser
	read   atomic.Int64
	closed atomic.Bool

	// onClose is called once with the total bytes read
	onClose func(bytesRead int64)
}

// newWrappedBody returns body wrapped so that span ends when the body is
// fully read or closed.
func newWrappedBody(
	span trace.Span,
	body io.ReadCloser,
	onClose func(bytesRead int64),
) io.ReadCloser {
	return &wrappedBody{
		span:    span,
		body:    body,
		onClose: onClose,
	}
}

func (w *wrappedBody) Read(p []byte) (int, error) {
	n, err := w.body.Read(p)
	w.read.Add(int64(n))

	switch err {
	case nil:
	case io.EOF:
		w.endSpan()
	default:
		w.span.RecordError(err)
		w.span.SetStatus(codes.Error, err.Error())
	}

	return n, err
}

func (w *wrappedBody) Close() error {
	w.endSpan()
	return w.body.Close()
}

// endSpan ends the span exactly once; Close may follow EOF.
func (w *wrappedBody) endSpan() {
	if w.closed.CompareAndSwap(false, true) {
		if w.onClose != nil {
			w.onClose(w.read.Load())
		}
		w.span.End()
	}
}

// closeHook runs fn once after the wrapped body is closed.
type closeHook struct {
	io.ReadCloser
	once atomic.Bool
	fn   func()
}

func (c *closeHook) Close() error {
	err := c.ReadCloser.Close()
	if c.once.CompareAndSwap(false, true) {
		c.fn()
	}
	return err
}
