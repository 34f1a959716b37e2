package httpclient

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// networkTrace collects connection and upload timings from
// httptrace.ClientTrace. Callbacks fire on transport goroutines; for a
// streamed body WroteRequest fires on the writer side, possibly after the
// response headers arrived.
type networkTrace struct {
	mu sync.Mutex

	dnsStart     time.Time
	dnsDone      time.Time
	dnsAddrs     []string
	connectStart time.Time
	connectDone  time.Time
	tlsStart     time.Time
	tlsDone      time.Time
	tlsProtocol  string

	gotConn      time.Time
	connReused   bool
	connIdle     bool
	connRemote   string
	wroteRequest time.Time
	writeErr     error
	firstByte    time.Time
}

func (nt *networkTrace) set(fn func()) {
	nt.mu.Lock()
	fn()
	nt.mu.Unlock()
}

// clientTrace returns hooks that populate nt.
func (nt *networkTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			nt.set(func() { nt.dnsStart = time.Now() })
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			nt.set(func() {
				nt.dnsDone = time.Now()
				for _, addr := range info.Addrs {
					nt.dnsAddrs = append(nt.dnsAddrs, addr.String())
				}
			})
		},
		ConnectStart: func(_, _ string) {
			nt.set(func() { nt.connectStart = time.Now() })
		},
		ConnectDone: func(_, _ string, _ error) {
			nt.set(func() { nt.connectDone = time.Now() })
		},
		TLSHandshakeStart: func() {
			nt.set(func() { nt.tlsStart = time.Now() })
		},
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			nt.set(func() {
				nt.tlsDone = time.Now()
				nt.tlsProtocol = state.NegotiatedProtocol
			})
		},
		GotConn: func(info httptrace.GotConnInfo) {
			nt.set(func() {
				nt.gotConn = time.Now()
				nt.connReused = info.Reused
				nt.connIdle = info.WasIdle
				if info.Conn != nil {
					if addr := info.Conn.RemoteAddr(); addr != nil {
						nt.connRemote = addr.String()
					}
				}
			})
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			nt.set(func() {
				nt.wroteRequest = time.Now()
				nt.writeErr = info.Err
			})
		},
		GotFirstResponseByte: func() {
			nt.set(func() { nt.firstByte = time.Now() })
		},
	}
}

func millis(from, to time.Time) float64 {
	return float64(to.Sub(from).Microseconds()) / 1000
}

// addEvents records the collected phases as span events.
//
// wrote_request carries the upload time: from acquiring the connection until
// the last body byte was handed to it.
func (nt *networkTrace) addEvents(span trace.Span) {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	if !nt.dnsStart.IsZero() && !nt.dnsDone.IsZero() {
		span.AddEvent("dns.done", trace.WithTimestamp(nt.dnsDone),
			trace.WithAttributes(
				attribute.Float64("dns.duration_ms", millis(nt.dnsStart, nt.dnsDone)),
				attribute.StringSlice("dns.addresses", nt.dnsAddrs),
			))
	}

	if !nt.connectStart.IsZero() && !nt.connectDone.IsZero() {
		span.AddEvent("connect.done", trace.WithTimestamp(nt.connectDone),
			trace.WithAttributes(
				attribute.Float64("connect.duration_ms", millis(nt.connectStart, nt.connectDone)),
			))
	}

	if !nt.tlsStart.IsZero() && !nt.tlsDone.IsZero() {
		span.AddEvent("tls.done", trace.WithTimestamp(nt.tlsDone),
			trace.WithAttributes(
				attribute.Float64("tls.duration_ms", millis(nt.tlsStart, nt.tlsDone)),
				attribute.String("tls.protocol", nt.tlsProtocol),
			))
	}

	if !nt.gotConn.IsZero() {
		span.AddEvent("got_conn", trace.WithTimestamp(nt.gotConn),
			trace.WithAttributes(
				attribute.Bool("connection.reused", nt.connReused),
				attribute.Bool("connection.was_idle", nt.connIdle),
				attribute.String("network.peer.address", nt.connRemote),
			))
	}

	if !nt.wroteRequest.IsZero() {
		attrs := make([]attribute.KeyValue, 0, 2)
		if !nt.gotConn.IsZero() {
			attrs = append(attrs, attribute.Float64("upload.duration_ms", millis(nt.gotConn, nt.wroteRequest)))
		}
		if nt.writeErr != nil {
			attrs = append(attrs, attribute.String("upload.error", nt.writeErr.Error()))
		}
		span.AddEvent("wrote_request", trace.WithTimestamp(nt.wroteRequest), trace.WithAttributes(attrs...))
	}

	if !nt.firstByte.IsZero() {
		var ttfb float64
		if !nt.wroteRequest.IsZero() && nt.firstByte.After(nt.wroteRequest) {
			ttfb = millis(nt.wroteRequest, nt.firstByte)
		}
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstByte),
			trace.WithAttributes(attribute.Float64("ttfb_ms", ttfb)))
	}
}
