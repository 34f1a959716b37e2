// Package httpclient provides a streaming HTTP client for form uploads and
// plain request/response exchanges, with OpenTelemetry instrumentation.
//
// # Features
//
//   - Immutable endpoints with per-segment, charset-aware path encoding
//   - Fluent request builder with deferred error reporting
//   - Request bodies streamed with chunked transfer encoding, never buffered
//   - multipart/form-data with file, byte, reader, text and JSON parts
//   - Explicit charsets everywhere (IANA names via golang.org/x/text)
//   - Pluggable response parsers: void, bytes, string, JSON, XML, gjson path
//   - OpenTelemetry tracing and metrics, zerolog debug logging, cURL output
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("report-uploader"),
//	)
//
//	api, err := httpclient.ParseEndpoint("https://api.example.com/v1")
//	if err != nil {
//	    return err
//	}
//	reports, err := api.Resolve("teams", team, "reports")
//	if err != nil {
//	    return err
//	}
//
//	resp, err := httpclient.ExecuteBuilder(ctx,
//	    reports.Post().
//	        Operation("UploadReport").
//	        FormField("title", "Q4 Report").
//	        File("document", "/path/to/report.pdf"),
//	    client,
//	    httpclient.JSONParser[Report]{},
//	)
//
// # Request Bodies
//
// A RequestBody declares its Content-Type and writes itself into a sink.
// Streaming bodies open their source only when written and always close it
// afterwards:
//
//	body := httpclient.NewStreamingBody("text/csv", func() (io.ReadCloser, error) {
//	    return os.Open(exportPath)
//	})
//
// Multipart bodies are built from FormDataParameters. Binary parts carry a
// filename attribute; text and JSON parts do not:
//
//	title, _ := httpclient.FormText("title", "Q4 Report", httpclient.UTF8)
//	body := httpclient.NewMultipartBody(
//	    title,
//	    httpclient.FormBytes("thumbnail", "image/png", png),
//	)
//
// # Header Precedence
//
// From lowest to highest: client default headers (WithDefaultHeader), the
// Content-Type derived from the body, headers set on the request.
//
// # Errors
//
// Failures are reported through sentinel errors and typed errors:
//
//	switch {
//	case errors.Is(err, httpclient.ErrIO):
//	    // body source could not be opened or read
//	case errors.Is(err, httpclient.ErrEncoding):
//	    // unknown charset, or text it cannot represent
//	case errors.Is(err, httpclient.ErrParse):
//	    // response body did not decode
//	}
//
// Transport failures (DNS, connection refused, timeouts) are returned
// unchanged. Nothing is retried.
//
// # Observability
//
// Each call produces a client span named "HTTP {METHOD}" (or
// "HTTP {METHOD} {operation}") that ends when the response body is closed,
// and records these metrics:
//
//   - http.client.request.duration
//   - http.client.request.body.size (bytes actually streamed)
//   - http.client.response.body.size
//   - http.client.active_requests
//   - http.client.request.error
//   - http.client.multipart.parts
//
// # Testing
//
// MockTransport stubs responses and records request bodies:
//
//	mock := httpclient.NewMockTransport().StubResponse(201, "")
//	client := httpclient.New(httpclient.WithMockTransport(mock))
//	// ...
//	body := mock.LastRequestBody()
package httpclient
