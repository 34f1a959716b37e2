package httpclient

import (
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// generateCurlCommand creates a cURL command equivalent for the given request.
//
// Multipart bodies are rendered as -F arguments and their Content-Type
// header is left out, since curl chooses its own boundary. File bodies refer
// to the file path. Bodies whose bytes are not known up front are rendered
// as --data-binary @- (read from stdin).
//
// Example output:
//
//	curl -X POST 'https://api.example.com/reports' \
//	  -H 'Idempotency-Key: 7f3a' \
//	  -F 'title=Q4 Report;type=text/plain; charset="UTF-8"' \
//	  -F 'document=@/tmp/report.pdf;type=application/pdf'
func generateCurlCommand(req *http.Request, body RequestBody) string {
	var parts []string

	parts = append(parts, "curl")

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}

	parts = append(parts, shellQuote(req.URL.String()))

	mp, isMultipart := body.(*MultipartBody)

	// Headers (sorted for consistent output)
	headerKeys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		if isMultipart && k == "Content-Type" {
			continue
		}
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	for _, k := range headerKeys {
		for _, v := range req.Header[k] {
			parts = append(parts, "-H", shellQuote(k+": "+v))
		}
	}

	switch {
	case body == nil:
	case isMultipart:
		for _, part := range mp.parts {
			parts = append(parts, "-F", shellQuote(curlFormArg(part)))
		}
	default:
		parts = append(parts, curlDataArgs(body)...)
	}

	return strings.Join(parts, " ")
}

// curlFormArg renders one multipart part as the argument of curl -F.
func curlFormArg(part FormDataParameter) string {
	value := "@" + part.Name()

	if fp, ok := part.(*formPart); ok {
		if data, ok := fp.content(); ok && !part.IsBinaryTransferEncoding() && utf8.Valid(data) {
			value = string(data)
		} else if path := bodyPath(fp.RequestBody); path != "" {
			value = "@" + path
		}
	}

	return part.Name() + "=" + value + ";type=" + part.ContentType()
}

func curlDataArgs(body RequestBody) []string {
	if m, ok := body.(*memoryBody); ok && utf8.Valid(m.data) {
		return []string{"--data-binary", shellQuote(string(m.data))}
	}
	if path := bodyPath(body); path != "" {
		return []string{"--data-binary", shellQuote("@" + path)}
	}
	return []string{"--data-binary", "@-"}
}

func bodyPath(body RequestBody) string {
	if sb, ok := body.(*streamingBody); ok {
		return sb.path
	}
	return ""
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// logRequest logs the request details using zerolog.
func logRequest(logger zerolog.Logger, req *http.Request, r *Request) {
	event := logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("host", req.Host)

	if r.operation != "" {
		event = event.Str("operation", r.operation)
	}
	if ct := req.Header.Get("Content-Type"); ct != "" {
		event = event.Str("content_type", ct)
	}
	if mp, ok := r.body.(*MultipartBody); ok {
		event = event.Int("parts", len(mp.parts))
	}

	event.Msg("HTTP request")
}

// logResponse logs the response details using zerolog.
func logResponse(logger zerolog.Logger, resp *http.Response, duration time.Duration, bytesSent int64) {
	logger.Debug().
		Int("status", resp.StatusCode).
		Str("status_text", resp.Status).
		Dur("duration_ms", duration).
		Int64("bytes_sent", bytesSent).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("HTTP response")
}

// logBodyFailure logs a request body that could not be streamed.
func logBodyFailure(logger zerolog.Logger, req *http.Request, err error, bytesSent int64) {
	logger.Warn().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int64("bytes_sent", bytesSent).
		Msg("HTTP request body failed")
}
