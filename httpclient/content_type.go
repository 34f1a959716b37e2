package httpclient

import "strings"

const charsetParam = "charset="

// MediaType is the result of parsing a Content-Type header value.
//
// Type is the media type exactly as declared (e.g. "text/plain").
// Charset is empty when the header declares no charset.
type MediaType struct {
	Type    string
	Charset string
}

// HasCharset reports whether a charset parameter was found.
func (m MediaType) HasCharset() bool {
	return m.Charset != ""
}

// String formats the media type back into a header value.
func (m MediaType) String() string {
	if m.Charset == "" {
		return m.Type
	}
	return m.Type + "; charset=" + m.Charset
}

// ParseContentType splits a Content-Type header value into its media type
// and charset.
//
// The first ";"-separated segment is the media type. The remaining segments
// are scanned in declaration order and the first one of the form
// charset=VALUE (or charset="VALUE") with a non-empty value supplies the
// charset. An empty value (charset= or charset="") does not end the scan:
// it counts as no charset, so "charset=; charset=X" yields X. Every other
// parameter or bare token is ignored.
//
// ParseContentType never fails: malformed input yields a best-effort media
// type and an empty charset, so responses from non-conformant servers can
// still be decoded.
//
// Example:
//
//	mt := httpclient.ParseContentType("text/plain; charset=UTF-8; some more values")
//	// mt.Type == "text/plain", mt.Charset == "UTF-8"
func ParseContentType(header string) MediaType {
	segments := strings.Split(header, ";")

	mt := MediaType{Type: strings.TrimSpace(segments[0])}
	for _, segment := range segments[1:] {
		segment = strings.TrimSpace(segment)
		if !strings.HasPrefix(segment, charsetParam) {
			continue
		}
		if value := unquote(strings.TrimSpace(segment[len(charsetParam):])); value != "" {
			mt.Charset = value
			return mt
		}
	}
	return mt
}

// unquote strips one pair of surrounding double quotes. A value with a stray
// quote on only one side is returned unchanged.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
