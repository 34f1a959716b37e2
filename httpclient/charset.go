package httpclient

import (
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset is a named text encoding used to turn strings into request bytes
// (text bodies, form-data text parts, URL path segments) and response bytes
// back into strings.
//
// Charsets are always passed explicitly; nothing in this package reads the
// process locale. The zero value behaves like UTF8.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// UTF8 is the UTF-8 charset.
var UTF8 = Charset{name: "UTF-8", enc: unicode.UTF8}

// LookupCharset resolves an IANA/MIME charset name such as "UTF-8",
// "ISO-8859-1" or "windows-1252". Matching is case-insensitive.
//
// Unknown names and names without an implementation return an
// *EncodingError.
func LookupCharset(name string) (Charset, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return UTF8, nil
	}

	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil {
		return Charset{}, &EncodingError{Charset: name, Err: err}
	}
	if enc == nil {
		return Charset{}, &EncodingError{Charset: name}
	}

	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil || canonical == "" {
		canonical = name
	}
	return Charset{name: canonical, enc: enc}, nil
}

// MustLookupCharset is like LookupCharset but panics on error.
// Intended for package-level variables with well-known names.
func MustLookupCharset(name string) Charset {
	cs, err := LookupCharset(name)
	if err != nil {
		panic(err)
	}
	return cs
}

// Name returns the canonical MIME name of the charset.
func (c Charset) Name() string {
	if c.enc == nil {
		return UTF8.name
	}
	return c.name
}

func (c Charset) encoding() encoding.Encoding {
	if c.enc == nil {
		return unicode.UTF8
	}
	return c.enc
}

func (c Charset) isZero() bool {
	return c.enc == nil
}

func (c Charset) isUTF8() bool {
	return c.encoding() == unicode.UTF8
}

// Encode converts s into bytes of this charset. Runes the charset cannot
// represent produce an *EncodingError.
func (c Charset) Encode(s string) ([]byte, error) {
	if c.isUTF8() {
		return []byte(s), nil
	}
	out, err := c.encoding().NewEncoder().String(s)
	if err != nil {
		return nil, &EncodingError{Charset: c.Name(), Err: err}
	}
	return []byte(out), nil
}

// Decode converts bytes of this charset into a string.
func (c Charset) Decode(b []byte) (string, error) {
	if c.isUTF8() {
		return string(b), nil
	}
	out, err := c.encoding().NewDecoder().Bytes(b)
	if err != nil {
		return "", &EncodingError{Charset: c.Name(), Err: err}
	}
	return string(out), nil
}

// NewReader returns a reader that transcodes r from this charset to UTF-8.
func (c Charset) NewReader(r io.Reader) io.Reader {
	if c.isUTF8() {
		return r
	}
	return transform.NewReader(r, c.encoding().NewDecoder())
}

// charsetOrFallback resolves the charset declared in mt, falling back to
// fallback when the header carried none.
func charsetOrFallback(mt MediaType, fallback Charset) (Charset, error) {
	if !mt.HasCharset() {
		return fallback, nil
	}
	return LookupCharset(mt.Charset)
}
