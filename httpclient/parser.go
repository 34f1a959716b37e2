package httpclient

import (
	"encoding/xml"
	"errors"
	"io"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ResponseParser turns a raw response into a value of type T.
//
// Parse receives the response with its Content-Type already parsed. It may
// read resp.Body but must not close it; Execute closes the body once Parse
// returns.
type ResponseParser[T any] interface {
	Parse(resp *RawResponse, mt MediaType) (T, error)
}

// ParserFunc adapts a function to ResponseParser.
//
// Example:
//
//	statusOnly := httpclient.ParserFunc[int](func(r *httpclient.RawResponse, _ httpclient.MediaType) (int, error) {
//	    return r.StatusCode, nil
//	})
type ParserFunc[T any] func(resp *RawResponse, mt MediaType) (T, error)

// Parse calls f(resp, mt).
func (f ParserFunc[T]) Parse(resp *RawResponse, mt MediaType) (T, error) {
	return f(resp, mt)
}

// readBody reads the whole response body, tagging read failures.
func readBody(resp *RawResponse, mt MediaType) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ParseError{MediaType: mt.Type, Err: err}
	}
	return data, nil
}

// VoidParser discards the response body. Use it when only the status and
// headers matter.
type VoidParser struct{}

// Parse drains the body so the connection can be reused.
func (VoidParser) Parse(resp *RawResponse, mt MediaType) (struct{}, error) {
	if resp.Body == nil {
		return struct{}{}, nil
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return struct{}{}, &ParseError{MediaType: mt.Type, Err: err}
	}
	return struct{}{}, nil
}

// BytesParser returns the response body as is.
type BytesParser struct{}

// Parse reads the whole body.
func (BytesParser) Parse(resp *RawResponse, mt MediaType) ([]byte, error) {
	return readBody(resp, mt)
}

// StringParser decodes the response body with the charset declared in its
// Content-Type, or Fallback when none is declared.
//
// The zero value falls back to the client's default charset (see
// WithDefaultCharset), which is UTF-8 unless configured.
type StringParser struct {
	Fallback Charset
}

// Parse reads and decodes the whole body. An unknown declared charset is
// reported as *EncodingError.
func (p StringParser) Parse(resp *RawResponse, mt MediaType) (string, error) {
	fallback := p.Fallback
	if fallback.isZero() {
		fallback = resp.DefaultCharset()
	}
	cs, err := charsetOrFallback(mt, fallback)
	if err != nil {
		return "", err
	}
	data, err := readBody(resp, mt)
	if err != nil {
		return "", err
	}
	return cs.Decode(data)
}

// JSONParser decodes a JSON body into T using goccy/go-json.
//
// Bodies declaring a charset other than UTF-8 are transcoded first.
//
// Example:
//
//	resp, err := httpclient.Execute(ctx, req, client, httpclient.JSONParser[User]{})
type JSONParser[T any] struct{}

// Parse decodes the body. An empty body yields the zero value of T.
func (JSONParser[T]) Parse(resp *RawResponse, mt MediaType) (T, error) {
	var v T

	cs, err := charsetOrFallback(mt, UTF8)
	if err != nil {
		return v, err
	}
	if resp.Body == nil {
		return v, nil
	}

	err = json.NewDecoder(cs.NewReader(resp.Body)).Decode(&v)
	if err != nil && !errors.Is(err, io.EOF) {
		return v, &ParseError{MediaType: mt.Type, Err: err}
	}
	return v, nil
}

// XMLParser decodes an XML body into T using encoding/xml.
//
// The charset comes from the Content-Type header; documents may also
// declare their own encoding, which is resolved through the IANA registry.
type XMLParser[T any] struct{}

// Parse decodes the body.
func (XMLParser[T]) Parse(resp *RawResponse, mt MediaType) (T, error) {
	var v T

	cs, err := charsetOrFallback(mt, UTF8)
	if err != nil {
		return v, err
	}
	if resp.Body == nil {
		return v, nil
	}

	dec := xml.NewDecoder(cs.NewReader(resp.Body))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		// Already transcoded from the header charset
		if mt.HasCharset() {
			return input, nil
		}
		docCharset, err := LookupCharset(label)
		if err != nil {
			return nil, err
		}
		return docCharset.NewReader(input), nil
	}

	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return v, &ParseError{MediaType: mt.Type, Err: err}
	}
	return v, nil
}

// GJSONParser extracts a single value from a JSON body with a
// tidwall/gjson path.
//
// Example:
//
//	resp, err := httpclient.Execute(ctx, req, client, httpclient.GJSONParser{Path: "data.id"})
//	id := resp.Value.String()
type GJSONParser struct {
	// Path is a gjson path such as "items.#.name". Empty returns the whole
	// document.
	Path string
}

// Parse reads the body and evaluates Path. Invalid JSON is a *ParseError;
// a path that matches nothing yields a Result whose Exists() is false.
func (p GJSONParser) Parse(resp *RawResponse, mt MediaType) (gjson.Result, error) {
	cs, err := charsetOrFallback(mt, UTF8)
	if err != nil {
		return gjson.Result{}, err
	}
	data, err := readBody(resp, mt)
	if err != nil {
		return gjson.Result{}, err
	}
	doc, err := cs.Decode(data)
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.Valid(doc) {
		return gjson.Result{}, &ParseError{MediaType: mt.Type, Err: errors.New("invalid JSON document")}
	}
	if p.Path == "" {
		return gjson.Parse(doc), nil
	}
	return gjson.Get(doc, p.Path), nil
}
