package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// FormDataParameter is a single named part of a multipart/form-data body.
//
// Binary parts (files, raw bytes, readers) report IsBinaryTransferEncoding
// true and are sent with a filename attribute. Text and JSON parts report
// false and are sent as plain form fields.
//
// Build parameters with FormFile, FormBytes, FormReader, FormText or
// FormJSON. A parameter is consumed once, when the multipart body is
// written.
type FormDataParameter interface {
	RequestBody

	// Name is the form field name.
	Name() string

	// IsBinaryTransferEncoding reports whether the part is a file upload.
	IsBinaryTransferEncoding() bool
}

// formPart implements FormDataParameter on top of any RequestBody.
type formPart struct {
	RequestBody
	name   string
	binary bool
}

func (p *formPart) Name() string { return p.name }

func (p *formPart) IsBinaryTransferEncoding() bool { return p.binary }

// content exposes in-memory bytes for boundary collision checks.
func (p *formPart) content() ([]byte, bool) {
	if m, ok := p.RequestBody.(*memoryBody); ok {
		return m.content(), true
	}
	return nil, false
}

// FormFile returns a binary part streaming the file at path as
// application/octet-stream. The file is opened when the body is written.
//
// Example:
//
//	part := httpclient.FormFile("document", "/path/to/report.pdf")
func FormFile(name, path string) FormDataParameter {
	return FormFileType(name, ContentTypeOctetStream, path)
}

// FormFileType is like FormFile with an explicit content type.
func FormFileType(name, contentType, path string) FormDataParameter {
	return &formPart{RequestBody: FileBody(contentType, path), name: name, binary: true}
}

// FormBytes returns a binary part holding b.
func FormBytes(name, contentType string, b []byte) FormDataParameter {
	return &formPart{RequestBody: BytesBody(contentType, b), name: name, binary: true}
}

// FormReader returns a binary part whose bytes come from open, invoked when
// the body is written.
func FormReader(name, contentType string, open StreamOpener) FormDataParameter {
	return &formPart{RequestBody: NewStreamingBody(contentType, open), name: name, binary: true}
}

// FormText returns a text part encoded with cs, sent as
// text/plain; charset="NAME".
//
// Example:
//
//	part, err := httpclient.FormText("title", "Q4 Report", httpclient.UTF8)
func FormText(name, text string, cs Charset) (FormDataParameter, error) {
	return FormTextType(name, ContentTypeText, text, cs)
}

// FormTextType is like FormText with an explicit media type; the charset
// parameter is appended to it.
func FormTextType(name, mediaType, text string, cs Charset) (FormDataParameter, error) {
	body, err := textBody(mediaType, text, cs)
	if err != nil {
		return nil, err
	}
	return &formPart{RequestBody: body, name: name}, nil
}

// FormJSON returns a text part holding an already-serialized JSON document,
// sent as application/json; charset="NAME".
func FormJSON(name, doc string, cs Charset) (FormDataParameter, error) {
	return FormTextType(name, ContentTypeJSON, doc, cs)
}

// FormJSONValue marshals v with goccy/go-json into a UTF-8 JSON part.
func FormJSONValue(name string, v any) (FormDataParameter, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &formPart{
		RequestBody: BytesBody(withCharset(ContentTypeJSON, UTF8), data),
		name:        name,
	}, nil
}

// boundaryPrefix keeps generated boundaries recognizable in captures.
const boundaryPrefix = "courier-"

// boundaryTail is how many hex characters of the second UUID are used,
// keeping the boundary within the 70 characters RFC 2046 allows.
const boundaryTail = 28

// maxBoundaryAttempts bounds regeneration when a boundary collides with
// in-memory part content.
const maxBoundaryAttempts = 8

// MultipartBody encodes an ordered list of FormDataParameters as a
// multipart/form-data RequestBody.
//
// The boundary is chosen at construction (the Content-Type header needs it
// before any byte is written). It is 60 random hex characters, and is
// regenerated if it occurs in the content of any in-memory part. Streaming
// parts cannot be inspected up front; for them the randomness alone makes
// a collision negligible.
//
// Wire format per part:
//
//	--BOUNDARY\r\n
//	Content-Disposition: form-data; name="NAME"[; filename="NAME"]\r\n
//	Content-Type: TYPE\r\n
//	\r\n
//	<bytes>\r\n
//
// followed by --BOUNDARY--\r\n.
type MultipartBody struct {
	parts    []FormDataParameter
	boundary string
}

// NewMultipartBody returns a multipart/form-data body made of parts, in
// order.
//
// Example:
//
//	title, _ := httpclient.FormText("title", "Q4 Report", httpclient.UTF8)
//	body := httpclient.NewMultipartBody(
//	    title,
//	    httpclient.FormFile("document", "/path/to/report.pdf"),
//	)
func NewMultipartBody(parts ...FormDataParameter) *MultipartBody {
	owned := make([]FormDataParameter, len(parts))
	copy(owned, parts)

	return &MultipartBody{
		parts:    owned,
		boundary: chooseBoundary(owned),
	}
}

// Boundary returns the boundary token (without leading dashes).
func (b *MultipartBody) Boundary() string {
	return b.boundary
}

// Parts returns a copy of the parts in wire order.
func (b *MultipartBody) Parts() []FormDataParameter {
	out := make([]FormDataParameter, len(b.parts))
	copy(out, b.parts)
	return out
}

// ContentType returns multipart/form-data; boundary=BOUNDARY.
func (b *MultipartBody) ContentType() string {
	return ContentTypeMultipart + "; boundary=" + b.boundary
}

// WriteTo streams every part into w. Binary parts are copied straight from
// their source. The first failing part aborts the whole write; no closing
// delimiter is written in that case.
func (b *MultipartBody) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	mw := multipart.NewWriter(cw)
	if err := mw.SetBoundary(b.boundary); err != nil {
		return 0, &BodyError{Op: opWrite, Err: err}
	}

	for _, part := range b.parts {
		pw, err := mw.CreatePart(partHeader(part))
		if err != nil {
			return cw.n, &BodyError{Op: opWrite, Part: part.Name(), Err: err}
		}
		if _, err := part.WriteTo(pw); err != nil {
			return cw.n, tagPart(err, part.Name())
		}
	}

	if err := mw.Close(); err != nil {
		return cw.n, &BodyError{Op: opWrite, Err: err}
	}
	return cw.n, nil
}

// partHeader builds the MIME header of a single part. CreatePart writes the
// keys sorted, so Content-Disposition precedes Content-Type.
func partHeader(part FormDataParameter) textproto.MIMEHeader {
	disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(part.Name()))
	if part.IsBinaryTransferEncoding() {
		disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(part.Name()))
	}

	h := make(textproto.MIMEHeader, 2)
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Type", part.ContentType())
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// tagPart attaches the part name to a body error raised by the part.
func tagPart(err error, name string) error {
	var be *BodyError
	if errors.As(err, &be) {
		if be.Part == "" {
			return &BodyError{Op: be.Op, Part: name, Err: be.Err}
		}
		return err
	}
	return &BodyError{Op: opWrite, Part: name, Err: err}
}

// chooseBoundary generates a boundary that does not occur in any in-memory
// part.
func chooseBoundary(parts []FormDataParameter) string {
	var boundary string
	for range maxBoundaryAttempts {
		boundary = randomBoundary()
		if !collides(boundary, parts) {
			break
		}
	}
	return boundary
}

func randomBoundary() string {
	a := strings.ReplaceAll(uuid.New().String(), "-", "")
	b := strings.ReplaceAll(uuid.New().String(), "-", "")
	return boundaryPrefix + a + b[:boundaryTail]
}

func collides(boundary string, parts []FormDataParameter) bool {
	delimiter := []byte("--" + boundary)
	for _, part := range parts {
		fp, ok := part.(*formPart)
		if !ok {
			continue
		}
		if data, ok := fp.content(); ok && bytes.Contains(data, delimiter) {
			return true
		}
	}
	return false
}

// countingWriter counts bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
