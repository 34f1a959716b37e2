package receiver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/courier-go/httpclient"
)

// Upload describes one received request body.
type Upload struct {
	RequestID   string `json:"request_id,omitempty"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`

	// Chunked reports whether the body arrived with chunked transfer
	// encoding, i.e. without a Content-Length.
	Chunked bool `json:"chunked"`

	// Size is the total number of body bytes read.
	Size int64 `json:"size"`

	// Parts lists the form-data parts in wire order. A body that is not
	// multipart is reported as a single part with an empty name.
	Parts []Part `json:"parts,omitempty"`
}

// Part describes one form-data part.
type Part struct {
	Name        string `json:"name"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Charset     string `json:"charset,omitempty"`
	Size        int64  `json:"size"`

	// Value is the decoded content of a text part, i.e. one without a
	// filename. File parts never carry a value.
	Value     string `json:"value,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// IsFile reports whether the part was sent as a file.
func (p Part) IsFile() bool { return p.Filename != "" }

var errMissingBoundary = errors.New("multipart body without boundary")

type uploadHandler struct {
	maxTextValue int
	onUpload     func(Upload)
	logger       zerolog.Logger
	metrics      *metrics
}

func newUploadHandler(cfg Config, m *metrics) *uploadHandler {
	return &uploadHandler{
		maxTextValue: cfg.MaxTextValue,
		onUpload:     cfg.OnUpload,
		logger:       cfg.Logger,
		metrics:      m,
	}
}

func (h *uploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upload, err := h.read(r)
	if err != nil {
		h.metrics.recordRejected(upload.Size)
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("unreadable upload")
		WriteError(w, http.StatusBadRequest, "unreadable upload", Error{Field: "body", Message: err.Error()})
		return
	}

	h.metrics.recordUpload(upload)
	if h.onUpload != nil {
		h.onUpload(upload)
	}
	WriteSuccess(w, http.StatusOK, upload, "upload received")
}

func (h *uploadHandler) read(r *http.Request) (Upload, error) {
	contentType := r.Header.Get("Content-Type")
	body := &countingBody{ReadCloser: r.Body}

	upload := Upload{
		RequestID:   RequestIDFromContext(r.Context()),
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: contentType,
		Chunked:     len(r.TransferEncoding) > 0 && r.TransferEncoding[0] == "chunked",
	}

	mt := httpclient.ParseContentType(contentType)
	var err error
	if strings.EqualFold(mt.Type, httpclient.ContentTypeMultipart) {
		upload.Parts, err = h.readMultipart(body, contentType)
	} else {
		var part Part
		part, err = h.readPart("", "", contentType, body)
		if part.Size > 0 || contentType != "" {
			upload.Parts = []Part{part}
		}
	}
	upload.Size = body.n
	return upload, err
}

func (h *uploadHandler) readMultipart(body io.Reader, contentType string) ([]Part, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("content type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, errMissingBoundary
	}

	var parts []Part
	mr := multipart.NewReader(body, boundary)
	for {
		p, err := mr.NextRawPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return parts, err
		}

		part, err := h.readPart(p.FormName(), p.FileName(), p.Header.Get("Content-Type"), p)
		if err != nil {
			return parts, fmt.Errorf("part %q: %w", p.FormName(), err)
		}
		parts = append(parts, part)
	}
}

// readPart consumes r. Text parts are decoded with their declared charset,
// or UTF-8 when none is declared.
func (h *uploadHandler) readPart(name, filename, contentType string, r io.Reader) (Part, error) {
	mt := httpclient.ParseContentType(contentType)
	part := Part{
		Name:        name,
		Filename:    filename,
		ContentType: contentType,
		Charset:     mt.Charset,
	}

	if filename != "" {
		n, err := io.Copy(io.Discard, r)
		part.Size = n
		return part, err
	}

	var head bytes.Buffer
	n, err := io.CopyN(&head, r, int64(h.maxTextValue)+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return part, err
	}
	rest, err := io.Copy(io.Discard, r)
	if err != nil {
		return part, err
	}
	part.Size = n + rest

	cs := httpclient.UTF8
	if mt.HasCharset() {
		if cs, err = httpclient.LookupCharset(mt.Charset); err != nil {
			return part, err
		}
	}

	text := head.Bytes()
	if len(text) > h.maxTextValue {
		text = text[:h.maxTextValue]
		if cs.Name() == httpclient.UTF8.Name() {
			text = trimPartialRune(text)
		}
		part.Truncated = true
	}

	if part.Value, err = cs.Decode(text); err != nil {
		return part, err
	}
	return part, nil
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of b by
// a byte-count cut.
func trimPartialRune(b []byte) []byte {
	start := len(b) - 1
	for start > 0 && start > len(b)-utf8.UTFMax && !utf8.RuneStart(b[start]) {
		start--
	}
	if start >= 0 && !utf8.FullRune(b[start:]) {
		return b[:start]
	}
	return b
}
