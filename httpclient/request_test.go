package httpclient

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEndpoint(t *testing.T, raw string) Endpoint {
	t.Helper()
	e, err := ParseEndpoint(raw)
	require.NoError(t, err)
	return e
}

func TestRequestBuilder_Build(t *testing.T) {
	e := mustEndpoint(t, "http://localhost/api")

	tests := []struct {
		name    string
		build   func() *RequestBuilder
		wantErr assert.ErrorAssertionFunc
		check   func(t *testing.T, req *Request)
	}{
		{
			name:    "given GET without body, then request has no body",
			build:   func() *RequestBuilder { return e.Get() },
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				assert.Equal(t, http.MethodGet, req.Method())
				assert.Nil(t, req.Body())
			},
		},
		{
			name:    "given GET with body, then body not allowed",
			build:   func() *RequestBuilder { return e.Get().Text("nope") },
			wantErr: errorIs(ErrBodyNotAllowed),
		},
		{
			name:    "given DELETE with form field, then body not allowed",
			build:   func() *RequestBuilder { return e.Delete().FormField("a", "b") },
			wantErr: errorIs(ErrBodyNotAllowed),
		},
		{
			name:    "given HEAD with body, then body not allowed",
			build:   func() *RequestBuilder { return e.Head().Body(BytesBody("x/y", nil)) },
			wantErr: errorIs(ErrBodyNotAllowed),
		},
		{
			name:    "given OPTIONS with JSON, then body not allowed",
			build:   func() *RequestBuilder { return e.Options().JSON(map[string]int{"a": 1}) },
			wantErr: errorIs(ErrBodyNotAllowed),
		},
		{
			name: "given body and form parts, then conflict",
			build: func() *RequestBuilder {
				return e.Post().Text("body").FormField("a", "b")
			},
			wantErr: errorIs(ErrBodyConflict),
		},
		{
			name:    "given unrepresentable text for charset, then encoding error",
			build:   func() *RequestBuilder { return e.Put().Charset(MustLookupCharset("ISO-8859-1")).Text("日本") },
			wantErr: errorIs(ErrEncoding),
		},
		{
			name: "given form fields and file, then multipart body in order",
			build: func() *RequestBuilder {
				return e.Post().FormField("title", "Q4").File("doc", "/tmp/doc.pdf")
			},
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				mp, ok := req.Body().(*MultipartBody)
				require.True(t, ok)
				parts := mp.Parts()
				require.Len(t, parts, 2)
				assert.Equal(t, "title", parts[0].Name())
				assert.False(t, parts[0].IsBinaryTransferEncoding())
				assert.Equal(t, "doc", parts[1].Name())
				assert.True(t, parts[1].IsBinaryTransferEncoding())
			},
		},
		{
			name: "given PATCH with JSON, then JSON body",
			build: func() *RequestBuilder {
				return e.Patch().JSON(map[string]string{"name": "John"})
			},
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				var buf bytes.Buffer
				_, err := req.Body().WriteTo(&buf)
				require.NoError(t, err)
				assert.JSONEq(t, `{"name":"John"}`, buf.String())
				assert.Equal(t, `application/json; charset="UTF-8"`, req.Body().ContentType())
			},
		},
		{
			name: "given XML body, then application/xml",
			build: func() *RequestBuilder {
				type item struct {
					ID int `xml:"id"`
				}
				return e.Post().XML(item{ID: 7})
			},
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				var buf bytes.Buffer
				_, err := req.Body().WriteTo(&buf)
				require.NoError(t, err)
				assert.Equal(t, "<item><id>7</id></item>", buf.String())
				assert.Equal(t, "application/xml", req.Body().ContentType())
			},
		},
		{
			name: "given url-encoded form, then form body",
			build: func() *RequestBuilder {
				return e.Post().FormURLEncoded(url.Values{"a": {"1"}})
			},
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				assert.Equal(t, ContentTypeForm, req.Body().ContentType())
			},
		},
		{
			name: "given query parameters, then they are merged with endpoint query",
			build: func() *RequestBuilder {
				return mustEndpoint(t, "http://localhost/api?key=1").Get().Query("page", "2")
			},
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				assert.Equal(t, "http://localhost/api?key=1&page=2", req.Endpoint().String())
			},
		},
		{
			name: "given headers, then they are kept and operation is set",
			build: func() *RequestBuilder {
				return e.Get().
					Operation("ListUsers").
					Header("X-One", "1").
					AddHeader("X-Many", "a").
					AddHeader("X-Many", "b").
					Headers(map[string]string{"X-Two": "2"})
			},
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				h := req.Header()
				assert.Equal(t, "1", h.Get("X-One"))
				assert.Equal(t, "2", h.Get("X-Two"))
				assert.Equal(t, []string{"a", "b"}, h.Values("X-Many"))
				assert.Equal(t, "ListUsers", req.Operation())
			},
		},
		{
			name:    "given lowercase method, then it is upper-cased",
			build:   func() *RequestBuilder { return e.Request("put").Text("x") },
			wantErr: assert.NoError,
			check: func(t *testing.T, req *Request) {
				assert.Equal(t, http.MethodPut, req.Method())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.build().Build()
			tt.wantErr(t, err)
			if err == nil && tt.check != nil {
				tt.check(t, req)
			}
		})
	}
}

func TestRequest_Immutable(t *testing.T) {
	rb := mustEndpoint(t, "http://localhost").Get().Header("X-A", "1")

	req, err := rb.Build()
	require.NoError(t, err)

	rb.Header("X-A", "2")
	h := req.Header()
	h.Set("X-A", "3")

	assert.Equal(t, "1", req.Header().Get("X-A"))
}
