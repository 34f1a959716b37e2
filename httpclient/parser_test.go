package httpclient

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawWith returns a RawResponse whose body reads s.
func rawWith(s string) *RawResponse {
	return &RawResponse{StatusCode: 200, Body: io.NopCloser(strings.NewReader(s))}
}

// erroringReader fails every read.
type erroringReader struct{ err error }

func (e erroringReader) Read([]byte) (int, error) { return 0, e.err }

func TestStringParser(t *testing.T) {
	latin1 := MustLookupCharset("ISO-8859-1")

	tests := []struct {
		name    string
		parser  StringParser
		body    string
		mt      MediaType
		want    string
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given declared UTF-8, then body is decoded as UTF-8",
			body:    "café",
			mt:      MediaType{Type: "text/plain", Charset: "UTF-8"},
			want:    "café",
			wantErr: assert.NoError,
		},
		{
			name:    "given declared latin1, then body is decoded as latin1",
			body:    "caf\xe9",
			mt:      MediaType{Type: "text/plain", Charset: "ISO-8859-1"},
			want:    "café",
			wantErr: assert.NoError,
		},
		{
			name:    "given no charset, then fallback is used",
			parser:  StringParser{Fallback: latin1},
			body:    "caf\xe9",
			mt:      MediaType{Type: "text/plain"},
			want:    "café",
			wantErr: assert.NoError,
		},
		{
			name:    "given no charset and zero fallback, then UTF-8 is used",
			body:    "日本",
			want:    "日本",
			wantErr: assert.NoError,
		},
		{
			name:    "given unknown charset, then encoding error",
			body:    "x",
			mt:      MediaType{Type: "text/plain", Charset: "klingon"},
			wantErr: errorIs(ErrEncoding),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser.Parse(rawWith(tt.body), tt.mt)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestJSONParser(t *testing.T) {
	type user struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	tests := []struct {
		name    string
		body    string
		mt      MediaType
		want    user
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given JSON object, then it is decoded",
			body:    `{"name":"John","age":30}`,
			mt:      MediaType{Type: ContentTypeJSON},
			want:    user{Name: "John", Age: 30},
			wantErr: assert.NoError,
		},
		{
			name:    "given empty body, then zero value",
			body:    "",
			mt:      MediaType{Type: ContentTypeJSON},
			wantErr: assert.NoError,
		},
		{
			name:    "given latin1 declared, then strings are transcoded",
			body:    "{\"name\":\"Jos\xe9\"}",
			mt:      MediaType{Type: ContentTypeJSON, Charset: "ISO-8859-1"},
			want:    user{Name: "José"},
			wantErr: assert.NoError,
		},
		{
			name:    "given malformed JSON, then parse error",
			body:    `{"name":`,
			mt:      MediaType{Type: ContentTypeJSON},
			wantErr: errorIs(ErrParse),
		},
		{
			name:    "given unknown charset, then encoding error",
			body:    `{}`,
			mt:      MediaType{Type: ContentTypeJSON, Charset: "klingon"},
			wantErr: errorIs(ErrEncoding),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSONParser[user]{}.Parse(rawWith(tt.body), tt.mt)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestXMLParser(t *testing.T) {
	type item struct {
		Name string `xml:"name"`
	}

	tests := []struct {
		name    string
		body    string
		mt      MediaType
		want    item
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given UTF-8 document, then it is decoded",
			body:    `<item><name>café</name></item>`,
			mt:      MediaType{Type: "application/xml"},
			want:    item{Name: "café"},
			wantErr: assert.NoError,
		},
		{
			name:    "given header charset, then it is used",
			body:    "<item><name>caf\xe9</name></item>",
			mt:      MediaType{Type: "application/xml", Charset: "ISO-8859-1"},
			want:    item{Name: "café"},
			wantErr: assert.NoError,
		},
		{
			name:    "given header charset and matching declaration, then declaration is not applied twice",
			body:    "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><item><name>caf\xe9</name></item>",
			mt:      MediaType{Type: "application/xml", Charset: "ISO-8859-1"},
			want:    item{Name: "café"},
			wantErr: assert.NoError,
		},
		{
			name:    "given document declaration only, then it is honored",
			body:    "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><item><name>caf\xe9</name></item>",
			mt:      MediaType{Type: "application/xml"},
			want:    item{Name: "café"},
			wantErr: assert.NoError,
		},
		{
			name:    "given malformed document, then parse error",
			body:    `<item><name>`,
			mt:      MediaType{Type: "application/xml"},
			wantErr: errorIs(ErrParse),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := XMLParser[item]{}.Parse(rawWith(tt.body), tt.mt)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGJSONParser(t *testing.T) {
	doc := `{"data":{"id":42,"items":[{"name":"a"},{"name":"b"}]}}`
	mt := MediaType{Type: ContentTypeJSON}

	t.Run("given path, then value is extracted", func(t *testing.T) {
		got, err := GJSONParser{Path: "data.id"}.Parse(rawWith(doc), mt)
		require.NoError(t, err)
		assert.EqualValues(t, 42, got.Int())
	})

	t.Run("given array path, then all values are returned", func(t *testing.T) {
		got, err := GJSONParser{Path: "data.items.#.name"}.Parse(rawWith(doc), mt)
		require.NoError(t, err)

		var names []string
		for _, r := range got.Array() {
			names = append(names, r.String())
		}
		assert.Equal(t, []string{"a", "b"}, names)
	})

	t.Run("given empty path, then whole document", func(t *testing.T) {
		got, err := GJSONParser{}.Parse(rawWith(doc), mt)
		require.NoError(t, err)
		assert.True(t, got.IsObject())
		assert.EqualValues(t, 42, got.Get("data.id").Int())
	})

	t.Run("given missing path, then result does not exist", func(t *testing.T) {
		got, err := GJSONParser{Path: "data.nope"}.Parse(rawWith(doc), mt)
		require.NoError(t, err)
		assert.False(t, got.Exists())
	})

	t.Run("given invalid JSON, then parse error", func(t *testing.T) {
		_, err := GJSONParser{Path: "a"}.Parse(rawWith(`{"a":`), mt)
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ContentTypeJSON, pe.MediaType)
	})
}

func TestVoidAndBytesParser(t *testing.T) {
	t.Run("given body, then void parser drains it", func(t *testing.T) {
		r := strings.NewReader("leftover")
		_, err := VoidParser{}.Parse(&RawResponse{Body: io.NopCloser(r)}, MediaType{})
		require.NoError(t, err)
		assert.Zero(t, r.Len())
	})

	t.Run("given nil body, then parsers return empty values", func(t *testing.T) {
		_, err := VoidParser{}.Parse(&RawResponse{}, MediaType{})
		require.NoError(t, err)

		b, err := BytesParser{}.Parse(&RawResponse{}, MediaType{})
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("given failing body, then parse error wraps the read error", func(t *testing.T) {
		errRead := errors.New("connection reset")
		raw := &RawResponse{Body: io.NopCloser(erroringReader{err: errRead})}

		_, err := BytesParser{}.Parse(raw, MediaType{Type: "text/plain"})
		assert.ErrorIs(t, err, ErrParse)
		assert.ErrorIs(t, err, errRead)
	})
}

func TestStringParser_ClientDefaultCharset(t *testing.T) {
	latin1 := MustLookupCharset("ISO-8859-1")

	t.Run("given a zero fallback, then the client default is used", func(t *testing.T) {
		resp := rawWith("caf\xe9")
		resp.defaultCharset = latin1

		got, err := StringParser{}.Parse(resp, MediaType{Type: "text/plain"})
		require.NoError(t, err)
		assert.Equal(t, "café", got)
	})

	t.Run("given an explicit fallback, then it wins over the client default", func(t *testing.T) {
		resp := rawWith("café")
		resp.defaultCharset = latin1

		got, err := StringParser{Fallback: UTF8}.Parse(resp, MediaType{Type: "text/plain"})
		require.NoError(t, err)
		assert.Equal(t, "café", got)
	})

	t.Run("given a declared charset, then neither default applies", func(t *testing.T) {
		resp := rawWith("日本")
		resp.defaultCharset = latin1

		got, err := StringParser{}.Parse(resp, MediaType{Type: "text/plain", Charset: "UTF-8"})
		require.NoError(t, err)
		assert.Equal(t, "日本", got)
	})

	assert.Equal(t, UTF8.Name(), (&RawResponse{}).DefaultCharset().Name())
}
