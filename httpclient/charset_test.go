package httpclient

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCharset(t *testing.T) {
	tests := []struct {
		name     string
		charset  string
		wantName string
		wantErr  assert.ErrorAssertionFunc
	}{
		{
			name:     "given UTF-8, then UTF8 is returned",
			charset:  "UTF-8",
			wantName: "UTF-8",
			wantErr:  assert.NoError,
		},
		{
			name:     "given lowercase utf8 alias, then UTF8 is returned",
			charset:  "utf8",
			wantName: "UTF-8",
			wantErr:  assert.NoError,
		},
		{
			name:     "given latin1 alias, then canonical MIME name is returned",
			charset:  "latin1",
			wantName: "ISO-8859-1",
			wantErr:  assert.NoError,
		},
		{
			name:     "given windows-1252, then it is resolved",
			charset:  "windows-1252",
			wantName: "windows-1252",
			wantErr:  assert.NoError,
		},
		{
			name:    "given unknown name, then encoding error",
			charset: "no-such-charset",
			wantErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				var encErr *EncodingError
				return assert.ErrorIs(t, err, ErrEncoding) &&
					assert.ErrorAs(t, err, &encErr) &&
					assert.Equal(t, "no-such-charset", encErr.Charset)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := LookupCharset(tt.charset)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.wantName, cs.Name())
			}
		})
	}
}

func TestCharset_EncodeDecode(t *testing.T) {
	latin1 := MustLookupCharset("ISO-8859-1")

	t.Run("given latin1 text, then it encodes to single bytes", func(t *testing.T) {
		b, err := latin1.Encode("café")
		require.NoError(t, err)
		assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, b)

		s, err := latin1.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, "café", s)
	})

	t.Run("given rune outside latin1, then encoding error", func(t *testing.T) {
		_, err := latin1.Encode("日本")
		assert.ErrorIs(t, err, ErrEncoding)
	})

	t.Run("given zero value, then behaves as UTF-8", func(t *testing.T) {
		var cs Charset
		assert.Equal(t, "UTF-8", cs.Name())

		b, err := cs.Encode("日本")
		require.NoError(t, err)
		assert.Equal(t, []byte("日本"), b)
	})

	t.Run("given latin1 reader, then it is transcoded to UTF-8", func(t *testing.T) {
		r := latin1.NewReader(strings.NewReader("caf\xe9"))
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "café", string(got))
	})
}

func TestMustLookupCharset_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustLookupCharset("no-such-charset")
	})
}

func TestCharsetOrFallback(t *testing.T) {
	latin1 := MustLookupCharset("ISO-8859-1")

	tests := []struct {
		name     string
		mt       MediaType
		wantName string
		wantErr  assert.ErrorAssertionFunc
	}{
		{
			name:     "given no charset, then fallback is used",
			mt:       MediaType{Type: "text/plain"},
			wantName: "ISO-8859-1",
			wantErr:  assert.NoError,
		},
		{
			name:     "given declared charset, then it wins over fallback",
			mt:       MediaType{Type: "text/plain", Charset: "utf-8"},
			wantName: "UTF-8",
			wantErr:  assert.NoError,
		},
		{
			name:    "given unknown declared charset, then encoding error",
			mt:      MediaType{Type: "text/plain", Charset: "bogus"},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := charsetOrFallback(tt.mt, latin1)
			tt.wantErr(t, err)
			if err == nil {
				assert.Equal(t, tt.wantName, cs.Name())
			}
		})
	}
}
