package cli

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/courier-go/httpclient"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    Item
		wantErr string
	}{
		{
			name: "given Name:Value, then it is a header",
			arg:  "X-Team:core",
			want: Item{Kind: headerItem, Name: "X-Team", Value: "core"},
		},
		{
			name: "given a header with an empty value, then the value is empty",
			arg:  "Accept:",
			want: Item{Kind: headerItem, Name: "Accept", Value: ""},
		},
		{
			name: "given name==value, then it is a query parameter",
			arg:  "page==2",
			want: Item{Kind: queryItem, Name: "page", Value: "2"},
		},
		{
			name: "given field=text, then it is a text part",
			arg:  "title=Q4 report",
			want: Item{Kind: textFieldItem, Name: "title", Value: "Q4 report"},
		},
		{
			name: "given field=text containing separators, then the first separator wins",
			arg:  "note=a:b@c",
			want: Item{Kind: textFieldItem, Name: "note", Value: "a:b@c"},
		},
		{
			name: "given field:=json, then it is a JSON part",
			arg:  `meta:={"tags":["a"]}`,
			want: Item{Kind: jsonFieldItem, Name: "meta", Value: `{"tags":["a"]}`},
		},
		{
			name: "given field@path, then it is a file part",
			arg:  "report@/tmp/q4.pdf",
			want: Item{Kind: fileFieldItem, Name: "report", Value: "/tmp/q4.pdf"},
		},
		{
			name:    "given no separator, then it fails",
			arg:     "loose",
			wantErr: "unknown request item",
		},
		{
			name:    "given an invalid header name, then it fails",
			arg:     "Bad Header:x",
			wantErr: "invalid header field name",
		},
		{
			name:    "given invalid JSON, then it fails",
			arg:     "meta:={broken",
			wantErr: "invalid JSON",
		},
		{
			name:    "given a file item without a path, then it fails",
			arg:     "report@",
			wantErr: "missing file path",
		},
		{
			name:    "given an empty field name, then it fails",
			arg:     "=value",
			wantErr: "missing name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItem(tt.arg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseItems_StopsAtFirstError(t *testing.T) {
	_, err := ParseItems([]string{"a=1", "oops", "b=2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")

	items, err := ParseItems([]string{"a=1", "X:y"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestApplyItems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	endpoint, err := httpclient.ParseEndpoint("http://example.com/upload")
	require.NoError(t, err)

	items, err := ParseItems([]string{
		"X-Team:core",
		"page==2",
		"title=hello",
		`meta:={"a":1}`,
		"file@" + path,
	})
	require.NoError(t, err)

	rb := endpoint.Post()
	require.NoError(t, applyItems(rb, items, httpclient.UTF8))
	req, err := rb.Build()
	require.NoError(t, err)

	assert.Equal(t, "core", req.Header().Get("X-Team"))
	assert.Equal(t, url.Values{"page": {"2"}}, req.Endpoint().URL().Query())

	body, ok := req.Body().(*httpclient.MultipartBody)
	require.True(t, ok, "form items should produce a multipart body")

	parts := body.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, "title", parts[0].Name())
	assert.False(t, parts[0].IsBinaryTransferEncoding())
	assert.Equal(t, "meta", parts[1].Name())
	assert.Equal(t, `application/json; charset="UTF-8"`, parts[1].ContentType())
	assert.Equal(t, "file", parts[2].Name())
	assert.True(t, parts[2].IsBinaryTransferEncoding())
	assert.Equal(t, httpclient.ContentTypeOctetStream, parts[2].ContentType())
}

func TestApplyItems_JSONPartUnencodable(t *testing.T) {
	endpoint, err := httpclient.ParseEndpoint("http://example.com/upload")
	require.NoError(t, err)

	items, err := ParseItems([]string{`meta:="日本"`})
	require.NoError(t, err)

	err = applyItems(endpoint.Post(), items, httpclient.MustLookupCharset("ISO-8859-1"))
	assert.ErrorIs(t, err, httpclient.ErrEncoding)
}

func TestApplyItems_FileContentTypeFromExtension(t *testing.T) {
	part := filePart("doc", "/tmp/report.json")
	assert.Equal(t, "application/json", part.ContentType())
	assert.True(t, part.IsBinaryTransferEncoding())
}
