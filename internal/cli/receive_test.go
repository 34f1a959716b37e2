package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/courier-go/receiver"
)

func TestPrinter_Upload(t *testing.T) {
	tests := []struct {
		name   string
		upload receiver.Upload
		want   string
	}{
		{
			name: "given a multipart upload, then each part gets a line",
			upload: receiver.Upload{
				Method:  "POST",
				Path:    "/upload",
				Chunked: true,
				Size:    1536,
				Parts: []receiver.Part{
					{Name: "title", ContentType: `text/plain; charset="UTF-8"`, Size: 5, Value: "hello"},
					{Name: "report", Filename: "q4.pdf", ContentType: "application/pdf", Size: 1024},
				},
			},
			want: "POST /upload (1.5K, chunked, 2 parts)\n" +
				`  title type="text/plain; charset=\"UTF-8\"" size=5B value="hello"` + "\n" +
				`  report file="q4.pdf" type="application/pdf" size=1K` + "\n",
		},
		{
			name: "given a plain body, then its part is unnamed",
			upload: receiver.Upload{
				Method: "PUT",
				Path:   "/",
				Size:   4,
				Parts:  []receiver.Part{{Size: 4, Value: "abcd", Truncated: true}},
			},
			want: "PUT / (4B, length, 1 parts)\n" +
				`  (body) size=4B value="abcd..."` + "\n",
		},
		{
			name:   "given no body, then only the summary line",
			upload: receiver.Upload{Method: "GET", Path: "/ping"},
			want:   "GET /ping (0B, length, 0 parts)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newPrinter(&buf, true).Upload(tt.upload)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestReceiveCmd(t *testing.T) {
	t.Run("given an unusable address, then the exit code is a network error", func(t *testing.T) {
		_, _, err := runCLI(t, "receive", "--addr", "not-an-address", "--quiet")
		require.Error(t, err)
		assert.Equal(t, ExitNetworkError, exitCode(err))
	})

	t.Run("given positional arguments, then it fails", func(t *testing.T) {
		_, _, err := runCLI(t, "receive", "extra")
		assert.Error(t, err)
	})
}
