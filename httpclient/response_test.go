package httpclient

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse_StatusClasses(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		wantSuccess bool
		wantError   bool
	}{
		{"given 200, then success", http.StatusOK, true, false},
		{"given 204, then success", http.StatusNoContent, true, false},
		{"given 210, then success", 210, true, false},
		{"given 299, then success", 299, true, false},
		{"given 304, then neither", http.StatusNotModified, false, false},
		{"given 400, then error", http.StatusBadRequest, false, true},
		{"given 500, then error", http.StatusInternalServerError, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &RawResponse{StatusCode: tt.statusCode}
			assert.Equal(t, tt.wantSuccess, raw.IsSuccess())
			assert.Equal(t, tt.wantError, raw.IsError())

			resp := &Response[string]{StatusCode: tt.statusCode, raw: raw}
			assert.Equal(t, tt.wantSuccess, resp.IsSuccess())
			assert.Equal(t, tt.wantError, resp.IsError())
			assert.Same(t, raw, resp.Raw())
		})
	}
}

func TestRawResponse_BytesSent(t *testing.T) {
	assert.Zero(t, (&RawResponse{}).BytesSent())

	n := new(atomic.Int64)
	n.Store(42)
	assert.EqualValues(t, 42, (&RawResponse{bytesSent: n}).BytesSent())
}
