package cli

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("courier version %s\nBuilt: %s\n", version, buildTime), stdout)
}

func TestContentTypeCmd(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "given a charset, then type and charset are printed",
			value: "text/plain; charset=UTF-8; some more values",
			want:  "type:    text/plain\ncharset: UTF-8\n",
		},
		{
			name:  "given a quoted charset after other parameters, then it is unquoted",
			value: `multipart/form-data; boundary=x; charset="ISO-8859-1"`,
			want:  "type:    multipart/form-data\ncharset: ISO-8859-1\n",
		},
		{
			name:  "given no charset, then none is printed",
			value: "application/octet-stream",
			want:  "type:    application/octet-stream\ncharset: (none)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runCLI(t, "content-type", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "given a plain error, then it is a failure", err: errors.New("x"), want: ExitFailure},
		{name: "given a usage error, then it is 64", err: usageError(errors.New("x")), want: ExitUsageError},
		{
			name: "given a wrapped exit error, then its code is used",
			err:  fmt.Errorf("outer: %w", &ExitError{Code: ExitConfigError, Err: errors.New("x")}),
			want: ExitConfigError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestStatusExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, statusExitCode(http.StatusContinue))
	assert.Equal(t, ExitSuccess, statusExitCode(http.StatusNoContent))
	assert.Equal(t, ExitRedirect, statusExitCode(http.StatusMovedPermanently))
	assert.Equal(t, ExitClientError, statusExitCode(http.StatusTeapot))
	assert.Equal(t, ExitServerError, statusExitCode(http.StatusBadGateway))
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ExitError{Code: ExitNetworkError, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "inner", err.Error())
}
