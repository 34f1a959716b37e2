package cli

// Exit codes for the courier CLI
const (
	// ExitSuccess indicates the request was sent and, with --check-status,
	// answered with a 1xx or 2xx status
	ExitSuccess = 0

	// ExitFailure indicates an unexpected error
	ExitFailure = 1

	// ExitNetworkError indicates a transport or body streaming failure
	ExitNetworkError = 2

	// ExitRedirect indicates a 3xx status with --check-status
	ExitRedirect = 3

	// ExitClientError indicates a 4xx status with --check-status
	ExitClientError = 4

	// ExitServerError indicates a 5xx status with --check-status
	ExitServerError = 5

	// ExitConfigError indicates an unreadable or invalid config file
	ExitConfigError = 78

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error { return &ExitError{Code: ExitUsageError, Err: err} }

// statusExitCode returns the --check-status exit code for an HTTP status.
func statusExitCode(status int) int {
	switch {
	case status >= 500:
		return ExitServerError
	case status >= 400:
		return ExitClientError
	case status >= 300:
		return ExitRedirect
	default:
		return ExitSuccess
	}
}
