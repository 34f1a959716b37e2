package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/courier-go/httpclient"
)

// requestIDHeader is set on every request unless an item already sets it.
const requestIDHeader = "X-Request-ID"

type sendOptions struct {
	configPath  string
	charset     string
	operation   string
	timeout     time.Duration
	verbose     bool
	debug       bool
	curl        bool
	noColor     bool
	checkStatus bool
	bearer      string
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send METHOD URL [ITEM...]",
		Short: "Send a request",
		Long: `Send an HTTP request. Form items turn the body into a streamed
multipart/form-data body, with parts in the order they are given.

Request items:
  Header:Value   request header
  name==value    query parameter
  field=text     text part, encoded with --charset
  field:=json    JSON part
  field@path     file part

Examples:
  courier send POST example.com/upload title='Q4 report' report@q4.pdf
  courier send GET :8080/items page==2 Authorization:'Bearer token'
  courier send PUT /files/7 --config .courier.yaml meta:='{"tags":["a"]}'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", getEnvString("COURIER_CONFIG", ""), "Path to config file (env: COURIER_CONFIG)")
	cmd.Flags().StringVar(&opts.charset, "charset", getEnvString("COURIER_CHARSET", ""), "Charset for text and JSON parts (env: COURIER_CHARSET)")
	cmd.Flags().StringVar(&opts.operation, "operation", "", "Operation name used in span names")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Timeout for the whole exchange, 0 for none")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print response headers")
	cmd.Flags().BoolVar(&opts.debug, "debug", getEnvBool("COURIER_DEBUG", false), "Log request and response details to stderr (env: COURIER_DEBUG)")
	cmd.Flags().BoolVar(&opts.curl, "curl", false, "Print the equivalent curl command")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", getEnvBool("COURIER_NO_COLOR", false), "Disable colored output (env: COURIER_NO_COLOR)")
	cmd.Flags().StringVar(&opts.bearer, "bearer", getEnvString("COURIER_TOKEN", ""), "Bearer token for the Authorization header (env: COURIER_TOKEN)")
	cmd.Flags().BoolVar(&opts.checkStatus, "check-status", false, "Exit with 3, 4 or 5 on 3xx, 4xx or 5xx responses")

	return cmd
}

func runSend(cmd *cobra.Command, args []string, opts *sendOptions) error {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	mergeFlags(cmd, cfg, opts)

	cs, err := httpclient.LookupCharset(cfg.Charset)
	if err != nil {
		return usageError(err)
	}

	if !reMethod.MatchString(args[0]) {
		return usageError(fmt.Errorf("METHOD must consist of letters: %s", args[0]))
	}
	method := strings.ToUpper(args[0])

	rawURL, err := cfg.ResolveURL(args[1])
	if err != nil {
		return usageError(err)
	}
	endpoint, err := httpclient.ParseEndpoint(rawURL)
	if err != nil {
		return usageError(err)
	}

	items, err := ParseItems(args[2:])
	if err != nil {
		return usageError(err)
	}

	rb := endpoint.Request(method).Charset(cs).Operation(opts.operation)
	if err := applyItems(rb, items, cs); err != nil {
		return usageError(err)
	}
	req, err := rb.Build()
	if err != nil {
		return usageError(err)
	}

	client := newClient(cfg, cs, opts, cmd.ErrOrStderr())
	out := newPrinter(cmd.OutOrStdout(), cfg.NoColor)
	errOut := newPrinter(cmd.ErrOrStderr(), cfg.NoColor)

	start := time.Now()
	resp, err := httpclient.Execute(cmd.Context(), req, client, httpclient.StringParser{})
	if resp == nil {
		return &ExitError{Code: ExitNetworkError, Err: err}
	}
	raw := resp.Raw()

	if opts.curl {
		fmt.Fprintln(cmd.OutOrStdout(), raw.CurlCommand())
	}
	out.Status(raw.StatusCode, raw.Status)
	if opts.verbose {
		out.Headers(raw.Header)
	}
	if err != nil {
		return bodyReadError(err)
	}
	if opts.verbose && resp.Value != "" {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	out.Body(resp.Value)
	errOut.Summary(raw.BytesSent(), time.Since(start))

	if opts.checkStatus {
		if code := statusExitCode(raw.StatusCode); code != ExitSuccess {
			return &ExitError{Code: code, Err: fmt.Errorf("request failed with %s", raw.Status)}
		}
	}
	return nil
}

// mergeFlags applies flags given on the command line over the config file.
func mergeFlags(cmd *cobra.Command, cfg *Config, opts *sendOptions) {
	if opts.charset != "" {
		cfg.Charset = opts.charset
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if opts.noColor {
		cfg.NoColor = true
	}
	if opts.debug {
		cfg.Debug = true
	}
}

func newClient(cfg *Config, cs httpclient.Charset, opts *sendOptions, logOut io.Writer) *httpclient.Client {
	httpCfg := httpclient.UploadConfig()
	httpCfg.Timeout = cfg.Timeout

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        logOut,
		NoColor:    cfg.NoColor,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()

	clientOpts := []httpclient.Option{
		httpclient.WithConfig(httpCfg),
		httpclient.WithUserAgent("courier/" + version),
		httpclient.WithDefaultCharset(cs),
		httpclient.WithLogger(logger),
		httpclient.WithDebug(cfg.Debug),
		httpclient.WithGenerateCurl(opts.curl),
		httpclient.WithRequestInterceptor(
			httpclient.CorrelationIDInterceptor(requestIDHeader, uuid.NewString),
		),
	}
	if opts.bearer != "" {
		clientOpts = append(clientOpts,
			httpclient.WithRequestInterceptor(httpclient.AuthBearerInterceptor(opts.bearer)))
	}
	if cfg.ServiceName != "" {
		clientOpts = append(clientOpts, httpclient.WithServiceName(cfg.ServiceName))
	}
	for k, v := range cfg.Headers {
		clientOpts = append(clientOpts, httpclient.WithDefaultHeader(k, v))
	}

	return httpclient.New(clientOpts...)
}

func bodyReadError(err error) error {
	if errors.Is(err, httpclient.ErrEncoding) {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	return &ExitError{Code: ExitNetworkError, Err: err}
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
