package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/courier-go/receiver"
)

type receiveOptions struct {
	addr    string
	noColor bool
	quiet   bool
}

func newReceiveCmd() *cobra.Command {
	opts := &receiveOptions{}

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Run a local upload sink",
		Long: `Run a local HTTP server that accepts any request and prints what
arrived: every form-data part with its name, filename, content type, size
and, for text parts, the decoded value. The same description is returned
to the client as JSON.

Examples:
  courier receive --addr 127.0.0.1:8080
  courier send POST :8080/upload title=hello report@q4.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReceive(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", getEnvString("COURIER_RECEIVE_ADDR", "127.0.0.1:8080"), "Address to listen on (env: COURIER_RECEIVE_ADDR)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", getEnvBool("COURIER_NO_COLOR", false), "Disable colored output (env: COURIER_NO_COLOR)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not log server lifecycle and requests")

	return cmd
}

func runReceive(cmd *cobra.Command, opts *receiveOptions) error {
	logger := zerolog.Nop()
	if !opts.quiet {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        cmd.ErrOrStderr(),
			NoColor:    opts.noColor,
			TimeFormat: time.Kitchen,
		}).With().Timestamp().Logger()
	}

	out := newPrinter(cmd.OutOrStdout(), opts.noColor)
	var mu sync.Mutex

	srv := receiver.New(
		receiver.WithAddr(opts.addr),
		receiver.WithLogger(logger),
		receiver.WithOnUpload(func(u receiver.Upload) {
			mu.Lock()
			defer mu.Unlock()
			out.Upload(u)
		}),
	)

	if err := srv.ListenAndServe(cmd.Context()); err != nil {
		return &ExitError{Code: ExitNetworkError, Err: err}
	}
	return nil
}

// Upload prints one received upload and its parts.
func (p *printer) Upload(u receiver.Upload) {
	transfer := "length"
	if u.Chunked {
		transfer = "chunked"
	}
	fmt.Fprintf(p.out, "%s %s %s\n",
		p.header.Sprint(u.Method),
		u.Path,
		p.dim.Sprintf("(%s, %s, %d parts)", bytefmt.ByteSize(uint64(u.Size)), transfer, len(u.Parts)))

	for _, part := range u.Parts {
		writePart(p.out, part)
	}
}

func writePart(w io.Writer, part receiver.Part) {
	name := part.Name
	if name == "" {
		name = "(body)"
	}
	fmt.Fprintf(w, "  %s", name)
	if part.IsFile() {
		fmt.Fprintf(w, " file=%q", part.Filename)
	}
	if part.ContentType != "" {
		fmt.Fprintf(w, " type=%q", part.ContentType)
	}
	fmt.Fprintf(w, " size=%s", bytefmt.ByteSize(uint64(part.Size)))
	if !part.IsFile() && part.Value != "" {
		value := part.Value
		if part.Truncated {
			value += "..."
		}
		fmt.Fprintf(w, " value=%q", value)
	}
	fmt.Fprintln(w)
}
