// Package cli implements the courier command line tool, a thin front end
// over the httpclient package for sending multipart and plain requests.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courier",
		Short: "Send HTTP requests with streamed multipart bodies.",
		Long: `courier sends HTTP requests from the command line. Form fields and
files given as request items are streamed as multipart/form-data, encoded
with the charset of your choice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newReceiveCmd())
	cmd.AddCommand(newContentTypeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the matching exit code.
func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "courier:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps err to a process exit code.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
