package cli

import (
	"fmt"

	"github.com/kroma-labs/courier-go/httpclient"
	"github.com/spf13/cobra"
)

func newContentTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "content-type VALUE",
		Short: "Parse a Content-Type header value",
		Long: `Parse a Content-Type header value the way courier reads responses and
print its media type and charset.

Examples:
  courier content-type 'text/html; charset=ISO-8859-1'
  courier content-type 'multipart/form-data; boundary=x; charset="UTF-8"'`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mt := httpclient.ParseContentType(args[0])

			charset := "(none)"
			if mt.HasCharset() {
				charset = mt.Charset
			}

			fmt.Fprintf(cmd.OutOrStdout(), "type:    %s\n", mt.Type)
			fmt.Fprintf(cmd.OutOrStdout(), "charset: %s\n", charset)
		},
	}
}
