package cli

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/fatih/color"
)

type printer struct {
	out     io.Writer
	noColor bool

	header *color.Color
	dim    *color.Color
}

func newPrinter(out io.Writer, noColor bool) *printer {
	p := &printer{
		out:     out,
		noColor: noColor,
		header:  color.New(color.FgCyan),
		dim:     color.New(color.Faint),
	}
	if noColor {
		p.header.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

func (p *printer) statusColor(code int) *color.Color {
	var c *color.Color
	switch {
	case code >= 500:
		c = color.New(color.FgRed, color.Bold)
	case code >= 400:
		c = color.New(color.FgYellow, color.Bold)
	case code >= 300:
		c = color.New(color.FgCyan, color.Bold)
	case code >= 200:
		c = color.New(color.FgGreen, color.Bold)
	default:
		c = color.New(color.Bold)
	}
	if p.noColor {
		c.DisableColor()
	}
	return c
}

// Status prints the status line, e.g. "201 Created".
func (p *printer) Status(code int, status string) {
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	p.statusColor(code).Fprintln(p.out, status)
}

// Headers prints one line per header value, keys sorted.
func (p *printer) Headers(h http.Header) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range h[k] {
			fmt.Fprintf(p.out, "%s %s\n", p.header.Sprint(k+":"), v)
		}
	}
}

// Body prints the decoded body, ending it with a newline.
func (p *printer) Body(body string) {
	if body == "" {
		return
	}
	fmt.Fprint(p.out, body)
	if !strings.HasSuffix(body, "\n") {
		fmt.Fprintln(p.out)
	}
}

// Summary prints the number of request body bytes sent and the elapsed time.
func (p *printer) Summary(bytesSent int64, elapsed time.Duration) {
	if bytesSent < 0 {
		bytesSent = 0
	}
	p.dim.Fprintf(p.out, "%s sent in %s\n",
		bytefmt.ByteSize(uint64(bytesSent)), elapsed.Round(time.Millisecond))
}
