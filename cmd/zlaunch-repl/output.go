package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	zlaunch "github.com/zortax/zlaunch"
)

// termWriter returns f itself when it is redirected. On a terminal in raw
// mode it returns a writer that emits \r\n line endings.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err
}

// view is what the picker screen shows.
type view struct {
	state    *zlaunch.State
	results  []zlaunch.Result
	selected int
	status   string
}

// draw repaints the screen: a mode line, up to rows results and the prompt
// with the cursor placed tail runes from the end of query.
func draw(w io.Writer, v *view, query string, tail, rows int) {
	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")

	if st := v.state; st != nil {
		for _, m := range st.Modes {
			if m == st.Mode {
				fmt.Fprintf(&b, "[%s] ", m)
			} else {
				fmt.Fprintf(&b, " %s  ", m)
			}
		}
		b.WriteString("\r\n")
	}
	if v.status != "" {
		fmt.Fprintf(&b, "%s\r\n", v.status)
	}
	b.WriteString("\r\n")

	for i, r := range v.results {
		if i >= rows {
			fmt.Fprintf(&b, "  ... %d more\r\n", len(v.results)-rows)
			break
		}
		marker := "  "
		if i == v.selected {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s", marker, r.Title)
		if r.Subtitle != "" {
			fmt.Fprintf(&b, "  \x1b[2m%s\x1b[0m", r.Subtitle)
		}
		b.WriteString("\r\n")
	}
	if len(v.results) == 0 {
		b.WriteString("  (no results)\r\n")
	}

	fmt.Fprintf(&b, "\r\n%s%s", prompt, query)
	if tail > 0 {
		fmt.Fprintf(&b, "\x1b[%dD", tail)
	}
	io.WriteString(w, b.String())
}

// activation is one activated entry, logged as TOML.
type activation struct {
	Timestamp time.Time    `toml:"timestamp"`
	Mode      zlaunch.Mode `toml:"mode"`
	Query     string       `toml:"query"`
	ID        string       `toml:"id"`
	Title     string       `toml:"title"`
	Module    string       `toml:"module"`
	Score     int          `toml:"score"`
	Error     *logError    `toml:"error,omitempty"`
}

type logError struct {
	Code    string `toml:"code"`
	Message string `toml:"message"`
}

// writeEntry writes a single TOML-formatted activation to w.
func writeEntry(w io.Writer, a activation) error {
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("=", 60))
	return toml.NewEncoder(w).Encode(map[string]activation{"activation": a})
}
