// Command zlaunch-repl is an interactive terminal picker for a running
// zlaunch daemon. Every keystroke sends set-query and redraws the ranked
// results; Enter activates the selected entry and appends a TOML record
// of it to stdout.
//
// Usage:
//
//	zlaunch-repl                       # picker and log on screen
//	zlaunch-repl -modes apps,windows   # restrict the mode cycle
//	zlaunch-repl > log.toml            # picker on screen, log to file
//
// Keys: Up/Down or Ctrl-P/Ctrl-N move the selection, Tab and Shift-Tab
// switch mode, Ctrl-C or Ctrl-D on an empty query hides the picker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/serve"
)

const (
	prompt         = "> "
	visibleRows    = 15
	requestTimeout = 5 * time.Second
)

type picker struct {
	sock string
	view view
}

func (p *picker) send(req *zlaunch.Request) (*zlaunch.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := serve.Send(ctx, p.sock, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return resp, resp.Error
	}
	return resp, nil
}

// apply records the reply of a session command. Results replace the list
// only when the reply carries a fresh query resolution.
func (p *picker) apply(resp *zlaunch.Response, withResults bool) {
	if resp.State != nil {
		p.view.state = resp.State
	}
	if withResults {
		p.view.results = resp.Results
		p.view.selected = 0
	}
	p.view.status = ""
}

func (p *picker) fail(err error) {
	p.view.status = "error: " + err.Error()
}

func (p *picker) refresh(query string) {
	resp, err := p.send(&zlaunch.Request{Command: zlaunch.CommandSetQuery, Query: query})
	if err != nil {
		p.fail(err)
		return
	}
	p.apply(resp, true)
}

func (p *picker) move(delta int) {
	n := len(p.view.results)
	if n == 0 {
		return
	}
	p.view.selected = (p.view.selected + delta + n) % n
}

func main() {
	modes := flag.String("modes", "", "comma-separated modes to cycle through")
	sock := flag.String("socket", serve.ResolveSocketPath(), "control socket path")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*sock, splitModes(*modes)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, serve.ErrDaemonNotRunning) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(sock string, modes []string) error {
	p := &picker{sock: sock}

	resp, err := p.send(&zlaunch.Request{Command: zlaunch.CommandShow, Modes: modes})
	if err != nil {
		return err
	}
	p.apply(resp, false)

	editor, err := NewEditor()
	if err != nil {
		return err
	}
	defer editor.Close()
	tty := editor.Tty()

	// stdout converts \n to \r\n while the terminal is in raw mode.
	out := termWriter(os.Stdout)

	p.refresh("")
	for {
		draw(tty, &p.view, editor.Text(), editor.Tail(), visibleRows)

		key, edited, err := editor.Next()
		if err == io.EOF || err == ErrInterrupt {
			_, err := p.send(&zlaunch.Request{Command: zlaunch.CommandHide})
			io.WriteString(tty, "\x1b[2J\x1b[H")
			return err
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if edited {
			p.refresh(editor.Text())
			continue
		}

		switch key {
		case KeyUp:
			p.move(-1)
		case KeyDown:
			p.move(1)
		case KeyTab, KeyBackTab:
			cmd := zlaunch.CommandNextMode
			if key == KeyBackTab {
				cmd = zlaunch.CommandPrevMode
			}
			if _, err := p.send(&zlaunch.Request{Command: cmd}); err != nil {
				p.fail(err)
				continue
			}
			p.refresh(editor.Text())
		case KeyEnter:
			if len(p.view.results) == 0 {
				continue
			}
			if done := p.activate(out, editor.Text()); done {
				io.WriteString(tty, "\x1b[2J\x1b[H")
				return nil
			}
		}
	}
}

// activate runs the selected entry and logs it. It reports whether the
// picker was hidden by the activation.
func (p *picker) activate(out io.Writer, query string) bool {
	r := p.view.results[p.view.selected]
	entry := activation{
		Timestamp: time.Now(),
		Query:     query,
		ID:        r.ID,
		Title:     r.Title,
		Module:    string(r.Module),
		Score:     r.Score,
	}
	if p.view.state != nil {
		entry.Mode = p.view.state.Mode
	}

	resp, err := p.send(&zlaunch.Request{Command: zlaunch.CommandActivate, ID: r.ID, Query: query})
	if err != nil {
		e := zlaunch.AsError(err)
		entry.Error = &logError{Code: string(e.Code), Message: e.Message}
		p.fail(err)
	}
	if err := writeEntry(out, entry); err != nil {
		slog.Warn("failed to write log entry", "error", err)
	}
	return err == nil && resp.State != nil && !resp.State.Visible
}

func splitModes(s string) []string {
	var modes []string
	for m := range strings.SplitSeq(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			modes = append(modes, m)
		}
	}
	return modes
}
