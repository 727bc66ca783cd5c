package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/serve"
)

const (
	requestTimeout = 10 * time.Second
	askTimeout     = 2 * time.Minute
)

func addClientCommands(root *cobra.Command, opts *rootOptions) {
	var modes []string
	for _, c := range []struct{ use, short string }{
		{zlaunch.CommandShow, "Show the picker"},
		{zlaunch.CommandToggle, "Show the picker, or hide it if visible"},
	} {
		cmd := &cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, opts, &zlaunch.Request{Command: c.use, Modes: modes})
			},
		}
		cmd.Flags().StringSliceVar(&modes, "modes", nil, "comma-separated modes to cycle through")
		root.AddCommand(cmd)
	}

	for _, c := range []struct{ use, short string }{
		{zlaunch.CommandHide, "Hide the picker"},
		{zlaunch.CommandQuit, "Stop the daemon"},
		{zlaunch.CommandReload, "Reload the configuration"},
		{zlaunch.CommandStatus, "Print the picker state"},
		{zlaunch.CommandNextMode, "Switch to the next mode"},
		{zlaunch.CommandPrevMode, "Switch to the previous mode"},
	} {
		root.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, opts, &zlaunch.Request{Command: c.use})
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "theme [list | set NAME]",
		Short: "Print, list or change the theme",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &zlaunch.Request{Command: zlaunch.CommandTheme}
			switch {
			case len(args) == 0:
			case args[0] == zlaunch.ThemeActionList && len(args) == 1:
				req.Action = zlaunch.ThemeActionList
			case args[0] == zlaunch.ThemeActionSet && len(args) == 2:
				req.Action = zlaunch.ThemeActionSet
				req.Name = args[1]
			default:
				return zlaunch.Protocolf("usage: zlaunch theme [list | set NAME]")
			}
			return send(cmd, opts, req)
		},
	})

	var queryModes []string
	var limit int
	queryCmd := &cobra.Command{
		Use:   "query [TEXT...]",
		Short: "Rank entries against a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, &zlaunch.Request{
				Command: zlaunch.CommandQuery,
				Modes:   queryModes,
				Query:   strings.Join(args, " "),
				Limit:   limit,
			})
		},
	}
	queryCmd.Flags().StringSliceVar(&queryModes, "modes", nil, "modes to search (default: the active mode)")
	queryCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results, 0 for all")
	root.AddCommand(queryCmd)

	root.AddCommand(&cobra.Command{
		Use:   "set-query [TEXT...]",
		Short: "Set the picker query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, &zlaunch.Request{Command: zlaunch.CommandSetQuery, Query: strings.Join(args, " ")})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "refresh [MODULE]",
		Short: "Rebuild one module's index, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &zlaunch.Request{Command: zlaunch.CommandRefresh}
			if len(args) == 1 {
				req.Module = args[0]
			}
			return send(cmd, opts, req)
		},
	})

	var activateQuery string
	activateCmd := &cobra.Command{
		Use:   "activate ID",
		Short: "Run the action of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, &zlaunch.Request{Command: zlaunch.CommandActivate, ID: args[0], Query: activateQuery})
		},
	}
	activateCmd.Flags().StringVar(&activateQuery, "query", "", "query text for search entries")
	root.AddCommand(activateCmd)

	root.AddCommand(&cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask the configured AI model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, &zlaunch.Request{Command: zlaunch.CommandAsk, Query: strings.Join(args, " ")})
		},
	})
}

// send delivers req and prints the reply. A daemon-side error is returned
// so that it selects the exit code.
func send(cmd *cobra.Command, opts *rootOptions, req *zlaunch.Request) error {
	timeout := requestTimeout
	if req.Command == zlaunch.CommandAsk {
		timeout = askTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := serve.Send(ctx, opts.socketPath(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		data, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		printResponse(out, resp)
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

func printResponse(w io.Writer, resp *zlaunch.Response) {
	for _, warning := range resp.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	if st := resp.State; st != nil {
		visibility := "hidden"
		if st.Visible {
			visibility = "visible"
		}
		fmt.Fprintf(w, "%s mode=%s modes=%s", visibility, st.Mode, joinModes(st.Modes))
		if st.Query != "" {
			fmt.Fprintf(w, " query=%q", st.Query)
		}
		fmt.Fprintln(w)
	}
	if resp.Theme != "" {
		fmt.Fprintln(w, resp.Theme)
	}
	for _, t := range resp.Themes {
		marker := " "
		if t.Active {
			marker = "*"
		}
		kind := "user"
		if t.Bundled {
			kind = "bundled"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", marker, t.Name, kind)
	}
	for _, r := range resp.Results {
		line := fmt.Sprintf("%-32s %s", r.ID, r.Title)
		if r.Subtitle != "" {
			line += "  - " + r.Subtitle
		}
		fmt.Fprintln(w, line)
	}
	if resp.Text != "" {
		fmt.Fprintln(w, resp.Text)
	}
}

func joinModes(modes []zlaunch.Mode) string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ",")
}
