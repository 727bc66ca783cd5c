// Command zlaunch is the zlaunch launcher. Without a subcommand (or with
// "daemon") it runs the daemon; every other subcommand is a short-lived
// client that sends one request to the running daemon.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/serve"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitNoDaemon    = 2
	exitAddrInUse   = 3
	exitProtocol    = 4
	exitValidation  = 5
	exitFatalConfig = 6
)

type rootOptions struct {
	verbose bool
	json    bool
	socket  string
}

func main() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "zlaunch:", err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "zlaunch",
		Short:         "Application launcher daemon",
		Long:          "zlaunch runs a background launcher daemon and controls it from the command line.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every request and response")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print the raw JSON reply")
	cmd.PersistentFlags().StringVar(&opts.socket, "socket", "", "control socket path (default $ZLAUNCH_SOCKET or $XDG_RUNTIME_DIR/zlaunch.sock)")

	cmd.AddCommand(newDaemonCmd(opts))
	addClientCommands(cmd, opts)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return zlaunch.Protocolf("%v", err)
	})
	malformedArgs(cmd)
	return cmd
}

// malformedArgs makes argument validation errors of cmd and its
// subcommands protocol errors, so that a malformed command line exits
// with exitProtocol.
func malformedArgs(cmd *cobra.Command) {
	if validate := cmd.Args; validate != nil {
		cmd.Args = func(c *cobra.Command, args []string) error {
			if err := validate(c, args); err != nil {
				return zlaunch.Protocolf("%v", err)
			}
			return nil
		}
	}
	for _, sub := range cmd.Commands() {
		malformedArgs(sub)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func (o *rootOptions) socketPath() string {
	if o.socket != "" {
		return o.socket
	}
	return serve.ResolveSocketPath()
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch {
	case errors.Is(err, serve.ErrDaemonNotRunning):
		return exitNoDaemon
	case errors.Is(err, serve.ErrAddressInUse):
		return exitAddrInUse
	}
	var e *zlaunch.Error
	if errors.As(err, &e) {
		switch e.Code {
		case zlaunch.CodeProtocol:
			return exitProtocol
		case zlaunch.CodeValidation:
			return exitValidation
		case zlaunch.CodeStartup:
			return exitFatalConfig
		}
	}
	return exitFailure
}
