package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zortax/zlaunch/daemon"
)

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
}

func runDaemon(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(daemon.Options{SocketPath: opts.socketPath()})
	if err != nil {
		return err
	}
	slog.Info("starting", "socket", d.SocketPath(), "pid", os.Getpid())

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				slog.Info("SIGHUP received, reloading")
				if _, err := d.Reload(); err != nil {
					slog.Warn("reload failed", "error", err)
				}
			case <-d.Done():
				return
			}
		}
	}()

	return d.Run(ctx)
}
