// Package launch starts programs detached from the daemon.
package launch

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// ErrEmptyCommand is returned for an empty argv or command line.
var ErrEmptyCommand = errors.New("launch: empty command")

// Launcher starts processes in their own session with stdio on /dev/null,
// so they outlive the daemon and never write to its terminal.
type Launcher struct {
	// Dir is the working directory of started processes. Empty means $HOME.
	Dir    string
	logger *slog.Logger
}

// New creates a Launcher.
func New() *Launcher {
	dir, _ := os.UserHomeDir()
	return &Launcher{
		Dir:    dir,
		logger: slog.Default().With("component", "launch"),
	}
}

// Spawn starts argv. It returns once the process is running.
func (l *Launcher) Spawn(argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return ErrEmptyCommand
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = l.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	l.logger.Debug("started", "argv", argv, "pid", cmd.Process.Pid)

	// Reap the child; its exit status is of no interest.
	go cmd.Wait()
	return nil
}

// Shell runs command with sh -c.
func (l *Launcher) Shell(command string) error {
	if command == "" {
		return ErrEmptyCommand
	}
	return l.Spawn([]string{"sh", "-c", command})
}

// OpenURL opens url with the desktop's default handler.
func (l *Launcher) OpenURL(url string) error {
	if url == "" {
		return ErrEmptyCommand
	}
	return l.Spawn([]string{"xdg-open", url})
}
