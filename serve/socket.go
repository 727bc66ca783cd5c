package serve

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrAddressInUse is returned when another daemon owns the socket.
	ErrAddressInUse = errors.New("another zlaunch daemon is already running")
	// ErrDaemonNotRunning is returned by clients when nothing listens on the socket.
	ErrDaemonNotRunning = errors.New("zlaunch daemon is not running")
)

const probeTimeout = 500 * time.Millisecond

// ResolveSocketPath returns the control socket path.
// Resolution order: $ZLAUNCH_SOCKET > $XDG_RUNTIME_DIR/zlaunch.sock > /tmp/zlaunch-$UID.sock
func ResolveSocketPath() string {
	if path := os.Getenv("ZLAUNCH_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "zlaunch.sock")
	}
	return fmt.Sprintf("/tmp/zlaunch-%d.sock", os.Getuid())
}

// lockFile holds an exclusive advisory lock on <socket>.lock for the
// lifetime of the daemon.
type lockFile struct {
	f *os.File
}

func acquireLock(sockPath string) (*lockFile, error) {
	f, err := os.OpenFile(sockPath+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAddressInUse
		}
		return nil, fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	return &lockFile{f: f}, nil
}

func (l *lockFile) release() {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
}

// alive reports whether something accepts connections on sockPath.
func alive(sockPath string) bool {
	conn, err := net.DialTimeout("unix", sockPath, probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// listen claims sockPath: it takes the lock, refuses a live socket and
// removes a dead one.
func listen(sockPath string) (net.Listener, *lockFile, error) {
	if err := os.MkdirAll(filepath.Dir(sockPath), 0700); err != nil {
		return nil, nil, err
	}
	lock, err := acquireLock(sockPath)
	if err != nil {
		return nil, nil, err
	}

	if alive(sockPath) {
		lock.release()
		return nil, nil, ErrAddressInUse
	}
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		lock.release()
		return nil, nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		lock.release()
		if errors.Is(err, unix.EADDRINUSE) {
			return nil, nil, ErrAddressInUse
		}
		return nil, nil, err
	}
	return listener, lock, nil
}
