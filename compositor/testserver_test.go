package compositor

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var testSocketCounter atomic.Int64

// fakeServer answers one request per connection, like the compositor IPC
// sockets do.
type fakeServer struct {
	path     string
	listener net.Listener

	mu       sync.Mutex
	requests []string
}

// newFakeServer starts a server. readLine selects line-delimited requests
// (niri) instead of read-until-pause (hyprland, which never sends a newline).
func newFakeServer(t *testing.T, readLine bool, reply func(req string) string) *fakeServer {
	t.Helper()
	// Use /tmp directly to avoid the 104-char Unix socket path limit
	path := fmt.Sprintf("/tmp/zlaunch-compositor-t%d.sock", testSocketCounter.Add(1))
	l, err := net.Listen("unix", path)
	require.NoError(t, err)

	s := &fakeServer{path: path, listener: l}
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				var req string
				if readLine {
					line, err := bufio.NewReader(conn).ReadString('\n')
					if err != nil {
						return
					}
					req = line[:len(line)-1]
				} else {
					buf := make([]byte, 4096)
					n, err := conn.Read(buf)
					if err != nil && err != io.EOF {
						return
					}
					req = string(buf[:n])
				}
				s.mu.Lock()
				s.requests = append(s.requests, req)
				s.mu.Unlock()
				io.WriteString(conn, reply(req))
			}()
		}
	}()
	return s
}

func (s *fakeServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}
