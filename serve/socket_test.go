package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	zlaunch "github.com/zortax/zlaunch"
)

func TestResolveSocketFromZLAUNCH_SOCKET(t *testing.T) {
	t.Setenv("ZLAUNCH_SOCKET", "/custom/zlaunch.sock")
	got := ResolveSocketPath()
	if got != "/custom/zlaunch.sock" {
		t.Errorf("expected /custom/zlaunch.sock, got %s", got)
	}
}

func TestResolveSocketFromXDG_RUNTIME_DIR(t *testing.T) {
	t.Setenv("ZLAUNCH_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	got := ResolveSocketPath()
	if got != "/run/user/1000/zlaunch.sock" {
		t.Errorf("expected /run/user/1000/zlaunch.sock, got %s", got)
	}
}

func TestResolveSocketFallback(t *testing.T) {
	t.Setenv("ZLAUNCH_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	got := ResolveSocketPath()
	expected := fmt.Sprintf("/tmp/zlaunch-%d.sock", os.Getuid())
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestSecondServerIsRejected(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	_, err := NewServer(srv.SocketPath(), echoHandler())
	if !errors.Is(err, ErrAddressInUse) {
		t.Fatalf("expected ErrAddressInUse, got %v", err)
	}

	// The first server is unaffected.
	resp, err := Send(context.Background(), srv.SocketPath(), &zlaunch.Request{Command: "status"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Errorf("expected ok from the first server, got %+v", resp.Error)
	}
}

func TestLiveSocketWithoutLockIsRejected(t *testing.T) {
	path := testSocketPath()
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	_, err = NewServer(path, echoHandler())
	if !errors.Is(err, ErrAddressInUse) {
		t.Fatalf("expected ErrAddressInUse, got %v", err)
	}
	os.Remove(path + ".lock")
}

func TestStaleSocketIsReplaced(t *testing.T) {
	path := testSocketPath()
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	srv, err := NewServer(path, echoHandler())
	if err != nil {
		t.Fatalf("expected stale socket to be replaced, got %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	resp, err := Send(context.Background(), path, &zlaunch.Request{Command: "status"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestRestartAfterClose(t *testing.T) {
	path := testSocketPath()
	srv, err := NewServer(path, echoHandler())
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve()
	srv.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected socket file removed after close, stat err %v", err)
	}

	srv2, err := NewServer(path, echoHandler())
	if err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	srv2.Close()
}

func TestSendNoDaemon(t *testing.T) {
	_, err := Send(context.Background(), testSocketPath(), &zlaunch.Request{Command: "status"})
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, HandlerFunc(func(ctx context.Context, _ *zlaunch.Request) *zlaunch.Response {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return zlaunch.OKResponse()
	}))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Send(ctx, srv.SocketPath(), &zlaunch.Request{Command: "ask"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSendRoundTrip(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	resp, err := Send(context.Background(), srv.SocketPath(), &zlaunch.Request{Command: "set-query", Query: "fire"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "set-query:fire" {
		t.Errorf("unexpected text %q", resp.Text)
	}

	resp, err = Send(context.Background(), srv.SocketPath(), &zlaunch.Request{Command: "fail", Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || !errors.Is(resp.Error, zlaunch.ErrValidation) {
		t.Errorf("expected validation error, got %+v", resp.Error)
	}
}
