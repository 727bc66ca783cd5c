package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	zlaunch "github.com/zortax/zlaunch"
)

// echoHandler replies with the request's query as text.
func echoHandler() Handler {
	return HandlerFunc(func(_ context.Context, req *zlaunch.Request) *zlaunch.Response {
		if req.Command == "fail" {
			return zlaunch.ErrorResponse(zlaunch.Validationf("bad %s", req.Name))
		}
		return &zlaunch.Response{OK: true, Text: req.Command + ":" + req.Query}
	})
}

var testSocketCounter atomic.Int64

func testSocketPath() string {
	// Use /tmp directly to stay under the 104/108-char Unix socket path limit
	n := testSocketCounter.Add(1)
	return fmt.Sprintf("/tmp/zlaunch-t%d-%d.sock", time.Now().UnixNano()%100000, n)
}

func newTestServer(t *testing.T, handler Handler) *Server {
	t.Helper()
	path := testSocketPath()
	srv, err := NewServer(path, handler)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		srv.Close()
		os.Remove(path + ".lock")
	})
	go srv.Serve()
	return srv
}

func sendRaw(t *testing.T, sockPath, line string) string {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.Write([]byte(line))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatal("no response from server")
	}
	return scanner.Text()
}

func decode(t *testing.T, raw string) *zlaunch.Response {
	t.Helper()
	var resp zlaunch.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	return &resp
}

func TestHandleConnRoundTrip(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	resp := decode(t, sendRaw(t, srv.SocketPath(), `{"command":"query","query":"fire"}`+"\n"))
	if !resp.OK {
		t.Fatalf("expected ok, got %+v", resp.Error)
	}
	if resp.Text != "query:fire" {
		t.Errorf("expected text query:fire, got %q", resp.Text)
	}
}

func TestHandleConnWithoutTrailingNewline(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.Write([]byte(`{"command":"status"}`))
	conn.(*net.UnixConn).CloseWrite()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatal("no response")
	}
	if resp := decode(t, scanner.Text()); resp.Text != "status:" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandleConnMalformed(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	resp := decode(t, sendRaw(t, srv.SocketPath(), "not json\n"))
	if resp.OK {
		t.Fatal("expected failure for malformed request")
	}
	if resp.Error == nil || resp.Error.Code != zlaunch.CodeProtocol {
		t.Errorf("expected protocol_error, got %+v", resp.Error)
	}

	// Server should survive and keep answering.
	resp = decode(t, sendRaw(t, srv.SocketPath(), `{"command":"status"}`+"\n"))
	if !resp.OK {
		t.Errorf("server should survive malformed request, got %+v", resp.Error)
	}
}

func TestHandleConnMissingCommand(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	resp := decode(t, sendRaw(t, srv.SocketPath(), `{"query":"x"}`+"\n"))
	if resp.Error == nil || resp.Error.Code != zlaunch.CodeProtocol {
		t.Errorf("expected protocol_error, got %+v", resp.Error)
	}
}

func TestHandleConnOversized(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	line := `{"command":"query","query":"` + strings.Repeat("a", MaxRequestBytes) + `"}` + "\n"
	resp := decode(t, sendRaw(t, srv.SocketPath(), line))
	if resp.Error == nil || resp.Error.Code != zlaunch.CodeProtocol {
		t.Errorf("expected protocol_error for oversized request, got %+v", resp.Error)
	}
}

func TestHandleConnHandlerError(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	raw := sendRaw(t, srv.SocketPath(), `{"command":"fail","name":"mode"}`+"\n")
	if !strings.Contains(raw, `"code":"validation_error"`) {
		t.Errorf("expected validation_error in raw JSON, got %s", raw)
	}
	if !strings.Contains(raw, `"ok":false`) {
		t.Errorf("expected ok:false in raw JSON, got %s", raw)
	}
}

func TestHandleConnConcurrent(t *testing.T) {
	srv := newTestServer(t, echoHandler())

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan string, n)

	for i := range n {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", id)
			resp := decode(t, sendRaw(t, srv.SocketPath(), `{"command":"query","query":"`+q+`"}`+"\n"))
			if resp.Text != "query:"+q {
				errs <- fmt.Sprintf("goroutine %d: got %q", id, resp.Text)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

func TestCloseCancelsInFlightAndWaitsForReply(t *testing.T) {
	started := make(chan struct{})
	srv, err := NewServer(testSocketPath(), HandlerFunc(func(ctx context.Context, _ *zlaunch.Request) *zlaunch.Response {
		close(started)
		<-ctx.Done()
		return &zlaunch.Response{OK: true, Text: "cancelled"}
	}))
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve()

	got := make(chan string, 1)
	go func() {
		conn, err := net.Dial("unix", srv.SocketPath())
		if err != nil {
			got <- err.Error()
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"command":"ask"}` + "\n"))
		scanner := bufio.NewScanner(conn)
		scanner.Scan()
		got <- scanner.Text()
	}()

	<-started
	srv.Close()

	select {
	case raw := <-got:
		if !strings.Contains(raw, "cancelled") {
			t.Errorf("expected the in-flight reply before close, got %q", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply after close")
	}
}
