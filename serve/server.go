// Package serve implements the zlaunch control endpoint: a Unix domain
// socket that answers one JSON request line with one JSON response line.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	zlaunch "github.com/zortax/zlaunch"
)

const (
	// MaxRequestBytes bounds a request line.
	MaxRequestBytes = 64 * 1024
	readTimeout     = 5 * time.Second
	writeTimeout    = 5 * time.Second
)

// Handler executes one request.
type Handler interface {
	Handle(ctx context.Context, req *zlaunch.Request) *zlaunch.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *zlaunch.Request) *zlaunch.Response

func (f HandlerFunc) Handle(ctx context.Context, req *zlaunch.Request) *zlaunch.Response {
	return f(ctx, req)
}

// Server listens on a Unix domain socket for control requests.
type Server struct {
	listener net.Listener
	sockPath string
	lock     *lockFile
	handler  Handler
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	conns     sync.WaitGroup
	closeOnce sync.Once
}

// NewServer binds sockPath. It fails with ErrAddressInUse when another
// daemon holds the socket.
func NewServer(sockPath string, handler Handler) (*Server, error) {
	listener, lock, err := listen(sockPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listener: listener,
		sockPath: sockPath,
		lock:     lock,
		handler:  handler,
		logger:   slog.Default().With("component", "serve"),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// SocketPath returns the bound socket path.
func (s *Server) SocketPath() string {
	return s.sockPath
}

// Serve accepts connections until Close. It returns nil after Close.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting, cancels in-flight requests, waits for their
// replies and removes the socket file. It must not be called from a
// Handler.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.listener.Close()
		s.conns.Wait()
		os.Remove(s.sockPath)
		s.lock.release()
	})
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	reader := bufio.NewReaderSize(io.LimitReader(conn, MaxRequestBytes+1), 4096)
	raw, err := reader.ReadBytes('\n')
	if len(raw) == 0 {
		return
	}
	if err != nil && !errors.Is(err, io.EOF) {
		s.reply(conn, zlaunch.ErrorResponse(zlaunch.Protocolf("read request: %v", err)))
		return
	}
	if len(raw) > MaxRequestBytes {
		s.reply(conn, zlaunch.ErrorResponse(zlaunch.Protocolf("request exceeds %d bytes", MaxRequestBytes)))
		return
	}

	s.logger.Debug("request", "data", string(raw))

	var req zlaunch.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Warn("invalid request", "error", err)
		s.reply(conn, zlaunch.ErrorResponse(zlaunch.Protocolf("malformed request: %v", err)))
		return
	}
	if req.Command == "" {
		s.reply(conn, zlaunch.ErrorResponse(zlaunch.Protocolf("missing command")))
		return
	}

	resp := s.handler.Handle(s.ctx, &req)
	if resp == nil {
		resp = zlaunch.OKResponse()
	}
	s.reply(conn, resp)
}

func (s *Server) reply(conn net.Conn, resp *zlaunch.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	s.logger.Debug("response", "data", string(data))

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		s.logger.Debug("client went away", "error", err)
	}
}
