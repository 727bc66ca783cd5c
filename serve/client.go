package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"

	zlaunch "github.com/zortax/zlaunch"
)

// Send delivers req to the daemon at sockPath and waits for its reply.
// It fails with ErrDaemonNotRunning when no daemon listens there. A
// daemon-side error is returned in the response, not as err.
func Send(ctx context.Context, sockPath string, req *zlaunch.Request) (*zlaunch.Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", sockPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w (socket %s)", ErrDaemonNotRunning, sockPath)
		}
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if len(line) == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil {
			err = errors.New("empty reply")
		}
		return nil, zlaunch.Protocolf("no reply from daemon: %v", err)
	}

	var resp zlaunch.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, zlaunch.Protocolf("malformed reply: %v", err)
	}
	return &resp, nil
}
