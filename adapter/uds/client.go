package uds

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// Send delivers one command to the server at socketPath and returns its reply.
// An "error: ..." reply is returned as an error.
func Send(ctx context.Context, socketPath, line string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return "", errors.Wrap(err, "connect to music-box")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", errors.Wrap(err, "set deadline")
		}
	}

	if _, err := conn.Write([]byte(strings.TrimSpace(line) + "\n")); err != nil {
		return "", errors.Wrap(err, "send command")
	}

	r := bufio.NewReaderSize(conn, maxLineBytes)
	reply, err := r.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "read reply")
	}
	reply = strings.TrimRight(reply, "\n")

	if strings.HasPrefix(reply, ReplyError) {
		return "", errors.New(strings.TrimPrefix(reply, ReplyError))
	}
	return reply, nil
}
