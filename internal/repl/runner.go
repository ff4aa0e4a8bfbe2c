package repl

import (
	"context"
	"io"
	"net"

	"github.com/marcelocantos/pipesh/internal/client"
	"github.com/marcelocantos/pipesh/internal/shell"
)

// Local runs lines in this process. Commands get no terminal input: the
// line editor owns the terminal, so programs read from a redirected file or
// see end of input.
type Local struct {
	Runner *shell.Runner
}

func (l Local) RunLine(ctx context.Context, line string, stdout, stderr io.Writer) (int, bool) {
	return l.Runner.Run(ctx, line, nil, stdout, stderr), false
}

// Remote runs lines on a server over conn. The loop ends when the server
// closes the session or the connection fails.
type Remote struct {
	Conn net.Conn
}

func (r Remote) RunLine(ctx context.Context, line string, stdout, stderr io.Writer) (int, bool) {
	res, err := client.Relay(ctx, r.Conn, line, stdout, stderr)
	if err != nil {
		io.WriteString(stderr, "pipesh: "+err.Error()+"\n")
		return res.Code, true
	}
	return res.Code, res.Closed
}
