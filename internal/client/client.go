package client

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/marcelocantos/pipesh/internal/ipc"
)

// Relay sends line to the server and copies the reply's stdout and stderr
// frames to stdout and stderr until the Exit frame arrives. Cancelling ctx
// sends an interrupt to the server and keeps relaying, so the caller still
// receives the interrupted command's status.
func Relay(ctx context.Context, conn net.Conn, line string, stdout, stderr io.Writer) (ipc.ExitResult, error) {
	if err := ipc.WriteJSON(conn, ipc.TagRequest, ipc.Request{Line: line}); err != nil {
		return ipc.ExitResult{Code: 2}, fmt.Errorf("send request: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			Interrupt(conn)
		case <-done:
		}
	}()

	for {
		tag, payload, err := ipc.ReadFrame(conn)
		if err != nil {
			return ipc.ExitResult{Code: 2}, fmt.Errorf("read server frame: %w", err)
		}
		switch tag {
		case ipc.TagStdoutData:
			stdout.Write(payload)
		case ipc.TagStderrData:
			stderr.Write(payload)
		case ipc.TagExit:
			var res ipc.ExitResult
			if err := ipc.DecodeJSON(tag, payload, &res); err != nil {
				return ipc.ExitResult{Code: 2}, err
			}
			return res, nil
		default:
			return ipc.ExitResult{Code: 2}, fmt.Errorf("unexpected frame 0x%02x", tag)
		}
	}
}

// Interrupt asks the server to cancel the command currently running on conn.
func Interrupt(conn net.Conn) error {
	return ipc.WriteJSON(conn, ipc.TagSignal, ipc.SignalMsg{Signal: "INT"})
}

// Connect dials a running server.
func Connect(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}
	return conn, nil
}
