package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Frame tags identify the type of each message.
// Client-to-server tags are in the 0x01-0x0F range.
// Server-to-client tags are in the 0x10-0x1F range.
const (
	TagRequest byte = 0x01 // C→S: JSON-encoded Request
	TagSignal  byte = 0x04 // C→S: JSON-encoded SignalMsg

	TagStdoutData byte = 0x10 // S→C: raw stdout bytes
	TagStderrData byte = 0x11 // S→C: raw stderr bytes
	TagExit       byte = 0x12 // S→C: JSON-encoded ExitResult
)

// MaxPayload bounds a single frame so a bad peer cannot make us allocate
// arbitrary amounts of memory.
const MaxPayload = 16 << 20

// Request asks the server to run one command line.
type Request struct {
	Line string `json:"line"`
}

// ExitResult ends the reply to a Request. Closed is set when the line was
// the exit keyword and the server is ending the session.
type ExitResult struct {
	Code   int    `json:"code"`
	Error  string `json:"error,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// SignalMsg carries a signal name from client to server.
type SignalMsg struct {
	Signal string `json:"signal"`
}

// WriteFrame writes a tagged frame: [tag:1][len:4 big-endian][payload:len].
func WriteFrame(w io.Writer, tag byte, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("frame payload too large: %d bytes", len(payload))
	}
	var header [5]byte
	header[0] = tag
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one tagged frame, returning the tag and payload. A clean
// EOF before the header is returned as io.EOF.
func ReadFrame(r io.Reader) (byte, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxPayload {
		return 0, nil, fmt.Errorf("frame payload too large: %d bytes", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return header[0], payload, nil
}

// WriteJSON writes a tagged frame with a JSON-encoded payload.
func WriteJSON(w io.Writer, tag byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return WriteFrame(w, tag, data)
}

// DecodeJSON unmarshals a frame payload, naming the tag on failure.
func DecodeJSON(tag byte, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode frame 0x%02x: %w", tag, err)
	}
	return nil
}
