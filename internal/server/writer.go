package server

import (
	"io"
	"sync"

	"github.com/juju/ratelimit"

	"github.com/marcelocantos/pipesh/internal/ipc"
)

// frameWriter turns writes into tagged frames. frameWriters sharing one
// connection share its mutex, so stages writing stdout and stderr
// concurrently never interleave frame bytes.
type frameWriter struct {
	mu  *sync.Mutex
	w   io.Writer
	tag byte
}

func newFrameWriter(w io.Writer, mu *sync.Mutex, tag byte) *frameWriter {
	return &frameWriter{mu: mu, w: w, tag: tag}
}

func (fw *frameWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for off := 0; off < len(p); off += ipc.MaxPayload {
		end := min(off+ipc.MaxPayload, len(p))
		if err := ipc.WriteFrame(fw.w, fw.tag, p[off:end]); err != nil {
			return off, err
		}
	}
	return len(p), nil
}

// throttle limits w to rate bytes per second. A rate of zero or less
// returns w unchanged.
func throttle(w io.Writer, rate int64) io.Writer {
	if rate <= 0 {
		return w
	}
	return ratelimit.Writer(w, ratelimit.NewBucketWithRate(float64(rate), rate))
}
