package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/ipc"
	"github.com/marcelocantos/pipesh/internal/pipeline"
	"github.com/marcelocantos/pipesh/internal/shell"
)

// Options configures a Server.
type Options struct {
	ExitKeyword    string        // ends a session; empty disables
	MaxBytesPerSec int64         // per-connection output limit; 0 means unlimited
	Workdir        string        // directory commands run in; empty means ours
	IdleTimeout    time.Duration // stop after this long with no session; 0 disables
	Log            zerolog.Logger
}

// Server accepts connections and runs the command lines they send. One
// connection is one session and may carry any number of commands.
type Server struct {
	runner shell.Runner
	opts   Options
	log    zerolog.Logger

	mu        sync.Mutex
	idleTimer *time.Timer
	sessions  int // guarded by mu
	active    sync.WaitGroup
}

// New creates a server. runner is copied for every session.
func New(runner shell.Runner, opts Options) *Server {
	runner.Origin = audit.OriginServer
	return &Server{runner: runner, opts: opts, log: opts.Log}
}

// Run listens on network/address and calls Serve. For unix sockets a stale
// socket file is removed first and the socket is removed on return.
func (s *Server) Run(ctx context.Context, network, address string) error {
	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(address), 0700); err != nil {
			return fmt.Errorf("create socket dir: %w", err)
		}
		if err := cleanStaleSocket(address); err != nil {
			return err
		}
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if network == "unix" {
		if err := os.Chmod(address, 0600); err != nil {
			ln.Close()
			return fmt.Errorf("chmod socket: %w", err)
		}
		if err := writePidFile(address); err != nil {
			ln.Close()
			return fmt.Errorf("write pid: %w", err)
		}
		defer func() {
			os.Remove(address)
			os.Remove(pidPath(address))
		}()
	}

	s.log.Info().Str("network", network).Str("address", ln.Addr().String()).Msg("listening")
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the idle timer
// fires, then waits for active sessions to end. The listener is closed on
// return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	if s.opts.IdleTimeout > 0 {
		s.mu.Lock()
		s.idleTimer = time.AfterFunc(s.opts.IdleTimeout, stop)
		s.mu.Unlock()
	}

	go func() {
		<-serveCtx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-serveCtx.Done():
				s.active.Wait()
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.holdIdle()

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			defer s.resetIdle()
			s.handleSession(serveCtx, conn)
		}()
	}
}

// holdIdle stops the idle timer while a session is open.
func (s *Server) holdIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
}

// resetIdle restarts the idle timer once the last session has ended.
func (s *Server) resetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions--
	if s.idleTimer != nil && s.sessions == 0 {
		s.idleTimer.Reset(s.opts.IdleTimeout)
	}
}

// session is the per-connection state shared by the frame reader and the
// command loop.
type session struct {
	conn net.Conn
	log  zerolog.Logger

	outMu  sync.Mutex
	stdout *frameWriter
	stderr *frameWriter

	cancelMu sync.Mutex
	cancel   context.CancelFunc // cancels the running command, if any
}

func (s *Server) handleSession(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	remote := conn.RemoteAddr().String()
	sess := &session{conn: conn, log: s.log.With().Str("remote", remote).Logger()}
	out := throttle(conn, s.opts.MaxBytesPerSec)
	sess.stdout = newFrameWriter(out, &sess.outMu, ipc.TagStdoutData)
	sess.stderr = newFrameWriter(out, &sess.outMu, ipc.TagStderrData)

	sess.log.Debug().Msg("session opened")
	defer func() { sess.log.Debug().Msg("session closed") }()

	// Unblocks the frame reader on shutdown.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	requests := make(chan ipc.Request)
	readErr := make(chan error, 1)
	go func() {
		defer close(requests)
		readErr <- sess.readFrames(ctx, requests)
	}()

	runner := s.runner
	runner.Remote = remote
	runner.Log = sess.log

	for req := range requests {
		sess.log.Info().Str("line", req.Line).Msg("received")

		if shell.IsExit(req.Line, s.opts.ExitKeyword) {
			sess.writeExit(ipc.ExitResult{Closed: true})
			return
		}

		cmdCtx, cmdCancel := context.WithCancel(ctx)
		if s.opts.Workdir != "" {
			cmdCtx = pipeline.WithDir(cmdCtx, s.opts.Workdir)
		}
		sess.setCancel(cmdCancel)
		code := runner.Run(cmdCtx, req.Line, nil, sess.stdout, sess.stderr)
		sess.setCancel(nil)
		cmdCancel()

		if err := sess.writeExit(ipc.ExitResult{Code: code}); err != nil {
			sess.log.Debug().Err(err).Msg("write exit")
			return
		}
	}

	if err := <-readErr; err != nil && ctx.Err() == nil {
		sess.log.Warn().Err(err).Msg("protocol error")
		sess.writeExit(ipc.ExitResult{Code: shell.StatusUsage, Error: err.Error(), Closed: true})
	}
}

// readFrames feeds Request frames to requests and applies Signal frames to
// the running command. It returns nil on a clean EOF.
func (sess *session) readFrames(ctx context.Context, requests chan<- ipc.Request) error {
	for {
		tag, payload, err := ipc.ReadFrame(sess.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		switch tag {
		case ipc.TagRequest:
			var req ipc.Request
			if err := ipc.DecodeJSON(tag, payload, &req); err != nil {
				return err
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return nil
			}
		case ipc.TagSignal:
			var sig ipc.SignalMsg
			if ipc.DecodeJSON(tag, payload, &sig) == nil && sig.Signal == "INT" {
				sess.log.Info().Msg("interrupt")
				sess.interrupt()
			}
		default:
			return fmt.Errorf("unexpected frame 0x%02x", tag)
		}
	}
}

func (sess *session) setCancel(cancel context.CancelFunc) {
	sess.cancelMu.Lock()
	defer sess.cancelMu.Unlock()
	sess.cancel = cancel
}

func (sess *session) interrupt() {
	sess.cancelMu.Lock()
	defer sess.cancelMu.Unlock()
	if sess.cancel != nil {
		sess.cancel()
	}
}

func (sess *session) writeExit(res ipc.ExitResult) error {
	sess.outMu.Lock()
	defer sess.outMu.Unlock()
	return ipc.WriteJSON(sess.stdout.w, ipc.TagExit, res)
}
