package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

// StageState tracks a stage through its lifecycle.
type StageState int

const (
	StageCreated    StageState = iota // built from a Command
	StageRedirected                   // streams assigned, target files open
	StageRunning                      // process started on the resolved program
	StageExited                       // waited on, or failed before starting
)

func (s StageState) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageRedirected:
		return "redirected"
	case StageRunning:
		return "running"
	case StageExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Replaced in tests.
var (
	osPipe   = os.Pipe
	startCmd = func(c *exec.Cmd) error { return c.Start() }
)

type stage struct {
	index int
	cmd   *Command
	state StageState

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	files  []*os.File // owned by this stage; closed once the child holds them

	proc   *exec.Cmd
	status ExitStatus
	err    error
}

func newStage(i int, c *Command) *stage {
	return &stage{index: i, cmd: c, state: StageCreated}
}

// redirectOwn opens the command's own targets, overriding whatever streams
// positional wiring assigned.
func (s *stage) redirectOwn() error {
	c := s.cmd
	if c.Input.IsSet() {
		f, err := openInput(c.Input.Path())
		if err != nil {
			return err
		}
		s.files = append(s.files, f)
		s.stdin = f
	}
	if c.Output.IsSet() {
		f, err := openOutput(c.Output.Path())
		if err != nil {
			return err
		}
		s.files = append(s.files, f)
		s.stdout = f
	}
	if c.Error.IsSet() {
		f, err := openOutput(c.Error.Path())
		if err != nil {
			return err
		}
		s.files = append(s.files, f)
		s.stderr = f
	}
	return nil
}

func (s *stage) start(ctx context.Context) error {
	if s.state != StageRedirected {
		return fmt.Errorf("stage %d: start in state %s", s.index, s.state)
	}
	c := exec.CommandContext(ctx, s.cmd.Args[0], s.cmd.Args[1:]...)
	c.Dir = DirFromContext(ctx)
	c.Env = EnvFromContext(ctx)
	c.Stdin = s.stdin
	c.Stdout = s.stdout
	c.Stderr = s.stderr
	if err := startCmd(c); err != nil {
		return err
	}
	s.proc = c
	s.state = StageRunning
	return nil
}

// wait reaps a running stage. Stages that never started are left alone, so
// each process is waited on exactly once.
func (s *stage) wait() {
	if s.state != StageRunning {
		return
	}
	err := s.proc.Wait()
	s.state = StageExited
	s.status = statusFromProcessState(s.proc.ProcessState)
	if err != nil && s.proc.ProcessState == nil {
		s.err = &ExecError{Kind: KindWait, Context: s.cmd.Name(), Err: err}
	}
}

// fail ends a stage that could not start. The diagnostic goes to the
// stage's own stderr, which may already be redirected.
func (s *stage) fail(err error, code int) {
	s.closeFiles()
	s.state = StageExited
	s.status = exited(code)
	s.err = err
	w := s.stderr
	if w == nil {
		w = os.Stderr
	}
	var ee *ExecError
	if errors.As(err, &ee) && ee.Kind == KindExec {
		fmt.Fprintf(w, "%v\n", err)
		return
	}
	fmt.Fprintf(w, "%s: %v\n", s.cmd.Name(), err)
}

func (s *stage) closeFiles() {
	for _, f := range s.files {
		f.Close()
	}
	s.files = nil
}

func (s *stage) result() StageResult {
	r := StageResult{
		Name:   s.cmd.Name(),
		State:  s.state,
		Status: s.status,
		Err:    s.err,
	}
	if s.proc != nil && s.proc.Process != nil {
		r.Pid = s.proc.Process.Pid
	}
	return r
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpen(path, err, KindFileNotFound)
	}
	return f, nil
}

func openOutput(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, classifyOpen(path, err, KindPermissionDenied)
	}
	return f, nil
}

func classifyOpen(path string, err error, def Kind) error {
	kind := def
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		kind = KindFileNotFound
	}
	return &ExecError{Kind: kind, Context: path, Err: err}
}

// isResolutionError reports whether a start failure means the program could
// not be found or executed, as opposed to the process not being created.
func isResolutionError(err error) bool {
	var ee *exec.Error
	if errors.As(err, &ee) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOEXEC)
}

func resolutionStatus(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return StatusNoPermission
	default:
		return StatusExecFailed
	}
}

// lazyFile opens a pipeline-scope target when the stage it belongs to is
// wired, so a bad target fails that stage alone. The parent keeps the
// descriptor until every stage has started.
type lazyFile struct {
	path string
	open func(string) (*os.File, error)
	f    *os.File
	err  error
	done bool
}

func (l *lazyFile) get() (*os.File, error) {
	if !l.done {
		l.f, l.err = l.open(l.path)
		l.done = true
	}
	return l.f, l.err
}

func (l *lazyFile) close() {
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}
}

type pipe struct {
	r, w *os.File
}

func (p pipe) close() {
	p.r.Close()
	p.w.Close()
}

func makePipes(n int) ([]pipe, error) {
	pipes := make([]pipe, 0, n)
	for i := 0; i < n; i++ {
		r, w, err := osPipe()
		if err != nil {
			closePipes(pipes)
			return nil, &ExecError{Kind: KindPipe, Err: err}
		}
		pipes = append(pipes, pipe{r: r, w: w})
	}
	return pipes, nil
}

func closePipes(pipes []pipe) {
	for _, p := range pipes {
		p.close()
	}
}
