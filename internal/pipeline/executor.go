package pipeline

import (
	"context"
	"io"
	"os"
	"sync"
)

// Execute runs a parsed pipeline. Each stage is a separate process connected
// to its neighbours by OS pipes; the parent closes every pipe end once all
// stages have been started and then waits on the stages in order.
//
// The returned Result carries the last stage's status regardless of how the
// earlier stages fared. A non-nil error means orchestration itself failed
// (no pipes, or a process could not be created); the Result is still
// populated with whatever was started and reaped.
func Execute(ctx context.Context, p *Pipeline, stdin io.Reader, stdout, stderr io.Writer) (*Result, error) {
	if p == nil || len(p.Commands) == 0 {
		return nil, &ExecError{Kind: KindInvalidPipeline}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(p.Commands) == 1 {
		return executeSingle(ctx, p, stdin, stdout, stderr)
	}
	return executePiped(ctx, p, stdin, stdout, stderr)
}

func executeSingle(ctx context.Context, p *Pipeline, stdin io.Reader, stdout, stderr io.Writer) (*Result, error) {
	p.Reattach()
	s := newStage(0, p.Commands[0])
	s.stdin, s.stdout, s.stderr = stdin, stdout, stderr

	if err := s.redirectOwn(); err != nil {
		s.fail(err, StatusRedirectFailed)
		return collect([]*stage{s}, 0), nil
	}
	s.state = StageRedirected

	if err := s.start(ctx); err != nil {
		if !isResolutionError(err) {
			s.closeFiles()
			s.state = StageExited
			s.err = &ExecError{Kind: KindSpawn, Context: s.cmd.Name(), Err: err}
			return collect([]*stage{s}, 0), s.err
		}
		s.fail(&ExecError{Kind: KindExec, Context: s.cmd.Name(), Err: err}, resolutionStatus(err))
		return collect([]*stage{s}, 0), nil
	}
	s.closeFiles()
	s.wait()
	return collect([]*stage{s}, 0), nil
}

func executePiped(ctx context.Context, p *Pipeline, stdin io.Reader, stdout, stderr io.Writer) (*Result, error) {
	n := len(p.Commands)
	stdout, stderr = serialize(stdout, stderr)
	pipes, err := makePipes(n - 1)
	if err != nil {
		return nil, err
	}

	var in, out, errf *lazyFile
	if p.Input.IsSet() {
		in = &lazyFile{path: p.Input.Path(), open: openInput}
	}
	if p.Output.IsSet() {
		out = &lazyFile{path: p.Output.Path(), open: openOutput}
	}
	if p.Error.IsSet() {
		errf = &lazyFile{path: p.Error.Path(), open: openOutput}
	}
	closeShared := func() {
		for _, l := range []*lazyFile{in, out, errf} {
			if l != nil {
				l.close()
			}
		}
	}

	stages := make([]*stage, n)
	for i, c := range p.Commands {
		s := newStage(i, c)
		stages[i] = s

		s.stdin, s.stdout, s.stderr = stdin, stdout, stderr
		if i > 0 {
			s.stdin = pipes[i-1].r
		}
		if i < n-1 {
			s.stdout = pipes[i].w
		}

		if err := wireShared(s, i, n, in, out, errf); err != nil {
			s.fail(err, StatusRedirectFailed)
			continue
		}
		if err := s.redirectOwn(); err != nil {
			s.fail(err, StatusRedirectFailed)
			continue
		}
		s.state = StageRedirected

		if err := s.start(ctx); err != nil {
			if isResolutionError(err) {
				s.fail(&ExecError{Kind: KindExec, Context: c.Name(), Err: err}, resolutionStatus(err))
				continue
			}
			s.closeFiles()
			s.state = StageExited
			s.err = &ExecError{Kind: KindSpawn, Context: c.Name(), Err: err}
			closePipes(pipes)
			closeShared()
			for _, prev := range stages[:i] {
				prev.wait()
			}
			return collect(stages[:i+1], n-1), s.err
		}
		s.closeFiles()
	}

	// Children hold their own copies; without this, readers never see EOF.
	closePipes(pipes)
	closeShared()

	for _, s := range stages {
		s.wait()
	}
	return collect(stages, n-1), nil
}

// wireShared points a stage at the pipeline-scope targets that apply to its
// position: input to the first stage, output and error to the last. Other
// stages keep the inherited stderr unless they redirect it themselves.
func wireShared(s *stage, i, n int, in, out, errf *lazyFile) error {
	if i == 0 && in != nil {
		f, err := in.get()
		if err != nil {
			return err
		}
		s.stdin = f
	}
	if i == n-1 && out != nil {
		f, err := out.get()
		if err != nil {
			return err
		}
		s.stdout = f
	}
	if i == n-1 && errf != nil {
		f, err := errf.get()
		if err != nil {
			return err
		}
		s.stderr = f
	}
	return nil
}

func collect(stages []*stage, pipes int) *Result {
	res := &Result{Pipes: pipes, Stages: make([]StageResult, len(stages))}
	for i, s := range stages {
		res.Stages[i] = s.result()
	}
	last := stages[len(stages)-1]
	res.Status = last.status
	if last.state != StageExited {
		res.Status = ExitStatus{}
	}
	return res
}

// serialize guards writers that are not files with one shared mutex. Every
// stage copies its stderr into the same writer from its own goroutine.
func serialize(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	mu := new(sync.Mutex)
	wrap := func(w io.Writer) io.Writer {
		if _, ok := w.(*os.File); ok || w == nil {
			return w
		}
		return &lockedWriter{mu: mu, w: w}
	}
	return wrap(stdout), wrap(stderr)
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
