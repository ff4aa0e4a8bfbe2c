package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/guard"
	"github.com/marcelocantos/pipesh/internal/pipeline"
)

// Statuses returned by Runner.Run for lines that never reach execution.
const (
	StatusUsage    = 2 // line did not parse
	StatusRejected = 1 // a guard rule refused the line
)

// Runner turns one line into a pipeline run. The zero value runs lines with
// no guard, no audit and a disabled logger.
type Runner struct {
	Guard  *guard.RuleSet
	Audit  *audit.Logger
	Log    zerolog.Logger
	Origin string // audit origin, e.g. audit.OriginREPL
	Remote string // peer address, server sessions only
}

// Run parses, checks, executes and audits line, returning its exit status.
// Diagnostics about the line itself go to stderr prefixed with "pipesh:";
// the programs' own output flows to stdout and stderr untouched.
func (r *Runner) Run(ctx context.Context, line string, stdin io.Reader, stdout, stderr io.Writer) int {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0
	}

	start := time.Now()
	rec := audit.Record{Line: line, Origin: r.Origin, Remote: r.Remote, Cwd: cwd(ctx)}

	p, err := pipeline.Parse(line)
	if err != nil {
		return r.finish(rec, start, nil, err, stderr)
	}
	rec.Stages = p.Names()

	if err := r.Guard.CheckPipeline(p); err != nil {
		return r.finish(rec, start, nil, err, stderr)
	}

	r.Log.Info().Str("line", line).Int("stages", p.Len()).Msg("executing")
	res, err := pipeline.Execute(ctx, p, stdin, stdout, stderr)
	return r.finish(rec, start, res, err, stderr)
}

// finish maps the outcome to an exit status, reports it and writes the
// audit entry.
func (r *Runner) finish(rec audit.Record, start time.Time, res *pipeline.Result, err error, stderr io.Writer) int {
	code := resolveError(res, err)
	if err != nil {
		fmt.Fprintf(stderr, "pipesh: %v\n", err)
	}

	rec.ExitCode = code
	rec.Err = err
	rec.Duration = time.Since(start)
	if res != nil {
		rec.Signal = res.Status.Signal
	}

	ev := r.Log.Info()
	if err != nil {
		ev = r.Log.Warn().Err(err)
	}
	ev.Str("line", rec.Line).Int("code", code).Dur("duration", rec.Duration).Msg("finished")

	if r.Audit != nil {
		if aerr := r.Audit.Log(rec); aerr != nil {
			r.Log.Error().Err(aerr).Msg("audit")
		}
	}
	return code
}

// resolveError folds a run outcome into the integer status callers see.
func resolveError(res *pipeline.Result, err error) int {
	var pe *pipeline.ParseError
	var rej *guard.Rejection
	switch {
	case errors.As(err, &pe):
		return StatusUsage
	case errors.As(err, &rej):
		return StatusRejected
	default:
		return pipeline.ExitCode(res, err)
	}
}

// IsExit reports whether line is the session-ending keyword.
func IsExit(line, keyword string) bool {
	return keyword != "" && strings.TrimSpace(line) == keyword
}

func cwd(ctx context.Context) string {
	if dir := pipeline.DirFromContext(ctx); dir != "" {
		return dir
	}
	dir, _ := os.Getwd()
	return dir
}
