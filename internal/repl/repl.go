// Package repl implements the interactive read-eval loop on top of a line
// runner, either local or remote.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// LineRunner runs one trimmed, non-empty line. done ends the loop.
type LineRunner interface {
	RunLine(ctx context.Context, line string, stdout, stderr io.Writer) (code int, done bool)
}

// REPL reads lines, hands them to Runner and prints nothing of its own
// beyond the prompt. Prompt and ExitKeyword are fixed for its lifetime.
type REPL struct {
	Prompt      string
	ExitKeyword string
	HistoryFile string
	Runner      LineRunner
	Stdout      io.Writer
	Stderr      io.Writer
	Log         zerolog.Logger

	last int
}

// LastStatus returns the status of the most recent line run.
func (r *REPL) LastStatus() int { return r.last }

// Run reads lines from the terminal until EOF or the exit keyword. An
// interrupt at the prompt discards the line being edited. An interrupt while
// a line runs cancels that line only.
func (r *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.prompt(),
		HistoryFile:     r.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       r.ExitKeyword,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("readline: %w", err)
		}

		lineCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		done := r.eval(lineCtx, line)
		stop()
		if done || ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// RunLines drives the loop from a plain reader, one line per input line,
// without a prompt.
func (r *REPL) RunLines(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if r.eval(ctx, sc.Text()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return sc.Err()
}

// eval runs one line and reports whether the loop should end.
func (r *REPL) eval(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if r.ExitKeyword != "" && line == r.ExitKeyword {
		r.Log.Debug().Msg("exit keyword")
		return true
	}
	code, done := r.Runner.RunLine(ctx, line, r.stdout(), r.stderr())
	r.last = code
	return done
}

func (r *REPL) prompt() string {
	if color.NoColor {
		return r.Prompt
	}
	return color.New(color.FgGreen, color.Bold).Sprint(r.Prompt)
}

func (r *REPL) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *REPL) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}
