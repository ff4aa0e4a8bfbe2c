package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// Kind classifies parse and execution failures.
type Kind int

const (
	KindMissingFile       Kind = iota + 1 // redirection operator without a filename
	KindFileNotFound                      // target missing or unreadable
	KindPermissionDenied                  // target not writable
	KindEmptyCommand                      // nothing left after removing redirections
	KindTooManyArgs                       // more than MaxArgs words
	KindDuplicateRedirect                 // same channel redirected twice
	KindMissingBeforePipe                 // line starts with |
	KindMissingAfterPipe                  // line ends with |
	KindEmptyBetweenPipes                 // | followed by | with only spaces between
	KindMiddleRedirect                    // < or > away from the pipeline boundary
	KindInvalidPipeline                   // nil or empty pipeline handed to Execute
	KindSpawn                             // process creation failed
	KindExec                              // program could not be resolved or executed
	KindPipe                              // pipe creation failed
	KindRedirect                          // stream could not be remapped
	KindWait                              // waiting on a stage failed
	KindAlloc                             // allocation failure
)

func (k Kind) String() string {
	switch k {
	case KindMissingFile:
		return "missing filename"
	case KindFileNotFound:
		return "file not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindEmptyCommand:
		return "invalid command"
	case KindTooManyArgs:
		return "too many arguments"
	case KindDuplicateRedirect:
		return "duplicate redirection"
	case KindMissingBeforePipe:
		return "missing command before pipe"
	case KindMissingAfterPipe:
		return "command missing after pipe"
	case KindEmptyBetweenPipes:
		return "empty command between pipes"
	case KindMiddleRedirect:
		return "misplaced redirection"
	case KindInvalidPipeline:
		return "invalid pipeline"
	case KindSpawn:
		return "process creation failed"
	case KindExec:
		return "exec failed"
	case KindPipe:
		return "pipe creation failed"
	case KindRedirect:
		return "redirection failed"
	case KindWait:
		return "wait failed"
	case KindAlloc:
		return "allocation failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrMissingFile       = &ParseError{Kind: KindMissingFile}
	ErrEmptyCommand      = &ParseError{Kind: KindEmptyCommand}
	ErrTooManyArgs       = &ParseError{Kind: KindTooManyArgs}
	ErrDuplicateRedirect = &ParseError{Kind: KindDuplicateRedirect}
	ErrMissingBeforePipe = &ParseError{Kind: KindMissingBeforePipe}
	ErrMissingAfterPipe  = &ParseError{Kind: KindMissingAfterPipe}
	ErrEmptyBetweenPipes = &ParseError{Kind: KindEmptyBetweenPipes}
	ErrMiddleRedirect    = &ParseError{Kind: KindMiddleRedirect}
)

// ParseError reports why a line could not be turned into a Pipeline.
type ParseError struct {
	Kind    Kind
	Context string // offending operator, segment or word
	Stage   int    // segment index, -1 when not tied to a segment
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMissingFile:
		return fmt.Sprintf("missing filename for %s redirection", e.Context)
	case KindEmptyCommand:
		if e.Context == "" {
			return "invalid command: empty command"
		}
		return fmt.Sprintf("invalid command %q: no program to run", e.Context)
	case KindTooManyArgs:
		return fmt.Sprintf("too many arguments in %q (max %d)", e.Context, MaxArgs)
	case KindDuplicateRedirect:
		return fmt.Sprintf("multiple %s redirections", e.Context)
	case KindMiddleRedirect:
		return fmt.Sprintf("stage %d (%s): only the first stage may redirect input and only the last may redirect output", e.Stage, e.Context)
	default:
		return e.Kind.String()
	}
}

// Is matches any ParseError of the same Kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

// ExecError reports an orchestration failure or a stage-level failure.
type ExecError struct {
	Kind    Kind
	Context string // program or filename
	Err     error
}

func (e *ExecError) Error() string {
	switch e.Kind {
	case KindFileNotFound:
		return fmt.Sprintf("file %q not found or cannot be accessed", e.Context)
	case KindPermissionDenied:
		return fmt.Sprintf("permission denied for file %q", e.Context)
	case KindExec:
		switch {
		case errors.Is(e.Err, exec.ErrNotFound), errors.Is(e.Err, fs.ErrNotExist):
			return fmt.Sprintf("%s: command not found", e.Context)
		case errors.Is(e.Err, fs.ErrPermission):
			return fmt.Sprintf("%s: permission denied", e.Context)
		}
		return fmt.Sprintf("%s: failed to execute: %v", e.Context, e.Err)
	case KindInvalidPipeline:
		return "invalid pipeline: no stages"
	}

	var msg string
	switch e.Kind {
	case KindSpawn:
		msg = fmt.Sprintf("failed to create child process for %q", e.Context)
	case KindPipe:
		msg = "failed to create pipe"
	case KindRedirect:
		msg = fmt.Sprintf("failed to set up redirection (%s)", e.Context)
	case KindWait:
		msg = fmt.Sprintf("wait failed for %q", e.Context)
	default:
		msg = fmt.Sprintf("%s: %s", e.Context, e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// Is matches any ExecError of the same Kind.
func (e *ExecError) Is(target error) bool {
	t, ok := target.(*ExecError)
	return ok && t.Kind == e.Kind
}
