package pipeline

// Operators recognised on a command line.
const (
	OpPipe        = "|"
	OpRedirectIn  = "<"
	OpRedirectOut = ">"
	OpRedirectErr = "2>"
)

// MaxArgs caps the number of words in one command. A longer command is
// rejected with KindTooManyArgs, not truncated.
const MaxArgs = 63

// Target is an optional redirection filename. The zero value means "no
// redirection". A Target has exactly one owner at a time; Take moves it.
type Target struct {
	path string
	set  bool
}

// NewTarget returns a target naming path.
func NewTarget(path string) Target {
	return Target{path: path, set: true}
}

// IsSet reports whether the target names a file.
func (t Target) IsSet() bool { return t.set }

// Path returns the filename, or "" if unset.
func (t Target) Path() string { return t.path }

// Take moves the target out, leaving t unset.
func (t *Target) Take() Target {
	v := *t
	*t = Target{}
	return v
}

func (t Target) String() string {
	if !t.set {
		return "<none>"
	}
	return t.path
}

// Command is one pipeline stage.
type Command struct {
	Args   []string // program followed by its arguments; never empty
	Input  Target   // <
	Output Target   // >
	Error  Target   // 2>

	Stage int  // index within the pipeline, set only when Piped
	Piped bool // true when built as part of a multi-stage pipeline
}

// Name returns the program name.
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Pipeline is an ordered list of commands sharing input, output and error
// redirection scope.
type Pipeline struct {
	Commands []*Command
	Input    Target
	Output   Target
	Error    Target
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.Commands) }

// Names returns the program name of every stage.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		names[i] = c.Name()
	}
	return names
}

// Reattach moves pipeline-scope targets back onto a lone command. It is a
// no-op for multi-stage pipelines.
func (p *Pipeline) Reattach() {
	if len(p.Commands) != 1 {
		return
	}
	c := p.Commands[0]
	if p.Input.IsSet() {
		c.Input = p.Input.Take()
	}
	if p.Output.IsSet() {
		c.Output = p.Output.Take()
	}
	if p.Error.IsSet() {
		c.Error = p.Error.Take()
	}
}
