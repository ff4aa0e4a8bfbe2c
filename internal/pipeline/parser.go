package pipeline

import "strings"

// ParseCommand turns one pipe segment into a Command. Redirections are
// extracted in their own slots; the remaining words form the argument vector.
func ParseCommand(segment string) (*Command, error) {
	cmd := &Command{}
	toks := lex(segment)

	args := make([]string, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind == tokWord {
			args = append(args, t.text)
			continue
		}

		slot, channel := cmd.slot(t.kind)
		if i+1 >= len(toks) || toks[i+1].kind != tokWord {
			return nil, &ParseError{Kind: KindMissingFile, Context: channel, Stage: -1}
		}
		if slot.IsSet() {
			return nil, &ParseError{Kind: KindDuplicateRedirect, Context: t.text, Stage: -1}
		}
		i++
		*slot = NewTarget(toks[i].text)
	}

	if len(args) == 0 {
		return nil, &ParseError{Kind: KindEmptyCommand, Context: strings.TrimSpace(segment), Stage: -1}
	}
	if len(args) > MaxArgs {
		return nil, &ParseError{Kind: KindTooManyArgs, Context: args[0], Stage: -1}
	}
	cmd.Args = args
	return cmd, nil
}

func (c *Command) slot(k tokenKind) (*Target, string) {
	switch k {
	case tokRedirIn:
		return &c.Input, "input"
	case tokRedirErr:
		return &c.Error, "error"
	default:
		return &c.Output, "output"
	}
}

// Parse turns a full command line into a Pipeline.
func Parse(line string) (*Pipeline, error) {
	if !strings.Contains(line, OpPipe) {
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, err
		}
		return &Pipeline{Commands: []*Command{cmd}}, nil
	}

	segments, err := splitPipes(line)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Commands: make([]*Command, 0, len(segments))}
	for i, seg := range segments {
		cmd, err := ParseCommand(seg)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Stage = i
			}
			return nil, err
		}
		cmd.Stage = i
		cmd.Piped = true
		p.Commands = append(p.Commands, cmd)
	}

	if err := p.hoist(); err != nil {
		return nil, err
	}
	return p, nil
}

// splitPipes validates pipe placement and returns the trimmed segments.
func splitPipes(line string) ([]string, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, OpPipe) {
		return nil, &ParseError{Kind: KindMissingBeforePipe, Stage: -1}
	}
	if strings.HasSuffix(trimmed, OpPipe) {
		return nil, &ParseError{Kind: KindMissingAfterPipe, Stage: -1}
	}

	afterPipe := false
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		switch {
		case c == '|':
			if afterPipe {
				return nil, &ParseError{Kind: KindEmptyBetweenPipes, Stage: -1}
			}
			afterPipe = true
		case !isSpace(c):
			afterPipe = false
		}
	}

	parts := strings.Split(trimmed, OpPipe)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// hoist moves boundary redirections to pipeline scope. The last stage's
// error target is claimed before any middle stage's; among middle stages
// the first one wins and later ones keep their own target.
func (p *Pipeline) hoist() error {
	n := len(p.Commands)
	for i, c := range p.Commands {
		if i > 0 && c.Input.IsSet() {
			return &ParseError{Kind: KindMiddleRedirect, Context: c.Name(), Stage: i}
		}
		if i < n-1 && c.Output.IsSet() {
			return &ParseError{Kind: KindMiddleRedirect, Context: c.Name(), Stage: i}
		}
	}

	first, last := p.Commands[0], p.Commands[n-1]
	if first.Input.IsSet() {
		p.Input = first.Input.Take()
	}
	if last.Output.IsSet() {
		p.Output = last.Output.Take()
	}
	if last.Error.IsSet() {
		p.Error = last.Error.Take()
	}
	for _, c := range p.Commands[1 : n-1] {
		if c.Error.IsSet() && !p.Error.IsSet() {
			p.Error = c.Error.Take()
		}
	}
	return nil
}
