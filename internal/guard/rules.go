package guard

import (
	"fmt"
	"strings"

	"github.com/marcelocantos/pipesh/internal/pipeline"
)

// Rule inspects one stage's program and arguments. A non-nil error rejects
// the whole line.
type Rule func(program string, args []string) error

// RuleSet holds an ordered list of rules. Hard-coded rules run first and
// cannot be removed; config rules are appended after.
type RuleSet struct {
	hardcoded []Rule
	config    []Rule
}

// NewRuleSet creates a RuleSet with the given hard-coded rules.
func NewRuleSet(hardcoded ...Rule) *RuleSet {
	return &RuleSet{hardcoded: hardcoded}
}

// AddConfig appends a config-driven rule.
func (rs *RuleSet) AddConfig(fn Rule) {
	rs.config = append(rs.config, fn)
}

// Len returns the total number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.hardcoded) + len(rs.config)
}

// Check runs every rule against one program invocation.
func (rs *RuleSet) Check(program string, args []string) error {
	if rs == nil {
		return nil
	}
	for _, fn := range rs.hardcoded {
		if err := fn(program, args); err != nil {
			return err
		}
	}
	for _, fn := range rs.config {
		if err := fn(program, args); err != nil {
			return err
		}
	}
	return nil
}

// CheckPipeline runs Check on every stage and reports the first rejection.
func (rs *RuleSet) CheckPipeline(p *pipeline.Pipeline) error {
	for i, c := range p.Commands {
		if err := rs.Check(c.Name(), c.Args[1:]); err != nil {
			return &Rejection{Stage: i, Program: c.Name(), Piped: c.Piped, Reason: err}
		}
	}
	return nil
}

// Rejection reports which stage a rule refused.
type Rejection struct {
	Stage   int
	Program string
	Piped   bool
	Reason  error
}

func (r *Rejection) Error() string {
	if r.Piped {
		return fmt.Sprintf("stage %d (%s): %v", r.Stage, r.Program, r.Reason)
	}
	return fmt.Sprintf("%s: %v", r.Program, r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Reason }

// hasAnyFlag reports whether any flag-looking argument matches one of flags.
// Short flags also match inside clusters ("-rf" has "-f") and with an
// attached value ("-j4" has "-j"); long flags match "--flag=value".
func hasAnyFlag(args []string, flags ...string) bool {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		for _, flag := range flags {
			if matchFlag(arg, flag) {
				return true
			}
		}
	}
	return false
}

func matchFlag(arg, flag string) bool {
	if arg == flag {
		return true
	}
	long := strings.HasPrefix(flag, "--")
	if long {
		return strings.HasPrefix(arg, flag+"=")
	}
	if len(flag) != 2 || strings.HasPrefix(arg, "--") || len(arg) <= 2 {
		return false
	}
	return strings.IndexByte(arg[1:], flag[1]) >= 0
}
