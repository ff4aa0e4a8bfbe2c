package guard

import "fmt"

// ProgramRule is one program's rules as written in the config file.
type ProgramRule struct {
	RejectFlags []string           `yaml:"reject_flags" toml:"reject_flags"`
	Subcommands map[string]SubRule `yaml:"subcommands" toml:"subcommands"`
}

// SubRule holds the rules for one subcommand of a program.
type SubRule struct {
	RejectFlags []string `yaml:"reject_flags" toml:"reject_flags"`
}

// CompileProgramRule turns one program's config into rules.
func CompileProgramRule(program string, cfg ProgramRule) []Rule {
	var fns []Rule

	if len(cfg.RejectFlags) > 0 {
		flags := cfg.RejectFlags
		fns = append(fns, func(prog string, args []string) error {
			if prog != program || !hasAnyFlag(args, flags...) {
				return nil
			}
			return fmt.Errorf("flag rejected by config (one of %v)", flags)
		})
	}

	for sub, rule := range cfg.Subcommands {
		if len(rule.RejectFlags) == 0 {
			continue
		}
		sub, flags := sub, rule.RejectFlags
		fns = append(fns, func(prog string, args []string) error {
			if prog != program || len(args) == 0 || args[0] != sub {
				return nil
			}
			if hasAnyFlag(args[1:], flags...) {
				return fmt.Errorf("%s: flag rejected by config (one of %v)", sub, flags)
			}
			return nil
		})
	}

	return fns
}
