package guard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Hardcoded returns the rules enforced regardless of configuration. They
// block operations that cannot be undone.
func Hardcoded() []Rule {
	return []Rule{checkRmCatastrophic}
}

var errDiscardAll = errors.New("checkout: refusing to discard all uncommitted changes")

// GitDiscardAll blocks "git checkout ." and "git checkout -- .". It is a
// default config rule, not a hard-coded one.
func GitDiscardAll(program string, args []string) error {
	if program != "git" || len(args) == 0 || args[0] != "checkout" {
		return nil
	}
	rest := args[1:]
	for i, arg := range rest {
		if arg == "--" {
			if i+1 < len(rest) && filepath.Clean(rest[i+1]) == "." {
				return errDiscardAll
			}
			continue
		}
		if filepath.Clean(arg) == "." {
			return errDiscardAll
		}
	}
	return nil
}

// checkRmCatastrophic blocks recursive removal of root, home, or the current
// or parent directory.
func checkRmCatastrophic(program string, args []string) error {
	if filepath.Base(program) != "rm" || !hasAnyFlag(args, "-r", "-R", "--recursive") {
		return nil
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		switch filepath.Clean(arg) {
		case "/", ".", "..", "~":
			return fmt.Errorf("refusing to recursively remove %q", arg)
		}
	}
	return nil
}
