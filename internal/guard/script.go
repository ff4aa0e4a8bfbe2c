package guard

import (
	"fmt"

	"go.starlark.net/starlark"
)

// maxScriptSteps bounds one call into a guard script.
const maxScriptSteps = 1_000_000

// CompileScript loads a Starlark guard script. The script must define
// allow(argv), which is called with each stage's argument vector (program
// first). A falsy result rejects the stage. allow may instead return a
// (bool, reason) pair, e.g. return (False, "no network tools").
func CompileScript(filename string, src []byte) (Rule, error) {
	thread := &starlark.Thread{Name: "guard:load"}
	globals, err := starlark.ExecFile(thread, filename, src, nil)
	if err != nil {
		return nil, fmt.Errorf("guard script %s: %w", filename, err)
	}
	fn, ok := globals["allow"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("guard script %s: no allow(argv) function", filename)
	}

	return func(program string, args []string) error {
		argv := make([]starlark.Value, 0, len(args)+1)
		argv = append(argv, starlark.String(program))
		for _, a := range args {
			argv = append(argv, starlark.String(a))
		}

		thread := &starlark.Thread{Name: "guard:" + program}
		thread.SetMaxExecutionSteps(maxScriptSteps)
		v, err := starlark.Call(thread, fn, starlark.Tuple{starlark.NewList(argv)}, nil)
		if err != nil {
			return fmt.Errorf("guard script: %w", err)
		}
		return verdict(v)
	}, nil
}

func verdict(v starlark.Value) error {
	if t, ok := v.(starlark.Tuple); ok && len(t) == 2 {
		if t[0].Truth() {
			return nil
		}
		if reason, ok := starlark.AsString(t[1]); ok && reason != "" {
			return fmt.Errorf("rejected by guard script: %s", reason)
		}
		return fmt.Errorf("rejected by guard script")
	}
	if v.Truth() {
		return nil
	}
	return fmt.Errorf("rejected by guard script")
}
