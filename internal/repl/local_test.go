//go:build !windows

package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/pipesh/internal/shell"
)

func TestLocalSession(t *testing.T) {
	var out, errOut bytes.Buffer
	r := &REPL{
		ExitKeyword: "exit",
		Runner:      Local{Runner: &shell.Runner{}},
		Stdout:      &out,
		Stderr:      &errOut,
	}

	input := "echo one\nls |\necho b a | tr a-z A-Z\nexit\necho never\n"
	require.NoError(t, r.RunLines(context.Background(), strings.NewReader(input)))
	assert.Equal(t, "one\nB A\n", out.String())
	assert.Equal(t, "pipesh: command missing after pipe\n", errOut.String())
	assert.Equal(t, 0, r.LastStatus())
}

func TestLocalCommandsSeeNoInput(t *testing.T) {
	var out bytes.Buffer
	r := &REPL{Runner: Local{Runner: &shell.Runner{}}, Stdout: &out}
	require.NoError(t, r.RunLines(context.Background(), strings.NewReader("wc -c\n")))
	assert.Equal(t, "0", strings.TrimSpace(out.String()))
}
