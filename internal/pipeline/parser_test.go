package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleCommand(t *testing.T) {
	p, err := Parse("echo hi")
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())

	c := p.Commands[0]
	assert.Equal(t, []string{"echo", "hi"}, c.Args)
	assert.False(t, c.Input.IsSet())
	assert.False(t, c.Output.IsSet())
	assert.False(t, c.Error.IsSet())
	assert.False(t, c.Piped)
}

func TestParseOutputRedirect(t *testing.T) {
	p, err := Parse("ls -l > out.txt")
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())

	c := p.Commands[0]
	assert.Equal(t, []string{"ls", "-l"}, c.Args)
	assert.True(t, c.Output.IsSet())
	assert.Equal(t, "out.txt", c.Output.Path())
	assert.False(t, c.Input.IsSet())
	assert.False(t, c.Error.IsSet())
}

func TestParseHoistsBoundaryTargets(t *testing.T) {
	p, err := Parse("grep x < in.txt | sort > out.txt")
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	assert.Equal(t, "in.txt", p.Input.Path())
	assert.Equal(t, "out.txt", p.Output.Path())
	assert.False(t, p.Error.IsSet())
	for i, c := range p.Commands {
		assert.False(t, c.Input.IsSet(), "stage %d input", i)
		assert.False(t, c.Output.IsSet(), "stage %d output", i)
		assert.True(t, c.Piped)
		assert.Equal(t, i, c.Stage)
	}
	assert.Equal(t, []string{"grep", "sort"}, p.Names())
}

func TestParseAdjacentRedirections(t *testing.T) {
	c, err := ParseCommand("a<in>out")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.Args)
	assert.Equal(t, "in", c.Input.Path())
	assert.Equal(t, "out", c.Output.Path())
}

func TestParseErrorRedirectBeforeOutput(t *testing.T) {
	c, err := ParseCommand("make 2> err.log > out.log")
	require.NoError(t, err)
	assert.Equal(t, []string{"make"}, c.Args)
	assert.Equal(t, "err.log", c.Error.Path())
	assert.Equal(t, "out.log", c.Output.Path())
}

func TestParseDigitInsideWord(t *testing.T) {
	c, err := ParseCommand("a2>b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, c.Args)
	assert.Equal(t, "b", c.Output.Path())
	assert.False(t, c.Error.IsSet())
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"cat <", ErrMissingFile},
		{"cat > ", ErrMissingFile},
		{"cat 2>", ErrMissingFile},
		{"cat < > out", ErrMissingFile},
		{"< in.txt", ErrEmptyCommand},
		{"   ", ErrEmptyCommand},
		{"cat > a > b", ErrDuplicateRedirect},
		{"echo" + strings.Repeat(" x", MaxArgs), ErrTooManyArgs},
	}
	for _, tt := range tests {
		_, err := ParseCommand(tt.line)
		assert.ErrorIs(t, err, tt.want, "%q", tt.line)
	}
}

func TestParseMaxArgs(t *testing.T) {
	line := "echo" + strings.Repeat(" x", MaxArgs-1)
	c, err := ParseCommand(line)
	require.NoError(t, err)
	assert.Len(t, c.Args, MaxArgs)
}

func TestParsePipePlacement(t *testing.T) {
	tests := []struct {
		line string
		want error
		msg  string
	}{
		{"| ls", ErrMissingBeforePipe, "missing command before pipe"},
		{"ls |", ErrMissingAfterPipe, "command missing after pipe"},
		{"ls || wc", ErrEmptyBetweenPipes, "empty command between pipes"},
		{"ls |  \t | wc", ErrEmptyBetweenPipes, "empty command between pipes"},
	}
	seen := map[string]bool{}
	for _, tt := range tests {
		p, err := Parse(tt.line)
		assert.Nil(t, p)
		require.ErrorIs(t, err, tt.want, "%q", tt.line)
		assert.Equal(t, tt.msg, err.Error())
		seen[err.Error()] = true
	}
	assert.Len(t, seen, 3)
}

func TestParseSegmentFailureReportsStage(t *testing.T) {
	_, err := Parse("ls | wc >")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindMissingFile, pe.Kind)
	assert.Equal(t, 1, pe.Stage)
	assert.Equal(t, "missing filename for output redirection", pe.Error())
}

func TestParseMiddleRedirect(t *testing.T) {
	for _, line := range []string{
		"cat | sort < x | wc",
		"cat > x | wc",
		"cat | sort > x | wc",
		"cat | wc < x",
	} {
		p, err := Parse(line)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrMiddleRedirect, "%q", line)
	}
}

func TestParseErrorTargetPrecedence(t *testing.T) {
	t.Run("last stage wins", func(t *testing.T) {
		p, err := Parse("a | b 2> mid | c 2> last")
		require.NoError(t, err)
		assert.Equal(t, "last", p.Error.Path())
		assert.False(t, p.Commands[2].Error.IsSet())
		assert.Equal(t, "mid", p.Commands[1].Error.Path())
	})

	t.Run("first middle stage claims", func(t *testing.T) {
		p, err := Parse("a | b 2> one | c 2> two | d")
		require.NoError(t, err)
		assert.Equal(t, "one", p.Error.Path())
		assert.False(t, p.Commands[1].Error.IsSet())
		assert.Equal(t, "two", p.Commands[2].Error.Path())
	})

	t.Run("first stage keeps its own", func(t *testing.T) {
		p, err := Parse("a 2> first | b")
		require.NoError(t, err)
		assert.False(t, p.Error.IsSet())
		assert.Equal(t, "first", p.Commands[0].Error.Path())
	})
}

func TestParseDoesNotMutateInput(t *testing.T) {
	line := "grep x < in.txt | sort > out.txt"
	orig := strings.Clone(line)
	_, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, orig, line)
}

func TestReattach(t *testing.T) {
	p := &Pipeline{
		Commands: []*Command{{Args: []string{"cat"}}},
		Input:    NewTarget("in"),
		Output:   NewTarget("out"),
	}
	p.Reattach()
	assert.False(t, p.Input.IsSet())
	assert.False(t, p.Output.IsSet())
	assert.Equal(t, "in", p.Commands[0].Input.Path())
	assert.Equal(t, "out", p.Commands[0].Output.Path())
}

func TestTargetTake(t *testing.T) {
	src := NewTarget("f")
	dst := src.Take()
	assert.False(t, src.IsSet())
	assert.True(t, dst.IsSet())
	assert.Equal(t, "f", dst.Path())
	assert.Equal(t, "<none>", src.String())
}
