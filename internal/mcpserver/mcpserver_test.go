//go:build !windows

package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/guard"
	"github.com/marcelocantos/pipesh/internal/shell"
)

func call(t *testing.T, runner *shell.Runner, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = ToolName
	req.Params.Arguments = args

	res, err := Handler(runner)(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return res, text.Text
}

func TestRunTool(t *testing.T) {
	res, text := call(t, &shell.Runner{}, map[string]any{"command": "echo b a | tr a-z A-Z"})
	assert.False(t, res.IsError)
	assert.Equal(t, "B A\n", text)
}

func TestRunToolFailure(t *testing.T) {
	res, text := call(t, &shell.Runner{}, map[string]any{"command": "pipesh-no-such-program"})
	assert.True(t, res.IsError)
	assert.Equal(t, "[stderr]\npipesh-no-such-program: command not found\nexit status 127", text)
}

func TestRunToolParseError(t *testing.T) {
	res, text := call(t, &shell.Runner{}, map[string]any{"command": "ls |"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "command missing after pipe")
	assert.Contains(t, text, "exit status 2")
}

func TestRunToolMissingCommand(t *testing.T) {
	res, _ := call(t, &shell.Runner{}, map[string]any{})
	assert.True(t, res.IsError)

	res, text := call(t, &shell.Runner{}, map[string]any{"command": "  "})
	assert.True(t, res.IsError)
	assert.Equal(t, "command is empty", text)
}

func TestRunToolGuardAndAudit(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, err := audit.NewLogger(fs, "/audit.jsonl")
	require.NoError(t, err)

	runner := &shell.Runner{
		Guard:  guard.NewRuleSet(guard.Hardcoded()...),
		Audit:  logger,
		Origin: audit.OriginMCP,
	}
	res, text := call(t, runner, map[string]any{"command": "rm -r /"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "refusing to recursively remove")

	entries, err := audit.Tail(fs, "/audit.jsonl", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OriginMCP, entries[0].Origin)
	assert.Equal(t, shell.StatusRejected, entries[0].ExitCode)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", format("", ""))
	assert.Equal(t, "out\n", format("out", ""))
	assert.Equal(t, "out\n[stderr]\nerr\n", format("out", "err\n"))
}

func TestToolSchema(t *testing.T) {
	tool := Tool()
	assert.Equal(t, ToolName, tool.Name)
	assert.Contains(t, tool.InputSchema.Required, "command")
}
