// Package mcpserver exposes the line runner as a Model Context Protocol
// tool.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/shell"
)

// ToolName is the name of the single tool the server offers.
const ToolName = "run"

// New builds an MCP server whose run tool executes command lines with
// runner.
func New(runner shell.Runner, version string) *server.MCPServer {
	runner.Origin = audit.OriginMCP

	s := server.NewMCPServer("pipesh", version, server.WithToolCapabilities(false))
	s.AddTool(Tool(), Handler(&runner))
	return s
}

// Tool describes the run tool.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Run a command line. Supports pipes (|) and the redirections <, > and 2>. "+
			"No quoting, globbing or variable expansion. Returns the combined stdout and stderr."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The command line to run, e.g. \"grep TODO < main.go | wc -l\""),
		),
	)
}

// Handler runs the requested line and reports its output. A non-zero exit
// status marks the result as an error.
func Handler(runner *shell.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		line, err := req.RequireString("command")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(line) == "" {
			return mcp.NewToolResultError("command is empty"), nil
		}

		var stdout, stderr bytes.Buffer
		code := runner.Run(ctx, line, nil, &stdout, &stderr)

		text := format(stdout.String(), stderr.String())
		if code != 0 {
			return mcp.NewToolResultError(fmt.Sprintf("%sexit status %d", text, code)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// format joins the captured streams, stderr after stdout under a marker.
func format(stdout, stderr string) string {
	var b strings.Builder
	b.WriteString(stdout)
	if stderr != "" {
		if stdout != "" && !strings.HasSuffix(stdout, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("[stderr]\n")
		b.WriteString(stderr)
	}
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

// ServeStdio serves the tool over stdin and stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
