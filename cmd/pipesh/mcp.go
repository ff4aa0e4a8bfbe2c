package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the run tool over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr, false)
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg, log, audit.OriginMCP)
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(mcpserver.New(*runner, version))
		},
	}
}
