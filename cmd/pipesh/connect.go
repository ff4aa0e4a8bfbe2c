package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/pipesh/internal/client"
	"github.com/marcelocantos/pipesh/internal/repl"
)

func newConnectCmd() *cobra.Command {
	var network string
	cmd := &cobra.Command{
		Use:   "connect <address>",
		Short: "Run command lines on a pipesh server",
		Long: `connect opens a session with a pipesh server. Lines typed at the
prompt run on the server; the server's exit keyword ends the session.
An interrupt cancels the line running on the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			address := args[0]
			if !cmd.Flags().Changed("network") && strings.ContainsRune(address, os.PathSeparator) {
				network = "unix"
			}

			conn, err := client.Connect(cmd.Context(), network, address)
			if err != nil {
				return err
			}
			defer conn.Close()

			// The server owns the exit keyword.
			r := &repl.REPL{
				Prompt: cfg.Shell.Prompt,
				Runner: repl.Remote{Conn: conn},
				Log:    zerolog.Nop(),
			}
			if readline.IsTerminal(int(os.Stdin.Fd())) {
				err = r.Run(cmd.Context())
			} else {
				err = r.RunLines(cmd.Context(), os.Stdin)
			}
			exitCode = r.LastStatus()
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&network, "network", "tcp", "tcp, tcp4, tcp6 or unix")
	return cmd
}
