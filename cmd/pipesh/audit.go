package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/pipesh/internal/audit"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check the audit log's hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			exitCode = runAuditVerify(cmd.OutOrStdout(), afero.NewOsFs(), cfg.Audit.Path)
			return nil
		},
	})

	var n int
	tail := &cobra.Command{
		Use:     "tail",
		Aliases: []string{"show"},
		Short:   "Print the most recent audit entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			exitCode = runAuditTail(cmd.OutOrStdout(), afero.NewOsFs(), cfg.Audit.Path, n)
			return nil
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 20, "number of entries")
	cmd.AddCommand(tail)

	return cmd
}

func runAuditVerify(w io.Writer, fs afero.Fs, path string) int {
	if err := audit.Verify(fs, path); err != nil {
		fmt.Fprintf(w, "audit verification FAILED: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, "audit log integrity verified")
	return 0
}

func runAuditTail(w io.Writer, fs afero.Fs, path string, n int) int {
	entries, err := audit.Tail(fs, path, n)
	if err != nil {
		fmt.Fprintf(w, "pipesh audit: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no audit entries")
		return 0
	}
	for _, e := range entries {
		data, _ := json.MarshalIndent(e, "", "  ")
		fmt.Fprintf(w, "%s\n", data)
	}
	return 0
}
