package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/config"
	"github.com/marcelocantos/pipesh/internal/logging"
	"github.com/marcelocantos/pipesh/internal/repl"
	"github.com/marcelocantos/pipesh/internal/shell"
)

var (
	cfgPath string
	command string

	// exitCode is the status main exits with when the command tree
	// itself succeeded.
	exitCode int
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipesh",
		Short: "A minimal shell: pipes and redirections, nothing else",
		Long: `pipesh runs command lines made of programs joined by | with
optional <, > and 2> redirections. With no subcommand it starts an
interactive loop; with -c it runs one line and exits with its status.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRoot,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", config.ConfigPath(), "config file (.yaml or .toml)")
	root.Flags().StringVarP(&command, "command", "c", "", "run one command line and exit")

	root.AddCommand(
		newServeCmd(),
		newConnectCmd(),
		newMCPCmd(),
		newAuditCmd(),
		newVersionCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(afero.NewOsFs(), cfgPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunner wires the guard, the audit log and the logger described by cfg.
// An audit log that cannot be opened is reported and skipped.
func newRunner(cfg *config.Config, log zerolog.Logger, origin string) (*shell.Runner, error) {
	fs := afero.NewOsFs()
	rs, err := cfg.BuildGuard(fs)
	if err != nil {
		return nil, err
	}

	r := &shell.Runner{Guard: rs, Log: log, Origin: origin}
	if cfg.Audit.Enabled {
		logger, err := audit.NewLogger(fs, cfg.Audit.Path)
		if err != nil {
			log.Warn().Err(err).Msg("audit disabled")
		} else {
			r.Audit = logger
		}
	}
	return r, nil
}

// newLogger builds the operational logger. Interactive use keeps quiet
// below debug so log lines don't mix with command output.
func newLogger(cfg *config.Config, w io.Writer, interactive bool) (zerolog.Logger, error) {
	log, err := logging.New(w, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return zerolog.Nop(), err
	}
	if interactive && log.GetLevel() > zerolog.DebugLevel {
		return zerolog.Nop(), nil
	}
	return log, nil
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, os.Stderr, true)
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg, log, audit.OriginREPL)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cmd.Flags().Changed("command") {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		exitCode = runner.Run(ctx, command, os.Stdin, os.Stdout, os.Stderr)
		return nil
	}

	r := &repl.REPL{
		Prompt:      cfg.Shell.Prompt,
		ExitKeyword: cfg.Shell.ExitKeyword,
		Runner:      repl.Local{Runner: runner},
		Log:         log,
	}
	if readline.IsTerminal(int(os.Stdin.Fd())) {
		err = r.Run(ctx)
	} else {
		err = r.RunLines(ctx, os.Stdin)
	}
	exitCode = r.LastStatus()
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}
