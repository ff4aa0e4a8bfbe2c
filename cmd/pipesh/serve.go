package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/pipesh/internal/audit"
	"github.com/marcelocantos/pipesh/internal/server"
)

func newServeCmd() *cobra.Command {
	var network, address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept command lines from remote clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("network") {
				cfg.Server.Network = network
			}
			if cmd.Flags().Changed("address") {
				cfg.Server.Address = address
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := newLogger(cfg, os.Stderr, false)
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg, log, audit.OriginServer)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(*runner, server.Options{
				ExitKeyword:    cfg.Shell.ExitKeyword,
				MaxBytesPerSec: cfg.Server.MaxBytesPerSec,
				Workdir:        cfg.Server.Workdir,
				IdleTimeout:    cfg.Server.IdleTimeoutDuration(),
				Log:            log,
			})
			return srv.Run(ctx, cfg.Server.Network, cfg.Server.Address)
		},
	}
	cmd.Flags().StringVar(&network, "network", "", "tcp, tcp4, tcp6 or unix (default from config)")
	cmd.Flags().StringVar(&address, "address", "", "listen address or socket path (default from config)")
	return cmd
}
