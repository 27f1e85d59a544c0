package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/hearth"
	"github.com/aretw0/hearth/internal/platform"
)

var watchStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serve the API until interrupted. SIGINT or SIGTERM triggers a graceful shutdown.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("watch") {
			cfg.Store.Watch = watchStore
		}

		logger := slog.Default()
		app, err := platform.NewApp(ctx, cfg, logger, strings.TrimSpace(hearth.Version), platform.WithDevSafety(devSafety))
		if err != nil {
			return err
		}

		logger.Info("starting hearth", "env", cfg.Env, "addr", cfg.Server.Addr, "data_dir", cfg.Store.DataDir)
		if err := app.Run(ctx); err != nil {
			return err
		}
		logger.Info("hearth stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&watchStore, "watch", false, "Log record changes made by other processes")
}
