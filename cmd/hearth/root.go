package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hearth/internal/config"
	"github.com/aretw0/hearth/internal/platform"
	"github.com/aretw0/hearth/pkg/core"
)

var (
	verbose    bool
	logFormat  string
	configPath string
	dataDir    string
	devSafety  bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hearth",
	Short: "A JSON API server backed by one file per record",
	Long: `Hearth serves a small JSON API (users, tokens, menu, cart, checkout)
over a data directory holding one JSON file per record.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			setupLogger(config.Default().Logging)
			return nil
		}

		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogger(cfg.Logging)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to hearth.yaml (default: $HEARTH_CONFIG, then lookup upwards)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&devSafety, "dev-safety", true, "Sandbox the data directory under the temp dir when run via go run")
}

// loadConfig resolves the config file and layers it with the environment.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" && os.Getenv(config.EnvPrefix+"_CONFIG") == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		found, err := platform.FindConfig(wd)
		switch {
		case err == nil:
			path = found
		case !errors.Is(err, platform.ErrConfigNotFound):
			return nil, err
		}
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		c.Store.DataDir = dataDir
	}
	return c, nil
}

func setupLogger(lc config.LoggingConfig) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	format := lc.Format
	if logFormat != "" {
		format = logFormat
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore opens the configured data directory, which must already exist.
func openStore(ctx context.Context) (*core.Service, error) {
	return platform.OpenStore(ctx, cfg.Store.DataDir, storeOptions(true)...)
}

// openStoreCreating opens the configured data directory, creating it if needed.
func openStoreCreating(ctx context.Context) (*core.Service, error) {
	return platform.OpenStore(ctx, cfg.Store.DataDir, storeOptions(false)...)
}

func storeOptions(mustExist bool) []platform.Option {
	return []platform.Option{
		platform.WithLogger(slog.Default()),
		platform.WithMustExist(mustExist),
		platform.WithKeyLocks(cfg.Store.KeyLocks),
		platform.WithDevSafety(devSafety),
	}
}
