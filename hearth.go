package hearth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/hearth/internal/config"
	"github.com/aretw0/hearth/internal/platform"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/typed"
)

// --- Types ---

// Config is the application configuration.
type Config = config.Config

// App is the assembled HTTP application.
type App = platform.App

// Collection is a public alias for the typed record collection.
type Collection[T any] = typed.Collection[T]

// --- Configuration ---

// Option defines a functional option for configuring the store.
type Option = platform.Option

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithMustExist ensures the data directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithKeyLocks serializes read-modify-write cycles per record.
func WithKeyLocks(enabled bool) Option {
	return platform.WithKeyLocks(enabled)
}

// WithDevSafety redirects the data directory to a sandbox under the temp dir
// when running via `go run` or `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithEventBuffer allows specifying the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg := config.Default()
	return &cfg
}

// LoadConfig layers the YAML file at path (or $HEARTH_CONFIG) and HEARTH_*
// environment variables over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// --- Factory ---

// Open opens the record store rooted at dataDir.
func Open(ctx context.Context, dataDir string, opts ...Option) (*core.Service, error) {
	return platform.OpenStore(ctx, dataDir, opts...)
}

// NewApp builds the HTTP application described by cfg.
func NewApp(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...Option) (*App, error) {
	return platform.NewApp(ctx, cfg, logger, strings.TrimSpace(Version), opts...)
}

// NewCollection creates a type-safe view over one collection of the store.
func NewCollection[T any](svc *core.Service, name string) *Collection[T] {
	return typed.NewCollection[T](svc, name)
}

// --- Safety & Utils ---

// ResolveDataPath determines the actual data directory based on safety rules.
func ResolveDataPath(userPath string, forceTemp bool) string {
	return platform.ResolveDataPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindConfig looks upwards from startDir for a hearth.yaml file.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}
