package platform

import (
	"log/slog"

	"github.com/aretw0/hearth/pkg/core"
)

// options holds the internal configuration for opening a store.
type options struct {
	repository   core.Repository
	logger       *slog.Logger
	mustExist    bool
	keyLocks     bool
	devSafety    bool
	forceTemp    bool
	eventBuffer  int
	errorHandler func(error)
	observer     core.Observer
}

// Option defines a functional option for opening a store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		keyLocks:  true,
		devSafety: true,
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom storage adapter (e.g. a mock).
// The filesystem adapter is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithMustExist refuses to create the data directory.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithKeyLocks enables per-key serialization of read-modify-write cycles.
// Enabled by default.
func WithKeyLocks(enabled bool) Option {
	return func(o *options) {
		o.keyLocks = enabled
	}
}

// WithDevSafety controls the sandbox used under `go run`: when enabled
// (the default) the data directory is re-rooted into the system temp dir.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithForceTemp forces the data directory into the temp sandbox.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithEventBuffer sets the watch channel buffer. Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithWatcherErrorHandler registers a callback for errors of the watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithObserver registers a per-operation callback (metrics).
func WithObserver(obs core.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
