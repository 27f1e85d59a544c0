// Package platform wires the hearth components together: it opens the
// record store and assembles the HTTP application around it.
package platform

import (
	"context"

	"github.com/aretw0/hearth/pkg/adapters/fs"
	"github.com/aretw0/hearth/pkg/core"
)

// OpenStore opens the record store rooted at dataDir and returns the
// service on top of it.
func OpenStore(ctx context.Context, dataDir string, opts ...Option) (*core.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo := o.repository
	if repo == nil {
		repo = openFS(dataDir, o)
	}

	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}

	var svcOpts []core.ServiceOption
	if o.observer != nil {
		svcOpts = append(svcOpts, core.WithObserver(o.observer))
	}
	return core.NewService(repo, svcOpts...), nil
}

// openFS resolves the data directory and builds the filesystem adapter.
func openFS(dataDir string, o *options) *fs.Repository {
	useTemp := o.forceTemp || (o.devSafety && IsDevRun())
	resolved := ResolveDataPath(dataDir, useTemp)

	if o.logger != nil && useTemp {
		o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", dataDir, "resolved_path", resolved)
	}

	return fs.NewRepository(fs.Config{
		Path:         resolved,
		MustExist:    o.mustExist,
		KeyLocks:     o.keyLocks,
		Logger:       o.logger,
		EventBuffer:  o.eventBuffer,
		ErrorHandler: o.errorHandler,
	})
}
