package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/introspection"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/hearth/internal/collab"
	"github.com/aretw0/hearth/internal/config"
	"github.com/aretw0/hearth/internal/handlers"
	"github.com/aretw0/hearth/internal/metrics"
	storeevents "github.com/aretw0/hearth/pkg/adapters/lifecycle"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/server"
	"github.com/aretw0/hearth/pkg/token"
)

// App is the assembled HTTP application.
type App struct {
	Config  *config.Config
	Store   *core.Service
	Tokens  *token.Authority
	Metrics *metrics.Metrics
	Server  *server.Server

	logger *slog.Logger
}

// NewApp opens the store and builds every component from cfg.
// Extra options are applied to the store after those derived from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New(true)

	storeOpts := append([]Option{
		WithLogger(logger.With("component", "store")),
		WithKeyLocks(cfg.Store.KeyLocks),
		WithObserver(m.StoreObserver()),
	}, opts...)
	store, err := OpenStore(ctx, cfg.Store.DataDir, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	tokens := token.NewAuthority(store, token.WithTTL(cfg.Auth.TokenTTL), token.WithLogger(logger))

	api := handlers.New(handlers.Deps{
		Store:    store,
		Tokens:   tokens,
		Hasher:   collab.NewArgon2Hasher(cfg.Auth.HashingSecret),
		Charger:  collab.NewLocalCharger(logger),
		Mailer:   collab.NewLogMailer(logger),
		Logger:   logger,
		Currency: cfg.Checkout.Currency,
		MailFrom: cfg.Mail.From,
		Version:  version,
	})

	dispatcher := server.NewDispatcher(
		server.NewRouter(api.Routes(), nil),
		server.WithLogger(logger.With("component", "dispatcher")),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithRecorder(m),
	)

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		TrustProxy:        cfg.Server.TrustProxy,
		RateLimit: server.RateLimitConfig{
			Enabled: cfg.RateLimit.Enabled,
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
		},
		MetricsHandler: m.Handler(),
		OnRateLimited:  m.RateLimited,
	}, dispatcher, server.WithServerLogger(logger))

	return &App{
		Config:  cfg,
		Store:   store,
		Tokens:  tokens,
		Metrics: m,
		Server:  srv,
		logger:  logger,
	}, nil
}

// Run serves HTTP until ctx is canceled. With store watching enabled, record
// changes (including edits by other processes) are logged alongside.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Config.Store.Watch {
		events, err := a.Store.Watch(gctx, "**")
		if err != nil {
			return fmt.Errorf("failed to watch store: %w", err)
		}
		src := storeevents.NewSource(events)
		if err := src.Start(gctx); err != nil {
			return fmt.Errorf("failed to start event source: %w", err)
		}
		g.Go(func() error {
			for e := range src.Events() {
				if ce, ok := e.(core.Event); ok {
					a.logger.Info("record changed", "type", ce.Type, "collection", ce.Collection, "key", ce.Key)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.Server.ListenAndServe(gctx)
	})

	return g.Wait()
}

// State returns the introspection state of every component, keyed by component type.
func (a *App) State() map[string]any {
	out := make(map[string]any)
	add := func(v any) {
		if c, ok := v.(introspection.Component); ok {
			if i, ok := v.(introspection.Introspectable); ok {
				out[c.ComponentType()] = i.State()
			}
		}
	}
	add(a.Store)
	add(a.Tokens)
	add(a.Server)
	return out
}
