package daemon

import (
	"context"

	"github.com/promeg/multichannel/internal/api"
	"github.com/promeg/multichannel/internal/bus"
	"github.com/promeg/multichannel/internal/channel"
	"github.com/promeg/multichannel/internal/lock"
	"github.com/promeg/multichannel/internal/logging"
	"github.com/promeg/multichannel/internal/profile"
	"github.com/promeg/multichannel/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile            string
	Archive            string
	KeepCarriageReturn bool
	LogLevel           string
	SocketPath         string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			providePreferences,
			provideResolver,
			provideChannelService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, logging.ParseLevel(p.LogLevel))
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the store is only opened by its holder.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.PrefsDBPath(p.Profile)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func providePreferences(p Params, db *store.DB) *store.Preferences {
	return db.Preferences(store.DefaultFile(p.Profile))
}

func provideResolver(p Params, b *bus.Bus, logger *zap.Logger) *channel.Resolver {
	return channel.NewResolver(nil, logger, b, channel.Options{KeepCarriageReturn: p.KeepCarriageReturn})
}

func provideChannelService(p Params, r *channel.Resolver, prefs *store.Preferences) *api.ChannelService {
	return api.NewChannelService(r, prefs, p.Archive)
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *Server, lk *lock.Lock, db *store.DB, svc *api.ChannelService, b *bus.Bus, logger *zap.Logger) {
	events, unsubscribe := b.Subscribe("channel.", 64)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go logEvents(ctx, events, logger)

			rec := svc.Resolve()
			logger.Info("channel resolved",
				zap.String("channel", rec.Value),
				zap.String("source", string(rec.Source)),
				zap.String("archive", p.Archive),
			)

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			unsubscribe()
			cancel()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

func logEvents(ctx context.Context, events <-chan bus.Event, logger *zap.Logger) {
	for {
		select {
		case evt := <-events:
			logger.Debug("resolver event",
				zap.String("kind", evt.Kind),
				zap.String("id", evt.ID),
				zap.Any("payload", evt.Payload),
			)
		case <-ctx.Done():
			return
		}
	}
}
