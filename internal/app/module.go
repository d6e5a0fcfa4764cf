package app

import (
	"context"
	"errors"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/database"
	"jobtracker/internal/database/migration"
	dbpostgres "jobtracker/internal/database/postgres"
	"jobtracker/internal/delivery/http/handler"
	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/delivery/http/routes"
	v1 "jobtracker/internal/delivery/http/routes/v1"
	"jobtracker/internal/domain/application"
	"jobtracker/internal/domain/user"
	"jobtracker/internal/events"
	"jobtracker/internal/infrastructure/cache"
	"jobtracker/internal/infrastructure/mail"
	"jobtracker/internal/infrastructure/storage"
	"jobtracker/internal/listsync"
	"jobtracker/internal/logger"
	"jobtracker/internal/pkg/jwt"
	"jobtracker/internal/preview"
	"jobtracker/internal/repository"
	"jobtracker/internal/telemetry"
	"jobtracker/internal/usecase/auth"
	"jobtracker/internal/workspace"
	"jobtracker/internal/ws"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	workspaceIdle  = 12 * time.Hour
	sweepInterval  = 10 * time.Minute
	connectTimeout = 10 * time.Second
)

// Module wires the server. Supply a config.Config alongside it.
var Module = fx.Options(
	fx.Provide(
		newLogger,
		newDB,
		newKeyStore,
		newMailer,
		newBlobStore,
		newPublisher,
		newTokens,
		newUserRepository,
		newRecordRepository,
		newAuthService,
		newHub,
		newRegistry,
		newPreview,
		newRoutes,
		newHTTP,
	),
	fx.Invoke(
		startTelemetry,
		runMigrations,
		serveHTTP,
	),
)

func newLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		_ = l.Sync()
		return nil
	}})
	return l, nil
}

func startTelemetry(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) {
	var shutdown func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			shutdown, err = telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
			if err != nil {
				log.Warn("tracing disabled", zap.Error(err))
				shutdown = nil
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	})
}

func newDB(lc fx.Lifecycle, cfg config.Config) (database.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return db.Close() }})
	return db, nil
}

func runMigrations(lc fx.Lifecycle, db database.DB, log *zap.Logger) {
	lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
		sqlDB := db.SQLDB()
		if sqlDB == nil {
			return errors.New("database has no sql handle for migrations")
		}
		_, err := migration.Runner{Logger: log}.Run(ctx, sqlDB)
		return err
	}})
}

// newKeyStore prefers Redis and falls back to process memory, which keeps
// sign-in working on a single instance without Redis.
func newKeyStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) auth.KeyStore {
	r := cache.NewRedis(cfg.Redis, log)
	if !r.Available() {
		log.Warn("using in-memory key store for sign-in links")
		return cache.NewMemory()
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return r.Close() }})
	return r
}

func newMailer(cfg config.Config, log *zap.Logger) mail.Mailer {
	return mail.New(cfg.Mail, log)
}

func newBlobStore(cfg config.Config, log *zap.Logger) (storage.Store, error) {
	return storage.New(cfg.Storage, log)
}

func newPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*events.Publisher, error) {
	p, err := events.NewPublisher(cfg.NATS, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return p.Close() }})
	return p, nil
}

func newTokens(cfg config.Config) jwt.Service {
	return jwt.NewHMACService(cfg.JWT.Secret, cfg.JWT.SessionExpiresIn)
}

func newUserRepository(db database.DB) user.Repository {
	return repository.NewPostgresUserRepository(db)
}

func newRecordRepository(db database.DB) application.Repository {
	return repository.NewPostgresJobApplicationRepository(db)
}

func newAuthService(cfg config.Config, users user.Repository, tokens jwt.Service, keys auth.KeyStore, mailer mail.Mailer, log *zap.Logger) *auth.Service {
	return auth.NewService(users, tokens, keys, mailer, auth.Options{
		SiteURL: cfg.App.SiteURL,
		LinkTTL: cfg.JWT.MagicLinkExpiresIn,
	}, log)
}

func newHub(lc fx.Lifecycle, log *zap.Logger) *ws.Hub {
	hub := ws.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return hub
}

func newRegistry(lc fx.Lifecycle, cfg config.Config, authSvc *auth.Service, records application.Repository, blobs storage.Store, pub *events.Publisher, hub *ws.Hub, log *zap.Logger) *workspace.Registry {
	reg := workspace.NewRegistry(authSvc, listsync.Deps{
		Records:        records,
		Blobs:          blobs,
		Publisher:      pub,
		Logger:         log,
		MaxResumeBytes: cfg.Storage.MaxResumeBytes,
	}, log)
	reg.Observe(ws.NewNotifier(hub).Notify)

	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				t := time.NewTicker(sweepInterval)
				defer t.Stop()
				for {
					select {
					case <-stop:
						return
					case <-t.C:
						if n := reg.Sweep(workspaceIdle); n > 0 {
							log.Debug("idle workspaces swept", zap.Int("count", n))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			reg.Shutdown()
			return nil
		},
	})
	return reg
}

func newPreview(cfg config.Config, log *zap.Logger) *preview.Service {
	return preview.New(cfg.Preview, log)
}

func newRoutes(cfg config.Config, db database.DB, keys auth.KeyStore, authSvc *auth.Service, reg *workspace.Registry, prev *preview.Service, hub *ws.Hub, log *zap.Logger) *routes.Registry {
	checks := map[string]handler.Pinger{"database": db}
	if p, ok := keys.(handler.Pinger); ok {
		checks["cache"] = p
	}

	return routes.NewRegistry(
		handler.NewHealthHandler(checks),
		handler.NewPageHandler(),
		v1.Handlers{
			Auth:   handler.NewAuthHandler(authSvc, reg, cfg.App.IsProduction()),
			Jobs:   handler.NewJobsHandler(prev),
			WS:     ws.NewHandler(hub, log, cfg.App.SiteURL),
			AuthMw: middleware.NewAuthMiddleware(reg),
		},
	)
}

func newHTTP(cfg config.Config, log *zap.Logger, r *routes.Registry, blobs storage.Store) *App {
	local, _ := blobs.(*storage.Local)
	return New(Options{Config: cfg, Logger: log, Routes: r, LocalBlobs: local})
}

func serveHTTP(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, a *App, log *zap.Logger) error {
	addr, err := ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := a.Fiber.Listen(addr); err != nil {
					log.Error("server error", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return a.Fiber.ShutdownWithContext(ctx)
		},
	})
	return nil
}
