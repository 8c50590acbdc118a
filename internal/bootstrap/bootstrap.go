// Package bootstrap wires configuration, the session store, the API client and
// the services shared by the portal and the CLI.
package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/migrations"
	"github.com/rryowa/fra_portal/internal/service"
	"github.com/rryowa/fra_portal/internal/storage"
	"github.com/rryowa/fra_portal/internal/storage/file"
	"github.com/rryowa/fra_portal/internal/storage/memory"
	"github.com/rryowa/fra_portal/internal/storage/postgres"
	"github.com/rryowa/fra_portal/internal/storage/redis"
	"github.com/rryowa/fra_portal/internal/util"
)

type App struct {
	Config *util.Config
	Log    *zap.SugaredLogger
	Store  storage.SessionStore
	Client *client.Client

	Auth   *service.AuthService
	Portal *service.PortalService
	DSS    *service.DSSService
	Maps   *service.MapService

	cleanupFuncs []func()
}

func New(cfg *util.Config, log *zap.SugaredLogger) (*App, error) {
	store, cleanupFuncs, err := NewSessionStore(cfg, log)
	if err != nil {
		return nil, err
	}

	c, err := client.New(&cfg.Client, store, log)
	if err != nil {
		runCleanup(cleanupFuncs)
		return nil, err
	}

	portal := service.NewPortalService(c, log)
	return &App{
		Config:       cfg,
		Log:          log,
		Store:        store,
		Client:       c,
		Auth:         service.NewAuthService(c, store, log),
		Portal:       portal,
		DSS:          service.NewDSSService(c, portal, log),
		Maps:         service.NewMapService(portal, log),
		cleanupFuncs: cleanupFuncs,
	}, nil
}

// NewSessionStore opens the backend named by cfg.Session.Backend. The returned
// funcs release its connections.
func NewSessionStore(cfg *util.Config, log *zap.SugaredLogger) (storage.SessionStore, []func(), error) {
	switch cfg.Session.Backend {
	case util.SessionBackendMemory:
		return memory.NewSessionStore(log), nil, nil

	case util.SessionBackendFile:
		return file.NewSessionStore(cfg.Session.File), nil, nil

	case util.SessionBackendRedis:
		rdb, cleanup, err := util.NewRedisClient(log, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
		}
		return redis.NewSessionStore(rdb, cfg.Redis.KeyPrefix, cfg.Session.Namespace), []func(){cleanup}, nil

	case util.SessionBackendPostgres:
		db, cleanup, err := util.NewDBConnection(log, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
		}
		if err := migrations.RunMigrations(db, log); err != nil {
			cleanup()
			return nil, nil, err
		}
		return postgres.NewStorage(db, cfg.Session.Namespace), []func(){cleanup}, nil
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}

func (a *App) Close() {
	runCleanup(a.cleanupFuncs)
	a.cleanupFuncs = nil
}

func runCleanup(funcs []func()) {
	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}
