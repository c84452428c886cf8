package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/blobstore"
	"github.com/docketapp/docket/internal/bus"
	"github.com/docketapp/docket/internal/chat"
	"github.com/docketapp/docket/internal/config"
	"github.com/docketapp/docket/internal/docstore"
	"github.com/docketapp/docket/internal/docstore/redisdoc"
	"github.com/docketapp/docket/internal/identity"
	"github.com/docketapp/docket/internal/items"
	"github.com/docketapp/docket/internal/localstore"
	"github.com/docketapp/docket/internal/logging"
	"github.com/docketapp/docket/internal/session"
	"github.com/docketapp/docket/internal/tui"
	"github.com/docketapp/docket/internal/tui/model"
)

// Params carry the process-level settings resolved by the binary before the
// container is composed.
type Params struct {
	ConfigPath string
	Console    bool // also log to stderr; headless tooling only
}

// Module composes every provider and lifecycle hook of the application.
func Module(p Params) fx.Option {
	return fx.Module("docket",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideLocalStore,
			provideDocStore,
			provideAuth,
			provideUploader,
			provideSession,
			provideItemSyncer,
			provideChatSyncer,
			provideViewModel,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if err := EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	// A deployment needs a stable token-signing secret. Generate one on
	// first run and persist it so restarts keep accepting cached credentials.
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = uuid.New().String()
		if err := config.Save(p.ConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("persisting generated auth secret: %w", err)
		}
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(LogPath(), p.Console)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(logger *zap.Logger) (*Lock, error) {
	l, err := AcquireLock()
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired", zap.String("path", LockPath()))
	return l, nil
}

func provideLocalStore(logger *zap.Logger) (*localstore.DB, error) {
	db, err := localstore.Open(DBPath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("local store ready",
		zap.String("path", DBPath()),
		zap.Uint("schema", result.Version),
		zap.Bool("migrated", result.Changed))
	return db, nil
}

func provideDocStore(cfg *config.Config, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("memory backend selected, nothing survives a restart")
		return docstore.NewMemStore(), nil
	default:
		return redisdoc.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Namespace, logger)
	}
}

func provideAuth(cfg *config.Config, store docstore.Store) identity.Provider {
	ttl := time.Duration(cfg.Auth.LinkTokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return identity.NewJWTProvider(store, cfg.Auth.Secret, ttl)
}

// provideUploader returns nil when no bucket is configured; photo saves then
// fail with a clear error instead of a misconfigured client.
func provideUploader(cfg *config.Config, logger *zap.Logger) (blobstore.Uploader, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no object store configured, photo uploads disabled")
		return nil, nil
	}
	return blobstore.NewS3Uploader(context.Background(), blobstore.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	})
}

func provideSession(cfg *config.Config, auth identity.Provider, store docstore.Store, local *localstore.DB, b *bus.Bus, logger *zap.Logger) *session.Manager {
	return session.NewManager(auth, store, local, b, logger, cfg.Marketplace)
}

func provideItemSyncer(cfg *config.Config, store docstore.Store, uploads blobstore.Uploader, b *bus.Bus, logger *zap.Logger) *items.Syncer {
	return items.NewSyncer(store, uploads, b, logger, cfg.Namespace, cfg.Marketplace)
}

func provideChatSyncer(store docstore.Store, b *bus.Bus, logger *zap.Logger) *chat.Syncer {
	return chat.NewSyncer(store, b, logger)
}

func provideViewModel(sess *session.Manager, itemSync *items.Syncer, chatSync *chat.Syncer, local *localstore.DB, b *bus.Bus) *model.ViewModel {
	return model.NewViewModel(sess, itemSync, chatSync, local, b)
}

func provideApp(cfg *config.Config, vm *model.ViewModel, sess *session.Manager, itemSync *items.Syncer, chatSync *chat.Syncer, auth identity.Provider, uploads blobstore.Uploader, logger *zap.Logger) *tui.App {
	return tui.NewApp(vm, sess, itemSync, chatSync, auth, uploads, cfg.Namespace, logger, cfg.Marketplace)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, sess *session.Manager, itemSync *items.Syncer, chatSync *chat.Syncer, lk *Lock, local *localstore.DB, logger *zap.Logger) {
	// Registration order is teardown order for the session's dependents.
	sess.AddDependent(itemSync)
	if cfg.Marketplace {
		sess.AddDependent(chatSync)
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sess.Start(context.Background())
			if cfg.Auth.Mode == "anonymous" {
				go func() {
					if sess.State() == session.SignedOut {
						if err := sess.SignInAnonymously(context.Background()); err != nil {
							logger.Warn("anonymous sign-in failed", zap.Error(err))
						}
					}
				}()
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			// Shutdown, not sign-out: the cached credential must survive so
			// the next start can re-authenticate silently.
			sess.Shutdown()
			if err := local.Close(); err != nil {
				logger.Warn("closing local store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("releasing instance lock", zap.Error(err))
			}
			logger.Info("docket stopped")
			return nil
		},
	})
}
