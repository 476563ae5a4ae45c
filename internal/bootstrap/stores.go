package bootstrap

import (
	"context"
	"log/slog"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/history"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideHistoryStore(db *gorm.DB) *history.Store {
	return history.NewStore(db)
}

func ProvideCaptureStore(redisClient *redis.Client) *capture.Store {
	return capture.NewStore(redisClient)
}

func ProvideLocator(cfg *Config) ghost.Locator {
	return ghost.NewHTTPLocator(ghost.HTTPLocatorConfig{
		URL:    cfg.GeolocationURL,
		APIKey: cfg.GeolocationAPIKey,
	})
}

func ProvideCaptureManager(lc fx.Lifecycle, store *capture.Store, locator ghost.Locator, logger *slog.Logger) *capture.Manager {
	m := capture.NewManager(capture.ManagerConfig{
		Locator: locator,
		Store:   store,
		Logger:  logger,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Close()
		},
	})
	return m
}

func RunMigrations(historyStore *history.Store) error {
	return historyStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideHistoryStore,
		ProvideCaptureStore,
		ProvideLocator,
		ProvideCaptureManager,
	),
	fx.Invoke(RunMigrations),
)
