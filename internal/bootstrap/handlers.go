package bootstrap

import (
	"log/slog"
	"os"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/auth"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/history"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/storage"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/submit"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideAuthMiddleware() *auth.Middleware {
	return auth.NewMiddleware()
}

func ProvideStorageClient(cfg *Config) *storage.Client {
	return storage.NewClient(storage.Config{
		BaseURL: cfg.StorageBaseURL,
		Bucket:  cfg.StorageBucket,
		Timeout: cfg.StorageTimeout,
	})
}

func ProvideAnalysisClient(cfg *Config) *submit.Client {
	return submit.NewClient(submit.ClientConfig{
		BaseURL: cfg.AnalysisBaseURL,
		Timeout: cfg.AnalysisTimeout,
	})
}

func ProvideSubmitService(storageClient *storage.Client, analysisClient *submit.Client, historyStore *history.Store, logger *slog.Logger) *submit.Service {
	return submit.NewService(submit.ServiceConfig{
		Assembler:    submit.NewAssembler(logger),
		Orchestrator: submit.NewOrchestrator(storageClient, logger),
		Analyzer:     analysisClient,
		History:      historyStore,
		Logger:       logger,
	})
}

func ProvideCaptureHandler(manager *capture.Manager, store *capture.Store, logger *slog.Logger) *capture.Handler {
	return capture.NewHandler(manager, store, logger.With("handler", "capture"))
}

func ProvideSubmitHandler(service *submit.Service, manager *capture.Manager, logger *slog.Logger) *submit.Handler {
	return submit.NewHandler(service, manager, logger.With("handler", "submit"))
}

func ProvideHistoryHandler(store *history.Store, logger *slog.Logger) *history.Handler {
	return history.NewHandler(store, logger.With("handler", "history"))
}

type HandlerParams struct {
	fx.In

	CaptureHandler *capture.Handler
	SubmitHandler  *submit.Handler
	HistoryHandler *history.Handler
	AuthMiddleware *auth.Middleware
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api/v1")
	api.Use(params.AuthMiddleware.Authenticate)

	params.CaptureHandler.RegisterRoutes(api)
	params.SubmitHandler.RegisterRoutes(api)
	params.HistoryHandler.RegisterRoutes(api)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideAuthMiddleware,
		ProvideStorageClient,
		ProvideAnalysisClient,
		ProvideSubmitService,
		ProvideCaptureHandler,
		ProvideSubmitHandler,
		ProvideHistoryHandler,
	),
	fx.Invoke(RegisterRoutes),
)
