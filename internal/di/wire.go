//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"PairLab/pkg/config"
	"PairLab/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(ctx context.Context, cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideAnalyticsMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvidePostgresPool,
		ProvideCache,

		// Repositories
		ProvideTickStore,
		ProvideTickPublisher,
		ProvideAlertRepository,

		// Ingestion
		ProvideTickBuffer,
		ProvideKafkaConsumer,
		ProvideHub,
		ProvideTickProcessor,
		ProvideTickCollector,

		// Analytics
		ProvideAlertService,
		ProvidePairAnalytics,
		ProvideTickUploader,
		ProvideLivePublisher,

		// HTTP
		ProvideRateLimiter,
		ProvideAPIMiddleware,
		ProvideHealthHandler,
		ProvideAnalyticsHandler,
		ProvideUploadHandler,
		ProvideAlertsHandler,
		ProvideWSHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
