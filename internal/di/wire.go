//go:build wireinject
// +build wireinject

package di

import (
	"GapCast/pkg/config"
	"GapCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,
		ProvideCacheService,

		// Stores
		ProvideNewsStore,
		ProvidePriceStore,
		ProvideModelStore,
		ProvideForecastPublisher,

		// Forecasting core
		ProvidePipeline,
		ProvideForecastUseCase,
		ProvideJobQueue,

		// Ingestion
		ProvideKafkaNewsHandler,
		ProvideMarketStream,
		ProvideRESTClient,
		ProvideTickCollector,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
