//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application
// together with the cleanup that releases pools, stores and clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideSession,
		ProvideMetrics,
		ProvideLimiter,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories and adapters
		ProvideUpstream,
		ProvideSnapshots,
		ProvideMirror,
		ProvideForecastStore,
		ProvidePublisher,

		// Services
		ProvideWorkerPools,
		ProvideAcquisitionCache,
		ProvideEngine,
		ProvideTracker,

		// Use cases
		ProvideForecastService,
		ProvideRefreshCycle,
		ProvideIntradayCollector,

		// Transport and application server
		ProvideForecastHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
