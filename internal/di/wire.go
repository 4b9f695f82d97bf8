//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"AutoOptimiser/pkg/config"
	"AutoOptimiser/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// The returned cleanup closes infrastructure clients and must run after
// the App has shut down.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideSessionStore,
		ProvideEventPublisher,
		ProvideResultArchive,
		ProvideTerminal,

		// Engine and use cases
		ProvideProgressHub,
		ProvideOptimiser,
		ProvideQueue,
		ProvideRunService,
		ProvideRunJob,

		// Transport
		ProvideRunHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
