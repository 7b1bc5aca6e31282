//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"PQAnalyzer/internal/domain/service"
	"PQAnalyzer/internal/services/classifier"
	"PQAnalyzer/pkg/config"
	"PQAnalyzer/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideKafkaCollectors,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideRunStore,
		ProvideSampleWarehouse,
		ProvideSamplePipeline,

		// Domain services
		ProvideClassifierRegistry,
		wire.Bind(new(service.ClassifierResolver), new(*classifier.Registry)),
		ProvideCalibrator,
		ProvideSources,

		// Use cases
		ProvideAcquisition,
		ProvideAnalyzer,
		ProvideRuns,
		ProvideKafkaSamplesHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
