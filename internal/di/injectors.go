//go:build wireinject
// +build wireinject

package di

import (
	"wearsync/internal"
	"wearsync/internal/adapters"
	"wearsync/internal/controllers"
	"wearsync/internal/fetcher"
	"wearsync/internal/providers"
	"wearsync/internal/scheduler"
	"wearsync/internal/services"
	"wearsync/internal/storage"
	"wearsync/internal/structures"

	wire "github.com/google/wire"
)

var coreSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,
	providers.NewInstrumentedCacheProvider,

	storage.NewZstdCompressor,
	storage.NewStoreProvider,
	adapters.NewProvider,
	adapters.NewHTTPUploadGateway,
	wire.Bind(new(services.UploadGateway), new(*adapters.HTTPUploadGateway)),
	fetcher.NewRetryingFetcher,
	services.NewSyncOrchestrator,
	wire.Bind(new(services.SyncServiceInterface), new(*services.SyncOrchestrator)),
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		coreSet,
		scheduler.NewScheduler,
		controllers.NewSyncController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

func InitRunner(cfg *structures.CliFlags) (*internal.Runner, error) {

	wire.Build(
		coreSet,
		internal.NewRunner,
	)

	return nil, nil
}
