//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"msd/internal"
	"msd/internal/controllers"
	"msd/internal/journal"
	"msd/internal/providers"
	"msd/internal/services"
	"msd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewCacheProvider,

		journal.NewZstdCompressor,
		services.NewMigrationService,
		services.NewReportService,
		journal.NewFileManager,
		journal.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
