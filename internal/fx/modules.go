package fx

import (
	"sc2-ladder-tracker/internal/api"
	"sc2-ladder-tracker/internal/config"
	"sc2-ladder-tracker/internal/database"
	"sc2-ladder-tracker/internal/logger"
	"sc2-ladder-tracker/internal/repository"
	"sc2-ladder-tracker/internal/server"
	"sc2-ladder-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewRosterRepository),
	fx.Provide(repository.NewSnapshotRepository),
	// api client
	fx.Provide(api.NewPulseClient),
	// svc
	fx.Provide(service.NewActivityClassifier),
	fx.Provide(service.NewRankingService),
	// server
	fx.Provide(server.New),
)
