package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/auth"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/client"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/config"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/db"
	httphandler "github.com/Edward-Gomez-Q/sumajflow-transport/internal/http"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/http/middleware"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/logger"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/notify"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/repository"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	mongoDB, err := db.NewMongo(cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect mongo")
	}
	defer func() {
		_ = mongoDB.Client().Disconnect(context.Background())
	}()

	lotRepo := repository.NewLotRepository(database)
	assignmentRepo := repository.NewAssignmentRepository(database)
	weighingRepo := repository.NewWeighingRepository(database)
	zoneRepo := repository.NewZoneRepository(database)
	trackingRepo := repository.NewTrackingRepository(mongoDB)

	dispatcher := notify.NewDispatcher(appLogger)
	defer dispatcher.Close()

	locks := service.NewAssignmentLocks()

	trackingService := service.NewTrackingService(
		trackingRepo,
		assignmentRepo,
		lotRepo,
		zoneRepo,
		locks,
		service.TrackingOptions{
			MovingSpeedThresholdKmh: cfg.Tracking.MovingSpeedThresholdKmh,
			AllowPreTripSamples:     cfg.Tracking.AllowPreTripSamples,
			StaleAfter:              cfg.Tracking.StaleConnectionTimeout,
			SweepInterval:           cfg.Tracking.StaleSweepInterval,
		},
		appLogger,
	)

	transportService := service.NewTransportService(
		lotRepo,
		assignmentRepo,
		weighingRepo,
		zoneRepo,
		trackingService,
		dispatcher,
		locks,
		appLogger,
	)

	weighingService := service.NewWeighingService(weighingRepo, assignmentRepo, lotRepo, locks)

	routingClient := client.NewRoutingClient(cfg)
	routeService := service.NewRouteService(
		assignmentRepo,
		lotRepo,
		zoneRepo,
		routingClient,
		cfg.Tracking.AssumedAvgSpeedKmh,
		appLogger,
	)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go trackingService.RunStaleSweep(sweepCtx)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(transportService, weighingService, trackingService, routeService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting transport service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
