package main

import (
	"log"

	"github.com/roadpulse/roadpulse-backend-go/internal/api"
	"github.com/roadpulse/roadpulse-backend-go/internal/config"
	"github.com/roadpulse/roadpulse-backend-go/internal/database"
	"github.com/roadpulse/roadpulse-backend-go/internal/handler"
	"github.com/roadpulse/roadpulse-backend-go/internal/hub"
	"github.com/roadpulse/roadpulse-backend-go/internal/jobs"
	"github.com/roadpulse/roadpulse-backend-go/internal/observability"
	"github.com/roadpulse/roadpulse-backend-go/internal/repository"
	"github.com/roadpulse/roadpulse-backend-go/internal/service"
)

func main() {
	cfg := config.Load()

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()
	metrics := observability.NewMetrics()

	communityRepo := repository.NewCommunityRepository(db)
	trafficRepo := repository.NewTrafficRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	aggregator := service.NewAggregationService(communityRepo, trafficRepo, metrics, cfg.MergeBoxDegrees)
	sessions := service.NewSessionService(sessionRepo)
	traffic := service.NewTrafficService(trafficRepo)

	liveHub := hub.New(cfg.HeartbeatInterval, aggregator.Submit, metrics)

	scheduler := jobs.NewScheduler(traffic)
	if err := scheduler.Start(cfg.TrafficRollupSpec); err != nil {
		log.Fatal("Failed to start job scheduler:", err)
	}
	defer scheduler.Stop()

	router := api.SetupRouter(api.Handlers{
		Reports:  handler.NewReportHandler(aggregator, liveHub),
		Sessions: handler.NewSessionHandler(sessions),
		Traffic:  handler.NewTrafficHandler(traffic),
		Hub:      liveHub,
		Defaults: api.ClientDefaults{
			Sensitivity:      cfg.Sensitivity,
			MergeBoxDegrees:  cfg.MergeBoxDegrees,
			HeartbeatSeconds: int(cfg.HeartbeatInterval.Seconds()),
		},
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
