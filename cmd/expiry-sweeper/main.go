package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"auction-engine/internal/config"
	"auction-engine/internal/infrastructure/remote"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
)

// expiry-sweeper finalizes expired lots on a remote auction-service. Run the
// auction-service with sweeper.enabled=false when using it.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log, err := logger.NewWithLevel(cfg.Log.Level)
	if err != nil {
		logger.New().Fatal("Invalid log level", "level", cfg.Log.Level, "error", err)
	}
	log = log.With("instance_id", cfg.Instance.ID)

	client := remote.NewEngineClient(cfg.Sweeper.EngineURL, nil, log)
	sweeper := services.NewExpirySweeper(client, cfg.Sweeper.Interval, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sweeper.Start(ctx); err != nil {
		log.Error("Failed to start expiry sweeper", "error", err)
		os.Exit(1)
	}
	log.Info("Expiry sweeper running", "engine_url", cfg.Sweeper.EngineURL, "interval", cfg.Sweeper.Interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down expiry sweeper...")
	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop expiry sweeper", "error", err)
	}
	log.Info("Expiry sweeper stopped")
}
