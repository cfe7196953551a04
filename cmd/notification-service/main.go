package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-engine/internal/api/handlers"
	"auction-engine/internal/config"
	"auction-engine/internal/domain"
	"auction-engine/internal/infrastructure/redis"
	"auction-engine/internal/infrastructure/websocket"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"
)

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

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := utils.InitializeRedis(pingCtx, cfg.Redis)
	cancelPing()
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	connManager := websocket.NewConnectionManager(log)
	notifier := websocket.NewWebSocketNotifier(connManager)
	subscriber := redis.NewNotificationSubscriber(rdb, cfg.Redis.Channel, log)
	wsHandlers := handlers.NewWebSocketHandlers(connManager, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := subscriber.SubscribeToNotifications(ctx, func(recipient string, n *domain.Notification) error {
			return notifier.Notify(ctx, recipient, n)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Notification subscriber failed", "error", err)
			os.Exit(1)
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Notifier.Port),
		Handler: wsHandlers.Router(),
	}

	go func() {
		log.Info("Starting notification service", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification service...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := connManager.CloseAll(); err != nil {
		log.Error("Failed to close connections", "error", err)
	}

	log.Info("Notification service stopped")
}
