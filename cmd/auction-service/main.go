package main

import (
	"context"
	"database/sql"
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
	"auction-engine/internal/infrastructure/mysql"
	"auction-engine/internal/infrastructure/redis"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
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
	log.Info("Starting auction service", "config", cfg.GetConfigString())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Notifications go out over Redis to the websocket gateway
	rdb, err := utils.InitializeRedis(ctx, cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	var (
		recorder domain.EventRecorder
		history  domain.EventHistory
	)
	if cfg.MySQL.Enabled {
		var db *sql.DB
		db, err = utils.InitializeMysql(ctx, cfg.MySQL)
		if err != nil {
			log.Error("Failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer func(db *sql.DB) {
			if err := db.Close(); err != nil {
				log.Error("Failed to close MySQL connection", "error", err)
			}
		}(db)
		log.Info("Connected to MySQL")

		eventRepo := mysql.NewMySQLEventRepository(db)
		recorder, history = eventRepo, eventRepo
	}

	publisher := redis.NewNotificationPublisher(rdb, cfg.Redis.Channel)
	dispatcher := services.NewDispatcher(publisher, recorder, log)
	engine := services.NewAuctionEngine(services.NewRegistry(), dispatcher, log)

	var sweeper *services.ExpirySweeper
	if cfg.Sweeper.Enabled {
		sweeper = services.NewExpirySweeper(engine, cfg.Sweeper.Interval, log)
	}

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       86400,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Info("Request handled",
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start).String())
			return err
		}
	})

	handlers.NewAuctionHandler(engine, history, log).RegisterRoutes(e)

	// The sweeper outlives request contexts; it is stopped explicitly below
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if sweeper != nil {
		if err := sweeper.Start(sweepCtx); err != nil {
			log.Error("Failed to start expiry sweeper", "error", err)
			os.Exit(1)
		}
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction service...")

	if sweeper != nil {
		if err := sweeper.Stop(); err != nil {
			log.Error("Failed to stop expiry sweeper", "error", err)
		}
	}
	stopSweep()

	// Graceful shutdown lets in-flight operations reach a result
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction service stopped")
}
