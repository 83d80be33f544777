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

	"auction-house/internal/api/handlers"
	"auction-house/internal/config"
	"auction-house/internal/infrastructure/mysql"
	"auction-house/internal/infrastructure/redis"
	"auction-house/internal/services"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const archiverStopTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "analytics", "instance_id", cfg.Instance.ID)

	rdb, err := utils.InitializeRedis(context.Background(), cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	db, err := utils.InitializeMysql(context.Background(), cfg.MySQL)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()

	archiver := services.NewArchiver(mysql.NewBidArchive(db), log)
	subscriber := redis.NewEventSubscriber(rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handlers.NewArchiveHandler(archiver, log).RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "analytics",
			"port":    cfg.Server.Port,
		})
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- archiver.Start(ctx, subscriber)
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting analytics server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal or a failed subscription
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	archiverExited := false
	select {
	case <-quit:
	case err := <-done:
		archiverExited = true
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Analytics service failed", "error", err)
			os.Exit(1)
		}
	}

	log.Info("Shutting down analytics service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	if !archiverExited {
		if err := utils.AwaitStop(done, archiverStopTimeout); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Archiver did not stop cleanly", "error", err)
		}
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Analytics service stopped")
}
