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
	"auction-house/internal/clock"
	"auction-house/internal/config"
	"auction-house/internal/infrastructure/leader"
	"auction-house/internal/infrastructure/redis"
	"auction-house/internal/keys"
	"auction-house/internal/services"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const campaignInterval = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "auction", "instance_id", cfg.Instance.ID)
	log.Info("Starting auction service", "config", cfg.GetConfigString())

	rdb, err := utils.InitializeRedis(context.Background(), cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	clk := clock.NewSystem()
	rankingStore := redis.NewRankingStore(rdb)
	itemService := services.NewItemService(
		redis.NewItemStore(rdb),
		redis.NewViewCounter(rdb),
		redis.NewLikeStore(rdb),
		rankingStore,
		clk,
		log,
	)

	leaderElection := leader.NewRedisLeaderElection(rdb, keys.ReconcilerLeader(), cfg.Leader.TTL, log)
	reconciler := services.NewReconciler(
		rankingStore,
		leaderElection,
		cfg.Instance.ID,
		cfg.Reconcile.Schedule,
		cfg.Reconcile.BatchSize,
		log,
	)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut,
			http.MethodPost, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 86400,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Debug("Request handled",
				"id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start))
			return err
		}
	})

	handlers.NewItemHandler(itemService, log).RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction",
			"timestamp": clk.Now().Format(time.RFC3339),
			"port":      cfg.Server.Port,
		})
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Reconcile.Enabled {
		if err := reconciler.Start(ctx); err != nil {
			log.Error("Failed to start reconciler", "error", err)
			os.Exit(1)
		}
		go reconciler.Campaign(ctx, campaignInterval)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting auction server", "address", serverAddr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	if cfg.Reconcile.Enabled {
		reconciler.Stop()
		if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
			log.Error("Failed to release leadership", "error", err)
		}
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction service stopped")
}
