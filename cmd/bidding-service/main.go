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
	"auction-house/internal/infrastructure/lock"
	"auction-house/internal/infrastructure/redis"
	"auction-house/internal/infrastructure/websocket"
	"auction-house/internal/services"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "bidding", "instance_id", cfg.Instance.ID)
	log.Info("Starting bidding service", "config", cfg.GetConfigString())

	rdb, err := utils.InitializeRedis(context.Background(), cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	clk := clock.NewSystem()

	// Redis based components
	itemStore := redis.NewItemStore(rdb)
	bidStore := redis.NewBidStore(rdb)
	eventPublisher := redis.NewEventPublisher(rdb)
	eventSubscriber := redis.NewEventSubscriber(rdb, log)
	locker := lock.NewRedisLocker(rdb, lock.Options{
		TTL:        cfg.Lock.TTL,
		RetryDelay: cfg.Lock.RetryDelay,
		Retries:    cfg.Lock.Retries,
	}, log)

	bidService := services.NewBidService(locker, itemStore, bidStore, eventPublisher, clk, log)
	itemService := services.NewItemService(
		itemStore,
		redis.NewViewCounter(rdb),
		redis.NewLikeStore(rdb),
		redis.NewRankingStore(rdb),
		clk,
		log,
	)

	// WebSocket components
	connManager := websocket.NewConnectionManager(log)
	broadcaster := websocket.NewBroadcaster(connManager)
	eventListener := services.NewEventListener(broadcaster, log)
	wsHandler := websocket.NewWebSocketHandler(bidService, itemStore, connManager, clk, log)

	router := handlers.NewBiddingRouter(
		handlers.NewBidHandler(bidService, itemService, clk, log),
		wsHandler.HandleConnection,
		log,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := eventListener.Start(ctx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting bidding server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bidding service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Bidding service stopped")
}
