package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mavismavis1124-blip/marketsync/internal/cache"
	"github.com/mavismavis1124-blip/marketsync/internal/config"
	"github.com/mavismavis1124-blip/marketsync/internal/provider"
	"github.com/mavismavis1124-blip/marketsync/internal/service"
	"github.com/mavismavis1124-blip/marketsync/internal/stream"
	"github.com/mavismavis1124-blip/marketsync/internal/version"
	"github.com/mavismavis1124-blip/marketsync/internal/visibility"
)

func main() {
	configPath := flag.String("config", "configs/syncd.local.yaml", "path to config file")
	flag.Parse()

	// Local .env overrides are optional.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"stream_url", cfg.Stream.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// REST provider client. Endpoint families fall back to the shared
	// base URL and key unless the config points them elsewhere.
	clientOpts := []provider.ClientOption{
		provider.WithLogger(logger),
		provider.WithTimeout(cfg.API.Timeout),
		provider.WithRetries(cfg.API.MaxRetries, time.Second),
	}
	if cfg.API.Fast.BaseURL != "" {
		clientOpts = append(clientOpts,
			provider.WithFastEndpoint(provider.Endpoint{BaseURL: cfg.API.Fast.BaseURL, APIKey: cfg.API.Fast.APIKey}))
	}
	if cfg.API.Detailed.BaseURL != "" {
		clientOpts = append(clientOpts,
			provider.WithDetailedEndpoint(provider.Endpoint{BaseURL: cfg.API.Detailed.BaseURL, APIKey: cfg.API.Detailed.APIKey}))
	}
	if cfg.API.Feed.BaseURL != "" {
		clientOpts = append(clientOpts,
			provider.WithFeedEndpoint(provider.Endpoint{BaseURL: cfg.API.Feed.BaseURL, APIKey: cfg.API.Feed.APIKey}))
	}
	client := provider.NewClient(cfg.API.BaseURL, cfg.API.APIKey, clientOpts...)

	// Snapshot cache backed by redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	defer redisClient.Close()

	store := cache.NewRedisStore(redisClient, cfg.Cache.Key)
	snapCache := cache.New(store, logger, cache.WithMaxAge(cfg.Cache.MaxAge))

	// Streaming channel with REST fallback
	clientCfg := stream.DefaultClientConfig()
	clientCfg.URL = cfg.Stream.URL
	clientCfg.APIKey = cfg.Stream.APIKey
	clientCfg.PingTimeout = cfg.Stream.PingTimeout
	clientCfg.WriteTimeout = cfg.Stream.WriteTimeout

	channel := stream.NewChannel(
		stream.ChannelConfig{
			RetryWait:   cfg.Stream.RetryWait,
			MaxFailures: cfg.Stream.MaxFailures,
		},
		stream.Dialer(clientCfg, logger),
		logger,
	)

	// Core sync service
	svcCfg := service.Config{
		FastInterval:     cfg.Poller.FastInterval,
		DetailedInterval: cfg.Poller.DetailedInterval,
		FeedInterval:     cfg.Poller.FeedInterval,
		Concurrency:      cfg.Poller.Concurrency,
		BatchPause:       cfg.Poller.BatchPause,
		DedupTTL:         cfg.Poller.DedupTTL,
	}

	vis := visibility.NewPolicy(
		visibility.WithBackgroundMultiplier(cfg.Visibility.BackgroundMultiplier),
		visibility.WithLogger(logger),
	)

	svc := service.New(svcCfg, service.Deps{
		Prices:     client,
		Feed:       client,
		Channel:    channel,
		Cache:      snapCache,
		Visibility: vis,
		Logger:     logger,
	})

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start sync service", "error", err)
		os.Exit(1)
	}

	logger.Info("syncd running", "instance_id", cfg.Instance.ID)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}

	logger.Info("syncd stopped")
}
