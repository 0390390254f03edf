package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"permguard-lab/internal/api"
	"permguard-lab/internal/api/handlers"
	apimiddleware "permguard-lab/internal/api/middleware"
	"permguard-lab/internal/config"
	"permguard-lab/internal/domain/services"
	"permguard-lab/internal/grpc/healthcheck"
	"permguard-lab/internal/infrastructure/cache"
	"permguard-lab/internal/streaming"
	"permguard-lab/pkg/logger"
)

func main() {
	// Load configuration; an empty path searches ./config and /etc/permguard-lab
	cfg, err := config.Load(os.Getenv("PERMGUARD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting PermGuard Lab")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report cache (optional)
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, reports will not be cached")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	// Initialize streaming infrastructure
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing with local streaming only")
			natsPublisher = nil
		} else {
			log.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS")
		}
	}

	// closes the NATS connection too
	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()

	wsHub := streaming.NewWebSocketHub(log)
	go wsHub.Run(ctx)

	eventPublisher := streaming.NewEventBusPublisher(eventBus, wsHub)

	// Initialize services. Interfaces only receive the cache when it exists.
	var (
		store   services.ReportStore
		limiter apimiddleware.RateLimitChecker
	)
	if redisCache != nil {
		store = redisCache
		limiter = redisCache
	}

	scanService := services.NewScanService(
		services.ScanServiceConfig{ReportTTL: cfg.Reports.CacheTTL},
		services.PermissionScorer{},
		services.NewReportAssembler(),
		store,
		eventPublisher,
		log,
	)

	transmitter := services.NewTransmitter(services.TransmitterConfig{
		Endpoint:   cfg.Transmit.Endpoint,
		Timeout:    cfg.Transmit.Timeout,
		MaxRetries: cfg.Transmit.MaxRetries,
		RetryDelay: cfg.Transmit.RetryDelay,
		Headers:    cfg.Transmit.Headers,
	}, log)
	if cfg.Transmit.Endpoint == "" {
		log.Info().Msg("no transmit endpoint configured, report delivery disabled")
	}

	// Initialize handlers
	h := handlers.NewHandlers(handlers.Dependencies{
		ScanService: scanService,
		Transmitter: transmitter,
		Publisher:   eventPublisher,
		Cache:       redisCache,
		WSHub:       wsHub,
		EventBus:    eventBus,
		MaxApps:     cfg.Reports.MaxApps,
		Version:     cfg.App.Version,
		Logger:      log,
	})

	// Create router
	router := api.NewRouter(*cfg, h, limiter, log)

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Start gRPC server
	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}

	grpcServer := grpc.NewServer()

	healthDeps := map[string]healthcheck.Pinger{}
	if redisCache != nil {
		healthDeps["redis"] = redisCache
	}
	healthcheck.Register(ctx, grpcServer, healthcheck.DefaultInterval, log, healthDeps)

	go func() {
		log.Info().
			Str("addr", grpcListener.Addr().String()).
			Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	// Stops the websocket hub and health probes
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}
