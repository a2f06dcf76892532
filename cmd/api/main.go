package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/routesketch/routesketch/internal/adapters/http"
	natsadapter "github.com/routesketch/routesketch/internal/adapters/nats"
	"github.com/routesketch/routesketch/internal/adapters/osrm"
	"github.com/routesketch/routesketch/internal/adapters/postgres"
	"github.com/routesketch/routesketch/internal/adapters/valkey"
	"github.com/routesketch/routesketch/internal/core/usecases"
	"github.com/routesketch/routesketch/internal/pkg/config"
	"github.com/routesketch/routesketch/internal/pkg/logging"
	"github.com/routesketch/routesketch/internal/pkg/metrics"
	"github.com/routesketch/routesketch/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("routesketch-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Export pool stats for Prometheus
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Road oracle
	oracle := osrm.New(osrm.Options{
		BaseURL:        cfg.Oracle.BaseURL,
		Timeout:        time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		SnapBatchSize:  cfg.Oracle.SnapBatchSize,
		SnapBatchDelay: time.Duration(cfg.Oracle.SnapBatchDelay) * time.Millisecond,
		SnapCacheSize:  cfg.Oracle.SnapCacheSize,
	})

	// Synthesis pipeline tuned from config
	synthOpts := usecases.DefaultSynthesizerOptions()
	synthOpts.Simplify.MinPoints = cfg.Synthesis.MinPoints
	synthOpts.Simplify.MaxPoints = cfg.Synthesis.MaxPoints
	synthOpts.Score.PenaltyFloor = cfg.Synthesis.HighwayPenaltyMin
	synthOpts.Cleanup.LoopProgressTolerance = cfg.Synthesis.LoopTolerancePct
	synthOpts.Cleanup.BacktrackBandDegrees = cfg.Synthesis.BacktrackBandDeg
	synthOpts.Cleanup.DuplicateEpsilon = cfg.Synthesis.DuplicateEpsilon
	synthOpts.EdgeDelay = time.Duration(cfg.Synthesis.EdgeDelayMs) * time.Millisecond
	synthOpts.MaxSegmentFailures = cfg.Synthesis.MaxSegmentFailures

	// Use cases
	var synthesizer *usecases.Synthesizer
	if publisher != nil {
		synthesizer = usecases.NewSynthesizer(oracle, publisher, synthOpts)
	} else {
		synthesizer = usecases.NewSynthesizer(oracle, nil, synthOpts)
	}

	routeRepo := postgres.NewRouteRepo(db)
	var routeSvc *usecases.RouteService
	if cache != nil {
		routeSvc = usecases.NewRouteService(routeRepo, cache)
	} else {
		routeSvc = usecases.NewRouteService(routeRepo, nil)
	}

	deps := &http.Dependencies{
		Synthesizer: synthesizer,
		Routes:      routeSvc,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "RouteSketch API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.routesketch.app",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
