package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/botbridge/gateway/internal/gateway/adapters/chatplatform"
	"github.com/botbridge/gateway/internal/gateway/adapters/modelprovider"
	"github.com/botbridge/gateway/internal/gateway/app"
	"github.com/botbridge/gateway/internal/gateway/repository/postgres"
	gatewayhttp "github.com/botbridge/gateway/internal/gateway/transport/http"
	"github.com/botbridge/gateway/internal/platform/config"
	"github.com/botbridge/gateway/internal/platform/database"
	"github.com/botbridge/gateway/internal/platform/logger"
	"github.com/botbridge/gateway/internal/platform/messagebroker"
	"github.com/botbridge/gateway/migrations"
)

const (
	serviceName     = "gateway"
	durableConsumer = "gateway_workers"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("starting service",
		"http_port", cfg.HTTPPort,
		"metrics_port", cfg.MetricsPort,
		"worker_concurrency", cfg.WorkerConcurrency,
		"nats_url", cfg.NATSURL,
	)

	if err := database.Migrate(cfg.PostgresDSN, migrations.FS); err != nil {
		return err
	}
	appLogger.Info("database migrations applied")

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("initializing database pool: %w", err)
	}
	defer dbPool.Close()

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSURL, serviceName, appLogger)
	if err != nil {
		return fmt.Errorf("initializing NATS client: %w", err)
	}
	defer natsClient.Close()

	if err := natsClient.EnsureStreams(ctx); err != nil {
		return err
	}

	// Repositories.
	integrationRepo := postgres.NewPgIntegrationRepository(dbPool, appLogger)
	messageRepo := postgres.NewPgMessageRepository(dbPool, appLogger)
	botRepo := postgres.NewPgBotRepository(dbPool, appLogger)
	executionRepo := postgres.NewPgExecutionRepository(dbPool, appLogger)
	settingsRepo := postgres.NewPgAccountSettingsRepository(dbPool, appLogger)

	// Platform adapters, selected once per platform kind.
	registry := chatplatform.NewRegistry(
		chatplatform.NewTelegramAdapter(appLogger, "", nil),
		chatplatform.NewWhatsAppAdapter(appLogger, "", nil),
	)

	// Pipeline.
	resolver := modelprovider.NewResolver(modelprovider.Config{
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
	}, settingsRepo, appLogger)

	orchestrator := app.NewOrchestrator(botRepo, messageRepo, executionRepo, resolver, cfg.HistoryWindow, appLogger)
	dispatcher := app.NewOutboundDispatcher(registry, messageRepo, appLogger)
	processor := app.NewJobProcessor(integrationRepo, messageRepo, registry, orchestrator, dispatcher, appLogger)

	jobs, err := natsClient.JobsConsumer(ctx, durableConsumer, cfg.JobMaxDeliver)
	if err != nil {
		return err
	}
	consumer := app.NewJobConsumer(jobs, natsClient, processor, cfg.WorkerConcurrency, cfg.JobMaxDeliver, appLogger)

	// HTTP edge.
	queue := app.NewJobQueue(natsClient, appLogger)
	webhookHandler := gatewayhttp.NewWebhookHandler(integrationRepo, queue, appLogger)
	integrationService := app.NewIntegrationService(integrationRepo, registry, cfg.PublicBaseURL, appLogger)
	integrationHandler := gatewayhttp.NewIntegrationHandler(integrationService, appLogger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           gatewayhttp.NewRouter(webhookHandler, integrationHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("worker pool starting", "concurrency", cfg.WorkerConcurrency)
		if err := consumer.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker pool: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("webhook server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("webhook server shutdown", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("metrics server shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	appLogger.Info("service stopped")
	return nil
}
