package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mappa/internal/amqp"
	"mappa/internal/categories"
	"mappa/internal/cli"
	apphttp "mappa/internal/http"
	"mappa/internal/rows"
	"mappa/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger()
	logger.Info("Starting mappa")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// AMQP is optional; without it, mapped rows stay local until the worker's
	// catch-up pass finds them.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - mapped rows will not publish events")
	}

	suggester := cli.NewSuggester(logger, cfg)

	summaryService := services.NewSummaryService(sqliteRepo)
	mappingService := services.NewMappingService(
		rows.NewStore(), categories.NewRegistry(), sqliteRepo, amqpClient, suggester, summaryService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mappingService.EnsureCategories(ctx); err != nil {
		logger.Error("Failed to seed categories", "error", err)
		os.Exit(1)
	}
	if err := mappingService.Resume(ctx); err != nil {
		logger.Error("Failed to resume active snapshot", "error", err)
		os.Exit(1)
	}

	autoMap := services.NewAutoMapProcessor(mappingService, services.AutoMapConfig{
		PauseBetweenRows: cfg.AutoMapPause,
		PollInterval:     cfg.AutoMapPollInterval,
	})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, mappingService, autoMap, summaryService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server",
			"port", cfg.Port,
			"suggest_backend", cfg.SuggestBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
