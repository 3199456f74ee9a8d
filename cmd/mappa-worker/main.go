package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"mappa/internal/amqp"
	"mappa/internal/categories"
	"mappa/internal/cli"
	"mappa/internal/config"
	"mappa/internal/core"
	"mappa/internal/export"
	googleexport "mappa/internal/export/google"
	"mappa/internal/export/memory"
	"mappa/internal/rows"
	"mappa/internal/services"
	"mappa/internal/storage"
	"mappa/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger()
	logger.Info("Starting mappa-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	writer := initExportWriter(logger, cfg)
	exportWorker := worker.NewExportWorker(sqliteRepo, writer, cfg.ExportBatchSize)

	// AMQP is optional; without it the worker relies on the periodic
	// catch-up pass alone.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing with catch-up only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - exporting via periodic catch-up only")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, export any rows that were mapped while the worker was down
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
		// Don't exit - continue with normal operation
	}

	if amqpClient != nil {
		go func() {
			handler := func(msg *amqp.RowMappedEvent) error {
				return exportWorker.HandleRowMapped(ctx, msg)
			}
			if err := amqpClient.ConsumeRowMapped(ctx, handler); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Event consumption failed", "error", err)
				}
				cancel()
			}
		}()
	}

	// Periodic catch-up for events lost between startup checks
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic export failed", "error", err)
				}
			}
		}
	}()

	// Optional auto-mapping: a cron schedule, a polling loop, or neither.
	var autoMap *services.AutoMapProcessor
	var cronRunner *cron.Cron
	if cfg.AutoMapCron != "" || cfg.AutoMapPoll {
		autoMap = initAutoMap(ctx, logger, cfg, sqliteRepo, amqpClient)
	}
	switch {
	case autoMap == nil:
	case cfg.AutoMapCron != "":
		cronRunner = cron.New()
		_, err := cronRunner.AddFunc(cfg.AutoMapCron, func() {
			report, err := autoMap.Run(ctx)
			if err != nil {
				if !errors.Is(err, core.ErrFileNotFound) {
					logger.Error("Scheduled auto-map run failed", "error", err)
				}
				return
			}
			logger.Info("Scheduled auto-map run finished",
				"run_id", report.RunID,
				"mapped", report.MappedCount,
				"errors", len(report.Errors))
		})
		if err != nil {
			logger.Error("Failed to schedule auto-map runs", "error", err, "cron", cfg.AutoMapCron)
			os.Exit(1)
		}
		cronRunner.Start()
		logger.Info("Auto-map runs scheduled", "cron", cfg.AutoMapCron)
	default:
		if err := autoMap.Start(ctx); err != nil {
			logger.Error("Failed to start auto-map processor", "error", err)
			os.Exit(1)
		}
		logger.Info("Auto-map polling started", "interval", cfg.AutoMapPollInterval)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	if cronRunner != nil {
		cronRunner.Stop()
	}
	if autoMap != nil && autoMap.IsRunning() {
		if err := autoMap.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop auto-map processor", "error", err)
		}
	}
	cancel()

	// Wait for shutdown or timeout
	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}

// initExportWriter builds the export backend selected by the config.
func initExportWriter(logger *slog.Logger, cfg *config.Config) export.MappingWriter {
	switch cfg.ExportBackend {
	case "sheets":
		client, err := googleexport.NewClient(context.Background(), googleexport.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			ClientJSON:    cfg.GoogleOAuthClientJSON,
			ClientFile:    cfg.GoogleOAuthClientFile,
			TokenJSON:     cfg.GoogleOAuthTokenJSON,
			TokenFile:     cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets writer", "error", err)
			os.Exit(1)
		}
		logger.Info("Initialized Google Sheets export backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		return client
	default:
		logger.Info("Initialized memory export backend")
		return memory.New()
	}
}

// initAutoMap assembles a mapping engine over the shared database so the
// worker can run suggestion passes on its own schedule. Rows it maps go
// through the same persistence and event path as manual mapping.
func initAutoMap(ctx context.Context, logger *slog.Logger, cfg *config.Config, repo *storage.SQLiteRepository, amqpClient *amqp.Client) *services.AutoMapProcessor {
	suggester := cli.NewSuggester(logger, cfg)
	mappingService := services.NewMappingService(
		rows.NewStore(), categories.NewRegistry(), repo, amqpClient, suggester, services.NewSummaryService(repo))

	if err := mappingService.EnsureCategories(ctx); err != nil {
		logger.Error("Failed to seed categories", "error", err)
		os.Exit(1)
	}
	if err := mappingService.Resume(ctx); err != nil {
		logger.Error("Failed to resume active snapshot", "error", err)
		os.Exit(1)
	}

	return services.NewAutoMapProcessor(mappingService, services.AutoMapConfig{
		PauseBetweenRows: cfg.AutoMapPause,
		PollInterval:     cfg.AutoMapPollInterval,
	})
}
