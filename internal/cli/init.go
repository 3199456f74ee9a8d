// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/mappa, cmd/mappa-worker, and cmd/mappactl.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"mappa/internal/config"
	"mappa/internal/storage"
	"mappa/internal/suggest"
	"mappa/internal/suggest/keyword"
	"mappa/internal/suggest/ollama"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// NewSuggester builds the suggestion backend selected by the config.
func NewSuggester(logger *slog.Logger, cfg *config.Config) suggest.Suggester {
	switch cfg.SuggestBackend {
	case "ollama":
		logger.Info("Using Ollama suggestion backend",
			"url", cfg.OllamaURL,
			"model", cfg.OllamaModel,
			"timeout", cfg.SuggestTimeout)
		return ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel, cfg.SuggestTimeout)
	default:
		logger.Info("Using keyword suggestion backend")
		return keyword.New()
	}
}
