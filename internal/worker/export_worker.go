// Package worker delivers mapped rows from SQLite to the configured
// export backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mappa/internal/amqp"
	"mappa/internal/core"
	"mappa/internal/export"
	"mappa/internal/storage"
)

// ExportWorker pushes mapped rows to an export destination and tracks
// delivery in the database.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	writer    export.MappingWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, writer export.MappingWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleRowMapped processes a single row mapped event from AMQP.
func (w *ExportWorker) HandleRowMapped(ctx context.Context, msg *amqp.RowMappedEvent) error {
	slog.InfoContext(ctx, "Processing row mapped event",
		"source_file", msg.SourceFile,
		"row_index", msg.RowIndex)

	// The event only addresses the row; read the current state from the
	// database.
	row, err := w.storage.GetRow(ctx, msg.SourceFile, msg.RowIndex)
	if err != nil {
		if errors.Is(err, core.ErrRowNotFound) {
			slog.WarnContext(ctx, "Mapped row no longer exists, dropping event",
				"source_file", msg.SourceFile,
				"row_index", msg.RowIndex)
			return nil
		}
		return fmt.Errorf("get row from storage: %w", err)
	}
	if !row.Mapped {
		slog.WarnContext(ctx, "Row lost its category since the event, dropping event",
			"source_file", msg.SourceFile,
			"row_index", msg.RowIndex)
		return nil
	}

	if err := w.exportRow(ctx, row); err != nil {
		return fmt.Errorf("export row: %w", err)
	}
	return nil
}

// ProcessPending exports mapped rows that have not reached the backend
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported rows: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unexported rows", "count", len(pending))

	for _, row := range pending {
		if err := w.exportRow(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export row",
				"source_file", row.SourceFile,
				"row_index", row.Index,
				"error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains the unexported backlog at worker startup.
// This is useful to recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	// Use a larger batch for the startup pass
	pending, err := w.storage.ListUnexported(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unexported rows for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unexported rows found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unexported rows on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, row := range pending {
		if err := w.exportRow(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export row during startup",
				"source_file", row.SourceFile,
				"row_index", row.Index,
				"error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportRow(ctx context.Context, row core.Row) error {
	mapped := row.Export()

	ref, err := w.writer.Append(ctx, mapped)
	if err != nil {
		return fmt.Errorf("append to export backend: %w", err)
	}

	if err := w.storage.MarkExported(ctx, row.SourceFile, row.Index); err != nil {
		slog.ErrorContext(ctx, "Failed to mark row as exported",
			"source_file", row.SourceFile,
			"row_index", row.Index,
			"error", err)
		// Don't return an error here - the append actually worked
	}

	slog.InfoContext(ctx, "Exported mapped row",
		"source_file", row.SourceFile,
		"row_index", row.Index,
		"category", mapped.Category,
		"export_ref", ref)

	return nil
}
