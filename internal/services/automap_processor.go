package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mappa/internal/core"
)

// AutoMapConfig holds configuration for the auto-map processor
type AutoMapConfig struct {
	// PauseBetweenRows throttles suggestion calls within a run (default: 0)
	PauseBetweenRows time.Duration

	// PollInterval is how often the background loop checks for unmapped rows (default: 30s)
	PollInterval time.Duration
}

// DefaultAutoMapConfig returns sensible defaults
func DefaultAutoMapConfig() AutoMapConfig {
	return AutoMapConfig{
		PauseBetweenRows: 0,
		PollInterval:     30 * time.Second,
	}
}

// AutoMapProcessor maps the unmapped rows of the active snapshot through the
// suggester. Run executes a single batch; Start/Stop drive a polling loop
// for worker deployments.
type AutoMapProcessor struct {
	mapping *MappingService
	config  AutoMapConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewAutoMapProcessor creates a new auto-map processor
func NewAutoMapProcessor(mapping *MappingService, config AutoMapConfig) *AutoMapProcessor {
	return &AutoMapProcessor{
		mapping: mapping,
		config:  config,
	}
}

// Run auto-maps every row that is unmapped when the run starts, in ascending
// index order. Per-row failures are recorded in the report and never abort
// the batch. A cancelled context stops the run after the current row and
// returns the partial report; rows already mapped by the run stay mapped.
func (p *AutoMapProcessor) Run(ctx context.Context) (core.AutoMapReport, error) {
	return p.run(ctx, nil)
}

func (p *AutoMapProcessor) run(ctx context.Context, stopCh <-chan struct{}) (core.AutoMapReport, error) {
	report := core.AutoMapReport{
		RunID:  uuid.New().String(),
		Errors: []core.RowError{},
	}
	if !p.mapping.HasFile() {
		return report, core.ErrFileNotFound
	}

	// Snapshot the work list once; rows uploaded later are not picked up.
	indices := p.mapping.Unmapped()
	slog.InfoContext(ctx, "Auto-map run started",
		"run_id", report.RunID, "unmapped", len(indices))

	for _, index := range indices {
		select {
		case <-stopCh:
			slog.WarnContext(ctx, "Auto-map run stopped",
				"run_id", report.RunID, "mapped_count", report.MappedCount)
			return report, nil
		case <-ctx.Done():
			slog.WarnContext(ctx, "Auto-map run cancelled",
				"run_id", report.RunID, "mapped_count", report.MappedCount)
			return report, nil
		default:
		}

		row, err := p.mapping.Row(index)
		if err != nil {
			report.Errors = append(report.Errors, core.RowError{RowIndex: index, Message: err.Error()})
			continue
		}
		// Skip rows mapped by someone else since the run started.
		if row.Mapped {
			continue
		}

		suggestion, err := p.mapping.SuggestRow(ctx, index)
		if err != nil {
			report.Errors = append(report.Errors, core.RowError{RowIndex: index, Message: err.Error()})
			continue
		}
		if canonical, ok := p.mapping.CanonicalCategory(suggestion); ok {
			suggestion = canonical
		}
		if _, err := p.mapping.MapRow(ctx, index, suggestion); err != nil {
			report.Errors = append(report.Errors, core.RowError{RowIndex: index, Message: err.Error()})
			continue
		}
		report.MappedCount++

		if p.config.PauseBetweenRows > 0 {
			select {
			case <-stopCh:
				return report, nil
			case <-ctx.Done():
				return report, nil
			case <-time.After(p.config.PauseBetweenRows):
			}
		}
	}

	slog.InfoContext(ctx, "Auto-map run finished",
		"run_id", report.RunID,
		"mapped_count", report.MappedCount,
		"errors", len(report.Errors))
	return report, nil
}

// Start begins the background polling loop. Returns an error if already running.
func (p *AutoMapProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("auto-map processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Auto-map processor started",
		"poll_interval", p.config.PollInterval,
		"pause_between_rows", p.config.PauseBetweenRows)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *AutoMapProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Signal stop
	close(p.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Auto-map processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Auto-map processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *AutoMapProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the background processing loop
func (p *AutoMapProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.runPending(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runPending(ctx)
		}
	}
}

// runPending runs one batch when the active snapshot has unmapped rows.
func (p *AutoMapProcessor) runPending(ctx context.Context) {
	if !p.mapping.HasFile() || len(p.mapping.Unmapped()) == 0 {
		return
	}
	if _, err := p.run(ctx, p.stopCh); err != nil {
		slog.ErrorContext(ctx, "Auto-map run failed", "error", err)
	}
}
