package suggest

import (
	"context"

	"mappa/internal/core"
)

// Ports for suggestion backends.
type (
	// Suggester proposes a category for a single row. One call per row,
	// no retries: callers record a failed row and move on. Backends
	// return names as-is; canonical resolution against the registry is
	// the caller's job.
	Suggester interface {
		Suggest(ctx context.Context, row core.Row, categories []string) (string, error)
	}
)
