package export

import (
	"context"

	"mappa/internal/core"
)

// Ports for outbound mapping destinations.
type (
	// MappingWriter delivers one mapped row to an external destination
	// and returns an opaque reference to where it landed.
	MappingWriter interface {
		Append(ctx context.Context, row core.MappedRow) (ref string, err error)
	}
)
