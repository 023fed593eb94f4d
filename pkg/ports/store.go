package ports

import (
	"context"

	"github.com/aretw0/cartography/pkg/domain"
)

// RunStore defines the interface for archiving finished runs.
// Live sessions stay in memory; the archive keeps what happened after they are gone.
type RunStore interface {
	// Save persists a record, replacing any record with the same RunID.
	Save(ctx context.Context, record *domain.RunRecord) error

	// Load retrieves a record by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.RunRecord, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the archived run IDs, oldest first.
	List(ctx context.Context) ([]string, error)
}
