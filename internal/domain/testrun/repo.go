package testrun

import (
	"context"

	"github.com/google/uuid"
)

type TestRunRepository interface {
	// Create stores the run and its results, assigning ids.
	Create(ctx context.Context, run *TestRun) error
	// GetByID returns the run with its results, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*TestRun, error)
	// List returns runs without results, newest first.
	List(ctx context.Context, limit, offset int) ([]*TestRun, int, error)
}
