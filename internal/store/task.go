package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain"
)

// TaskStore persists packing tasks together with their placed items.
type TaskStore interface {
	// Create inserts the task row and every placed item. Implementations
	// must write all of them or none; callers normally run it through
	// RunInTransaction with WithTx.
	// Returns ErrUserNotFound if the creator or worker does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns the task with its items ordered by order_id.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListByCreator returns the tasks created by a user, newest first,
	// without their items.
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error)

	// ListByWorker returns the tasks assigned to a worker, newest first,
	// without their items.
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error)

	// WithTx returns a TaskStore that runs on the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
