package repository

import (
	"context"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
)

// QueueRepository defines all persistence operations for the import queue.
// The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
type QueueRepository interface {
	// EnqueueBatch inserts the items as pending rows in one statement.
	EnqueueBatch(ctx context.Context, items []*domain.QueueItem) error

	// ClaimPending atomically moves up to limit pending items to processing,
	// oldest first, and returns them. Rows claimed by a concurrent invocation
	// are skipped, so two overlapping workers never receive the same item.
	ClaimPending(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// Delete removes a successfully processed item. Deletion is the terminal
	// success signal; there is no "done" status.
	Delete(ctx context.Context, id string) error

	// MarkFailed records a per-item processing error. The row is kept for
	// operator inspection and is not retried automatically.
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// CountPending returns the global pending depth across all owners.
	CountPending(ctx context.Context) (int, error)

	// Snapshot returns current per-status depths.
	Snapshot(ctx context.Context) (*domain.QueueSnapshot, error)

	// ListByOwner returns an owner's queue rows, newest first. Failed rows
	// stay visible here until an operator clears them.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.QueueItem, error)
}
