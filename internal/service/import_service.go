package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/notifier"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

const maxImportRecords = 10000

// ImportService accepts import submissions, writes them to the durable
// queue, and nudges the worker. No processing happens on this path; it
// only enqueues; the worker chain does the rest asynchronously.
type ImportService struct {
	queue   repository.QueueRepository
	notify  notifier.Notifier
	trigger *worker.Trigger
	logger  *zap.Logger

	// batchSize bounds single-write payload size when persisting records.
	batchSize int
}

func NewImportService(
	queue repository.QueueRepository,
	notify notifier.Notifier,
	trigger *worker.Trigger,
	logger *zap.Logger,
	batchSize int,
) *ImportService {
	return &ImportService{
		queue:     queue,
		notify:    notify,
		trigger:   trigger,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Enqueue writes the records as pending queue items in fixed-size batches.
// The operation is best-effort per batch, not transactional across the whole
// list: a failed batch is counted in Errors and later batches still run.
// Afterwards it fires the short-timeout wake-up trigger (timeout counts as
// success) purely to cut cold-start latency before the next scheduled
// invocation.
func (s *ImportService) Enqueue(ctx context.Context, ownerID string, records []domain.ImportRecord) (*domain.EnqueueSummary, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if len(records) == 0 {
		return nil, domain.ErrImportEmpty
	}
	if len(records) > maxImportRecords {
		return nil, domain.ErrImportTooLarge
	}

	summary := &domain.EnqueueSummary{Total: len(records)}
	now := time.Now().UTC()

	items := make([]*domain.QueueItem, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			summary.Errors++
			continue
		}
		items = append(items, &domain.QueueItem{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Payload:   rec,
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for start := 0; start < len(items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		if err := s.queue.EnqueueBatch(ctx, batch); err != nil {
			s.logger.Error("enqueue batch failed",
				zap.String("owner_id", ownerID),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			summary.Errors += len(batch)
			continue
		}
		summary.NewMovies += len(batch)
	}
	summary.Success = summary.Errors == 0

	if pending, err := s.queue.CountPending(ctx); err == nil {
		s.notify.QueueChanged(ctx, ownerID, pending)
	}

	if summary.NewMovies > 0 {
		s.trigger.Fire(worker.ImportPath)
	}

	s.logger.Info("import accepted",
		zap.String("owner_id", ownerID),
		zap.Int("total", summary.Total),
		zap.Int("queued", summary.NewMovies),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}

// Snapshot returns per-status queue depths for the status endpoint.
func (s *ImportService) Snapshot(ctx context.Context) (*domain.QueueSnapshot, error) {
	return s.queue.Snapshot(ctx)
}

// History returns the caller's queue rows, failed items included, since the
// import-history view is the only user-visible surface for stuck imports.
func (s *ImportService) History(ctx context.Context, ownerID string, limit int) ([]*domain.QueueItem, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	return s.queue.ListByOwner(ctx, ownerID, limit)
}
