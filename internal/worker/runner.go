// Package worker implements the time-boxed, self-continuing import workers.
//
// The hosting model assumes each invocation may be killed at a hard
// wall-clock ceiling it cannot catch or extend. Both workers therefore stop
// voluntarily well before that ceiling and, when work remains, fire a
// fire-and-forget HTTP call to their own endpoint so draining a large
// backlog degrades into a chain of short invocations instead of one long
// one killed mid-batch.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/notifier"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
)

// SecretHeader carries the shared worker secret on trigger and worker calls.
const SecretHeader = "X-Worker-Secret"

// Stop reasons reported to metrics.
const (
	ReasonDrained    = "drained"
	ReasonTimeBudget = "time_budget"
)

// ItemProcessor runs the enrichment/import routine for one queue payload.
// Implemented by enrich.Enricher; faked in tests.
type ItemProcessor interface {
	ImportRecord(ctx context.Context, rec domain.ImportRecord) error
}

// MetricHooks carries the metric callback functions injected by main.
// All fields are optional (nil = no-op).
type MetricHooks struct {
	OnItem            func(outcome string)
	OnInvocation      func(worker, reason string)
	OnBackfillUpdated func(count int)
	OnQueueDepth      func(pending int)
}

func (h *MetricHooks) normalize() {
	if h.OnItem == nil {
		h.OnItem = func(string) {}
	}
	if h.OnInvocation == nil {
		h.OnInvocation = func(string, string) {}
	}
	if h.OnBackfillUpdated == nil {
		h.OnBackfillUpdated = func(int) {}
	}
	if h.OnQueueDepth == nil {
		h.OnQueueDepth = func(int) {}
	}
}

// RunnerConfig shapes one import worker invocation.
type RunnerConfig struct {
	// TimeBudget is the voluntary stop threshold, set conservatively below
	// the host's hard execution ceiling (e.g. 50s of a 60s ceiling).
	TimeBudget time.Duration
	// BatchSize bounds both the per-claim row count and the in-batch
	// processing concurrency.
	BatchSize int
	// Now is the clock; nil means time.Now. Injected by tests.
	Now func() time.Time
}

// Runner drains the import queue for the lifetime of one invocation.
type Runner struct {
	queue     repository.QueueRepository
	processor ItemProcessor
	notify    notifier.Notifier
	trigger   *Trigger
	logger    *zap.Logger
	cfg       RunnerConfig
	hooks     MetricHooks
}

func NewRunner(
	queue repository.QueueRepository,
	processor ItemProcessor,
	notify notifier.Notifier,
	trigger *Trigger,
	logger *zap.Logger,
	cfg RunnerConfig,
	hooks MetricHooks,
) *Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	hooks.normalize()
	return &Runner{
		queue:     queue,
		processor: processor,
		notify:    notify,
		trigger:   trigger,
		logger:    logger,
		cfg:       cfg,
		hooks:     hooks,
	}
}

// Run executes one invocation of the worker loop:
// claim up to BatchSize pending items oldest-first, process them with
// bounded in-batch concurrency, and repeat until the queue drains or the
// time budget runs out. When pending work remains afterwards, the recursive
// trigger starts the next invocation.
func (r *Runner) Run(ctx context.Context) (*domain.RunSummary, error) {
	start := r.cfg.Now()
	summary := &domain.RunSummary{}
	reason := ReasonDrained

	// Owners seen this invocation, deduped, for progress notification.
	owners := make(map[string]struct{})

	for {
		if r.cfg.Now().Sub(start) > r.cfg.TimeBudget {
			reason = ReasonTimeBudget
			break
		}

		batch, err := r.queue.ClaimPending(ctx, r.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("claim batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		succeeded, failed := r.processBatch(ctx, batch)
		summary.Processed += len(batch)
		summary.Succeeded += succeeded
		summary.Failed += failed
		for _, item := range batch {
			owners[item.OwnerID] = struct{}{}
		}

		// A short batch means the queue is (very likely) drained; stopping
		// here saves one empty claim round trip.
		if len(batch) < r.cfg.BatchSize {
			break
		}
	}

	remaining, err := r.queue.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	summary.Remaining = remaining
	summary.Recursive = remaining > 0
	r.hooks.OnQueueDepth(remaining)

	for ownerID := range owners {
		r.notify.QueueChanged(ctx, ownerID, remaining)
	}

	if summary.Recursive {
		r.trigger.Fire(ImportPath)
	}

	r.hooks.OnInvocation("import", reason)
	r.logger.Info("import worker finished",
		zap.String("reason", reason),
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("remaining", summary.Remaining),
		zap.Bool("recursive", summary.Recursive),
	)
	return summary, nil
}

// processBatch runs every item of one claimed batch concurrently and blocks
// until all have settled. Concurrency never exceeds the batch size, so peak
// parallelism is bounded regardless of queue depth.
func (r *Runner) processBatch(ctx context.Context, batch []*domain.QueueItem) (succeeded, failed int) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, item := range batch {
		wg.Add(1)
		go func(item *domain.QueueItem) {
			defer wg.Done()
			err := r.processItem(ctx, item)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				succeeded++
			}
			mu.Unlock()
		}(item)
	}
	wg.Wait()
	return succeeded, failed
}

// processItem runs the enrichment routine for one item. Success deletes the
// row; failure marks it failed with the error text and leaves it for
// operator inspection. The loop never retries automatically and does not
// distinguish transient from permanent failure.
func (r *Runner) processItem(ctx context.Context, item *domain.QueueItem) error {
	if err := r.processor.ImportRecord(ctx, item.Payload); err != nil {
		r.logger.Warn("import item failed",
			zap.String("item_id", item.ID),
			zap.String("owner_id", item.OwnerID),
			zap.Error(err),
		)
		if merr := r.queue.MarkFailed(ctx, item.ID, err.Error()); merr != nil {
			r.logger.Error("could not mark item failed",
				zap.String("item_id", item.ID), zap.Error(merr))
		}
		r.hooks.OnItem("failed")
		return err
	}

	if err := r.queue.Delete(ctx, item.ID); err != nil {
		// The catalog write already landed; re-running this payload later is
		// idempotent, so surface the row as failed rather than leaving it
		// stuck in processing.
		if merr := r.queue.MarkFailed(ctx, item.ID, "processed but not removed: "+err.Error()); merr != nil {
			r.logger.Error("could not mark undeleted item failed",
				zap.String("item_id", item.ID), zap.Error(merr))
		}
		r.hooks.OnItem("failed")
		return err
	}

	r.hooks.OnItem("succeeded")
	return nil
}
