package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/enrich"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
)

// BackdropFetcher resolves backdrop URLs for a page of movies.
// Implemented by enrich.Enricher's batch variant; faked in tests.
type BackdropFetcher interface {
	FetchBackdrops(ctx context.Context, movies []*domain.Movie) []enrich.BackdropResult
}

// BackfillConfig shapes one backfill invocation.
type BackfillConfig struct {
	TimeBudget time.Duration
	// PageSize bounds each candidate selection against the store. It is
	// independent of the provider-call batch size inside the fetcher; the
	// two throttles compose.
	PageSize int
	Now      func() time.Time
}

// Backfill repairs the backdrop attribute on existing catalog records.
// It is the Runner pattern with an implicit queue: "all movies whose
// backdrop has never been fetched" stands in for the pending table, and the
// known-absent sentinel stands in for row deletion.
type Backfill struct {
	movies  repository.MovieRepository
	fetcher BackdropFetcher
	trigger *Trigger
	logger  *zap.Logger
	cfg     BackfillConfig
	hooks   MetricHooks
}

func NewBackfill(
	movies repository.MovieRepository,
	fetcher BackdropFetcher,
	trigger *Trigger,
	logger *zap.Logger,
	cfg BackfillConfig,
	hooks MetricHooks,
) *Backfill {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	hooks.normalize()
	return &Backfill{
		movies:  movies,
		fetcher: fetcher,
		trigger: trigger,
		logger:  logger,
		cfg:     cfg,
		hooks:   hooks,
	}
}

// Run executes one backfill invocation under the same time-budget regime as
// the import worker, recursing when candidates remain.
func (b *Backfill) Run(ctx context.Context) (*domain.BackfillSummary, error) {
	start := b.cfg.Now()
	summary := &domain.BackfillSummary{}
	reason := ReasonDrained

	for {
		if b.cfg.Now().Sub(start) > b.cfg.TimeBudget {
			reason = ReasonTimeBudget
			break
		}

		page, err := b.movies.FindMissingBackdrop(ctx, b.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("select candidates: %w", err)
		}
		if len(page) == 0 {
			break
		}

		pageErrors := b.applyResults(ctx, b.fetcher.FetchBackdrops(ctx, page), summary)

		// Errored rows keep their NULL backdrop and would be re-selected
		// immediately; when a whole page errors the provider is down, so
		// stop instead of spinning on the same rows.
		if pageErrors == len(page) {
			break
		}
		if len(page) < b.cfg.PageSize {
			break
		}
	}

	remaining, err := b.movies.CountMissingBackdrop(ctx)
	if err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}
	summary.Remaining = remaining

	// Recurse only when this invocation made progress (or never got to
	// process anything): candidates that remain solely because every fetch
	// errored would make the recursion chain spin against a down provider.
	progressed := summary.Processed == 0 || summary.Updated+summary.Skipped > 0
	summary.Recursive = remaining > 0 && progressed

	if summary.Recursive {
		b.trigger.Fire(BackfillPath)
	}

	b.hooks.OnInvocation("backfill", reason)
	b.logger.Info("backfill worker finished",
		zap.String("reason", reason),
		zap.Int("processed", summary.Processed),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Int("remaining", summary.Remaining),
		zap.Bool("recursive", summary.Recursive),
	)
	return summary, nil
}

// applyResults persists one page of fetch outcomes and tallies the summary.
// A provider miss writes the empty-string sentinel: "missing" becomes
// "known-absent", a one-way transition that keeps the row out of every
// later candidate selection.
func (b *Backfill) applyResults(ctx context.Context, results []enrich.BackdropResult, summary *domain.BackfillSummary) (pageErrors int) {
	for _, res := range results {
		summary.Processed++

		if res.Err != nil {
			summary.Errors++
			pageErrors++
			continue
		}

		if err := b.movies.SetBackdropURL(ctx, res.Movie.ID, res.URL); err != nil {
			b.logger.Error("could not store backdrop",
				zap.String("movie_id", res.Movie.ID), zap.Error(err))
			summary.Errors++
			pageErrors++
			continue
		}

		if res.URL == "" {
			summary.Skipped++
		} else {
			summary.Updated++
			b.hooks.OnBackfillUpdated(1)
		}
	}
	return pageErrors
}
