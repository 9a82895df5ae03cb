// Package enrich turns raw import payloads into catalog records by calling
// the metadata provider and persisting the result. All provider traffic from
// every path (queue worker, on-demand reads, backfill) funnels through one
// Enricher so the rate limit is enforced globally.
package enrich

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/ratelimiter"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/tmdb"
	"github.com/google/uuid"
)

const (
	maxCastEntries = 10
	maxRecEntries  = 10
)

// Enricher coordinates the provider client and the movie repository.
type Enricher struct {
	provider tmdb.Provider
	movies   repository.MovieRepository
	limiter  *ratelimiter.Limiter
	logger   *zap.Logger

	batchSize  int
	batchDelay time.Duration

	// onProviderCall is an optional metrics hook observing call latency.
	onProviderCall func(time.Duration)
}

// New constructs an Enricher. batchSize and batchDelay shape the backfill
// batch variant: batchSize concurrent provider calls, then batchDelay of
// quiet before the next batch. onProviderCall may be nil.
func New(
	provider tmdb.Provider,
	movies repository.MovieRepository,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
	batchSize int,
	batchDelay time.Duration,
	onProviderCall func(time.Duration),
) *Enricher {
	if onProviderCall == nil {
		onProviderCall = func(time.Duration) {}
	}
	return &Enricher{
		provider:       provider,
		movies:         movies,
		limiter:        limiter,
		logger:         logger,
		batchSize:      batchSize,
		batchDelay:     batchDelay,
		onProviderCall: onProviderCall,
	}
}

// ImportRecord runs the full enrichment/import routine for one queue payload.
//
// A provider miss is not an error: the record is stored from its raw payload
// with the enrichment_failed marker so it is never reprocessed, and the queue
// item is considered successfully handled. A returned error means the item
// should be marked failed.
func (e *Enricher) ImportRecord(ctx context.Context, rec domain.ImportRecord) error {
	result, err := e.resolve(ctx, rec)
	if err != nil {
		return err
	}

	if result == nil {
		return e.saveUnresolved(ctx, rec)
	}

	movie := movieFromResult(result)
	if movie.Title == "" {
		movie.Title = rec.Title
	}

	if _, err := e.movies.Upsert(ctx, movie); err != nil {
		return fmt.Errorf("save movie: %w", err)
	}

	// Secondary relational sync. A failure here never rolls back the primary
	// fields saved above; the row is flagged for a later repair pass instead.
	details := detailsFromResult(result)
	if err := e.movies.UpdateDetails(ctx, movie.ID, details); err != nil {
		e.logger.Warn("people sync failed after primary save",
			zap.String("movie_id", movie.ID), zap.Error(err))
		if err := e.movies.SetSyncStatus(ctx, movie.ID, domain.SyncPeopleSyncPending); err != nil {
			e.logger.Error("failed to flag people sync", zap.String("movie_id", movie.ID), zap.Error(err))
		}
	}
	return nil
}

// EnsureDetails runs the on-demand enrichment path triggered from catalog
// reads. It is a no-op when the extended attributes are already complete or
// when a previous attempt established the provider has nothing for this
// record. Safe to race with the queue path: both sides converge through
// upsert/update primitives.
func (e *Enricher) EnsureDetails(ctx context.Context, m *domain.Movie) (*domain.Movie, error) {
	if m.DetailsComplete() {
		return m, nil
	}
	if m.SyncStatus != nil && *m.SyncStatus == domain.SyncEnrichmentFailed {
		return m, nil
	}
	if m.TMDBID == nil {
		if err := e.movies.SetSyncStatus(ctx, m.ID, domain.SyncEnrichmentFailed); err != nil {
			return nil, err
		}
		return m, nil
	}

	result, err := e.getDetails(ctx, *m.TMDBID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		if err := e.movies.SetSyncStatus(ctx, m.ID, domain.SyncEnrichmentFailed); err != nil {
			return nil, err
		}
		return m, nil
	}

	details := detailsFromResult(result)
	if err := e.movies.UpdateDetails(ctx, m.ID, details); err != nil {
		return nil, fmt.Errorf("update details: %w", err)
	}
	enriched := *m
	enriched.Details = details
	enriched.SyncStatus = nil
	return &enriched, nil
}

// resolve locates the provider's record for a payload.
// Fallback order: known provider id first, then the IMDb cross-reference.
// Title-only records cannot be resolved (the provider contract exposes no
// title search) and report a miss.
func (e *Enricher) resolve(ctx context.Context, rec domain.ImportRecord) (*tmdb.MovieResult, error) {
	if rec.TMDBID != 0 {
		return e.getDetails(ctx, rec.TMDBID)
	}

	if rec.IMDbID != "" {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		start := time.Now()
		match, err := e.provider.FindByIMDbID(ctx, rec.IMDbID)
		e.onProviderCall(time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("find by imdb id: %w", err)
		}
		if match == nil {
			return nil, nil
		}
		// The cross-reference payload is shallow; fetch the full record.
		return e.getDetails(ctx, match.ID)
	}

	return nil, nil
}

func (e *Enricher) getDetails(ctx context.Context, tmdbID int64) (*tmdb.MovieResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := e.provider.GetDetails(ctx, tmdbID)
	e.onProviderCall(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get details: %w", err)
	}
	return result, nil
}

// saveUnresolved stores what the raw payload offers and stamps the terminal
// enrichment_failed marker so the record is never re-enriched automatically.
func (e *Enricher) saveUnresolved(ctx context.Context, rec domain.ImportRecord) error {
	if rec.Title == "" {
		// Nothing usable to store; treat as handled.
		e.logger.Warn("dropping unresolvable import record without a title")
		return nil
	}

	now := time.Now().UTC()
	status := domain.SyncEnrichmentFailed
	movie := &domain.Movie{
		ID:          uuid.New().String(),
		Title:       rec.Title,
		ReleaseYear: rec.Year,
		SyncStatus:  &status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if rec.TMDBID != 0 {
		id := rec.TMDBID
		movie.TMDBID = &id
	}
	if rec.IMDbID != "" {
		imdb := rec.IMDbID
		movie.IMDbID = &imdb
	}

	if _, err := e.movies.Upsert(ctx, movie); err != nil {
		return fmt.Errorf("save unresolved movie: %w", err)
	}
	return nil
}

// ---- mapping ----

func movieFromResult(r *tmdb.MovieResult) *domain.Movie {
	now := time.Now().UTC()
	id := r.ID
	movie := &domain.Movie{
		ID:          uuid.New().String(),
		TMDBID:      &id,
		Title:       r.Title,
		ReleaseYear: r.ReleaseYear(),
		Overview:    r.Overview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.IMDbID != "" {
		imdb := r.IMDbID
		movie.IMDbID = &imdb
	}
	if poster := tmdb.PosterURL(r); poster != "" {
		movie.PosterURL = &poster
	}
	// Backdrops left nil when the provider has none; the backfill worker owns
	// the known-absent sentinel.
	if r.BackdropPath != "" {
		backdrop := tmdb.BestBackdropURL(r)
		movie.BackdropURL = &backdrop
	}
	return movie
}

func detailsFromResult(r *tmdb.MovieResult) *domain.MovieDetails {
	details := &domain.MovieDetails{Runtime: r.Runtime}
	for _, g := range r.Genres {
		details.Genres = append(details.Genres, g.Name)
	}
	if r.Credits != nil {
		for i, c := range r.Credits.Cast {
			if i >= maxCastEntries {
				break
			}
			details.Cast = append(details.Cast, domain.Credit{
				TMDBPersonID: c.ID, Name: c.Name, Role: c.Character,
			})
		}
		for _, c := range r.Credits.Crew {
			if c.Job != "Director" && c.Job != "Writer" && c.Job != "Screenplay" {
				continue
			}
			details.Crew = append(details.Crew, domain.Credit{
				TMDBPersonID: c.ID, Name: c.Name, Role: c.Job,
			})
		}
	}
	if r.Recs != nil {
		for i, rec := range r.Recs.Results {
			if i >= maxRecEntries {
				break
			}
			details.Recommendations = append(details.Recommendations, rec.ID)
		}
	}
	return details
}
