package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/tmdb"
)

// BackdropResult is the outcome of one backfill fetch.
// URL == "" with Err == nil is a provider miss: the movie gets the
// known-absent sentinel so it is not selected again.
type BackdropResult struct {
	Movie *domain.Movie
	URL   string
	Err   error
}

// FetchBackdrops resolves backdrop URLs for a page of movies using the batch
// variant of the provider throttle: batchSize concurrent calls, then a fixed
// batchDelay before the next batch. This bounds concurrency against the
// provider independently of the worker's store-claim batch size; the token
// bucket limiter still gates each individual call.
func (e *Enricher) FetchBackdrops(ctx context.Context, movies []*domain.Movie) []BackdropResult {
	results := make([]BackdropResult, len(movies))

	for start := 0; start < len(movies); start += e.batchSize {
		end := start + e.batchSize
		if end > len(movies) {
			end = len(movies)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = e.fetchBackdrop(ctx, movies[i])
			}(i)
		}
		wg.Wait()

		if end < len(movies) {
			select {
			case <-time.After(e.batchDelay):
			case <-ctx.Done():
				for i := end; i < len(movies); i++ {
					results[i] = BackdropResult{Movie: movies[i], Err: ctx.Err()}
				}
				return results
			}
		}
	}
	return results
}

func (e *Enricher) fetchBackdrop(ctx context.Context, movie *domain.Movie) BackdropResult {
	if movie.TMDBID == nil {
		// No provider id means nothing to fetch; known-absent.
		return BackdropResult{Movie: movie}
	}

	result, err := e.getDetails(ctx, *movie.TMDBID)
	if err != nil {
		e.logger.Warn("backdrop fetch failed",
			zap.String("movie_id", movie.ID), zap.Error(err))
		return BackdropResult{Movie: movie, Err: err}
	}
	return BackdropResult{Movie: movie, URL: tmdb.BestBackdropURL(result)}
}
