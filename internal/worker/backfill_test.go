package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/enrich"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

// fakeFetcher maps tmdb id to a canned outcome: a URL, "" for a provider
// miss, or an error. It also records page sizes.
type fakeFetcher struct {
	mu    sync.Mutex
	urls  map[int64]string
	errs  map[int64]error
	pages []int
}

func (f *fakeFetcher) FetchBackdrops(_ context.Context, movies []*domain.Movie) []enrich.BackdropResult {
	f.mu.Lock()
	f.pages = append(f.pages, len(movies))
	f.mu.Unlock()

	results := make([]enrich.BackdropResult, len(movies))
	for i, mv := range movies {
		results[i] = enrich.BackdropResult{Movie: mv}
		if mv.TMDBID == nil {
			continue
		}
		if err, ok := f.errs[*mv.TMDBID]; ok {
			results[i].Err = err
			continue
		}
		results[i].URL = f.urls[*mv.TMDBID]
	}
	return results
}

func seedMovies(t *testing.T, repo *repository.MockMovieRepository, n int) []*domain.Movie {
	t.Helper()
	base := time.Now().UTC()
	movies := make([]*domain.Movie, n)
	for i := 0; i < n; i++ {
		tmdbID := int64(1000 + i)
		mv := &domain.Movie{
			ID:        fmt.Sprintf("movie-%03d", i),
			Title:     fmt.Sprintf("Movie %03d", i),
			TMDBID:    &tmdbID,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if _, err := repo.Upsert(context.Background(), mv); err != nil {
			t.Fatalf("seed movie: %v", err)
		}
		movies[i] = mv
	}
	return movies
}

func newBackfill(repo *repository.MockMovieRepository, fetcher worker.BackdropFetcher, cfg worker.BackfillConfig) *worker.Backfill {
	return worker.NewBackfill(repo, fetcher, noopTrigger(), zap.NewNop(), cfg, worker.MetricHooks{})
}

// Every candidate resolves to a provider miss: all rows get the known-absent
// sentinel, and a second invocation selects nothing.
func TestBackfill_MissWritesSentinel(t *testing.T) {
	repo := repository.NewMockMovieRepository()
	movies := seedMovies(t, repo, 50)
	fetcher := &fakeFetcher{urls: map[int64]string{}} // every lookup misses

	bf := newBackfill(repo, fetcher, worker.BackfillConfig{
		TimeBudget: 50 * time.Second,
		PageSize:   50,
		Now:        frozenClock(),
	})

	summary, err := bf.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Processed != 50 || summary.Skipped != 50 || summary.Updated != 0 {
		t.Fatalf("summary = %+v, want processed=50 skipped=50", summary)
	}
	if summary.Recursive {
		t.Fatal("expected recursive=false once every row is settled")
	}
	for _, mv := range movies {
		got, gerr := repo.GetByID(context.Background(), mv.ID)
		if gerr != nil {
			t.Fatalf("get %s: %v", mv.ID, gerr)
		}
		if got.BackdropURL == nil || *got.BackdropURL != "" {
			t.Fatalf("movie %s backdrop = %v, want known-absent sentinel", mv.ID, got.BackdropURL)
		}
	}

	// The sentinel keeps the rows out of the next selection entirely.
	second, err := bf.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Processed != 0 {
		t.Fatalf("second run processed %d rows, want 0", second.Processed)
	}
}

func TestBackfill_MixedHitsAndMisses(t *testing.T) {
	repo := repository.NewMockMovieRepository()
	seedMovies(t, repo, 6)
	fetcher := &fakeFetcher{urls: map[int64]string{
		1000: "https://image.tmdb.org/t/p/w1280/a.jpg",
		1002: "https://image.tmdb.org/t/p/w1280/c.jpg",
		1005: "https://image.tmdb.org/t/p/w1280/f.jpg",
	}}

	bf := newBackfill(repo, fetcher, worker.BackfillConfig{
		TimeBudget: 50 * time.Second,
		PageSize:   50,
		Now:        frozenClock(),
	})

	summary, err := bf.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Updated != 3 || summary.Skipped != 3 || summary.Errors != 0 {
		t.Fatalf("summary = %+v, want updated=3 skipped=3", summary)
	}

	got, err := repo.GetByTMDBID(context.Background(), 1000)
	if err != nil {
		t.Fatalf("get by tmdb id: %v", err)
	}
	if got.BackdropURL == nil || *got.BackdropURL != "https://image.tmdb.org/t/p/w1280/a.jpg" {
		t.Fatalf("backdrop = %v, want stored URL", got.BackdropURL)
	}
}

// Errored rows keep NULL (stay eligible for a later pass), and a fully
// errored page stops the loop without recursing.
func TestBackfill_WholePageErrorsStops(t *testing.T) {
	repo := repository.NewMockMovieRepository()
	movies := seedMovies(t, repo, 4)
	providerDown := errors.New("provider unavailable")
	fetcher := &fakeFetcher{errs: map[int64]error{
		1000: providerDown, 1001: providerDown, 1002: providerDown, 1003: providerDown,
	}}

	bf := newBackfill(repo, fetcher, worker.BackfillConfig{
		TimeBudget: 50 * time.Second,
		PageSize:   4,
		Now:        frozenClock(),
	})

	summary, err := bf.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Errors != 4 {
		t.Fatalf("errors = %d, want 4", summary.Errors)
	}
	if len(fetcher.pages) != 1 {
		t.Fatalf("fetch pages = %d, want 1 (no spinning on the same rows)", len(fetcher.pages))
	}
	if summary.Recursive {
		t.Fatal("expected recursive=false when no progress was made")
	}
	if summary.Remaining != 4 {
		t.Fatalf("remaining = %d, want 4", summary.Remaining)
	}
	for _, mv := range movies {
		got, gerr := repo.GetByID(context.Background(), mv.ID)
		if gerr != nil {
			t.Fatalf("get %s: %v", mv.ID, gerr)
		}
		if got.BackdropURL != nil {
			t.Fatalf("errored movie %s got a backdrop write: %q", mv.ID, *got.BackdropURL)
		}
	}
}

// Page size bounds each candidate selection; a backlog larger than one page
// drains across multiple rounds within the budget.
func TestBackfill_PagesThroughBacklog(t *testing.T) {
	repo := repository.NewMockMovieRepository()
	seedMovies(t, repo, 12)
	fetcher := &fakeFetcher{urls: map[int64]string{}}

	bf := newBackfill(repo, fetcher, worker.BackfillConfig{
		TimeBudget: 50 * time.Second,
		PageSize:   5,
		Now:        frozenClock(),
	})

	summary, err := bf.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Processed != 12 {
		t.Fatalf("processed = %d, want 12", summary.Processed)
	}
	want := []int{5, 5, 2}
	if len(fetcher.pages) != len(want) {
		t.Fatalf("fetch pages = %v, want %v", fetcher.pages, want)
	}
	for i, n := range want {
		if fetcher.pages[i] != n {
			t.Fatalf("fetch pages = %v, want %v", fetcher.pages, want)
		}
	}
}

// With the budget exhausted up front nothing is selected, and the remaining
// backlog drives a recursive trigger.
func TestBackfill_TimeBudgetRecursion(t *testing.T) {
	repo := repository.NewMockMovieRepository()
	seedMovies(t, repo, 7)
	fetcher := &fakeFetcher{urls: map[int64]string{}}

	t0 := time.Now()
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(51 * time.Second)
	}

	bf := newBackfill(repo, fetcher, worker.BackfillConfig{
		TimeBudget: 50 * time.Second,
		PageSize:   50,
		Now:        clock,
	})

	summary, err := bf.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetcher.pages) != 0 {
		t.Fatal("fetched a page after budget exhausted")
	}
	if !summary.Recursive || summary.Remaining != 7 {
		t.Fatalf("summary = %+v, want recursive with 7 remaining", summary)
	}
}
