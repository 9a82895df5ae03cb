package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/api/handler"
	"github.com/VasquezCodes/CineMatch-sub000/internal/api/middleware"
	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/enrich"
	"github.com/VasquezCodes/CineMatch-sub000/internal/notifier"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

type okProcessor struct{}

func (okProcessor) ImportRecord(context.Context, domain.ImportRecord) error { return nil }

type emptyFetcher struct{}

func (emptyFetcher) FetchBackdrops(_ context.Context, movies []*domain.Movie) []enrich.BackdropResult {
	results := make([]enrich.BackdropResult, len(movies))
	for i, mv := range movies {
		results[i] = enrich.BackdropResult{Movie: mv}
	}
	return results
}

// workerFixture wires the two workers behind the secret middleware the way
// the router does.
type workerFixture struct {
	queue   *repository.MockQueueRepository
	movies  *repository.MockMovieRepository
	handler http.Handler
}

func newWorkerFixture(secret string) *workerFixture {
	logger := zap.NewNop()
	queue := repository.NewMockQueueRepository()
	movies := repository.NewMockMovieRepository()
	trigger := worker.NewTrigger("", "", time.Second, logger)

	runner := worker.NewRunner(queue, okProcessor{}, notifier.Nop{}, trigger, logger,
		worker.RunnerConfig{TimeBudget: 50 * time.Second, BatchSize: 10}, worker.MetricHooks{})
	backfill := worker.NewBackfill(movies, emptyFetcher{}, trigger, logger,
		worker.BackfillConfig{TimeBudget: 50 * time.Second, PageSize: 50}, worker.MetricHooks{})

	wh := handler.NewWorkerHandler(runner, backfill, logger)
	mux := http.NewServeMux()
	guard := middleware.WorkerSecret(secret)
	mux.Handle(worker.ImportPath, guard(http.HandlerFunc(wh.RunImport)))
	mux.Handle(worker.BackfillPath, guard(http.HandlerFunc(wh.RunBackfill)))

	return &workerFixture{queue: queue, movies: movies, handler: mux}
}

func (f *workerFixture) do(t *testing.T, path, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if secret != "" {
		req.Header.Set(worker.SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRunImport_Authorized(t *testing.T) {
	f := newWorkerFixture("s3cret")

	items := []*domain.QueueItem{{
		ID:        "item-1",
		OwnerID:   "owner-1",
		Payload:   domain.ImportRecord{Title: "x", TMDBID: 1},
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}}
	if err := f.queue.EnqueueBatch(context.Background(), items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := f.do(t, worker.ImportPath, "s3cret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var summary domain.RunSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Processed != 1 || summary.Succeeded != 1 {
		t.Fatalf("summary = %+v, want one processed success", summary)
	}
	if f.queue.Len() != 0 {
		t.Fatal("succeeded item not deleted")
	}
}

// An unauthorized call is rejected before any queue state is touched.
func TestRunImport_UnauthorizedLeavesQueueAlone(t *testing.T) {
	f := newWorkerFixture("s3cret")

	for _, secret := range []string{"", "wrong"} {
		rec := f.do(t, worker.ImportPath, secret)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("secret %q: status = %d, want 401", secret, rec.Code)
		}
	}
	if len(f.queue.ClaimCalls) != 0 {
		t.Fatalf("queue claimed %d times by rejected calls", len(f.queue.ClaimCalls))
	}
}

func TestRunImport_MissingSecretConfig(t *testing.T) {
	f := newWorkerFixture("")

	rec := f.do(t, worker.ImportPath, "anything")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "server configuration error" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestRunImport_RunnerErrorIs500(t *testing.T) {
	f := newWorkerFixture("s3cret")
	f.queue.ClaimErr = context.DeadlineExceeded

	rec := f.do(t, worker.ImportPath, "s3cret")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected an error message in the body")
	}
}

func TestRunBackfill_Authorized(t *testing.T) {
	f := newWorkerFixture("s3cret")

	tmdbID := int64(42)
	if _, err := f.movies.Upsert(context.Background(), &domain.Movie{
		ID: "m1", Title: "x", TMDBID: &tmdbID, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := f.do(t, worker.BackfillPath, "s3cret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var summary domain.BackfillSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Processed != 1 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v, want one known-absent write", summary)
	}
}
