package worker_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
	"github.com/VasquezCodes/CineMatch-sub000/internal/notifier"
	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

// fakeProcessor fails any record whose title appears in failTitles and
// counts every call.
type fakeProcessor struct {
	mu         sync.Mutex
	calls      int
	failTitles map[string]bool
}

func (f *fakeProcessor) ImportRecord(_ context.Context, rec domain.ImportRecord) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failTitles[rec.Title] {
		return errors.New("simulated enrichment failure")
	}
	return nil
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// noopTrigger returns a trigger with no base URL, which degrades to a no-op.
func noopTrigger() *worker.Trigger {
	return worker.NewTrigger("", "", time.Second, zap.NewNop())
}

// frozenClock always reports the same instant, so the time budget is never
// exceeded.
func frozenClock() func() time.Time {
	t0 := time.Now()
	return func() time.Time { return t0 }
}

func seedQueue(t *testing.T, repo *repository.MockQueueRepository, n int) []string {
	t.Helper()
	base := time.Now().UTC()
	ids := make([]string, n)
	items := make([]*domain.QueueItem, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("item-%03d", i)
		items[i] = &domain.QueueItem{
			ID:      ids[i],
			OwnerID: "owner-1",
			Payload: domain.ImportRecord{Title: fmt.Sprintf("Movie %03d", i)},
			Status:  domain.StatusPending,
			// Staggered timestamps define FIFO order.
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: base,
		}
	}
	if err := repo.EnqueueBatch(context.Background(), items); err != nil {
		t.Fatalf("seed queue: %v", err)
	}
	repo.EnqueueCalls = nil
	return ids
}

func newRunner(repo *repository.MockQueueRepository, proc worker.ItemProcessor, cfg worker.RunnerConfig) *worker.Runner {
	return worker.NewRunner(repo, proc, notifier.Nop{}, noopTrigger(), zap.NewNop(), cfg, worker.MetricHooks{})
}

// Twelve records with batch size ten drain in two internal rounds within a
// single invocation: ten then two, queue empty, no recursion.
func TestRunner_DrainsQueueInTwoRounds(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedQueue(t, repo, 12)
	proc := &fakeProcessor{}

	runner := newRunner(repo, proc, worker.RunnerConfig{
		TimeBudget: 50 * time.Second,
		BatchSize:  10,
		Now:        frozenClock(),
	})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Processed != 12 || summary.Succeeded != 12 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want processed=12 succeeded=12 failed=0", summary)
	}
	if summary.Recursive {
		t.Fatal("expected recursive=false for a drained queue")
	}
	if summary.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", summary.Remaining)
	}
	if got := len(repo.ClaimCalls); got != 2 {
		t.Fatalf("claim rounds = %d, want 2", got)
	}
	if repo.Len() != 0 {
		t.Fatalf("queue still holds %d items, want 0", repo.Len())
	}
}

// A queue of N drains in exactly ceil(N/K) claim rounds when the batch size
// divides into it unevenly, and every claim is bounded by K.
func TestRunner_ClaimRoundsAndBatchBound(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedQueue(t, repo, 25)
	proc := &fakeProcessor{}

	runner := newRunner(repo, proc, worker.RunnerConfig{
		TimeBudget: 50 * time.Second,
		BatchSize:  10,
		Now:        frozenClock(),
	})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Processed != 25 {
		t.Fatalf("processed = %d, want 25", summary.Processed)
	}
	// ceil(25/10) = 3 rounds; the short third batch also skips the empty
	// fourth round trip.
	if got := len(repo.ClaimCalls); got != 3 {
		t.Fatalf("claim rounds = %d, want 3", got)
	}
	for _, limit := range repo.ClaimCalls {
		if limit != 10 {
			t.Fatalf("claim limit = %d, want 10", limit)
		}
	}
}

// Failed items stay in the store as failed rows with an error message;
// succeeded items are deleted.
func TestRunner_PartialFailureTally(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	ids := seedQueue(t, repo, 5)
	proc := &fakeProcessor{failTitles: map[string]bool{
		"Movie 001": true,
		"Movie 003": true,
	}}

	runner := newRunner(repo, proc, worker.RunnerConfig{
		TimeBudget: 50 * time.Second,
		BatchSize:  10,
		Now:        frozenClock(),
	})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Succeeded != 3 || summary.Failed != 2 {
		t.Fatalf("summary = %+v, want succeeded=3 failed=2", summary)
	}
	if repo.Len() != 2 {
		t.Fatalf("store holds %d rows, want the 2 failed ones", repo.Len())
	}
	for _, id := range []string{ids[1], ids[3]} {
		item := repo.Get(id)
		if item == nil {
			t.Fatalf("failed item %s missing from store", id)
		}
		if item.Status != domain.StatusFailed {
			t.Fatalf("item %s status = %s, want failed", id, item.Status)
		}
		if item.ErrorMessage == nil || *item.ErrorMessage == "" {
			t.Fatalf("item %s has no error message", id)
		}
	}
	for _, id := range []string{ids[0], ids[2], ids[4]} {
		if repo.Get(id) != nil {
			t.Fatalf("succeeded item %s was not deleted", id)
		}
	}
}

// When the time budget is already exhausted at the top of the loop, no item
// is claimed and the response reports recursive=true while work remains.
func TestRunner_TimeBudgetStopsBeforeClaim(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedQueue(t, repo, 8)
	proc := &fakeProcessor{}

	// First Now() call records the start; every later call reports the
	// budget as blown.
	t0 := time.Now()
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(51 * time.Second)
	}

	runner := newRunner(repo, proc, worker.RunnerConfig{
		TimeBudget: 50 * time.Second,
		BatchSize:  10,
		Now:        clock,
	})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.ClaimCalls) != 0 {
		t.Fatalf("claims made after budget exhausted: %d", len(repo.ClaimCalls))
	}
	if proc.callCount() != 0 {
		t.Fatal("items were processed after budget exhausted")
	}
	if !summary.Recursive {
		t.Fatal("expected recursive=true while pending work remains")
	}
	if summary.Remaining != 8 {
		t.Fatalf("remaining = %d, want 8", summary.Remaining)
	}
}

// The recursive trigger fires exactly when work remains after the budget,
// carrying the shared secret, and the timeout of the fire-and-forget call
// does not fail the invocation.
func TestRunner_RecursiveTriggerFires(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedQueue(t, repo, 3)
	proc := &fakeProcessor{}

	var mu sync.Mutex
	triggered := 0
	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		triggered++
		gotSecret = r.Header.Get(worker.SecretHeader)
		mu.Unlock()
	}))
	defer srv.Close()

	t0 := time.Now()
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(51 * time.Second)
	}

	trigger := worker.NewTrigger(srv.URL, "s3cret", time.Second, zap.NewNop())
	runner := worker.NewRunner(repo, proc, notifier.Nop{}, trigger, zap.NewNop(),
		worker.RunnerConfig{TimeBudget: 50 * time.Second, BatchSize: 10, Now: clock},
		worker.MetricHooks{})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.Recursive {
		t.Fatal("expected recursive=true")
	}

	mu.Lock()
	defer mu.Unlock()
	if triggered != 1 {
		t.Fatalf("trigger fired %d times, want 1", triggered)
	}
	if gotSecret != "s3cret" {
		t.Fatalf("trigger secret = %q, want s3cret", gotSecret)
	}
}

// An empty queue stops immediately with an empty summary.
func TestRunner_EmptyQueue(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	proc := &fakeProcessor{}

	runner := newRunner(repo, proc, worker.RunnerConfig{
		TimeBudget: 50 * time.Second,
		BatchSize:  10,
		Now:        frozenClock(),
	})

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Processed != 0 || summary.Recursive {
		t.Fatalf("summary = %+v, want empty non-recursive", summary)
	}
	if got := len(repo.ClaimCalls); got != 1 {
		t.Fatalf("claim rounds = %d, want exactly 1", got)
	}
}

// A claim error aborts the invocation and surfaces to the caller.
func TestRunner_ClaimErrorPropagates(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	repo.ClaimErr = errors.New("store unavailable")

	runner := newRunner(repo, &fakeProcessor{}, worker.RunnerConfig{
		TimeBudget: 50 * time.Second,
		BatchSize:  10,
		Now:        frozenClock(),
	})

	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing claim")
	}
}
