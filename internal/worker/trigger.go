package worker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Worker entry-point paths, shared by the router and the trigger.
const (
	ImportPath   = "/workers/import"
	BackfillPath = "/workers/backfill"
)

// Trigger fires a fresh invocation of a worker endpoint on this same service.
//
// The call is fire-and-forget with a deliberately short timeout: the point is
// only to start the next invocation, not to wait for it. A timeout therefore
// counts as success: the receiving process accepted the connection and runs
// independently; waiting for its response would tie this invocation's
// lifetime to the whole remaining queue.
type Trigger struct {
	baseURL string
	secret  string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewTrigger builds a Trigger. When baseURL or secret is unset the trigger
// degrades to a no-op (the poller's cadence still drains the queue).
func NewTrigger(baseURL, secret string, timeout time.Duration, logger *zap.Logger) *Trigger {
	return &Trigger{
		baseURL: baseURL,
		secret:  secret,
		timeout: timeout,
		// No client-level timeout: the per-call context carries the deadline.
		client: &http.Client{},
		logger: logger,
	}
}

// Fire posts to the worker path and swallows every outcome.
// Network failures other than the expected timeout are logged and dropped;
// they never fail the caller.
func (t *Trigger) Fire(path string) {
	if t.baseURL == "" || t.secret == "" {
		t.logger.Debug("trigger skipped: no base url or secret configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, nil)
	if err != nil {
		t.logger.Warn("build trigger request", zap.Error(err))
		return
	}
	req.Header.Set(SecretHeader, t.secret)

	resp, err := t.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			t.logger.Debug("trigger dispatched", zap.String("path", path))
			return
		}
		t.logger.Warn("trigger failed", zap.String("path", path), zap.Error(err))
		return
	}
	resp.Body.Close() //nolint:errcheck
	t.logger.Debug("trigger answered before timeout",
		zap.String("path", path), zap.Int("status", resp.StatusCode))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
