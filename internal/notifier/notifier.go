// Package notifier pushes best-effort queue-depth updates to interested
// clients. Delivery is never guaranteed and never blocks the pipeline:
// every implementation swallows its own errors.
package notifier

import "context"

// Notifier publishes a queue-depth change for one owner.
type Notifier interface {
	QueueChanged(ctx context.Context, ownerID string, pending int)
}

// Nop discards all notifications. Used in tests and as a config fallback.
type Nop struct{}

func (Nop) QueueChanged(context.Context, string, int) {}
