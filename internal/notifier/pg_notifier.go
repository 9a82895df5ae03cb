package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Channel is the Postgres NOTIFY channel clients LISTEN on for progress.
const Channel = "import_progress"

type progressEvent struct {
	OwnerID string    `json:"owner_id"`
	Pending int       `json:"pending"`
	At      time.Time `json:"at"`
}

// PGNotifier publishes progress events over Postgres NOTIFY, piggybacking on
// the store connection the pipeline already holds. Subscribers (the web tier)
// LISTEN on the channel and fan out to their own clients.
type PGNotifier struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPGNotifier(pool *pgxpool.Pool, logger *zap.Logger) *PGNotifier {
	return &PGNotifier{pool: pool, logger: logger}
}

var _ Notifier = (*PGNotifier)(nil)

// QueueChanged emits one NOTIFY. Errors are logged and dropped: progress
// delivery is best-effort and must never fail the pipeline.
func (n *PGNotifier) QueueChanged(ctx context.Context, ownerID string, pending int) {
	payload, err := json.Marshal(progressEvent{
		OwnerID: ownerID,
		Pending: pending,
		At:      time.Now().UTC(),
	})
	if err != nil {
		n.logger.Warn("marshal progress event", zap.Error(err))
		return
	}

	if _, err := n.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
		n.logger.Warn("progress notify failed",
			zap.String("owner_id", ownerID), zap.Error(err))
	}
}
