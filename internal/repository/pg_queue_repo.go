package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) EnqueueBatch(ctx context.Context, items []*domain.QueueItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO import_queue (id, owner_id, payload, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, item.OwnerID, payload, item.Status, item.CreatedAt, item.UpdatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert queue item: %w", err)
		}
	}
	return nil
}

// ClaimPending uses FOR UPDATE SKIP LOCKED inside the UPDATE's subquery so
// the pending→processing transition is a real lease, not an advisory mark:
// two overlapping invocations racing on the same rows each receive a
// disjoint set.
func (r *pgQueueRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE import_queue
		SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM import_queue
			WHERE status = 'pending'
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, owner_id, payload, status, error_message, created_at, updated_at`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *pgQueueRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM import_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete queue item: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_queue
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark queue item failed: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM import_queue WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

func (r *pgQueueRepository) Snapshot(ctx context.Context) (*domain.QueueSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM import_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue snapshot: %w", err)
	}
	defer rows.Close()

	var snap domain.QueueSnapshot
	for rows.Next() {
		var status domain.ImportStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case domain.StatusPending:
			snap.Pending = count
		case domain.StatusProcessing:
			snap.Processing = count
		case domain.StatusFailed:
			snap.Failed = count
		}
	}
	return &snap, rows.Err()
}

func (r *pgQueueRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, payload, status, error_message, created_at, updated_at
		FROM import_queue
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// ---- helpers ----

func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var payload []byte
	err := row.Scan(
		&item.ID, &item.OwnerID, &payload, &item.Status,
		&item.ErrorMessage, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &item.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &item, nil
}

func scanQueueItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	var result []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
