package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

// FailureRepository implements notification.FailureRepository.
type FailureRepository struct {
	pool *pgxpool.Pool
}

func NewFailureRepository(pool *pgxpool.Pool) *FailureRepository {
	return &FailureRepository{pool: pool}
}

func (r *FailureRepository) RecordFailure(ctx context.Context, f *notification.DeliveryFailure) error {
	var payload []byte
	if len(f.Payload) > 0 {
		payload = f.Payload
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notification_failures (fact_id, sink, event_kind, complaint_id, recipient_id, error, payload, failed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, f.FactID, f.Sink, f.EventKind, f.ComplaintID, f.RecipientID, f.Error, payload, f.FailedAt).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("insert notification failure: %w", err)
	}
	return nil
}

func (r *FailureRepository) ListFailures(ctx context.Context, limit, offset int) ([]*notification.DeliveryFailure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, fact_id, sink, event_kind, complaint_id, recipient_id, error, payload, failed_at
		FROM notification_failures ORDER BY failed_at DESC, id DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*notification.DeliveryFailure{}
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFailure(row pgx.Row) (*notification.DeliveryFailure, error) {
	var f notification.DeliveryFailure
	var payload []byte
	if err := row.Scan(&f.ID, &f.FactID, &f.Sink, &f.EventKind, &f.ComplaintID, &f.RecipientID, &f.Error, &payload, &f.FailedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(payload) > 0 {
		f.Payload = payload
	}
	return &f, nil
}
