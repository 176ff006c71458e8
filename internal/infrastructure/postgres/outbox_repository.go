package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo tabla outbox_events.
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

func (r *OutboxRepo) Enqueue(ctx context.Context, msg *entity.OutboxMessage) error {
	query := `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.q.Exec(ctx, query,
		msg.ID, msg.EventType, msg.AggregateID, msg.Payload, msg.Attempts, msg.LastError, msg.CreatedAt,
	); err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// FetchPending dentro de una transacción deja las filas bloqueadas hasta el commit; otra
// transacción concurrente las salta.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit, maxAttempts int) ([]*entity.OutboxMessage, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, attempts, last_error, created_at, published_at
		FROM outbox_events
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`
	rows, err := r.q.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox events: %w", err)
	}
	defer rows.Close()
	var list []*entity.OutboxMessage
	for rows.Next() {
		var m entity.OutboxMessage
		if err := rows.Scan(&m.ID, &m.EventType, &m.AggregateID, &m.Payload, &m.Attempts, &m.LastError, &m.CreatedAt, &m.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = $1`, id)
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, cause string) error {
	return r.exec(ctx, `UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, cause)
}

func (r *OutboxRepo) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox event: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "outbox", "mensaje %v no existe", args[0])
	}
	return nil
}
