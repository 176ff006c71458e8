package memory

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo cola de eventos en memoria, en orden de inserción.
type OutboxRepo struct {
	do access
}

func (r *OutboxRepo) Enqueue(_ context.Context, msg *entity.OutboxMessage) error {
	return r.do(func(d *data) error {
		d.outbox = append(d.outbox, *msg)
		return nil
	})
}

func (r *OutboxRepo) FetchPending(_ context.Context, limit, maxAttempts int) ([]*entity.OutboxMessage, error) {
	var out []*entity.OutboxMessage
	err := r.do(func(d *data) error {
		for _, m := range d.outbox {
			if m.PublishedAt != nil || (maxAttempts > 0 && m.Attempts >= maxAttempts) {
				continue
			}
			m := m
			out = append(out, &m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *OutboxRepo) MarkPublished(_ context.Context, id string) error {
	return r.mutate(id, func(m *entity.OutboxMessage) {
		now := time.Now().UTC()
		m.PublishedAt = &now
	})
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id string, cause string) error {
	return r.mutate(id, func(m *entity.OutboxMessage) {
		m.Attempts++
		m.LastError = cause
	})
}

func (r *OutboxRepo) mutate(id string, fn func(*entity.OutboxMessage)) error {
	return r.do(func(d *data) error {
		for i := range d.outbox {
			if d.outbox[i].ID == id {
				fn(&d.outbox[i])
				return nil
			}
		}
		return domain.Errorf(domain.ErrNotFound, "outbox", "mensaje %s no existe", id)
	})
}
