package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// OutboxRepository cola transaccional de eventos de dominio.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *entity.OutboxMessage) error
	// FetchPending devuelve mensajes no publicados con menos de maxAttempts intentos, en orden de creación.
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]*entity.OutboxMessage, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause string) error
}
