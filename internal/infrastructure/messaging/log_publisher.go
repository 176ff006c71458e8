package messaging

import (
	"context"

	"github.com/jhoicas/stockflow/internal/application/outbox"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/pkg/logger"
)

var _ outbox.Publisher = (*LogPublisher)(nil)

// LogPublisher destino cuando no hay brokers: cada evento queda en el log.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events")}
}

func (p *LogPublisher) Publish(_ context.Context, msg *entity.OutboxMessage) error {
	p.log.Info().
		Str("event_type", msg.EventType).
		Str("aggregate_id", msg.AggregateID).
		RawJSON("payload", msg.Payload).
		Msg("evento de dominio")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
