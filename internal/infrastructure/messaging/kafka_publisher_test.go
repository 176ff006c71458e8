package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/pkg/logger"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func outboxMessage(t *testing.T) *entity.OutboxMessage {
	t.Helper()
	msg, err := entity.NewOutboxMessage(entity.StockLevelLow{
		InventoryID: "inv-1", ProductID: "P-1", WarehouseID: "wh-1", Quantity: 2, MinimumLevel: 5,
		At: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return msg
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w)
	msg := outboxMessage(t)

	require.NoError(t, p.Publish(context.Background(), msg))
	require.Len(t, w.msgs, 1)

	got := w.msgs[0]
	assert.Equal(t, "inv-1", string(got.Key), "la llave es el agregado")
	assert.JSONEq(t, string(msg.Payload), string(got.Value))
	assert.Equal(t, msg.CreatedAt, got.Time)

	headers := headerCarrier(got.Headers)
	assert.Equal(t, entity.EventStockLevelLow, headers.Get(HeaderEventType))
	assert.Equal(t, msg.ID, headers.Get(HeaderMessageID))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_Error(t *testing.T) {
	w := &recordingWriter{err: errors.New("sin líder")}
	p := newKafkaPublisher(w)
	msg := outboxMessage(t)

	err := p.Publish(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, w.err)
	assert.Contains(t, err.Error(), msg.ID)
}

func TestNewKafkaPublisher_Validacion(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "stock-events")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

func TestHeaderCarrier(t *testing.T) {
	var c headerCarrier
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("event-type", "x")
	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent", "event-type"}, c.Keys())
	assert.Equal(t, "", c.Get("missing"))
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(logger.Nop())
	assert.NoError(t, p.Publish(context.Background(), outboxMessage(t)))
	assert.NoError(t, p.Close())
}
