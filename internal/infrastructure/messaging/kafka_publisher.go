package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockflow/internal/application/outbox"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

var _ outbox.Publisher = (*KafkaPublisher)(nil)

// Headers de cada mensaje publicado.
const (
	HeaderEventType = "event-type"
	HeaderMessageID = "message-id"
)

// messageWriter subconjunto de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica mensajes del outbox en un tópico; la llave es el id del agregado
// para conservar el orden por registro o unidad.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher crea un writer síncrono sobre los brokers dados.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka: brokers y tópico son requeridos")
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}), nil
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg *entity.OutboxMessage) error {
	headers := headerCarrier{
		{Key: HeaderEventType, Value: []byte(msg.EventType)},
		{Key: HeaderMessageID, Value: []byte(msg.ID)},
	}
	otel.GetTextMapPropagator().Inject(ctx, &headers)
	err := p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.AggregateID),
		Value:   msg.Payload,
		Headers: headers,
		Time:    msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", msg.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// headerCarrier adapta los headers de kafka a propagation.TextMapCarrier.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
