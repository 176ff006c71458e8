package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tipos de evento de dominio publicados a través del outbox.
const (
	EventPickPackStatusChanged = "pickpack.status_changed"
	EventInventoryUpdated      = "inventory.updated"
	EventStockLevelLow         = "inventory.stock_low"
)

// DomainEvent evento devuelto por los métodos de las entidades; el caso de uso lo
// guarda en el outbox dentro de la misma transacción que la mutación.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// PickPackStatusChanged se emite en cada transición exitosa de una unidad de pick-pack.
type PickPackStatusChanged struct {
	PickPackID string         `json:"pick_pack_id"`
	OrderID    string         `json:"order_id"`
	OldStatus  PickPackStatus `json:"old_status"`
	NewStatus  PickPackStatus `json:"new_status"`
	At         time.Time      `json:"occurred_at"`
}

func (e PickPackStatusChanged) EventType() string     { return EventPickPackStatusChanged }
func (e PickPackStatusChanged) AggregateID() string   { return e.PickPackID }
func (e PickPackStatusChanged) OccurredAt() time.Time { return e.At }

// InventoryUpdated cambio de metadatos (niveles, costo, ubicación) de un registro de inventario.
type InventoryUpdated struct {
	InventoryID string    `json:"inventory_id"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Field       string    `json:"field"`
	At          time.Time `json:"occurred_at"`
}

func (e InventoryUpdated) EventType() string     { return EventInventoryUpdated }
func (e InventoryUpdated) AggregateID() string   { return e.InventoryID }
func (e InventoryUpdated) OccurredAt() time.Time { return e.At }

// StockLevelLow el registro cruzó su nivel mínimo tras una disminución.
type StockLevelLow struct {
	InventoryID  string    `json:"inventory_id"`
	ProductID    string    `json:"product_id"`
	WarehouseID  string    `json:"warehouse_id"`
	Quantity     int64     `json:"quantity"`
	MinimumLevel int64     `json:"minimum_level"`
	At           time.Time `json:"occurred_at"`
}

func (e StockLevelLow) EventType() string     { return EventStockLevelLow }
func (e StockLevelLow) AggregateID() string   { return e.InventoryID }
func (e StockLevelLow) OccurredAt() time.Time { return e.At }

// OutboxMessage fila del outbox pendiente de publicación.
type OutboxMessage struct {
	ID          string
	EventType   string
	AggregateID string
	Payload     []byte
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewOutboxMessage serializa el evento en JSON para guardarlo en el outbox.
func NewOutboxMessage(ev DomainEvent) (*OutboxMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}
	return &OutboxMessage{
		ID:          uuid.New().String(),
		EventType:   ev.EventType(),
		AggregateID: ev.AggregateID(),
		Payload:     payload,
		CreatedAt:   ev.OccurredAt(),
	}, nil
}
