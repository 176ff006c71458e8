package entity

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryState instantánea persistible de un registro de inventario (producto + bodega).
// Solo la usan repositorios y proyecciones de lectura; las mutaciones pasan por InventoryRecord.
type InventoryState struct {
	ID                string
	ProductID         string
	WarehouseID       string
	Quantity          int64
	ReservedQuantity  int64
	MinimumStockLevel int64
	MaximumStockLevel int64
	UnitCost          decimal.Decimal
	Location          string
	LastRestockedAt   *time.Time
	LastCountedAt     *time.Time
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// AvailableQuantity existencia menos reservado (derivado, nunca se persiste).
func (s InventoryState) AvailableQuantity() int64 {
	return s.Quantity - s.ReservedQuantity
}

// IsLowStock true si hay máximo configurado y la existencia no supera el mínimo.
func (s InventoryState) IsLowStock() bool {
	return s.MaximumStockLevel > 0 && s.Quantity <= s.MinimumStockLevel
}

// InventoryRecord stock de un producto en una bodega. Los campos solo cambian a través de
// las operaciones con nombre, que validan antes de mutar y devuelven el movimiento resultante.
type InventoryRecord struct {
	s InventoryState
}

// NewInventoryInput datos para crear un registro.
type NewInventoryInput struct {
	ProductID         string
	WarehouseID       string
	Quantity          int64
	MinimumStockLevel int64
	MaximumStockLevel int64
	UnitCost          decimal.Decimal
	Location          string
}

// StockChange resultado de una operación de cantidades: el movimiento a registrar en la
// misma transacción y los eventos para el outbox.
type StockChange struct {
	Movement *StockMovement
	Events   []DomainEvent
}

// NewInventoryRecord crea un registro validando todas las invariantes. Si la cantidad
// inicial es positiva devuelve además el movimiento INBOUND correspondiente.
func NewInventoryRecord(in NewInventoryInput, now time.Time) (*InventoryRecord, *StockMovement, error) {
	const op = "inventory.create"
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.WarehouseID) == "" {
		return nil, nil, domain.Errorf(domain.ErrInvalidInput, op, "producto y bodega son requeridos")
	}
	if in.Quantity < 0 {
		return nil, nil, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad no puede ser negativa")
	}
	if err := validateLevels(op, in.MinimumStockLevel, in.MaximumStockLevel); err != nil {
		return nil, nil, err
	}
	if in.UnitCost.IsNegative() {
		return nil, nil, domain.Errorf(domain.ErrInvalidInput, op, "el costo unitario no puede ser negativo")
	}

	r := &InventoryRecord{s: InventoryState{
		ID:                uuid.New().String(),
		ProductID:         in.ProductID,
		WarehouseID:       in.WarehouseID,
		Quantity:          in.Quantity,
		MinimumStockLevel: in.MinimumStockLevel,
		MaximumStockLevel: in.MaximumStockLevel,
		UnitCost:          in.UnitCost,
		Location:          strings.TrimSpace(in.Location),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}}
	if in.Quantity == 0 {
		return r, nil, nil
	}
	r.s.LastRestockedAt = timePtr(now)
	mov, err := r.movement(MovementTypeInbound, in.Quantity, 0, in.Quantity, now)
	if err != nil {
		return nil, nil, err
	}
	return r, mov, nil
}

// RestoreInventoryRecord rehidrata un registro desde persistencia (sin validar).
func RestoreInventoryRecord(s InventoryState) *InventoryRecord {
	return &InventoryRecord{s: s}
}

// State devuelve una copia de solo lectura del estado.
func (r *InventoryRecord) State() InventoryState { return r.s }

func (r *InventoryRecord) ID() string                 { return r.s.ID }
func (r *InventoryRecord) ProductID() string          { return r.s.ProductID }
func (r *InventoryRecord) WarehouseID() string        { return r.s.WarehouseID }
func (r *InventoryRecord) Quantity() int64            { return r.s.Quantity }
func (r *InventoryRecord) ReservedQuantity() int64    { return r.s.ReservedQuantity }
func (r *InventoryRecord) AvailableQuantity() int64   { return r.s.AvailableQuantity() }
func (r *InventoryRecord) UnitCost() decimal.Decimal  { return r.s.UnitCost }
func (r *InventoryRecord) Version() int64             { return r.s.Version }
func (r *InventoryRecord) IsLowStock() bool           { return r.s.IsLowStock() }
func (r *InventoryRecord) IsDeleted() bool            { return r.s.DeletedAt != nil }

// AdvanceVersion lo llaman los repositorios tras un compare-and-swap exitoso.
func (r *InventoryRecord) AdvanceVersion() { r.s.Version++ }

// AdjustQuantity suma delta (positivo o negativo) a la existencia.
func (r *InventoryRecord) AdjustQuantity(delta int64, now time.Time) (StockChange, error) {
	const op = "inventory.adjust"
	if delta == 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "el ajuste no puede ser cero")
	}
	before := r.s.Quantity
	if delta > 0 && delta > math.MaxInt64-before {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "el ajuste excede la capacidad del registro (%d%+d)", before, delta)
	}
	after := before + delta
	if after < 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvariantViolation, op, "la existencia quedaría negativa (%d%+d)", before, delta)
	}
	if after < r.s.ReservedQuantity {
		return StockChange{}, domain.Errorf(domain.ErrInvariantViolation, op, "la existencia (%d) quedaría por debajo de lo reservado (%d)", after, r.s.ReservedQuantity)
	}
	wasLow := r.s.IsLowStock()
	r.s.Quantity = after
	if delta > 0 {
		r.s.LastRestockedAt = timePtr(now)
	}
	r.s.UpdatedAt = now
	return r.change(MovementTypeAdjustment, abs(delta), before, after, wasLow, now)
}

// Reserve aparta cantidad para una orden pendiente.
func (r *InventoryRecord) Reserve(quantity int64, now time.Time) (StockChange, error) {
	const op = "inventory.reserve"
	if quantity <= 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	available := r.s.AvailableQuantity()
	if quantity > available {
		return StockChange{}, domain.Errorf(domain.ErrInsufficientStock, op, "disponible %d, solicitado %d", available, quantity)
	}
	r.s.ReservedQuantity += quantity
	r.s.UpdatedAt = now
	return r.change(MovementTypeReservation, quantity, available, available-quantity, false, now)
}

// ReleaseReserved devuelve cantidad reservada a disponible.
func (r *InventoryRecord) ReleaseReserved(quantity int64, now time.Time) (StockChange, error) {
	const op = "inventory.release"
	if quantity <= 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	if quantity > r.s.ReservedQuantity {
		return StockChange{}, domain.Errorf(domain.ErrInvariantViolation, op, "se liberan %d pero solo hay %d reservados", quantity, r.s.ReservedQuantity)
	}
	available := r.s.AvailableQuantity()
	r.s.ReservedQuantity -= quantity
	r.s.UpdatedAt = now
	return r.change(MovementTypeReservationRelease, quantity, available, available+quantity, false, now)
}

// ReleaseAndReduce consume una reserva: la mercancía reservada salió de la bodega.
func (r *InventoryRecord) ReleaseAndReduce(quantity int64, now time.Time) (StockChange, error) {
	const op = "inventory.release_and_reduce"
	if quantity <= 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	if quantity > r.s.ReservedQuantity {
		return StockChange{}, domain.Errorf(domain.ErrInvariantViolation, op, "se consumen %d pero solo hay %d reservados", quantity, r.s.ReservedQuantity)
	}
	wasLow := r.s.IsLowStock()
	before := r.s.Quantity
	r.s.ReservedQuantity -= quantity
	r.s.Quantity -= quantity
	r.s.UpdatedAt = now
	return r.change(MovementTypeOutbound, quantity, before, r.s.Quantity, wasLow, now)
}

// TransferOut descuenta existencia disponible hacia otra bodega. Lo reservado no se traslada.
func (r *InventoryRecord) TransferOut(quantity int64, toWarehouseID string, now time.Time) (StockChange, error) {
	const op = "inventory.transfer_out"
	if quantity <= 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	if quantity > r.s.AvailableQuantity() {
		return StockChange{}, domain.Errorf(domain.ErrInsufficientStock, op, "disponible %d, solicitado %d", r.s.AvailableQuantity(), quantity)
	}
	wasLow := r.s.IsLowStock()
	before := r.s.Quantity
	r.s.Quantity -= quantity
	r.s.UpdatedAt = now
	ch, err := r.change(MovementTypeTransferOut, quantity, before, r.s.Quantity, wasLow, now)
	if err != nil {
		return StockChange{}, err
	}
	ch.Movement.FromWarehouseID = r.s.WarehouseID
	ch.Movement.ToWarehouseID = toWarehouseID
	return ch, ch.Movement.Validate()
}

// TransferIn recibe existencia desde otra bodega y recalcula el costo promedio ponderado.
func (r *InventoryRecord) TransferIn(quantity int64, fromWarehouseID string, incomingCost decimal.Decimal, now time.Time) (StockChange, error) {
	const op = "inventory.transfer_in"
	if quantity <= 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	before := r.s.Quantity
	if quantity > math.MaxInt64-before {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad excede la capacidad del registro (%d+%d)", before, quantity)
	}
	r.s.UnitCost = inventory.WeightedAverageCost(before, r.s.UnitCost, quantity, incomingCost)
	r.s.Quantity += quantity
	r.s.LastRestockedAt = timePtr(now)
	r.s.UpdatedAt = now
	ch, err := r.change(MovementTypeTransferIn, quantity, before, r.s.Quantity, false, now)
	if err != nil {
		return StockChange{}, err
	}
	ch.Movement.FromWarehouseID = fromWarehouseID
	ch.Movement.ToWarehouseID = r.s.WarehouseID
	return ch, ch.Movement.Validate()
}

// RecordCount registra un conteo físico. Si difiere de la existencia genera una CORRECTION.
// Sin diferencia solo actualiza la fecha de conteo y Movement queda nil.
func (r *InventoryRecord) RecordCount(counted int64, now time.Time) (StockChange, error) {
	const op = "inventory.count"
	if counted < 0 {
		return StockChange{}, domain.Errorf(domain.ErrInvalidInput, op, "el conteo no puede ser negativo")
	}
	if counted < r.s.ReservedQuantity {
		return StockChange{}, domain.Errorf(domain.ErrInvariantViolation, op, "el conteo (%d) es menor que lo reservado (%d)", counted, r.s.ReservedQuantity)
	}
	r.s.LastCountedAt = timePtr(now)
	r.s.UpdatedAt = now
	if counted == r.s.Quantity {
		return StockChange{Events: []DomainEvent{r.updated("last_counted_at", now)}}, nil
	}
	wasLow := r.s.IsLowStock()
	before := r.s.Quantity
	r.s.Quantity = counted
	return r.change(MovementTypeCorrection, abs(counted-before), before, counted, wasLow, now)
}

// UpdateStockLevels cambia los umbrales de reorden.
func (r *InventoryRecord) UpdateStockLevels(minLevel, maxLevel int64, now time.Time) (DomainEvent, error) {
	if err := validateLevels("inventory.stock_levels", minLevel, maxLevel); err != nil {
		return nil, err
	}
	r.s.MinimumStockLevel = minLevel
	r.s.MaximumStockLevel = maxLevel
	r.s.UpdatedAt = now
	return r.updated("stock_levels", now), nil
}

// UpdateUnitCost cambia el costo unitario.
func (r *InventoryRecord) UpdateUnitCost(cost decimal.Decimal, now time.Time) (DomainEvent, error) {
	if cost.IsNegative() {
		return nil, domain.Errorf(domain.ErrInvalidInput, "inventory.unit_cost", "el costo unitario no puede ser negativo")
	}
	r.s.UnitCost = cost
	r.s.UpdatedAt = now
	return r.updated("unit_cost", now), nil
}

// UpdateLocation cambia la ubicación (estante, pasillo); vacío la elimina.
func (r *InventoryRecord) UpdateLocation(location string, now time.Time) DomainEvent {
	r.s.Location = strings.TrimSpace(location)
	r.s.UpdatedAt = now
	return r.updated("location", now)
}

// MarkDeleted borrado lógico; solo con existencia cero.
func (r *InventoryRecord) MarkDeleted(now time.Time) error {
	if r.s.Quantity > 0 {
		return domain.Errorf(domain.ErrInvariantViolation, "inventory.delete", "no se puede eliminar con existencia %d", r.s.Quantity)
	}
	if r.s.DeletedAt != nil {
		return domain.Errorf(domain.ErrNotFound, "inventory.delete", "el registro ya fue eliminado")
	}
	r.s.DeletedAt = timePtr(now)
	r.s.UpdatedAt = now
	return nil
}

func (r *InventoryRecord) change(t MovementType, quantity, before, after int64, wasLow bool, now time.Time) (StockChange, error) {
	mov, err := r.movement(t, quantity, before, after, now)
	if err != nil {
		return StockChange{}, err
	}
	ch := StockChange{Movement: mov}
	if !wasLow && r.s.IsLowStock() && after < before {
		ch.Events = append(ch.Events, StockLevelLow{
			InventoryID:  r.s.ID,
			ProductID:    r.s.ProductID,
			WarehouseID:  r.s.WarehouseID,
			Quantity:     r.s.Quantity,
			MinimumLevel: r.s.MinimumStockLevel,
			At:           now,
		})
	}
	return ch, nil
}

func (r *InventoryRecord) movement(t MovementType, quantity, before, after int64, now time.Time) (*StockMovement, error) {
	var from, to string
	if t.IsTransfer() {
		// se completan en TransferOut/TransferIn
		from, to = r.s.WarehouseID, r.s.WarehouseID
	}
	return NewStockMovement(MovementInput{
		InventoryID:     r.s.ID,
		ProductID:       r.s.ProductID,
		WarehouseID:     r.s.WarehouseID,
		Type:            t,
		Quantity:        quantity,
		QuantityBefore:  before,
		QuantityAfter:   after,
		FromWarehouseID: from,
		ToWarehouseID:   to,
		CreatedAt:       now,
	})
}

func (r *InventoryRecord) updated(field string, now time.Time) DomainEvent {
	return InventoryUpdated{
		InventoryID: r.s.ID,
		ProductID:   r.s.ProductID,
		WarehouseID: r.s.WarehouseID,
		Field:       field,
		At:          now,
	}
}

func validateLevels(op string, minLevel, maxLevel int64) error {
	if minLevel < 0 || maxLevel < 0 {
		return domain.Errorf(domain.ErrInvalidInput, op, "los niveles de stock no pueden ser negativos")
	}
	if maxLevel > 0 && minLevel > maxLevel {
		return domain.Errorf(domain.ErrInvalidInput, op, "el mínimo (%d) supera el máximo (%d)", minLevel, maxLevel)
	}
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func timePtr(t time.Time) *time.Time { return &t }
