package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow/internal/domain"
)

// MovementType tipo de movimiento de inventario.
type MovementType string

const (
	MovementTypeInbound            MovementType = "INBOUND"
	MovementTypeOutbound           MovementType = "OUTBOUND"
	MovementTypeReservation        MovementType = "RESERVATION"
	MovementTypeReservationRelease MovementType = "RESERVATION_RELEASE"
	MovementTypeAdjustment         MovementType = "ADJUSTMENT"
	MovementTypeTransferOut        MovementType = "TRANSFER_OUT"
	MovementTypeTransferIn         MovementType = "TRANSFER_IN"
	MovementTypeCorrection         MovementType = "CORRECTION"
)

// direction: +1 suma, -1 resta, 0 cualquiera de los dos (ajustes y correcciones).
var movementDirections = map[MovementType]int{
	MovementTypeInbound:            1,
	MovementTypeOutbound:           -1,
	MovementTypeReservation:        -1,
	MovementTypeReservationRelease: 1,
	MovementTypeAdjustment:         0,
	MovementTypeTransferOut:        -1,
	MovementTypeTransferIn:         1,
	MovementTypeCorrection:         0,
}

// ParseMovementType valida un tipo recibido desde fuera (query string, CSV).
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if _, ok := movementDirections[t]; !ok {
		return "", domain.Errorf(domain.ErrInvalidInput, "movement", "tipo de movimiento desconocido %q", s)
	}
	return t, nil
}

// IsTransfer indica si el tipo corresponde a un traslado entre bodegas.
func (t MovementType) IsTransfer() bool {
	return t == MovementTypeTransferOut || t == MovementTypeTransferIn
}

// StockMovement registro inmutable de un cambio de cantidades (una fila por mutación del ledger).
// Para RESERVATION y RESERVATION_RELEASE, QuantityBefore/After son la cantidad disponible;
// para el resto, la cantidad en existencia.
type StockMovement struct {
	ID              string
	InventoryID     string
	ProductID       string
	WarehouseID     string
	Type            MovementType
	Quantity        int64
	QuantityBefore  int64
	QuantityAfter   int64
	ReferenceNumber string
	ReferenceID     string
	PerformedBy     string
	Notes           string
	FromWarehouseID string
	ToWarehouseID   string
	CreatedAt       time.Time
}

// MovementInput datos para construir un movimiento.
type MovementInput struct {
	InventoryID     string
	ProductID       string
	WarehouseID     string
	Type            MovementType
	Quantity        int64
	QuantityBefore  int64
	QuantityAfter   int64
	FromWarehouseID string
	ToWarehouseID   string
	CreatedAt       time.Time
}

// NewStockMovement construye y valida un movimiento. Es el único punto de creación.
func NewStockMovement(in MovementInput) (*StockMovement, error) {
	m := &StockMovement{
		ID:              uuid.New().String(),
		InventoryID:     in.InventoryID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		Type:            in.Type,
		Quantity:        in.Quantity,
		QuantityBefore:  in.QuantityBefore,
		QuantityAfter:   in.QuantityAfter,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		CreatedAt:       in.CreatedAt,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate comprueba la coherencia before/after según la dirección del tipo.
// Repositorios la vuelven a llamar en Append antes de persistir.
func (m *StockMovement) Validate() error {
	const op = "movement"
	dir, ok := movementDirections[m.Type]
	if !ok {
		return domain.Errorf(domain.ErrInvalidInput, op, "tipo de movimiento desconocido %q", m.Type)
	}
	if m.InventoryID == "" || m.ProductID == "" || m.WarehouseID == "" {
		return domain.Errorf(domain.ErrInvalidInput, op, "inventario, producto y bodega son requeridos")
	}
	if m.Quantity <= 0 {
		return domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	if m.QuantityBefore < 0 || m.QuantityAfter < 0 {
		return domain.Errorf(domain.ErrInvariantViolation, op, "cantidades negativas (antes=%d, después=%d)", m.QuantityBefore, m.QuantityAfter)
	}
	delta := m.QuantityAfter - m.QuantityBefore
	switch dir {
	case 1:
		if delta != m.Quantity {
			return domain.Errorf(domain.ErrInvariantViolation, op, "%s: después (%d) debe ser antes (%d) + %d", m.Type, m.QuantityAfter, m.QuantityBefore, m.Quantity)
		}
	case -1:
		if delta != -m.Quantity {
			return domain.Errorf(domain.ErrInvariantViolation, op, "%s: después (%d) debe ser antes (%d) - %d", m.Type, m.QuantityAfter, m.QuantityBefore, m.Quantity)
		}
	default:
		if delta != m.Quantity && delta != -m.Quantity {
			return domain.Errorf(domain.ErrInvariantViolation, op, "%s: la diferencia (%d) no coincide con la cantidad %d", m.Type, delta, m.Quantity)
		}
	}
	if m.Type.IsTransfer() {
		if m.FromWarehouseID == "" || m.ToWarehouseID == "" {
			return domain.Errorf(domain.ErrInvalidInput, op, "los traslados requieren bodega origen y destino")
		}
	} else if m.FromWarehouseID != "" || m.ToWarehouseID != "" {
		return domain.Errorf(domain.ErrInvalidInput, op, "origen/destino solo aplican a traslados")
	}
	return nil
}

// WithReference asigna la correlación con la orden, traslado o ajuste que lo originó.
func (m *StockMovement) WithReference(number, id string) *StockMovement {
	m.ReferenceNumber = number
	m.ReferenceID = id
	return m
}

// WithActor asigna el usuario y las notas.
func (m *StockMovement) WithActor(performedBy, notes string) *StockMovement {
	m.PerformedBy = performedBy
	m.Notes = notes
	return m
}
