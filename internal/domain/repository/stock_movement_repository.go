package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// StockMovementRepository bitácora de movimientos: solo inserción y lectura.
type StockMovementRepository interface {
	// Append valida el movimiento (entity.StockMovement.Validate) y lo persiste.
	Append(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	List(ctx context.Context, filter MovementFilter, limit, offset int) ([]*entity.StockMovement, int, error)
	ListByReference(ctx context.Context, referenceID string) ([]*entity.StockMovement, error)
}

// MovementFilter filtros del historial; From/To son inclusivos.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	Type        entity.MovementType
	ReferenceID string
	From        *time.Time
	To          *time.Time
}
