package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// PickPackRepository persistencia de unidades de alistamiento con sus ítems.
type PickPackRepository interface {
	// Insert devuelve domain.ErrDuplicate si el número de empaque ya existe.
	Insert(ctx context.Context, unit *entity.PickPackUnit) error
	Get(ctx context.Context, id string) (*entity.PickPackUnit, error)
	// Update compara versión igual que InventoryRepository.Update y reescribe los ítems.
	Update(ctx context.Context, unit *entity.PickPackUnit) error
	ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]*entity.PickPackUnit, int, error)
}
