package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
// GetByID devuelve domain.ErrNotFound si no existe; Create devuelve domain.ErrDuplicate si el código ya existe.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	// Update escribe código, nombre, dirección y capacidad; el estado activo solo cambia con SetActive.
	// Refresca warehouse.IsActive con el valor almacenado.
	Update(ctx context.Context, warehouse *entity.Warehouse) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	// LockForUpdate como GetByID, pero bloquea la fila hasta el fin de la transacción.
	LockForUpdate(ctx context.Context, id string) (*entity.Warehouse, error)
	// LockForShare bloqueo compartido: la bodega no puede desactivarse ni eliminarse mientras
	// la transacción que escribe existencia siga abierta.
	LockForShare(ctx context.Context, id string) (*entity.Warehouse, error)
	List(ctx context.Context, onlyActive bool, limit, offset int) ([]*entity.Warehouse, int, error)
	Delete(ctx context.Context, id string) error
	// StockTotal suma la existencia de los registros vivos de la bodega.
	StockTotal(ctx context.Context, warehouseID string) (int64, error)
}
