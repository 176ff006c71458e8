package ports

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// Repositories repositorios atados a una misma transacción.
type Repositories struct {
	Inventory  repository.InventoryRepository
	Movements  repository.StockMovementRepository
	PickPacks  repository.PickPackRepository
	Warehouses repository.WarehouseRepository
	Outbox     repository.OutboxRepository
}

// TxRunner ejecuta fn dentro de una transacción; si fn devuelve error no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repositories) error) error
}

// Clock fuente de tiempo inyectable (tests).
type Clock func() time.Time

// SystemClock hora actual en UTC.
func SystemClock() time.Time { return time.Now().UTC() }
