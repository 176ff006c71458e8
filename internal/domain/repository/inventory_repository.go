package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryRepository puerto de persistencia de registros de inventario con control optimista.
// Get/Find devuelven domain.ErrNotFound si no hay registro vivo.
type InventoryRepository interface {
	Get(ctx context.Context, id string) (*entity.InventoryRecord, error)
	Find(ctx context.Context, productID, warehouseID string) (*entity.InventoryRecord, error)
	// Insert devuelve domain.ErrConcurrencyConflict si ya existe un registro vivo para el par.
	Insert(ctx context.Context, rec *entity.InventoryRecord) error
	// Update escribe solo si la versión almacenada coincide con rec.Version();
	// si no, domain.ErrConcurrencyConflict. En éxito llama rec.AdvanceVersion().
	Update(ctx context.Context, rec *entity.InventoryRecord) error
	List(ctx context.Context, filter InventoryFilter, limit, offset int) ([]entity.InventoryState, int, error)
	ListLowStock(ctx context.Context, warehouseID string, limit, offset int) ([]entity.InventoryState, int, error)
	StockReport(ctx context.Context, productID string) ([]StockReportRow, error)
}

// InventoryFilter filtros de búsqueda (vacío = sin filtro).
type InventoryFilter struct {
	ProductID   string
	WarehouseID string
}

// StockReportRow agregado por producto sobre todas las bodegas.
type StockReportRow struct {
	ProductID         string
	Quantity          int64
	ReservedQuantity  int64
	AvailableQuantity int64
	TotalValue        decimal.Decimal
	WarehouseCount    int
}
