package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/pkg/logger"
)

// Llaves de caché de proyecciones (prefijo stock:, ver ReportCache.InvalidateStock).
const (
	lowStockKey    = "stock:low:%s:%d:%d"
	stockReportKey = "stock:report:%s"
)

// ReportUseCase consultas de solo lectura sobre inventario y movimientos.
type ReportUseCase struct {
	inventory repository.InventoryRepository
	movements repository.StockMovementRepository
	cache     ports.ReportCache
	log       *logger.Logger
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(
	inventory repository.InventoryRepository,
	movements repository.StockMovementRepository,
	cache ports.ReportCache,
	log *logger.Logger,
) *ReportUseCase {
	return &ReportUseCase{inventory: inventory, movements: movements, cache: cache, log: log.Named("reports")}
}

// InventoryPage página de registros.
type InventoryPage struct {
	Items  []entity.InventoryState `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// MovementPage página del historial.
type MovementPage struct {
	Items  []*entity.StockMovement
	Total  int
	Limit  int
	Offset int
}

// GetInventory obtiene un registro por ID.
func (uc *ReportUseCase) GetInventory(ctx context.Context, id string) (entity.InventoryState, error) {
	rec, err := uc.inventory.Get(ctx, id)
	if err != nil {
		return entity.InventoryState{}, err
	}
	return rec.State(), nil
}

// FindInventory obtiene el registro de un producto en una bodega.
func (uc *ReportUseCase) FindInventory(ctx context.Context, productID, warehouseID string) (entity.InventoryState, error) {
	rec, err := uc.inventory.Find(ctx, productID, warehouseID)
	if err != nil {
		return entity.InventoryState{}, err
	}
	return rec.State(), nil
}

// ListInventory lista registros filtrando por producto y/o bodega.
func (uc *ReportUseCase) ListInventory(ctx context.Context, filter repository.InventoryFilter, limit, offset int) (InventoryPage, error) {
	limit, offset = normalizePage(limit, offset)
	items, total, err := uc.inventory.List(ctx, filter, limit, offset)
	if err != nil {
		return InventoryPage{}, err
	}
	return InventoryPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// ListLowStock registros con max > 0 y cantidad <= mínimo. warehouseID vacío = todas las bodegas.
func (uc *ReportUseCase) ListLowStock(ctx context.Context, warehouseID string, limit, offset int) (InventoryPage, error) {
	limit, offset = normalizePage(limit, offset)
	key := fmt.Sprintf(lowStockKey, warehouseID, limit, offset)
	var page InventoryPage
	if uc.cached(ctx, key, &page) {
		return page, nil
	}
	items, total, err := uc.inventory.ListLowStock(ctx, warehouseID, limit, offset)
	if err != nil {
		return InventoryPage{}, err
	}
	page = InventoryPage{Items: items, Total: total, Limit: limit, Offset: offset}
	uc.store(ctx, key, page)
	return page, nil
}

// MovementHistory historial filtrado y paginado, más reciente primero.
func (uc *ReportUseCase) MovementHistory(ctx context.Context, filter repository.MovementFilter, limit, offset int) (MovementPage, error) {
	limit, offset = normalizePage(limit, offset)
	items, total, err := uc.movements.List(ctx, filter, limit, offset)
	if err != nil {
		return MovementPage{}, err
	}
	return MovementPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// StockReport agregado por producto (existencia, reservado, disponible, valor). productID vacío = todos.
func (uc *ReportUseCase) StockReport(ctx context.Context, productID string) ([]repository.StockReportRow, error) {
	key := fmt.Sprintf(stockReportKey, productID)
	var rows []repository.StockReportRow
	if uc.cached(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := uc.inventory.StockReport(ctx, productID)
	if err != nil {
		return nil, err
	}
	uc.store(ctx, key, rows)
	return rows, nil
}

func (uc *ReportUseCase) cached(ctx context.Context, key string, dst any) bool {
	found, err := uc.cache.Get(ctx, key, dst)
	if err != nil {
		uc.log.Warn().Err(err).Str("key", key).Msg("lectura de caché fallida")
		return false
	}
	return found
}

func (uc *ReportUseCase) store(ctx context.Context, key string, value any) {
	if err := uc.cache.Set(ctx, key, value); err != nil {
		uc.log.Warn().Err(err).Str("key", key).Msg("escritura de caché fallida")
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
