package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo registros de inventario en memoria.
type InventoryRepo struct {
	do access
}

func (r *InventoryRepo) Get(_ context.Context, id string) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.do(func(d *data) error {
		s, ok := d.inventory[id]
		if !ok || s.DeletedAt != nil {
			return domain.Errorf(domain.ErrNotFound, "inventory", "inventario %s no existe", id)
		}
		out = entity.RestoreInventoryRecord(s)
		return nil
	})
	return out, err
}

func (r *InventoryRepo) Find(_ context.Context, productID, warehouseID string) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.do(func(d *data) error {
		s, ok := findLive(d, productID, warehouseID)
		if !ok {
			return domain.Errorf(domain.ErrNotFound, "inventory", "no hay inventario del producto %s en la bodega %s", productID, warehouseID)
		}
		out = entity.RestoreInventoryRecord(s)
		return nil
	})
	return out, err
}

func (r *InventoryRepo) Insert(_ context.Context, rec *entity.InventoryRecord) error {
	return r.do(func(d *data) error {
		if _, ok := findLive(d, rec.ProductID(), rec.WarehouseID()); ok {
			return domain.Errorf(domain.ErrConcurrencyConflict, "inventory.insert", "ya existe un registro para el producto %s en la bodega %s", rec.ProductID(), rec.WarehouseID())
		}
		d.inventory[rec.ID()] = rec.State()
		return nil
	})
}

func (r *InventoryRepo) Update(_ context.Context, rec *entity.InventoryRecord) error {
	return r.do(func(d *data) error {
		cur, ok := d.inventory[rec.ID()]
		if !ok {
			return domain.Errorf(domain.ErrNotFound, "inventory.update", "inventario %s no existe", rec.ID())
		}
		if cur.Version != rec.Version() {
			return domain.Errorf(domain.ErrConcurrencyConflict, "inventory.update", "versión %d obsoleta (actual %d)", rec.Version(), cur.Version)
		}
		s := rec.State()
		s.Version = cur.Version + 1
		d.inventory[rec.ID()] = s
		rec.AdvanceVersion()
		return nil
	})
}

func (r *InventoryRepo) List(_ context.Context, filter repository.InventoryFilter, limit, offset int) ([]entity.InventoryState, int, error) {
	return r.list(func(s entity.InventoryState) bool {
		return (filter.ProductID == "" || s.ProductID == filter.ProductID) &&
			(filter.WarehouseID == "" || s.WarehouseID == filter.WarehouseID)
	}, limit, offset)
}

func (r *InventoryRepo) ListLowStock(_ context.Context, warehouseID string, limit, offset int) ([]entity.InventoryState, int, error) {
	return r.list(func(s entity.InventoryState) bool {
		return s.IsLowStock() && (warehouseID == "" || s.WarehouseID == warehouseID)
	}, limit, offset)
}

func (r *InventoryRepo) StockReport(_ context.Context, productID string) ([]repository.StockReportRow, error) {
	var out []repository.StockReportRow
	err := r.do(func(d *data) error {
		rows := map[string]*repository.StockReportRow{}
		for _, s := range d.inventory {
			if s.DeletedAt != nil || (productID != "" && s.ProductID != productID) {
				continue
			}
			row, ok := rows[s.ProductID]
			if !ok {
				row = &repository.StockReportRow{ProductID: s.ProductID, TotalValue: decimal.Zero}
				rows[s.ProductID] = row
			}
			row.Quantity += s.Quantity
			row.ReservedQuantity += s.ReservedQuantity
			row.AvailableQuantity += s.AvailableQuantity()
			row.TotalValue = row.TotalValue.Add(s.UnitCost.Mul(decimal.NewFromInt(s.Quantity)))
			row.WarehouseCount++
		}
		for _, row := range rows {
			out = append(out, *row)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
		return nil
	})
	return out, err
}

func (r *InventoryRepo) list(match func(entity.InventoryState) bool, limit, offset int) ([]entity.InventoryState, int, error) {
	var (
		page  []entity.InventoryState
		total int
	)
	err := r.do(func(d *data) error {
		var all []entity.InventoryState
		for _, s := range d.inventory {
			if s.DeletedAt == nil && match(s) {
				all = append(all, s)
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].ProductID != all[j].ProductID {
				return all[i].ProductID < all[j].ProductID
			}
			return all[i].WarehouseID < all[j].WarehouseID
		})
		total = len(all)
		page = paginate(all, limit, offset)
		return nil
	})
	return page, total, err
}

func findLive(d *data, productID, warehouseID string) (entity.InventoryState, bool) {
	for _, s := range d.inventory {
		if s.DeletedAt == nil && s.ProductID == productID && s.WarehouseID == warehouseID {
			return s, true
		}
	}
	return entity.InventoryState{}, false
}
