package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct {
	do access
}

func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	return r.do(func(d *data) error {
		for _, cur := range d.warehouses {
			if cur.Code == w.Code {
				return domain.Errorf(domain.ErrDuplicate, "warehouse.create", "el código %s ya existe", w.Code)
			}
		}
		d.warehouses[w.ID] = *w
		return nil
	})
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	err := r.do(func(d *data) error {
		w, ok := d.warehouses[id]
		if !ok {
			return domain.Errorf(domain.ErrNotFound, "warehouse", "bodega %s no existe", id)
		}
		out = &w
		return nil
	})
	return out, err
}

// LockForUpdate las transacciones en memoria ya son serializadas; basta con leer.
func (r *WarehouseRepo) LockForUpdate(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.GetByID(ctx, id)
}

func (r *WarehouseRepo) LockForShare(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.GetByID(ctx, id)
}

func (r *WarehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	return r.do(func(d *data) error {
		cur, ok := d.warehouses[w.ID]
		if !ok {
			return domain.Errorf(domain.ErrNotFound, "warehouse.update", "bodega %s no existe", w.ID)
		}
		for id, other := range d.warehouses {
			if id != w.ID && other.Code == w.Code {
				return domain.Errorf(domain.ErrDuplicate, "warehouse.update", "el código %s ya existe", w.Code)
			}
		}
		w.IsActive = cur.IsActive
		d.warehouses[w.ID] = *w
		return nil
	})
}

func (r *WarehouseRepo) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	return r.do(func(d *data) error {
		w, ok := d.warehouses[id]
		if !ok {
			return domain.Errorf(domain.ErrNotFound, "warehouse.set_active", "bodega %s no existe", id)
		}
		w.IsActive = active
		w.UpdatedAt = at
		d.warehouses[id] = w
		return nil
	})
}

func (r *WarehouseRepo) List(_ context.Context, onlyActive bool, limit, offset int) ([]*entity.Warehouse, int, error) {
	var (
		page  []*entity.Warehouse
		total int
	)
	err := r.do(func(d *data) error {
		var all []*entity.Warehouse
		for _, w := range d.warehouses {
			if onlyActive && !w.IsActive {
				continue
			}
			w := w
			all = append(all, &w)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		total = len(all)
		page = paginate(all, limit, offset)
		return nil
	})
	return page, total, err
}

func (r *WarehouseRepo) Delete(_ context.Context, id string) error {
	return r.do(func(d *data) error {
		if _, ok := d.warehouses[id]; !ok {
			return domain.Errorf(domain.ErrNotFound, "warehouse.delete", "bodega %s no existe", id)
		}
		delete(d.warehouses, id)
		return nil
	})
}

func (r *WarehouseRepo) StockTotal(_ context.Context, warehouseID string) (int64, error) {
	var total int64
	err := r.do(func(d *data) error {
		for _, s := range d.inventory {
			if s.DeletedAt == nil && s.WarehouseID == warehouseID {
				total += s.Quantity
			}
		}
		return nil
	})
	return total, err
}
