package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

// MovementRepo bitácora de movimientos en memoria (solo inserción).
type MovementRepo struct {
	do access
}

func (r *MovementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	cp := *m
	return r.do(func(d *data) error {
		d.movements = append(d.movements, &cp)
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.do(func(d *data) error {
		for _, m := range d.movements {
			if m.ID == id {
				cp := *m
				out = &cp
				return nil
			}
		}
		return domain.Errorf(domain.ErrNotFound, "movement", "movimiento %s no existe", id)
	})
	return out, err
}

func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter, limit, offset int) ([]*entity.StockMovement, int, error) {
	var (
		page  []*entity.StockMovement
		total int
	)
	err := r.do(func(d *data) error {
		var all []*entity.StockMovement
		for _, m := range d.movements {
			if matches(m, f) {
				cp := *m
				all = append(all, &cp)
			}
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		total = len(all)
		page = paginate(all, limit, offset)
		return nil
	})
	return page, total, err
}

func (r *MovementRepo) ListByReference(_ context.Context, referenceID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.do(func(d *data) error {
		for _, m := range d.movements {
			if m.ReferenceID == referenceID {
				cp := *m
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func matches(m *entity.StockMovement, f repository.MovementFilter) bool {
	switch {
	case f.ProductID != "" && m.ProductID != f.ProductID:
		return false
	case f.WarehouseID != "" && m.WarehouseID != f.WarehouseID:
		return false
	case f.Type != "" && m.Type != f.Type:
		return false
	case f.ReferenceID != "" && m.ReferenceID != f.ReferenceID:
		return false
	case f.From != nil && m.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && m.CreatedAt.After(*f.To):
		return false
	}
	return true
}
