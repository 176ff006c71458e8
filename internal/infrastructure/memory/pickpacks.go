package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.PickPackRepository = (*PickPackRepo)(nil)

// PickPackRepo unidades de pick-pack en memoria.
type PickPackRepo struct {
	do access
}

func (r *PickPackRepo) Insert(_ context.Context, u *entity.PickPackUnit) error {
	return r.do(func(d *data) error {
		for _, s := range d.pickpacks {
			if s.PackNumber == u.PackNumber() {
				return domain.Errorf(domain.ErrDuplicate, "pickpack.insert", "el número de empaque %s ya existe", u.PackNumber())
			}
		}
		d.pickpacks[u.ID()] = u.State()
		return nil
	})
}

func (r *PickPackRepo) Get(_ context.Context, id string) (*entity.PickPackUnit, error) {
	var out *entity.PickPackUnit
	err := r.do(func(d *data) error {
		s, ok := d.pickpacks[id]
		if !ok || s.DeletedAt != nil {
			return domain.Errorf(domain.ErrNotFound, "pickpack", "pick-pack %s no existe", id)
		}
		out = entity.RestorePickPackUnit(s)
		return nil
	})
	return out, err
}

func (r *PickPackRepo) Update(_ context.Context, u *entity.PickPackUnit) error {
	return r.do(func(d *data) error {
		cur, ok := d.pickpacks[u.ID()]
		if !ok {
			return domain.Errorf(domain.ErrNotFound, "pickpack.update", "pick-pack %s no existe", u.ID())
		}
		if cur.Version != u.Version() {
			return domain.Errorf(domain.ErrConcurrencyConflict, "pickpack.update", "versión %d obsoleta (actual %d)", u.Version(), cur.Version)
		}
		s := u.State()
		s.Version = cur.Version + 1
		d.pickpacks[u.ID()] = s
		u.AdvanceVersion()
		return nil
	})
}

func (r *PickPackRepo) ListByOrder(_ context.Context, orderID string, limit, offset int) ([]*entity.PickPackUnit, int, error) {
	var (
		page  []*entity.PickPackUnit
		total int
	)
	err := r.do(func(d *data) error {
		var all []entity.PickPackState
		for _, s := range d.pickpacks {
			if s.DeletedAt == nil && s.OrderID == orderID {
				all = append(all, s)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
		total = len(all)
		for _, s := range paginate(all, limit, offset) {
			page = append(page, entity.RestorePickPackUnit(s))
		}
		return nil
	})
	return page, total, err
}
