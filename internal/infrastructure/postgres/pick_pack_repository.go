package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.PickPackRepository = (*PickPackRepo)(nil)

const pickPackColumns = `id, order_id, warehouse_id, pack_number, status, picked_by_user_id, packed_by_user_id,
	picked_at, packed_at, shipped_at, weight, dimensions, package_count, notes,
	version, created_at, updated_at, deleted_at`

// PickPackRepo unidades de pick-pack (pick_pack_units) y sus ítems (pick_pack_items).
type PickPackRepo struct {
	q Querier
}

// NewPickPackRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPickPackRepository(q Querier) *PickPackRepo {
	return &PickPackRepo{q: q}
}

// Insert guarda la unidad y sus ítems. Debe llamarse dentro de una transacción.
func (r *PickPackRepo) Insert(ctx context.Context, u *entity.PickPackUnit) error {
	s := u.State()
	query := `INSERT INTO pick_pack_units (` + pickPackColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.OrderID, s.WarehouseID, s.PackNumber, string(s.Status), s.PickedByUserID, s.PackedByUserID,
		s.PickedAt, s.PackedAt, s.ShippedAt, s.Weight, s.Dimensions, s.PackageCount, s.Notes,
		s.Version, s.CreatedAt, s.UpdatedAt, s.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrDuplicate, "pickpack.insert", "el número de empaque %s ya existe", s.PackNumber)
		}
		return fmt.Errorf("insert pick pack: %w", err)
	}
	itemQuery := `
		INSERT INTO pick_pack_items (id, pick_pack_id, order_item_id, product_id, quantity, is_picked, is_packed, location, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, it := range s.Items {
		if _, err := r.q.Exec(ctx, itemQuery,
			it.ID, s.ID, it.OrderItemID, it.ProductID, it.Quantity, it.IsPicked, it.IsPacked, it.Location, i,
		); err != nil {
			return fmt.Errorf("insert pick pack item: %w", err)
		}
	}
	return nil
}

func (r *PickPackRepo) Get(ctx context.Context, id string) (*entity.PickPackUnit, error) {
	query := `SELECT ` + pickPackColumns + ` FROM pick_pack_units WHERE id = $1 AND deleted_at IS NULL`
	s, err := scanPickPack(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isMissing(err) {
			return nil, domain.Errorf(domain.ErrNotFound, "pickpack", "pick-pack %s no existe", id)
		}
		return nil, fmt.Errorf("get pick pack: %w", err)
	}
	if s.Items, err = r.items(ctx, s.ID); err != nil {
		return nil, err
	}
	return entity.RestorePickPackUnit(s), nil
}

// Update compara versión sobre la unidad; los ítems solo cambian sus banderas y ubicación.
func (r *PickPackRepo) Update(ctx context.Context, u *entity.PickPackUnit) error {
	s := u.State()
	query := `
		UPDATE pick_pack_units SET
			status = $3, picked_by_user_id = $4, packed_by_user_id = $5, picked_at = $6, packed_at = $7,
			shipped_at = $8, weight = $9, dimensions = $10, package_count = $11, notes = $12,
			updated_at = $13, deleted_at = $14, version = version + 1
		WHERE id = $1 AND version = $2`
	cmd, err := r.q.Exec(ctx, query,
		s.ID, s.Version, string(s.Status), s.PickedByUserID, s.PackedByUserID, s.PickedAt, s.PackedAt,
		s.ShippedAt, s.Weight, s.Dimensions, s.PackageCount, s.Notes, s.UpdatedAt, s.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update pick pack: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrConcurrencyConflict, "pickpack.update", "la unidad %s cambió o no existe (versión %d)", s.ID, s.Version)
	}
	itemQuery := `UPDATE pick_pack_items SET is_picked = $2, is_packed = $3, location = $4 WHERE id = $1`
	for _, it := range s.Items {
		if _, err := r.q.Exec(ctx, itemQuery, it.ID, it.IsPicked, it.IsPacked, it.Location); err != nil {
			return fmt.Errorf("update pick pack item: %w", err)
		}
	}
	u.AdvanceVersion()
	return nil
}

func (r *PickPackRepo) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]*entity.PickPackUnit, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM pick_pack_units WHERE order_id = $1 AND deleted_at IS NULL`, orderID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pick packs: %w", err)
	}
	query := `SELECT ` + pickPackColumns + ` FROM pick_pack_units
		WHERE order_id = $1 AND deleted_at IS NULL ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, orderID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list pick packs: %w", err)
	}
	var states []entity.PickPackState
	for rows.Next() {
		s, err := scanPickPack(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan pick pack: %w", err)
		}
		states = append(states, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list pick packs: %w", err)
	}

	// Los ítems se leen después de cerrar rows: una conexión no admite dos consultas abiertas.
	list := make([]*entity.PickPackUnit, 0, len(states))
	for _, s := range states {
		if s.Items, err = r.items(ctx, s.ID); err != nil {
			return nil, 0, err
		}
		list = append(list, entity.RestorePickPackUnit(s))
	}
	return list, total, nil
}

func (r *PickPackRepo) items(ctx context.Context, pickPackID string) ([]entity.PickPackItemState, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_item_id, product_id, quantity, is_picked, is_packed, location
		FROM pick_pack_items WHERE pick_pack_id = $1 ORDER BY position`, pickPackID)
	if err != nil {
		return nil, fmt.Errorf("list pick pack items: %w", err)
	}
	defer rows.Close()
	var items []entity.PickPackItemState
	for rows.Next() {
		var it entity.PickPackItemState
		if err := rows.Scan(&it.ID, &it.OrderItemID, &it.ProductID, &it.Quantity, &it.IsPicked, &it.IsPacked, &it.Location); err != nil {
			return nil, fmt.Errorf("scan pick pack item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanPickPack(row pgx.Row) (entity.PickPackState, error) {
	var (
		s      entity.PickPackState
		status string
	)
	err := row.Scan(
		&s.ID, &s.OrderID, &s.WarehouseID, &s.PackNumber, &status, &s.PickedByUserID, &s.PackedByUserID,
		&s.PickedAt, &s.PackedAt, &s.ShippedAt, &s.Weight, &s.Dimensions, &s.PackageCount, &s.Notes,
		&s.Version, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	s.Status = entity.PickPackStatus(status)
	return s, err
}
