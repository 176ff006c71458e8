package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

const warehouseColumns = `id, code, name, address, capacity, is_active, created_at, updated_at`

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// Create persiste una nueva bodega.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	query := `INSERT INTO warehouses (` + warehouseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, w.ID, w.Code, w.Name, w.Address, w.Capacity, w.IsActive, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrDuplicate, "warehouse.create", "el código %s ya existe", w.Code)
		}
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.get(ctx, id, "")
}

// LockForUpdate SELECT ... FOR UPDATE; lo usan desactivación y borrado.
func (r *WarehouseRepo) LockForUpdate(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

// LockForShare FOR KEY SHARE: bloquea contra FOR UPDATE y DELETE pero no contra ediciones de nombre.
func (r *WarehouseRepo) LockForShare(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.get(ctx, id, " FOR KEY SHARE")
}

func (r *WarehouseRepo) get(ctx context.Context, id, lock string) (*entity.Warehouse, error) {
	w, err := scanWarehouse(r.q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`+lock, id))
	if err != nil {
		if isMissing(err) {
			return nil, domain.Errorf(domain.ErrNotFound, "warehouse", "bodega %s no existe", id)
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return w, nil
}

// Update actualiza los datos descriptivos; is_active no se toca.
func (r *WarehouseRepo) Update(ctx context.Context, w *entity.Warehouse) error {
	query := `
		UPDATE warehouses SET code = $2, name = $3, address = $4, capacity = $5, updated_at = $6
		WHERE id = $1
		RETURNING is_active`
	err := r.q.QueryRow(ctx, query, w.ID, w.Code, w.Name, w.Address, w.Capacity, w.UpdatedAt).Scan(&w.IsActive)
	if err != nil {
		if isMissing(err) {
			return domain.Errorf(domain.ErrNotFound, "warehouse.update", "bodega %s no existe", w.ID)
		}
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrDuplicate, "warehouse.update", "el código %s ya existe", w.Code)
		}
		return fmt.Errorf("update warehouse: %w", err)
	}
	return nil
}

// SetActive cambia solo el estado activo.
func (r *WarehouseRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `UPDATE warehouses SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return domain.Errorf(domain.ErrNotFound, "warehouse.set_active", "bodega %s no existe", id)
		}
		return fmt.Errorf("set warehouse active: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "warehouse.set_active", "bodega %s no existe", id)
	}
	return nil
}

// List lista bodegas por nombre con paginación y total.
func (r *WarehouseRepo) List(ctx context.Context, onlyActive bool, limit, offset int) ([]*entity.Warehouse, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses WHERE (NOT $1 OR is_active)`, onlyActive).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count warehouses: %w", err)
	}
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE (NOT $1 OR is_active)
		ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, onlyActive, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()
	list := []*entity.Warehouse{}
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan warehouse: %w", err)
		}
		list = append(list, w)
	}
	return list, total, rows.Err()
}

// Delete elimina una bodega por ID. Si aún hay registros que la referencian devuelve ErrConflict.
func (r *WarehouseRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return domain.Errorf(domain.ErrNotFound, "warehouse.delete", "bodega %s no existe", id)
		}
		if isForeignKeyViolation(err) {
			return domain.Errorf(domain.ErrConflict, "warehouse.delete", "la bodega %s tiene registros asociados", id)
		}
		return fmt.Errorf("delete warehouse: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "warehouse.delete", "bodega %s no existe", id)
	}
	return nil
}

// StockTotal existencia total de los registros vivos de la bodega.
func (r *WarehouseRepo) StockTotal(ctx context.Context, warehouseID string) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(quantity), 0)::bigint FROM inventory_records WHERE warehouse_id = $1 AND deleted_at IS NULL`
	if err := r.q.QueryRow(ctx, query, warehouseID).Scan(&total); err != nil {
		return 0, fmt.Errorf("warehouse stock total: %w", err)
	}
	return total, nil
}

func scanWarehouse(row pgx.Row) (*entity.Warehouse, error) {
	var w entity.Warehouse
	if err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.Capacity, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
