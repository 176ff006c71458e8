package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

const inventoryColumns = `id, product_id, warehouse_id, quantity, reserved_quantity,
	minimum_stock_level, maximum_stock_level, unit_cost, location,
	last_restocked_at, last_counted_at, version, created_at, updated_at, deleted_at`

// InventoryRepo registros de inventario sobre PostgreSQL con compare-and-swap por versión.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

func (r *InventoryRepo) Get(ctx context.Context, id string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_records WHERE id = $1 AND deleted_at IS NULL`
	s, err := scanInventory(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isMissing(err) {
			return nil, domain.Errorf(domain.ErrNotFound, "inventory", "inventario %s no existe", id)
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return entity.RestoreInventoryRecord(s), nil
}

func (r *InventoryRepo) Find(ctx context.Context, productID, warehouseID string) (*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_records
		WHERE product_id = $1 AND warehouse_id = $2 AND deleted_at IS NULL`
	s, err := scanInventory(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		if isMissing(err) {
			return nil, domain.Errorf(domain.ErrNotFound, "inventory", "no hay inventario del producto %s en la bodega %s", productID, warehouseID)
		}
		return nil, fmt.Errorf("find inventory: %w", err)
	}
	return entity.RestoreInventoryRecord(s), nil
}

// Insert la unicidad (producto, bodega) la garantiza el índice parcial ux_inventory_product_warehouse.
func (r *InventoryRepo) Insert(ctx context.Context, rec *entity.InventoryRecord) error {
	s := rec.State()
	query := `
		INSERT INTO inventory_records (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.ProductID, s.WarehouseID, s.Quantity, s.ReservedQuantity,
		s.MinimumStockLevel, s.MaximumStockLevel, s.UnitCost, s.Location,
		s.LastRestockedAt, s.LastCountedAt, s.Version, s.CreatedAt, s.UpdatedAt, s.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrConcurrencyConflict, "inventory.insert", "ya existe un registro para el producto %s en la bodega %s", s.ProductID, s.WarehouseID)
		}
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// Update escribe solo si la versión en base coincide con la del registro cargado.
func (r *InventoryRepo) Update(ctx context.Context, rec *entity.InventoryRecord) error {
	s := rec.State()
	query := `
		UPDATE inventory_records SET
			quantity = $3, reserved_quantity = $4, minimum_stock_level = $5, maximum_stock_level = $6,
			unit_cost = $7, location = $8, last_restocked_at = $9, last_counted_at = $10,
			updated_at = $11, deleted_at = $12, version = version + 1
		WHERE id = $1 AND version = $2`
	cmd, err := r.q.Exec(ctx, query,
		s.ID, s.Version, s.Quantity, s.ReservedQuantity, s.MinimumStockLevel, s.MaximumStockLevel,
		s.UnitCost, s.Location, s.LastRestockedAt, s.LastCountedAt, s.UpdatedAt, s.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrConcurrencyConflict, "inventory.update", "el registro %s cambió o no existe (versión %d)", s.ID, s.Version)
	}
	rec.AdvanceVersion()
	return nil
}

func (r *InventoryRepo) List(ctx context.Context, filter repository.InventoryFilter, limit, offset int) ([]entity.InventoryState, int, error) {
	where := `deleted_at IS NULL AND ($1 = '' OR product_id = $1) AND ($2 = '' OR warehouse_id::text = $2)`
	return r.list(ctx, where, []any{filter.ProductID, filter.WarehouseID}, limit, offset)
}

func (r *InventoryRepo) ListLowStock(ctx context.Context, warehouseID string, limit, offset int) ([]entity.InventoryState, int, error) {
	where := `deleted_at IS NULL AND maximum_stock_level > 0 AND quantity <= minimum_stock_level
		AND ($1 = '' OR warehouse_id::text = $1)`
	return r.list(ctx, where, []any{warehouseID}, limit, offset)
}

func (r *InventoryRepo) StockReport(ctx context.Context, productID string) ([]repository.StockReportRow, error) {
	query := `
		SELECT product_id,
			SUM(quantity)::bigint,
			SUM(reserved_quantity)::bigint,
			SUM(quantity * unit_cost),
			COUNT(*)
		FROM inventory_records
		WHERE deleted_at IS NULL AND ($1 = '' OR product_id = $1)
		GROUP BY product_id
		ORDER BY product_id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("stock report: %w", err)
	}
	defer rows.Close()
	var out []repository.StockReportRow
	for rows.Next() {
		var row repository.StockReportRow
		if err := rows.Scan(&row.ProductID, &row.Quantity, &row.ReservedQuantity, &row.TotalValue, &row.WarehouseCount); err != nil {
			return nil, fmt.Errorf("scan stock report: %w", err)
		}
		row.AvailableQuantity = row.Quantity - row.ReservedQuantity
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *InventoryRepo) list(ctx context.Context, where string, args []any, limit, offset int) ([]entity.InventoryState, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM inventory_records WHERE %s
		ORDER BY product_id, warehouse_id LIMIT $%d OFFSET $%d`, inventoryColumns, where, n+1, n+2)
	rows, err := r.q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	list := []entity.InventoryState{}
	for rows.Next() {
		s, err := scanInventory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan inventory: %w", err)
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

func scanInventory(row pgx.Row) (entity.InventoryState, error) {
	var s entity.InventoryState
	err := row.Scan(
		&s.ID, &s.ProductID, &s.WarehouseID, &s.Quantity, &s.ReservedQuantity,
		&s.MinimumStockLevel, &s.MaximumStockLevel, &s.UnitCost, &s.Location,
		&s.LastRestockedAt, &s.LastCountedAt, &s.Version, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	return s, err
}
