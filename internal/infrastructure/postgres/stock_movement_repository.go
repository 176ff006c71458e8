package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, inventory_id, product_id, warehouse_id, type, quantity, quantity_before, quantity_after,
	reference_number, reference_id, performed_by, notes,
	COALESCE(from_warehouse_id::text, ''), COALESCE(to_warehouse_id::text, ''), created_at`

// StockMovementRepo bitácora append-only sobre la tabla stock_movements.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO stock_movements (id, inventory_id, product_id, warehouse_id, type, quantity,
			quantity_before, quantity_after, reference_number, reference_id, performed_by, notes,
			from_warehouse_id, to_warehouse_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.InventoryID, m.ProductID, m.WarehouseID, string(m.Type), m.Quantity,
		m.QuantityBefore, m.QuantityAfter, m.ReferenceNumber, m.ReferenceID, m.PerformedBy, m.Notes,
		nullIfEmpty(m.FromWarehouseID), nullIfEmpty(m.ToWarehouseID), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return nil, domain.Errorf(domain.ErrNotFound, "movement", "movimiento %s no existe", id)
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// List arma el WHERE según los filtros presentes; más reciente primero.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter, limit, offset int) ([]*entity.StockMovement, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id::text = $%d", f.WarehouseID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.ReferenceID != "" {
		add("reference_id = $%d", f.ReferenceID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	where := "TRUE"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock movements: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM stock_movements WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		movementColumns, where, len(args)+1, len(args)+2)
	list, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *StockMovementRepo) ListByReference(ctx context.Context, referenceID string) ([]*entity.StockMovement, error) {
	return r.query(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE reference_id = $1 ORDER BY created_at, id`, referenceID)
}

func (r *StockMovementRepo) query(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	list := []*entity.StockMovement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m   entity.StockMovement
		typ string
	)
	err := row.Scan(
		&m.ID, &m.InventoryID, &m.ProductID, &m.WarehouseID, &typ, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter,
		&m.ReferenceNumber, &m.ReferenceID, &m.PerformedBy, &m.Notes,
		&m.FromWarehouseID, &m.ToWarehouseID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	return &m, nil
}
