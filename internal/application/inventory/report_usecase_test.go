package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/pkg/logger"
)

func TestReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.warehouse(t, "A", true)
	b := f.warehouse(t, "B", true)
	reports := inventory.NewReportUseCase(f.repos.Inventory, f.repos.Movements, f.cache, logger.Nop())

	for _, in := range []inventory.CreateCommand{
		{ProductID: "P-1", WarehouseID: a, Quantity: 2, MinimumStockLevel: 5, MaximumStockLevel: 10, UnitCost: decimal.NewFromInt(3)},
		{ProductID: "P-1", WarehouseID: b, Quantity: 8, UnitCost: decimal.NewFromInt(3)},
		{ProductID: "P-2", WarehouseID: a, Quantity: 20, MinimumStockLevel: 5, MaximumStockLevel: 50, UnitCost: decimal.NewFromInt(1)},
	} {
		_, err := f.ledger.Create(ctx, in)
		require.NoError(t, err)
	}

	t.Run("stock bajo", func(t *testing.T) {
		page, err := reports.ListLowStock(ctx, "", 0, 0)
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		assert.Equal(t, "P-1", page.Items[0].ProductID)
		assert.Equal(t, 20, page.Limit)

		page, err = reports.ListLowStock(ctx, b, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
	})

	t.Run("stock bajo se cachea hasta la siguiente mutación", func(t *testing.T) {
		first, err := reports.ListLowStock(ctx, a, 10, 0)
		require.NoError(t, err)
		require.Equal(t, 1, first.Total)

		_, err = f.ledger.Reserve(ctx, inventory.StockCommand{ProductID: "P-2", WarehouseID: a, Quantity: 16})
		require.NoError(t, err)
		_, err = f.ledger.Consume(ctx, inventory.StockCommand{ProductID: "P-2", WarehouseID: a, Quantity: 16})
		require.NoError(t, err)

		after, err := reports.ListLowStock(ctx, a, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, after.Total, "la mutación invalida la proyección")
	})

	t.Run("reporte por producto", func(t *testing.T) {
		rows, err := reports.StockReport(ctx, "P-1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(10), rows[0].Quantity)
		assert.Equal(t, int64(10), rows[0].AvailableQuantity)
		assert.Equal(t, 2, rows[0].WarehouseCount)
		assert.True(t, decimal.NewFromInt(30).Equal(rows[0].TotalValue))
	})

	t.Run("historial filtrado", func(t *testing.T) {
		page, err := reports.MovementHistory(ctx, repository.MovementFilter{ProductID: "P-2", Type: entity.MovementTypeOutbound}, 0, 0)
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		assert.Equal(t, int64(16), page.Items[0].Quantity)
	})

	t.Run("listado y paginación", func(t *testing.T) {
		page, err := reports.ListInventory(ctx, repository.InventoryFilter{WarehouseID: a}, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Len(t, page.Items, 1)

		page, err = reports.ListInventory(ctx, repository.InventoryFilter{}, 500, -3)
		require.NoError(t, err)
		assert.Equal(t, 100, page.Limit)
		assert.Equal(t, 0, page.Offset)
		assert.Len(t, page.Items, 3)
	})
}
