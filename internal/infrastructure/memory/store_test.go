package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newRecord(t *testing.T, product, wh string, qty int64) (*entity.InventoryRecord, *entity.StockMovement) {
	t.Helper()
	rec, mov, err := entity.NewInventoryRecord(entity.NewInventoryInput{ProductID: product, WarehouseID: wh, Quantity: qty}, now)
	require.NoError(t, err)
	return rec, mov
}

func TestRun_RollbackDescartaTodo(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	boom := errors.New("boom")

	err := store.Run(ctx, func(tx ports.Repositories) error {
		rec, mov := newRecord(t, "P-1", "wh-1", 5)
		require.NoError(t, tx.Inventory.Insert(ctx, rec))
		require.NoError(t, tx.Movements.Append(ctx, mov))
		_, err := tx.Inventory.Find(ctx, "P-1", "wh-1")
		require.NoError(t, err, "la transacción ve sus propias escrituras")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repos.Inventory.Find(ctx, "P-1", "wh-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, total, err := repos.Movements.List(ctx, repository.MovementFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRun_ContextoCancelado(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := store.Run(ctx, func(ports.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInventory_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	rec, _ := newRecord(t, "P-1", "wh-1", 5)
	require.NoError(t, repos.Inventory.Insert(ctx, rec))

	dup, _ := newRecord(t, "P-1", "wh-1", 1)
	assert.ErrorIs(t, repos.Inventory.Insert(ctx, dup), domain.ErrConcurrencyConflict)

	a, err := repos.Inventory.Get(ctx, rec.ID())
	require.NoError(t, err)
	b, err := repos.Inventory.Get(ctx, rec.ID())
	require.NoError(t, err)

	_, err = a.Reserve(2, now)
	require.NoError(t, err)
	require.NoError(t, repos.Inventory.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version())

	_, err = b.Reserve(1, now)
	require.NoError(t, err)
	assert.ErrorIs(t, repos.Inventory.Update(ctx, b), domain.ErrConcurrencyConflict, "b leyó una versión vieja")

	got, err := repos.Inventory.Get(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ReservedQuantity())
}

func TestInventory_Proyecciones(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	for _, in := range []entity.NewInventoryInput{
		{ProductID: "P-1", WarehouseID: "a", Quantity: 1, MinimumStockLevel: 2, MaximumStockLevel: 10},
		{ProductID: "P-1", WarehouseID: "b", Quantity: 4},
		{ProductID: "P-2", WarehouseID: "a", Quantity: 9, MinimumStockLevel: 2, MaximumStockLevel: 10},
	} {
		rec, _, err := entity.NewInventoryRecord(in, now)
		require.NoError(t, err)
		require.NoError(t, repos.Inventory.Insert(ctx, rec))
	}

	low, total, err := repos.Inventory.ListLowStock(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "P-1", low[0].ProductID)

	rows, err := repos.Inventory.StockReport(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "P-1", rows[0].ProductID)
	assert.Equal(t, int64(5), rows[0].Quantity)
	assert.Equal(t, 2, rows[0].WarehouseCount)

	items, total, err := repos.Inventory.List(ctx, repository.InventoryFilter{WarehouseID: "a"}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 1)

	stock, err := repos.Warehouses.StockTotal(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stock)
}

func TestPickPacks(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	u, err := entity.NewPickPackUnit(entity.NewPickPackInput{
		OrderID: "ORD-1", WarehouseID: uuid.New().String(),
		Items: []entity.NewPickPackItemInput{{OrderItemID: "OI-1", ProductID: "P-1", Quantity: 2}},
	}, now)
	require.NoError(t, err)
	require.NoError(t, repos.PickPacks.Insert(ctx, u))

	got, err := repos.PickPacks.Get(ctx, u.ID())
	require.NoError(t, err)
	require.NoError(t, got.MarkItemPicked(got.Items()[0].ID(), "A-1", now))
	require.NoError(t, repos.PickPacks.Update(ctx, got))

	stale, err := repos.PickPacks.Get(ctx, u.ID())
	require.NoError(t, err)
	assert.True(t, stale.Items()[0].IsPicked(), "los ítems se reescriben con la unidad")
	assert.Equal(t, "A-1", stale.Items()[0].Location())

	assert.ErrorIs(t, repos.PickPacks.Update(ctx, u), domain.ErrConcurrencyConflict)

	units, total, err := repos.PickPacks.ListByOrder(ctx, "ORD-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, u.PackNumber(), units[0].PackNumber())
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	msg, err := entity.NewOutboxMessage(entity.InventoryUpdated{InventoryID: "inv-1", Field: "location", At: now})
	require.NoError(t, err)
	require.NoError(t, repos.Outbox.Enqueue(ctx, msg))

	require.NoError(t, repos.Outbox.MarkFailed(ctx, msg.ID, "timeout"))
	pending, err := repos.Outbox.FetchPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, repos.Outbox.MarkPublished(ctx, msg.ID))
	pending, err = repos.Outbox.FetchPending(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repos.Outbox.MarkPublished(ctx, "nope"), domain.ErrNotFound)
}
