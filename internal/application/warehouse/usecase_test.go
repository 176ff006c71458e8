package warehouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/application/warehouse"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/infrastructure/cache"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/pkg/logger"
)

func newUseCase(store *memory.Store) *warehouse.UseCase {
	return warehouse.NewUseCase(store, store.Repositories().Warehouses, logger.Nop())
}

// deactivatingTx desactiva la bodega justo antes de abrir la primera transacción, como lo haría
// una petición concurrente que llega entre la lectura y la escritura del ledger.
type deactivatingTx struct {
	store       *memory.Store
	warehouseID string
	done        bool
}

func (d *deactivatingTx) Run(ctx context.Context, fn func(repos ports.Repositories) error) error {
	if !d.done {
		d.done = true
		if err := d.store.Repositories().Warehouses.SetActive(ctx, d.warehouseID, false, time.Now()); err != nil {
			return err
		}
	}
	return d.store.Run(ctx, fn)
}

func TestCreateYConsulta(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(memory.NewStore())

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: " bog-01 ", Name: "Bogotá", Capacity: 100})
	require.NoError(t, err)
	assert.Equal(t, "BOG-01", w.Code)
	assert.True(t, w.IsActive)

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "BOG-01", Name: "Otra"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	for _, in := range []dto.CreateWarehouseRequest{
		{Code: "", Name: "x"},
		{Code: "X", Name: "  "},
		{Code: "X", Name: "x", Capacity: -1},
	} {
		_, err = uc.Create(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	got, err := uc.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bogotá", got.Name)

	_, err = uc.GetByID(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(memory.NewStore())
	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "MED", Name: "Medellín"})
	require.NoError(t, err)

	name, addr, capacity := "Medellín Norte", "Cra 1 # 2-3", int64(50)
	got, err := uc.Update(ctx, w.ID, dto.UpdateWarehouseRequest{Name: &name, Address: &addr, Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, capacity, got.Capacity)

	empty := " "
	_, err = uc.Update(ctx, w.ID, dto.UpdateWarehouseRequest{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListYActivacion(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(memory.NewStore())
	a, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "A", Name: "Alfa"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "B", Name: "Beta"})
	require.NoError(t, err)

	off, err := uc.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	active, err := uc.List(ctx, true, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, active.Page.Total)
	assert.Equal(t, "B", active.Items[0].Code)

	all, err := uc.List(ctx, false, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Page.Total)

	on, err := uc.Activate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
}

func TestBodegaConExistencia(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	uc := newUseCase(store)
	ledger := inventory.NewLedgerUseCase(store, repos.Inventory, repos.Warehouses, cache.NoopCache{}, logger.Nop(), retry.Default())

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "CALI", Name: "Cali"})
	require.NoError(t, err)
	rec, err := ledger.Create(ctx, inventory.CreateCommand{ProductID: "P-1", WarehouseID: w.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = uc.Deactivate(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrWarehouseHasStock)
	assert.ErrorIs(t, uc.Delete(ctx, w.ID), domain.ErrConflict)

	_, err = ledger.Adjust(ctx, inventory.AdjustCommand{InventoryID: rec.ID, Delta: -3})
	require.NoError(t, err)
	require.NoError(t, uc.Delete(ctx, w.ID))
	_, err = uc.GetByID(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_NoReactivaConLecturaVieja(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	uc := newUseCase(store)
	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "PAS", Name: "Pasto"})
	require.NoError(t, err)

	stale, err := repos.Warehouses.GetByID(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, stale.IsActive)

	_, err = uc.Deactivate(ctx, w.ID)
	require.NoError(t, err)

	stale.Name = "Pasto Centro"
	require.NoError(t, repos.Warehouses.Update(ctx, stale))
	assert.False(t, stale.IsActive, "Update refresca el estado almacenado")

	got, err := uc.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pasto Centro", got.Name)
	assert.False(t, got.IsActive, "la edición no deshace la desactivación")
}

func TestDeactivate_ConcurrenteConEntradaDeExistencia(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	uc := newUseCase(store)
	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "IBA", Name: "Ibagué"})
	require.NoError(t, err)

	tx := &deactivatingTx{store: store, warehouseID: w.ID}
	ledger := inventory.NewLedgerUseCase(tx, repos.Inventory, repos.Warehouses, cache.NoopCache{}, logger.Nop(), retry.Default())

	_, err = ledger.Create(ctx, inventory.CreateCommand{ProductID: "P-1", WarehouseID: w.ID, Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = repos.Inventory.Find(ctx, "P-1", w.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "no queda existencia en una bodega inactiva")
	stock, err := repos.Warehouses.StockTotal(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, stock)
}

func TestDeactivate_Idempotente(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(memory.NewStore())
	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "TUN", Name: "Tunja"})
	require.NoError(t, err)

	for range 2 {
		off, err := uc.Deactivate(ctx, w.ID)
		require.NoError(t, err)
		assert.False(t, off.IsActive)
	}
	_, err = uc.Deactivate(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
