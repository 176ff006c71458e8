//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/fulfillment"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/outbox"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/application/warehouse"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/internal/infrastructure/cache"
	"github.com/jhoicas/stockflow/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow/pkg/logger"
)

var (
	sharedOnce sync.Once
	sharedDSN  string
	sharedErr  error
)

// testDB levanta un contenedor compartido, migra una vez y trunca las tablas en cada test.
func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	sharedOnce.Do(func() {
		var container *tcpostgres.PostgresContainer
		container, sharedErr = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("stockflow_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if sharedErr != nil {
			return
		}
		sharedDSN, sharedErr = container.ConnectionString(ctx, "sslmode=disable")
		if sharedErr != nil {
			return
		}
		sharedErr = postgres.Migrate(sharedDSN)
	})
	require.NoError(t, sharedErr, "no se pudo preparar PostgreSQL")

	pool, err := postgres.Connect(ctx, sharedDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE outbox_events, pick_pack_items, pick_pack_units, stock_movements, inventory_records, warehouses CASCADE`)
	require.NoError(t, err)
	return pool
}

type pgEnv struct {
	tx         ports.TxRunner
	repos      ports.Repositories
	ledger     *inventory.LedgerUseCase
	picks      *fulfillment.PickPackUseCase
	warehouses *warehouse.UseCase
}

func newPGEnv(t *testing.T) *pgEnv {
	pool := testDB(t)
	tx := postgres.NewTxRunner(pool)
	repos := postgres.NewRepositories(pool)
	cfg := retry.Config{MaxRetries: 50, InitialInterval: time.Millisecond}
	ledger := inventory.NewLedgerUseCase(tx, repos.Inventory, repos.Warehouses, cache.NoopCache{}, logger.Nop(), cfg)
	picks := fulfillment.NewPickPackUseCase(tx, repos.PickPacks, repos.Warehouses, ledger, nil, fulfillment.DefaultPolicy(), cfg, logger.Nop())
	return &pgEnv{tx: tx, repos: repos, ledger: ledger, picks: picks, warehouses: warehouse.NewUseCase(tx, repos.Warehouses, logger.Nop())}
}

func (e *pgEnv) warehouse(t *testing.T, code string) string {
	t.Helper()
	now := time.Now().UTC()
	w := &entity.Warehouse{ID: uuid.New().String(), Code: code, Name: code, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.repos.Warehouses.Create(context.Background(), w))
	return w.ID
}

func TestPostgres_ReservasConcurrentes(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)
	wh := e.warehouse(t, "MAIN")
	_, err := e.ledger.Create(ctx, inventory.CreateCommand{ProductID: "P-1", WarehouseID: wh, Quantity: 10})
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ledger.Reserve(ctx, inventory.StockCommand{ProductID: "P-1", WarehouseID: wh, Quantity: 1})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rec, err := e.repos.Inventory.Find(ctx, "P-1", wh)
	require.NoError(t, err)
	assert.Equal(t, 10, ok)
	assert.Equal(t, int64(10), rec.ReservedQuantity())

	_, total, err := e.repos.Movements.List(ctx, repository.MovementFilter{ProductID: "P-1", Type: entity.MovementTypeReservation}, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, ok, total)
}

func TestPostgres_TransferYReportes(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)
	a := e.warehouse(t, "A")
	b := e.warehouse(t, "B")
	_, err := e.ledger.Create(ctx, inventory.CreateCommand{ProductID: "P-1", WarehouseID: a, Quantity: 10, UnitCost: decimal.RequireFromString("12.5"), MinimumStockLevel: 7, MaximumStockLevel: 20})
	require.NoError(t, err)

	res, err := e.ledger.Transfer(ctx, inventory.TransferCommand{ProductID: "P-1", FromWarehouseID: a, ToWarehouseID: b, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Source.Quantity)
	assert.Equal(t, int64(4), res.Destination.Quantity)

	movs, err := e.repos.Movements.ListByReference(ctx, res.In.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeTransferOut, movs[0].Type)

	rows, err := e.repos.Inventory.StockReport(ctx, "P-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10), rows[0].Quantity)
	assert.True(t, decimal.NewFromInt(125).Equal(rows[0].TotalValue))

	low, total, err := e.repos.Inventory.ListLowStock(ctx, a, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "P-1", low[0].ProductID)

	pending, err := e.repos.Outbox.FetchPending(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.EventStockLevelLow, pending[0].EventType)
	require.NoError(t, e.repos.Outbox.MarkPublished(ctx, pending[0].ID))
	pending, err = e.repos.Outbox.FetchPending(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPostgres_DespachoYRestricciones(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)
	wh := e.warehouse(t, "MAIN")
	_, err := e.ledger.Create(ctx, inventory.CreateCommand{ProductID: "P-1", WarehouseID: wh, Quantity: 10})
	require.NoError(t, err)
	_, err = e.ledger.Reserve(ctx, inventory.StockCommand{ProductID: "P-1", WarehouseID: wh, Quantity: 2})
	require.NoError(t, err)

	u, err := e.picks.Create(ctx, fulfillment.CreateCommand{OrderID: "ORD-1", WarehouseID: wh, PackNumber: "PK-1",
		Items: []entity.NewPickPackItemInput{{OrderItemID: "OI-1", ProductID: "P-1", Quantity: 2}}})
	require.NoError(t, err)
	_, err = e.picks.Create(ctx, fulfillment.CreateCommand{OrderID: "ORD-2", WarehouseID: wh, PackNumber: "PK-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = e.picks.StartPicking(ctx, u.ID, "picker", nil)
	require.NoError(t, err)
	_, err = e.picks.MarkItemPicked(ctx, u.ID, u.Items[0].ID, "A-1")
	require.NoError(t, err)
	_, err = e.picks.CompletePicking(ctx, u.ID, nil)
	require.NoError(t, err)
	_, err = e.picks.StartPacking(ctx, u.ID, "packer", nil)
	require.NoError(t, err)
	_, err = e.picks.MarkItemPacked(ctx, u.ID, u.Items[0].ID)
	require.NoError(t, err)
	_, err = e.picks.CompletePacking(ctx, u.ID, fulfillment.CompletePackingCommand{Weight: decimal.RequireFromString("1.250"), PackageCount: 1}, nil)
	require.NoError(t, err)
	shipped, err := e.picks.Ship(ctx, u.ID, "dispatcher", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PickPackShipped, shipped.Status)
	assert.Equal(t, "A-1", shipped.Items[0].Location)

	rec, err := e.repos.Inventory.Find(ctx, "P-1", wh)
	require.NoError(t, err)
	assert.Equal(t, int64(8), rec.Quantity())
	assert.Equal(t, int64(0), rec.ReservedQuantity())

	units, total, err := e.picks.ListByOrder(ctx, "ORD-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, units[0].Items, 1)

	assert.ErrorIs(t, e.repos.Warehouses.Delete(ctx, wh), domain.ErrConflict, "la bodega tiene registros")
	assert.ErrorIs(t, e.repos.Warehouses.Delete(ctx, uuid.New().String()), domain.ErrNotFound)
}

func TestPostgres_IDMalFormado(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)
	wh := e.warehouse(t, "MAIN")

	_, err := e.repos.Inventory.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.repos.Inventory.Find(ctx, "P-1", "MAIN")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.repos.Warehouses.GetByID(ctx, "MAIN")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.repos.PickPacks.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.repos.Movements.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, e.repos.Warehouses.Delete(ctx, "abc"), domain.ErrNotFound)
	assert.ErrorIs(t, e.repos.Warehouses.SetActive(ctx, "abc", false, time.Now()), domain.ErrNotFound)

	_, err = e.ledger.Reserve(ctx, inventory.StockCommand{ProductID: "P-1", WarehouseID: "MAIN", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.ledger.Adjust(ctx, inventory.AdjustCommand{InventoryID: "abc", Delta: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items, total, err := e.repos.Inventory.ListLowStock(ctx, "MAIN", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)

	// un id válido sigue funcionando después de los fallos
	_, err = e.repos.Warehouses.GetByID(ctx, wh)
	require.NoError(t, err)
}

func TestPostgres_EdicionNoReactivaBodega(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)
	wh := e.warehouse(t, "NORTE")

	stale, err := e.repos.Warehouses.GetByID(ctx, wh)
	require.NoError(t, err)
	_, err = e.warehouses.Deactivate(ctx, wh)
	require.NoError(t, err)

	stale.Name = "Norte 2"
	stale.UpdatedAt = time.Now().UTC()
	require.NoError(t, e.repos.Warehouses.Update(ctx, stale))
	assert.False(t, stale.IsActive)

	got, err := e.repos.Warehouses.GetByID(ctx, wh)
	require.NoError(t, err)
	assert.Equal(t, "Norte 2", got.Name)
	assert.False(t, got.IsActive)
}

func TestPostgres_DesactivarContraEntradaConcurrente(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)

	for i := 0; i < 20; i++ {
		wh := e.warehouse(t, "W-"+uuid.New().String()[:8])
		rec, err := e.ledger.Create(ctx, inventory.CreateCommand{ProductID: "P-1", WarehouseID: wh})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.ledger.Adjust(ctx, inventory.AdjustCommand{InventoryID: rec.ID, Delta: 5})
		}()
		go func() {
			defer wg.Done()
			_, _ = e.warehouses.Deactivate(ctx, wh)
		}()
		wg.Wait()

		got, err := e.warehouses.GetByID(ctx, wh)
		require.NoError(t, err)
		stock, err := e.repos.Warehouses.StockTotal(ctx, wh)
		require.NoError(t, err)
		if !got.IsActive {
			assert.Zero(t, stock, "bodega inactiva con existencia (iteración %d)", i)
		}
	}

	_, err := e.warehouses.Update(ctx, uuid.New().String(), dto.UpdateWarehouseRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// slowPublisher cuenta entregas por mensaje y tarda lo suficiente para que los lotes se solapen.
type slowPublisher struct {
	mu   sync.Mutex
	sent map[string]int
}

func (p *slowPublisher) Publish(_ context.Context, msg *entity.OutboxMessage) error {
	time.Sleep(2 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[msg.ID]++
	return nil
}

func (p *slowPublisher) Close() error { return nil }

func TestPostgres_RelaysConcurrentesNoDuplican(t *testing.T) {
	ctx := context.Background()
	e := newPGEnv(t)
	for i := 0; i < 40; i++ {
		msg, err := entity.NewOutboxMessage(entity.InventoryUpdated{InventoryID: uuid.New().String(), Field: "location", At: time.Now().UTC()})
		require.NoError(t, err)
		require.NoError(t, e.repos.Outbox.Enqueue(ctx, msg))
	}

	pub := &slowPublisher{sent: map[string]int{}}
	cfg := outbox.Config{PollInterval: time.Hour, BatchSize: 5, MaxAttempts: 3}
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		relay := outbox.NewRelay(e.tx, pub, cfg, logger.Nop())
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n, err := relay.ProcessBatch(ctx)
				if err != nil || n == 0 {
					return
				}
			}
		}()
	}
	wg.Wait()

	// un relay puede terminar mientras otro aún tiene filas bloqueadas: se drena lo que quede
	last := outbox.NewRelay(e.tx, pub, cfg, logger.Nop())
	for {
		n, err := last.ProcessBatch(ctx)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	assert.Len(t, pub.sent, 40)
	for id, n := range pub.sent {
		assert.Equal(t, 1, n, "mensaje %s publicado %d veces", id, n)
	}
}
