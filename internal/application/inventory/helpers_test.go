package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/pkg/logger"
)

var fastRetry = retry.Config{MaxRetries: 50, InitialInterval: time.Millisecond}

type fixture struct {
	store  *memory.Store
	repos  ports.Repositories
	cache  *countingCache
	ledger *inventory.LedgerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{store: store, repos: store.Repositories(), cache: newCountingCache()}
	f.ledger = inventory.NewLedgerUseCase(store, f.repos.Inventory, f.repos.Warehouses, f.cache, logger.Nop(), fastRetry)
	return f
}

func (f *fixture) warehouse(t *testing.T, code string, active bool) string {
	t.Helper()
	w := &entity.Warehouse{ID: uuid.New().String(), Code: code, Name: code, IsActive: active}
	require.NoError(t, f.repos.Warehouses.Create(context.Background(), w))
	return w.ID
}

func (f *fixture) record(t *testing.T, productID, warehouseID string, qty int64) entity.InventoryState {
	t.Helper()
	s, err := f.ledger.Create(context.Background(), inventory.CreateCommand{
		ProductID: productID, WarehouseID: warehouseID, Quantity: qty, PerformedBy: "tester",
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) movements(t *testing.T, productID string) []*entity.StockMovement {
	t.Helper()
	items, _, err := f.repos.Movements.List(context.Background(), repository.MovementFilter{ProductID: productID}, 100, 0)
	require.NoError(t, err)
	return items
}

// countingCache caché en memoria que cuenta invalidaciones.
type countingCache struct {
	mu          sync.Mutex
	values      map[string]any
	invalidated atomic.Int64
}

func newCountingCache() *countingCache { return &countingCache{values: map[string]any{}} }

func (c *countingCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *inventory.InventoryPage:
		*d = v.(inventory.InventoryPage)
	default:
		return false, errors.New("tipo no soportado")
	}
	return true, nil
}

func (c *countingCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *countingCache) InvalidateStock(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = map[string]any{}
	c.invalidated.Add(1)
	return nil
}

// conflictingTx falla las primeras n transacciones con un conflicto de concurrencia.
type conflictingTx struct {
	inner ports.TxRunner
	left  atomic.Int64
	calls atomic.Int64
}

func (c *conflictingTx) Run(ctx context.Context, fn func(ports.Repositories) error) error {
	c.calls.Add(1)
	if c.left.Add(-1) >= 0 {
		return domain.Errorf(domain.ErrConcurrencyConflict, "test", "escritura concurrente simulada")
	}
	return c.inner.Run(ctx, fn)
}

// failingOutboxTx ejecuta fn con un outbox que siempre falla.
type failingOutboxTx struct {
	inner ports.TxRunner
}

func (f failingOutboxTx) Run(ctx context.Context, fn func(ports.Repositories) error) error {
	return f.inner.Run(ctx, func(repos ports.Repositories) error {
		repos.Outbox = brokenOutbox{repos.Outbox}
		repos.Movements = brokenMovements{repos.Movements}
		return fn(repos)
	})
}

var errBroken = errors.New("almacenamiento no disponible")

type brokenOutbox struct{ repository.OutboxRepository }

func (brokenOutbox) Enqueue(context.Context, *entity.OutboxMessage) error { return errBroken }

type brokenMovements struct{ repository.StockMovementRepository }

func (brokenMovements) Append(context.Context, *entity.StockMovement) error { return errBroken }
