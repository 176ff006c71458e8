package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

var _ ports.TxRunner = (*Store)(nil)

// Store almacenamiento en proceso con la misma semántica de versión que PostgreSQL.
// Las transacciones trabajan sobre una copia que solo reemplaza el estado al confirmar;
// se serializan con el mutex del store.
type Store struct {
	mu   sync.Mutex
	data *data
}

type data struct {
	inventory  map[string]entity.InventoryState
	movements  []*entity.StockMovement
	pickpacks  map[string]entity.PickPackState
	warehouses map[string]entity.Warehouse
	outbox     []entity.OutboxMessage
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{data: &data{
		inventory:  map[string]entity.InventoryState{},
		pickpacks:  map[string]entity.PickPackState{},
		warehouses: map[string]entity.Warehouse{},
	}}
}

func (d *data) clone() *data {
	c := &data{
		inventory:  make(map[string]entity.InventoryState, len(d.inventory)),
		movements:  append([]*entity.StockMovement(nil), d.movements...),
		pickpacks:  make(map[string]entity.PickPackState, len(d.pickpacks)),
		warehouses: make(map[string]entity.Warehouse, len(d.warehouses)),
		outbox:     append([]entity.OutboxMessage(nil), d.outbox...),
	}
	for k, v := range d.inventory {
		c.inventory[k] = v
	}
	for k, v := range d.pickpacks {
		c.pickpacks[k] = v
	}
	for k, v := range d.warehouses {
		c.warehouses[k] = v
	}
	return c
}

// access ejecuta fn con acceso exclusivo al estado.
type access func(fn func(d *data) error) error

func (s *Store) locked(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Repositories repositorios fuera de transacción (cada llamada es atómica).
func (s *Store) Repositories() ports.Repositories {
	return bind(s.locked)
}

// Run ejecuta fn sobre una copia del estado; solo si fn no falla la copia pasa a ser el estado.
func (s *Store) Run(ctx context.Context, fn func(repos ports.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	err := fn(bind(func(f func(d *data) error) error { return f(work) }))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func bind(a access) ports.Repositories {
	return ports.Repositories{
		Inventory:  &InventoryRepo{do: a},
		Movements:  &MovementRepo{do: a},
		PickPacks:  &PickPackRepo{do: a},
		Warehouses: &WarehouseRepo{do: a},
		Outbox:     &OutboxRepo{do: a},
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
