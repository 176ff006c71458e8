package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LedgerUseCase operaciones de escritura sobre el inventario. Cada comando lee el registro
// fuera de la transacción, aplica la operación de dominio en memoria y persiste registro,
// movimiento y eventos en una sola transacción con compare-and-swap de versión.
type LedgerUseCase struct {
	tx         ports.TxRunner
	inventory  repository.InventoryRepository
	warehouses repository.WarehouseRepository
	cache      ports.ReportCache
	log        *logger.Logger
	retry      retry.Config
	now        ports.Clock
	tracer     trace.Tracer
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(
	tx ports.TxRunner,
	inventory repository.InventoryRepository,
	warehouses repository.WarehouseRepository,
	cache ports.ReportCache,
	log *logger.Logger,
	retryCfg retry.Config,
) *LedgerUseCase {
	return &LedgerUseCase{
		tx:         tx,
		inventory:  inventory,
		warehouses: warehouses,
		cache:      cache,
		log:        log.Named("ledger"),
		retry:      retryCfg,
		now:        ports.SystemClock,
		tracer:     otel.Tracer("github.com/jhoicas/stockflow/ledger"),
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *LedgerUseCase) WithClock(c ports.Clock) *LedgerUseCase {
	uc.now = c
	return uc
}

// Create da de alta un registro. Con cantidad inicial registra un INBOUND.
func (uc *LedgerUseCase) Create(ctx context.Context, cmd CreateCommand) (entity.InventoryState, error) {
	var out entity.InventoryState
	t := target{ProductID: cmd.ProductID, WarehouseID: cmd.WarehouseID}
	err := uc.run(ctx, "Create", t, nil, func(ctx context.Context) error {
		if err := uc.requireActiveWarehouse(ctx, cmd.WarehouseID); err != nil {
			return err
		}
		if _, err := uc.inventory.Find(ctx, cmd.ProductID, cmd.WarehouseID); err == nil {
			return domain.Errorf(domain.ErrConflict, "inventory.create", "ya existe inventario del producto %s en la bodega %s", cmd.ProductID, cmd.WarehouseID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		rec, mov, err := entity.NewInventoryRecord(entity.NewInventoryInput{
			ProductID:         cmd.ProductID,
			WarehouseID:       cmd.WarehouseID,
			Quantity:          cmd.Quantity,
			MinimumStockLevel: cmd.MinimumStockLevel,
			MaximumStockLevel: cmd.MaximumStockLevel,
			UnitCost:          cmd.UnitCost,
			Location:          cmd.Location,
		}, uc.now())
		if err != nil {
			return err
		}
		err = uc.tx.Run(ctx, func(repos ports.Repositories) error {
			if err := lockActiveWarehouse(ctx, repos, cmd.WarehouseID); err != nil {
				return err
			}
			if err := repos.Inventory.Insert(ctx, rec); err != nil {
				return err
			}
			if mov == nil {
				return nil
			}
			mov.WithActor(cmd.PerformedBy, cmd.Notes)
			return repos.Movements.Append(ctx, mov)
		})
		if err != nil {
			return err
		}
		out = rec.State()
		return nil
	})
	return out, err
}

// Reserve aparta stock para una orden (ReserveStock).
func (uc *LedgerUseCase) Reserve(ctx context.Context, cmd StockCommand) (entity.InventoryState, error) {
	return uc.stockOp(ctx, "Reserve", cmd, func(rec *entity.InventoryRecord, now time.Time) (entity.StockChange, error) {
		return rec.Reserve(cmd.Quantity, now)
	})
}

// Release libera una reserva, p. ej. por cancelación (ReleaseStock).
func (uc *LedgerUseCase) Release(ctx context.Context, cmd StockCommand) (entity.InventoryState, error) {
	return uc.stockOp(ctx, "Release", cmd, func(rec *entity.InventoryRecord, now time.Time) (entity.StockChange, error) {
		return rec.ReleaseReserved(cmd.Quantity, now)
	})
}

// Consume descuenta una reserva que salió de la bodega sin pasar por una unidad de pick-pack.
func (uc *LedgerUseCase) Consume(ctx context.Context, cmd StockCommand) (entity.InventoryState, error) {
	return uc.stockOp(ctx, "Consume", cmd, func(rec *entity.InventoryRecord, now time.Time) (entity.StockChange, error) {
		return rec.ReleaseAndReduce(cmd.Quantity, now)
	})
}

// Adjust ajuste manual de existencia (AdjustInventory).
func (uc *LedgerUseCase) Adjust(ctx context.Context, cmd AdjustCommand) (entity.InventoryState, error) {
	ref := Reference{Number: "ADJ-" + shortID(), PerformedBy: cmd.PerformedBy, Notes: cmd.Notes}
	return uc.byID(ctx, "Adjust", cmd.InventoryID, cmd.ExpectedVersion, ref, func(rec *entity.InventoryRecord, now time.Time) (entity.StockChange, error) {
		return rec.AdjustQuantity(cmd.Delta, now)
	})
}

// Count registra un conteo físico; la diferencia queda como CORRECTION.
func (uc *LedgerUseCase) Count(ctx context.Context, cmd CountCommand) (entity.InventoryState, error) {
	ref := Reference{Number: "CNT-" + shortID(), PerformedBy: cmd.PerformedBy, Notes: cmd.Notes}
	return uc.byID(ctx, "Count", cmd.InventoryID, cmd.ExpectedVersion, ref, func(rec *entity.InventoryRecord, now time.Time) (entity.StockChange, error) {
		return rec.RecordCount(cmd.Counted, now)
	})
}

// UpdateStockLevels cambia mínimo y máximo.
func (uc *LedgerUseCase) UpdateStockLevels(ctx context.Context, id string, minLevel, maxLevel int64, expected *int64) (entity.InventoryState, error) {
	return uc.metadata(ctx, "UpdateStockLevels", id, expected, func(rec *entity.InventoryRecord, now time.Time) (entity.DomainEvent, error) {
		return rec.UpdateStockLevels(minLevel, maxLevel, now)
	})
}

// UpdateUnitCost cambia el costo unitario.
func (uc *LedgerUseCase) UpdateUnitCost(ctx context.Context, id string, cost decimal.Decimal, expected *int64) (entity.InventoryState, error) {
	return uc.metadata(ctx, "UpdateUnitCost", id, expected, func(rec *entity.InventoryRecord, now time.Time) (entity.DomainEvent, error) {
		return rec.UpdateUnitCost(cost, now)
	})
}

// UpdateLocation cambia la ubicación física.
func (uc *LedgerUseCase) UpdateLocation(ctx context.Context, id, location string, expected *int64) (entity.InventoryState, error) {
	return uc.metadata(ctx, "UpdateLocation", id, expected, func(rec *entity.InventoryRecord, now time.Time) (entity.DomainEvent, error) {
		return rec.UpdateLocation(location, now), nil
	})
}

// Delete borrado lógico de un registro sin existencia.
func (uc *LedgerUseCase) Delete(ctx context.Context, id string, expected *int64) error {
	return uc.run(ctx, "Delete", target{InventoryID: id}, expected, func(ctx context.Context) error {
		rec, err := uc.load(ctx, id, expected)
		if err != nil {
			return err
		}
		if err := rec.MarkDeleted(uc.now()); err != nil {
			return err
		}
		return uc.tx.Run(ctx, func(repos ports.Repositories) error {
			return repos.Inventory.Update(ctx, rec)
		})
	})
}

// TransferResult ambos lados del traslado tras confirmar.
type TransferResult struct {
	ReferenceNumber string
	Source          entity.InventoryState
	Destination     entity.InventoryState
	Out             *entity.StockMovement
	In              *entity.StockMovement
}

// Transfer mueve existencia disponible entre bodegas (TransferInventory). Origen y destino se
// escriben en la misma transacción; si el destino no existe se crea. Un conflicto en cualquiera
// de los dos revierte todo.
func (uc *LedgerUseCase) Transfer(ctx context.Context, cmd TransferCommand) (TransferResult, error) {
	const op = "inventory.transfer"
	var res TransferResult
	t := target{ProductID: cmd.ProductID, WarehouseID: cmd.FromWarehouseID}
	if cmd.FromWarehouseID == cmd.ToWarehouseID {
		return res, domain.Errorf(domain.ErrInvalidInput, op, "origen y destino deben ser distintos")
	}
	if cmd.Quantity <= 0 {
		return res, domain.Errorf(domain.ErrInvalidInput, op, "la cantidad debe ser positiva")
	}
	err := uc.run(ctx, "Transfer", t, nil, func(ctx context.Context) error {
		for _, wh := range []string{cmd.FromWarehouseID, cmd.ToWarehouseID} {
			if err := uc.requireActiveWarehouse(ctx, wh); err != nil {
				return err
			}
		}
		src, err := uc.inventory.Find(ctx, cmd.ProductID, cmd.FromWarehouseID)
		if err != nil {
			return err
		}
		dst, err := uc.inventory.Find(ctx, cmd.ProductID, cmd.ToWarehouseID)
		created := false
		if errors.Is(err, domain.ErrNotFound) {
			created = true
		} else if err != nil {
			return err
		}

		now := uc.now()
		outCh, err := src.TransferOut(cmd.Quantity, cmd.ToWarehouseID, now)
		if err != nil {
			return err
		}
		if created {
			dst, _, err = entity.NewInventoryRecord(entity.NewInventoryInput{
				ProductID:   cmd.ProductID,
				WarehouseID: cmd.ToWarehouseID,
				UnitCost:    src.UnitCost(),
			}, now)
			if err != nil {
				return err
			}
		}
		inCh, err := dst.TransferIn(cmd.Quantity, cmd.FromWarehouseID, src.UnitCost(), now)
		if err != nil {
			return err
		}

		number := fmt.Sprintf("TRF-%s-%s", now.UTC().Format("20060102"), shortID())
		outCh.Movement.WithReference(number, inCh.Movement.ID).WithActor(cmd.PerformedBy, cmd.Notes)
		inCh.Movement.WithReference(number, outCh.Movement.ID).WithActor(cmd.PerformedBy, cmd.Notes)

		err = uc.tx.Run(ctx, func(repos ports.Repositories) error {
			if err := lockActiveWarehouse(ctx, repos, cmd.ToWarehouseID); err != nil {
				return err
			}
			if err := repos.Inventory.Update(ctx, src); err != nil {
				return err
			}
			if created {
				err = repos.Inventory.Insert(ctx, dst)
			} else {
				err = repos.Inventory.Update(ctx, dst)
			}
			if err != nil {
				return err
			}
			for _, ch := range []entity.StockChange{outCh, inCh} {
				if err := repos.Movements.Append(ctx, ch.Movement); err != nil {
					return err
				}
				if err := enqueue(ctx, repos.Outbox, ch.Events...); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		res = TransferResult{
			ReferenceNumber: number,
			Source:          src.State(),
			Destination:     dst.State(),
			Out:             outCh.Movement,
			In:              inCh.Movement,
		}
		return nil
	})
	return res, err
}

// ReleaseAndReduceInTx consume una reserva usando los repositorios de la transacción del llamador
// (despacho de una unidad de pick-pack). No reintenta: el conflicto lo maneja quien abrió la tx.
func (uc *LedgerUseCase) ReleaseAndReduceInTx(ctx context.Context, repos ports.Repositories, productID, warehouseID string, quantity int64, ref Reference, now time.Time) error {
	rec, err := repos.Inventory.Find(ctx, productID, warehouseID)
	if err != nil {
		return err
	}
	ch, err := rec.ReleaseAndReduce(quantity, now)
	if err != nil {
		uc.logFailure("ReleaseAndReduceInTx", target{InventoryID: rec.ID(), ProductID: productID, WarehouseID: warehouseID}, err)
		return err
	}
	return persist(ctx, repos, rec, ch, ref)
}

// ReleaseReservedInTx libera una reserva dentro de la transacción del llamador (cancelación).
func (uc *LedgerUseCase) ReleaseReservedInTx(ctx context.Context, repos ports.Repositories, productID, warehouseID string, quantity int64, ref Reference, now time.Time) error {
	rec, err := repos.Inventory.Find(ctx, productID, warehouseID)
	if err != nil {
		return err
	}
	ch, err := rec.ReleaseReserved(quantity, now)
	if err != nil {
		uc.logFailure("ReleaseReservedInTx", target{InventoryID: rec.ID(), ProductID: productID, WarehouseID: warehouseID}, err)
		return err
	}
	return persist(ctx, repos, rec, ch, ref)
}

// InvalidateReports descarta las proyecciones cacheadas tras una mutación confirmada fuera del ledger.
func (uc *LedgerUseCase) InvalidateReports(ctx context.Context) {
	if err := uc.cache.InvalidateStock(ctx); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo invalidar la caché de reportes")
	}
}

type target struct {
	InventoryID string
	ProductID   string
	WarehouseID string
}

func (uc *LedgerUseCase) stockOp(ctx context.Context, name string, cmd StockCommand, apply func(*entity.InventoryRecord, time.Time) (entity.StockChange, error)) (entity.InventoryState, error) {
	var out entity.InventoryState
	t := target{ProductID: cmd.ProductID, WarehouseID: cmd.WarehouseID}
	ref := Reference{Number: cmd.ReferenceNumber, ID: cmd.OrderID, PerformedBy: cmd.PerformedBy, Notes: cmd.Notes}
	err := uc.run(ctx, name, t, cmd.ExpectedVersion, func(ctx context.Context) error {
		if err := uc.requireActiveWarehouse(ctx, cmd.WarehouseID); err != nil {
			return err
		}
		rec, err := uc.inventory.Find(ctx, cmd.ProductID, cmd.WarehouseID)
		if err != nil {
			return err
		}
		if err := checkVersion(rec, cmd.ExpectedVersion); err != nil {
			return err
		}
		ch, err := apply(rec, uc.now())
		if err != nil {
			return err
		}
		if err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
			return persist(ctx, repos, rec, ch, ref)
		}); err != nil {
			return err
		}
		out = rec.State()
		return nil
	})
	return out, err
}

func (uc *LedgerUseCase) byID(ctx context.Context, name, id string, expected *int64, ref Reference, apply func(*entity.InventoryRecord, time.Time) (entity.StockChange, error)) (entity.InventoryState, error) {
	var out entity.InventoryState
	err := uc.run(ctx, name, target{InventoryID: id}, expected, func(ctx context.Context) error {
		rec, err := uc.load(ctx, id, expected)
		if err != nil {
			return err
		}
		if err := uc.requireActiveWarehouse(ctx, rec.WarehouseID()); err != nil {
			return err
		}
		ch, err := apply(rec, uc.now())
		if err != nil {
			return err
		}
		if err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
			if err := lockActiveWarehouse(ctx, repos, rec.WarehouseID()); err != nil {
				return err
			}
			return persist(ctx, repos, rec, ch, ref)
		}); err != nil {
			return err
		}
		out = rec.State()
		return nil
	})
	return out, err
}

func (uc *LedgerUseCase) metadata(ctx context.Context, name, id string, expected *int64, apply func(*entity.InventoryRecord, time.Time) (entity.DomainEvent, error)) (entity.InventoryState, error) {
	var out entity.InventoryState
	err := uc.run(ctx, name, target{InventoryID: id}, expected, func(ctx context.Context) error {
		rec, err := uc.load(ctx, id, expected)
		if err != nil {
			return err
		}
		ev, err := apply(rec, uc.now())
		if err != nil {
			return err
		}
		if err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
			if err := repos.Inventory.Update(ctx, rec); err != nil {
				return err
			}
			return enqueue(ctx, repos.Outbox, ev)
		}); err != nil {
			return err
		}
		out = rec.State()
		return nil
	})
	return out, err
}

// run envuelve un intento con span, reintento acotado ante conflictos y registro de fallas.
// Con expected != nil el comando no se reintenta.
func (uc *LedgerUseCase) run(ctx context.Context, name string, t target, expected *int64, attempt func(ctx context.Context) error) error {
	ctx, span := uc.tracer.Start(ctx, "ledger."+name, trace.WithAttributes(
		attribute.String("inventory.id", t.InventoryID),
		attribute.String("inventory.product_id", t.ProductID),
		attribute.String("inventory.warehouse_id", t.WarehouseID),
	))
	defer span.End()

	attempts, err := retry.Do(ctx, uc.retry, expected != nil, attempt)
	span.SetAttributes(attribute.Int("ledger.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logFailure(name, t, err)
		return err
	}
	uc.InvalidateReports(ctx)
	return nil
}

func (uc *LedgerUseCase) logFailure(name string, t target, err error) {
	var ev *zerolog.Event
	switch {
	case errors.Is(err, domain.ErrInvariantViolation):
		ev = uc.log.Error()
	case errors.Is(err, domain.ErrConcurrencyConflict):
		ev = uc.log.Warn()
	default:
		ev = uc.log.Debug()
	}
	ev.Err(err).
		Str("op", name).
		Str("inventory_id", t.InventoryID).
		Str("product_id", t.ProductID).
		Str("warehouse_id", t.WarehouseID).
		Msg("operación de inventario rechazada")
}

func (uc *LedgerUseCase) load(ctx context.Context, id string, expected *int64) (*entity.InventoryRecord, error) {
	rec, err := uc.inventory.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(rec, expected); err != nil {
		return nil, err
	}
	return rec, nil
}

func (uc *LedgerUseCase) requireActiveWarehouse(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Errorf(domain.ErrInvalidInput, "inventory", "la bodega es requerida")
	}
	wh, err := uc.warehouses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return requireActive(wh)
}

// lockActiveWarehouse repite la verificación dentro de la transacción con bloqueo compartido sobre
// la bodega. Las escrituras que suman existencia lo llaman antes de tocar inventario.
func lockActiveWarehouse(ctx context.Context, repos ports.Repositories, id string) error {
	wh, err := repos.Warehouses.LockForShare(ctx, id)
	if err != nil {
		return err
	}
	return requireActive(wh)
}

func requireActive(wh *entity.Warehouse) error {
	if !wh.IsActive {
		return domain.Errorf(domain.ErrInvalidInput, "inventory", "la bodega %s está inactiva", wh.Code)
	}
	return nil
}

func checkVersion(rec *entity.InventoryRecord, expected *int64) error {
	if expected != nil && *expected != rec.Version() {
		return domain.Errorf(domain.ErrConcurrencyConflict, "inventory", "versión esperada %d, actual %d", *expected, rec.Version())
	}
	return nil
}

// persist escribe registro, movimiento y eventos con los repositorios de la transacción.
func persist(ctx context.Context, repos ports.Repositories, rec *entity.InventoryRecord, ch entity.StockChange, ref Reference) error {
	if err := repos.Inventory.Update(ctx, rec); err != nil {
		return err
	}
	if ch.Movement != nil {
		ch.Movement.WithReference(ref.Number, ref.ID).WithActor(ref.PerformedBy, ref.Notes)
		if err := repos.Movements.Append(ctx, ch.Movement); err != nil {
			return err
		}
	}
	return enqueue(ctx, repos.Outbox, ch.Events...)
}

func enqueue(ctx context.Context, outbox repository.OutboxRepository, events ...entity.DomainEvent) error {
	for _, ev := range events {
		msg, err := entity.NewOutboxMessage(ev)
		if err != nil {
			return err
		}
		if err := outbox.Enqueue(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
