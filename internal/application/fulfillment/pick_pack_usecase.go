package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Policy reglas configurables de completitud y cancelación.
type Policy struct {
	entity.CompletionRules
	// ReleaseReservationOnCancel libera la reserva de cada ítem al cancelar.
	ReleaseReservationOnCancel bool
}

// DefaultPolicy exige ítems marcados y no toca reservas al cancelar.
func DefaultPolicy() Policy {
	return Policy{CompletionRules: entity.CompletionRules{RequireAllItemsPicked: true, RequireAllItemsPacked: true}}
}

// StockLedger operaciones del ledger que el despacho y la cancelación ejecutan en su propia transacción.
type StockLedger interface {
	ReleaseAndReduceInTx(ctx context.Context, repos ports.Repositories, productID, warehouseID string, quantity int64, ref inventory.Reference, now time.Time) error
	ReleaseReservedInTx(ctx context.Context, repos ports.Repositories, productID, warehouseID string, quantity int64, ref inventory.Reference, now time.Time) error
	InvalidateReports(ctx context.Context)
}

// PackingSlipRenderer genera el documento de empaque.
type PackingSlipRenderer interface {
	Render(unit entity.PickPackState) ([]byte, error)
}

// PickPackUseCase flujo de alistamiento, empaque y despacho.
type PickPackUseCase struct {
	tx         ports.TxRunner
	units      repository.PickPackRepository
	warehouses repository.WarehouseRepository
	ledger     StockLedger
	slips      PackingSlipRenderer
	policy     Policy
	retry      retry.Config
	log        *logger.Logger
	now        ports.Clock
	tracer     trace.Tracer
}

// NewPickPackUseCase construye el caso de uso.
func NewPickPackUseCase(
	tx ports.TxRunner,
	units repository.PickPackRepository,
	warehouses repository.WarehouseRepository,
	ledger StockLedger,
	slips PackingSlipRenderer,
	policy Policy,
	retryCfg retry.Config,
	log *logger.Logger,
) *PickPackUseCase {
	return &PickPackUseCase{
		tx:         tx,
		units:      units,
		warehouses: warehouses,
		ledger:     ledger,
		slips:      slips,
		policy:     policy,
		retry:      retryCfg,
		log:        log.Named("pickpack"),
		now:        ports.SystemClock,
		tracer:     otel.Tracer("github.com/jhoicas/stockflow/pickpack"),
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *PickPackUseCase) WithClock(c ports.Clock) *PickPackUseCase {
	uc.now = c
	return uc
}

// Policy política vigente.
func (uc *PickPackUseCase) Policy() Policy { return uc.policy }

// CreateCommand alta de una unidad con los ítems de la orden.
type CreateCommand struct {
	OrderID     string
	WarehouseID string
	PackNumber  string
	Notes       string
	Items       []entity.NewPickPackItemInput
}

// CompletePackingCommand datos del paquete al cerrar el empaque.
type CompletePackingCommand struct {
	Weight       decimal.Decimal
	Dimensions   string
	PackageCount int
}

// Create crea la unidad en PENDING (CreatePickPack).
func (uc *PickPackUseCase) Create(ctx context.Context, cmd CreateCommand) (entity.PickPackState, error) {
	ctx, span := uc.tracer.Start(ctx, "pickpack.Create", trace.WithAttributes(attribute.String("pickpack.order_id", cmd.OrderID)))
	defer span.End()

	wh, err := uc.warehouses.GetByID(ctx, cmd.WarehouseID)
	if err != nil {
		return entity.PickPackState{}, uc.fail(span, "Create", "", err)
	}
	if !wh.IsActive {
		return entity.PickPackState{}, uc.fail(span, "Create", "", domain.Errorf(domain.ErrInvalidInput, "pickpack.create", "la bodega %s está inactiva", wh.Code))
	}
	unit, err := entity.NewPickPackUnit(entity.NewPickPackInput{
		OrderID:     cmd.OrderID,
		WarehouseID: cmd.WarehouseID,
		PackNumber:  cmd.PackNumber,
		Notes:       cmd.Notes,
		Items:       cmd.Items,
	}, uc.now())
	if err != nil {
		return entity.PickPackState{}, uc.fail(span, "Create", "", err)
	}
	if err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
		return repos.PickPacks.Insert(ctx, unit)
	}); err != nil {
		return entity.PickPackState{}, uc.fail(span, "Create", unit.ID(), err)
	}
	uc.log.Info().Str("pick_pack_id", unit.ID()).Str("pack_number", unit.PackNumber()).Str("order_id", cmd.OrderID).Msg("unidad de pick-pack creada")
	return unit.State(), nil
}

// Get obtiene una unidad.
func (uc *PickPackUseCase) Get(ctx context.Context, id string) (entity.PickPackState, error) {
	unit, err := uc.units.Get(ctx, id)
	if err != nil {
		return entity.PickPackState{}, err
	}
	return unit.State(), nil
}

// ListByOrder unidades de una orden.
func (uc *PickPackUseCase) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]entity.PickPackState, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	units, total, err := uc.units.ListByOrder(ctx, orderID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]entity.PickPackState, 0, len(units))
	for _, u := range units {
		out = append(out, u.State())
	}
	return out, total, nil
}

// StartPicking PENDING → PICKING.
func (uc *PickPackUseCase) StartPicking(ctx context.Context, id, pickedBy string, expected *int64) (entity.PickPackState, error) {
	return uc.transition(ctx, "StartPicking", id, expected, func(u *entity.PickPackUnit, now time.Time) (entity.PickPackStatusChanged, error) {
		return u.StartPicking(pickedBy, now)
	}, nil)
}

// CompletePicking PICKING → PICKED, según la política de ítems.
func (uc *PickPackUseCase) CompletePicking(ctx context.Context, id string, expected *int64) (entity.PickPackState, error) {
	return uc.transition(ctx, "CompletePicking", id, expected, func(u *entity.PickPackUnit, now time.Time) (entity.PickPackStatusChanged, error) {
		return u.CompletePicking(uc.policy.CompletionRules, now)
	}, nil)
}

// StartPacking PICKED → PACKING.
func (uc *PickPackUseCase) StartPacking(ctx context.Context, id, packedBy string, expected *int64) (entity.PickPackState, error) {
	return uc.transition(ctx, "StartPacking", id, expected, func(u *entity.PickPackUnit, now time.Time) (entity.PickPackStatusChanged, error) {
		return u.StartPacking(packedBy, now)
	}, nil)
}

// CompletePacking PACKING → PACKED.
func (uc *PickPackUseCase) CompletePacking(ctx context.Context, id string, cmd CompletePackingCommand, expected *int64) (entity.PickPackState, error) {
	return uc.transition(ctx, "CompletePacking", id, expected, func(u *entity.PickPackUnit, now time.Time) (entity.PickPackStatusChanged, error) {
		return u.CompletePacking(cmd.Weight, cmd.Dimensions, cmd.PackageCount, uc.policy.CompletionRules, now)
	}, nil)
}

// Ship PACKED → SHIPPED. En la misma transacción consume la reserva de cada ítem;
// si alguno falla no se despacha nada.
func (uc *PickPackUseCase) Ship(ctx context.Context, id, performedBy string, expected *int64) (entity.PickPackState, error) {
	return uc.transition(ctx, "Ship", id, expected, func(u *entity.PickPackUnit, now time.Time) (entity.PickPackStatusChanged, error) {
		return u.Ship(now)
	}, func(ctx context.Context, repos ports.Repositories, u *entity.PickPackUnit, now time.Time) error {
		ref := inventory.Reference{Number: u.PackNumber(), ID: u.OrderID(), PerformedBy: performedBy, Notes: "despacho " + u.PackNumber()}
		for _, it := range u.Items() {
			if err := uc.ledger.ReleaseAndReduceInTx(ctx, repos, it.ProductID(), u.WarehouseID(), it.Quantity(), ref, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cancel lleva la unidad a CANCELLED. Con ReleaseReservationOnCancel libera las reservas en la misma transacción.
func (uc *PickPackUseCase) Cancel(ctx context.Context, id, reason, performedBy string, expected *int64) (entity.PickPackState, error) {
	var release func(context.Context, ports.Repositories, *entity.PickPackUnit, time.Time) error
	if uc.policy.ReleaseReservationOnCancel {
		release = func(ctx context.Context, repos ports.Repositories, u *entity.PickPackUnit, now time.Time) error {
			ref := inventory.Reference{Number: u.PackNumber(), ID: u.OrderID(), PerformedBy: performedBy, Notes: reason}
			for _, it := range u.Items() {
				if err := uc.ledger.ReleaseReservedInTx(ctx, repos, it.ProductID(), u.WarehouseID(), it.Quantity(), ref, now); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return uc.transition(ctx, "Cancel", id, expected, func(u *entity.PickPackUnit, now time.Time) (entity.PickPackStatusChanged, error) {
		return u.Cancel(reason, now)
	}, release)
}

// UpdateDetails peso, dimensiones y paquetes.
func (uc *PickPackUseCase) UpdateDetails(ctx context.Context, id string, cmd CompletePackingCommand, expected *int64) (entity.PickPackState, error) {
	return uc.modify(ctx, "UpdateDetails", id, expected, func(u *entity.PickPackUnit, now time.Time) error {
		return u.UpdateDetails(cmd.Weight, cmd.Dimensions, cmd.PackageCount, now)
	})
}

// UpdateNotes reemplaza las notas.
func (uc *PickPackUseCase) UpdateNotes(ctx context.Context, id, notes string, expected *int64) (entity.PickPackState, error) {
	return uc.modify(ctx, "UpdateNotes", id, expected, func(u *entity.PickPackUnit, now time.Time) error {
		return u.UpdateNotes(notes, now)
	})
}

// MarkItemPicked marca un ítem como alistado.
func (uc *PickPackUseCase) MarkItemPicked(ctx context.Context, id, itemID, location string) (entity.PickPackState, error) {
	return uc.modify(ctx, "MarkItemPicked", id, nil, func(u *entity.PickPackUnit, now time.Time) error {
		return u.MarkItemPicked(itemID, location, now)
	})
}

// MarkItemPacked marca un ítem como empacado.
func (uc *PickPackUseCase) MarkItemPacked(ctx context.Context, id, itemID string) (entity.PickPackState, error) {
	return uc.modify(ctx, "MarkItemPacked", id, nil, func(u *entity.PickPackUnit, now time.Time) error {
		return u.MarkItemPacked(itemID, now)
	})
}

// Delete borrado lógico.
func (uc *PickPackUseCase) Delete(ctx context.Context, id string, expected *int64) error {
	_, err := uc.modify(ctx, "Delete", id, expected, func(u *entity.PickPackUnit, now time.Time) error {
		return u.MarkDeleted(now)
	})
	return err
}

// PackingSlip PDF con encabezado, ítems y QR del número de empaque.
func (uc *PickPackUseCase) PackingSlip(ctx context.Context, id string) ([]byte, error) {
	unit, err := uc.units.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.slips.Render(unit.State())
}

type sideEffect func(ctx context.Context, repos ports.Repositories, u *entity.PickPackUnit, now time.Time) error

func (uc *PickPackUseCase) transition(
	ctx context.Context,
	name, id string,
	expected *int64,
	apply func(*entity.PickPackUnit, time.Time) (entity.PickPackStatusChanged, error),
	effect sideEffect,
) (entity.PickPackState, error) {
	var out entity.PickPackState
	err := uc.do(ctx, name, id, expected, func(ctx context.Context) error {
		unit, err := uc.load(ctx, id, expected)
		if err != nil {
			return err
		}
		now := uc.now()
		ev, err := apply(unit, now)
		if err != nil {
			return err
		}
		msg, err := entity.NewOutboxMessage(ev)
		if err != nil {
			return err
		}
		if err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
			if err := repos.PickPacks.Update(ctx, unit); err != nil {
				return err
			}
			if effect != nil {
				if err := effect(ctx, repos, unit, ev.At); err != nil {
					return err
				}
			}
			return repos.Outbox.Enqueue(ctx, msg)
		}); err != nil {
			return err
		}
		if effect != nil {
			uc.ledger.InvalidateReports(ctx)
		}
		uc.log.Info().
			Str("pick_pack_id", unit.ID()).
			Str("order_id", unit.OrderID()).
			Str("from", string(ev.OldStatus)).
			Str("to", string(ev.NewStatus)).
			Msg("transición de pick-pack")
		out = unit.State()
		return nil
	})
	return out, err
}

func (uc *PickPackUseCase) modify(ctx context.Context, name, id string, expected *int64, apply func(*entity.PickPackUnit, time.Time) error) (entity.PickPackState, error) {
	var out entity.PickPackState
	err := uc.do(ctx, name, id, expected, func(ctx context.Context) error {
		unit, err := uc.load(ctx, id, expected)
		if err != nil {
			return err
		}
		if err := apply(unit, uc.now()); err != nil {
			return err
		}
		if err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
			return repos.PickPacks.Update(ctx, unit)
		}); err != nil {
			return err
		}
		out = unit.State()
		return nil
	})
	return out, err
}

func (uc *PickPackUseCase) do(ctx context.Context, name, id string, expected *int64, attempt func(ctx context.Context) error) error {
	ctx, span := uc.tracer.Start(ctx, "pickpack."+name, trace.WithAttributes(attribute.String("pickpack.id", id)))
	defer span.End()
	attempts, err := retry.Do(ctx, uc.retry, expected != nil, attempt)
	span.SetAttributes(attribute.Int("pickpack.attempts", attempts))
	if err != nil {
		return uc.fail(span, name, id, err)
	}
	return nil
}

func (uc *PickPackUseCase) fail(span trace.Span, name, id string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log := uc.log.Debug
	if errors.Is(err, domain.ErrInvariantViolation) {
		log = uc.log.Error
	}
	log().Err(err).Str("op", name).Str("pick_pack_id", id).Msg("operación de pick-pack rechazada")
	return err
}

func (uc *PickPackUseCase) load(ctx context.Context, id string, expected *int64) (*entity.PickPackUnit, error) {
	unit, err := uc.units.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expected != nil && *expected != unit.Version() {
		return nil, domain.Errorf(domain.ErrConcurrencyConflict, "pickpack", "versión esperada %d, actual %d", *expected, unit.Version())
	}
	return unit, nil
}
