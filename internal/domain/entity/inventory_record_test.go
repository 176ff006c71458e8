package entity_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newRecord(t *testing.T, qty, minLevel, maxLevel int64) *entity.InventoryRecord {
	t.Helper()
	rec, _, err := entity.NewInventoryRecord(entity.NewInventoryInput{
		ProductID:         "P-1",
		WarehouseID:       "WH-1",
		Quantity:          qty,
		MinimumStockLevel: minLevel,
		MaximumStockLevel: maxLevel,
		UnitCost:          decimal.NewFromInt(10),
	}, now)
	require.NoError(t, err)
	return rec
}

func assertInvariants(t *testing.T, rec *entity.InventoryRecord) {
	t.Helper()
	s := rec.State()
	assert.GreaterOrEqual(t, s.Quantity, int64(0))
	assert.GreaterOrEqual(t, s.ReservedQuantity, int64(0))
	assert.LessOrEqual(t, s.ReservedQuantity, s.Quantity)
	assert.Equal(t, s.Quantity-s.ReservedQuantity, rec.AvailableQuantity())
}

func TestNewInventoryRecord(t *testing.T) {
	tests := []struct {
		name    string
		in      entity.NewInventoryInput
		wantErr error
		wantMov bool
	}{
		{"con cantidad inicial", entity.NewInventoryInput{ProductID: "P", WarehouseID: "W", Quantity: 5}, nil, true},
		{"sin cantidad", entity.NewInventoryInput{ProductID: "P", WarehouseID: "W"}, nil, false},
		{"sin producto", entity.NewInventoryInput{WarehouseID: "W"}, domain.ErrInvalidInput, false},
		{"cantidad negativa", entity.NewInventoryInput{ProductID: "P", WarehouseID: "W", Quantity: -1}, domain.ErrInvalidInput, false},
		{"mínimo mayor que máximo", entity.NewInventoryInput{ProductID: "P", WarehouseID: "W", MinimumStockLevel: 10, MaximumStockLevel: 5}, domain.ErrInvalidInput, false},
		{"costo negativo", entity.NewInventoryInput{ProductID: "P", WarehouseID: "W", UnitCost: decimal.NewFromInt(-1)}, domain.ErrInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, mov, err := entity.NewInventoryRecord(tt.in, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), rec.Version())
			if tt.wantMov {
				require.NotNil(t, mov)
				assert.Equal(t, entity.MovementTypeInbound, mov.Type)
				assert.Equal(t, int64(0), mov.QuantityBefore)
				assert.Equal(t, tt.in.Quantity, mov.QuantityAfter)
			} else {
				assert.Nil(t, mov)
			}
		})
	}
}

func TestReserve(t *testing.T) {
	rec := newRecord(t, 10, 0, 0)

	ch, err := rec.Reserve(4, now)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeReservation, ch.Movement.Type)
	assert.Equal(t, int64(10), ch.Movement.QuantityBefore, "antes/después sobre disponible")
	assert.Equal(t, int64(6), ch.Movement.QuantityAfter)
	assert.Equal(t, int64(4), rec.ReservedQuantity())
	assertInvariants(t, rec)

	_, err = rec.Reserve(7, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(4), rec.ReservedQuantity(), "un fallo no muta el registro")

	_, err = rec.Reserve(0, now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReleaseReserved(t *testing.T) {
	rec := newRecord(t, 10, 0, 0)
	_, err := rec.Reserve(3, now)
	require.NoError(t, err)

	_, err = rec.ReleaseReserved(4, now)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	ch, err := rec.ReleaseReserved(3, now)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeReservationRelease, ch.Movement.Type)
	assert.Equal(t, int64(7), ch.Movement.QuantityBefore)
	assert.Equal(t, int64(10), ch.Movement.QuantityAfter)
	assert.Equal(t, int64(0), rec.ReservedQuantity())
	assertInvariants(t, rec)
}

func TestReleaseAndReduce(t *testing.T) {
	rec := newRecord(t, 10, 0, 0)
	_, err := rec.Reserve(5, now)
	require.NoError(t, err)

	ch, err := rec.ReleaseAndReduce(5, now)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeOutbound, ch.Movement.Type)
	assert.Equal(t, int64(5), rec.Quantity())
	assert.Equal(t, int64(0), rec.ReservedQuantity())
	assertInvariants(t, rec)

	_, err = rec.ReleaseAndReduce(1, now)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestAdjustQuantity(t *testing.T) {
	rec := newRecord(t, 10, 0, 0)
	_, err := rec.Reserve(6, now)
	require.NoError(t, err)

	tests := []struct {
		name    string
		delta   int64
		wantErr error
		wantQty int64
	}{
		{"cero", 0, domain.ErrInvalidInput, 10},
		{"negativa bajo cero", -11, domain.ErrInvariantViolation, 10},
		{"por debajo de lo reservado", -5, domain.ErrInvariantViolation, 10},
		{"resta válida", -4, nil, 6},
		{"suma", 3, nil, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := rec.AdjustQuantity(tt.delta, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, entity.MovementTypeAdjustment, ch.Movement.Type)
				assert.Equal(t, abs(tt.delta), ch.Movement.Quantity)
			}
			assert.Equal(t, tt.wantQty, rec.Quantity())
			assertInvariants(t, rec)
		})
	}
}

func TestCantidadesExtremas_NoMutan(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(rec *entity.InventoryRecord) error
		wantErr error
	}{
		{"reserva máxima con reserva previa", func(rec *entity.InventoryRecord) error {
			_, err := rec.Reserve(math.MaxInt64, now)
			return err
		}, domain.ErrInsufficientStock},
		{"ajuste máximo", func(rec *entity.InventoryRecord) error {
			_, err := rec.AdjustQuantity(math.MaxInt64, now)
			return err
		}, domain.ErrInvalidInput},
		{"ajuste mínimo", func(rec *entity.InventoryRecord) error {
			_, err := rec.AdjustQuantity(math.MinInt64, now)
			return err
		}, domain.ErrInvariantViolation},
		{"entrada por traslado máxima", func(rec *entity.InventoryRecord) error {
			_, err := rec.TransferIn(math.MaxInt64, "WH-2", decimal.NewFromInt(10), now)
			return err
		}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecord(t, 10, 0, 0)
			_, err := rec.Reserve(5, now)
			require.NoError(t, err)
			before := rec.State()

			err = tt.apply(rec)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, rec.State(), "un fallo no muta el registro")
			assertInvariants(t, rec)
		})
	}
}

func TestTransfer_CostoPromedio(t *testing.T) {
	src := newRecord(t, 10, 0, 0)
	dst, _, err := entity.NewInventoryRecord(entity.NewInventoryInput{
		ProductID: "P-1", WarehouseID: "WH-2", Quantity: 10, UnitCost: decimal.NewFromInt(20),
	}, now)
	require.NoError(t, err)

	out, err := src.TransferOut(10, "WH-2", now)
	require.NoError(t, err)
	assert.Equal(t, "WH-1", out.Movement.FromWarehouseID)
	assert.Equal(t, "WH-2", out.Movement.ToWarehouseID)

	in, err := dst.TransferIn(10, "WH-1", src.UnitCost(), now)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeTransferIn, in.Movement.Type)
	assert.Equal(t, int64(20), dst.Quantity())
	assert.True(t, decimal.NewFromInt(15).Equal(dst.UnitCost()), "costo ponderado: got %s", dst.UnitCost())
}

func TestTransferOut_NoTrasladaReservado(t *testing.T) {
	rec := newRecord(t, 10, 0, 0)
	_, err := rec.Reserve(8, now)
	require.NoError(t, err)

	_, err = rec.TransferOut(3, "WH-2", now)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(10), rec.Quantity())
}

func TestRecordCount(t *testing.T) {
	rec := newRecord(t, 10, 0, 0)

	ch, err := rec.RecordCount(10, now)
	require.NoError(t, err)
	assert.Nil(t, ch.Movement, "sin diferencia no hay movimiento")
	require.NotNil(t, rec.State().LastCountedAt)

	ch, err = rec.RecordCount(7, now)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeCorrection, ch.Movement.Type)
	assert.Equal(t, int64(3), ch.Movement.Quantity)
	assert.Equal(t, int64(7), rec.Quantity())

	_, err = rec.Reserve(5, now)
	require.NoError(t, err)
	_, err = rec.RecordCount(4, now)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestLowStockEvent(t *testing.T) {
	rec := newRecord(t, 10, 5, 20)
	assert.False(t, rec.IsLowStock())

	ch, err := rec.AdjustQuantity(-4, now)
	require.NoError(t, err)
	assert.Empty(t, ch.Events)

	ch, err = rec.AdjustQuantity(-1, now)
	require.NoError(t, err)
	require.Len(t, ch.Events, 1, "se emite al cruzar el mínimo")
	assert.Equal(t, entity.EventStockLevelLow, ch.Events[0].EventType())
	assert.True(t, rec.IsLowStock())

	ch, err = rec.AdjustQuantity(-1, now)
	require.NoError(t, err)
	assert.Empty(t, ch.Events, "ya estaba bajo")
}

func TestIsLowStock_SinMaximo(t *testing.T) {
	rec := newRecord(t, 0, 5, 0)
	assert.False(t, rec.IsLowStock(), "sin máximo configurado nunca es stock bajo")
}

func TestMarkDeleted(t *testing.T) {
	rec := newRecord(t, 1, 0, 0)
	assert.ErrorIs(t, rec.MarkDeleted(now), domain.ErrInvariantViolation)

	_, err := rec.AdjustQuantity(-1, now)
	require.NoError(t, err)
	require.NoError(t, rec.MarkDeleted(now))
	assert.True(t, rec.IsDeleted())
	assert.ErrorIs(t, rec.MarkDeleted(now), domain.ErrNotFound)
}

func TestUpdateMetadata(t *testing.T) {
	rec := newRecord(t, 1, 0, 0)

	_, err := rec.UpdateStockLevels(10, 5, now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ev, err := rec.UpdateStockLevels(2, 8, now)
	require.NoError(t, err)
	assert.Equal(t, entity.EventInventoryUpdated, ev.EventType())

	_, err = rec.UpdateUnitCost(decimal.NewFromInt(-3), now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ev = rec.UpdateLocation("  A-07 ", now)
	assert.Equal(t, "A-07", rec.State().Location)
	assert.Equal(t, rec.ID(), ev.AggregateID())
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
