package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stockflow/internal/domain/inventory"
)

func TestWeightedAverageCost(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name         string
		onHand       int64
		current      decimal.Decimal
		incoming     int64
		incomingCost decimal.Decimal
		want         decimal.Decimal
	}{
		{"mitad y mitad", 10, d("10"), 10, d("20"), d("15")},
		{"sin existencia toma el costo entrante", 0, d("99"), 5, d("12.5"), d("12.5")},
		{"redondeo a 4 decimales", 3, d("1"), 1, d("2"), d("1.25")},
		{"tercios", 2, d("1"), 1, d("2"), d("1.3333")},
		{"total cero", 0, d("5"), 0, d("7"), decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inventory.WeightedAverageCost(tt.onHand, tt.current, tt.incoming, tt.incomingCost)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
