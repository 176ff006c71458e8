package inventory

import "github.com/shopspring/decimal"

// CreateCommand alta de un registro producto+bodega.
type CreateCommand struct {
	ProductID         string
	WarehouseID       string
	Quantity          int64
	MinimumStockLevel int64
	MaximumStockLevel int64
	UnitCost          decimal.Decimal
	Location          string
	PerformedBy       string
	Notes             string
}

// StockCommand reservar, liberar o consumir cantidad de un producto en una bodega.
// OrderID queda como referencia del movimiento. ExpectedVersion (opcional) desactiva el reintento.
type StockCommand struct {
	ProductID       string
	WarehouseID     string
	Quantity        int64
	OrderID         string
	ReferenceNumber string
	PerformedBy     string
	Notes           string
	ExpectedVersion *int64
}

// AdjustCommand ajuste manual (delta positivo o negativo).
type AdjustCommand struct {
	InventoryID     string
	Delta           int64
	PerformedBy     string
	Notes           string
	ExpectedVersion *int64
}

// CountCommand conteo físico.
type CountCommand struct {
	InventoryID     string
	Counted         int64
	PerformedBy     string
	Notes           string
	ExpectedVersion *int64
}

// TransferCommand traslado entre bodegas.
type TransferCommand struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	PerformedBy     string
	Notes           string
}

// Reference correlación que se copia al movimiento.
type Reference struct {
	Number      string
	ID          string
	PerformedBy string
	Notes       string
}
