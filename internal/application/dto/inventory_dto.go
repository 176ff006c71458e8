package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInventoryRequest body para POST /api/inventory.
type CreateInventoryRequest struct {
	ProductID         string          `json:"product_id" validate:"required"`
	WarehouseID       string          `json:"warehouse_id" validate:"required"`
	Quantity          int64           `json:"quantity" validate:"min=0"`
	MinimumStockLevel int64           `json:"minimum_stock_level" validate:"min=0"`
	MaximumStockLevel int64           `json:"maximum_stock_level" validate:"min=0"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Location          string          `json:"location,omitempty" validate:"max=100"`
	Notes             string          `json:"notes,omitempty"`
}

// StockRequest body para reservar, liberar o consumir (POST /api/inventory/{reserve,release,consume}).
type StockRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	WarehouseID     string `json:"warehouse_id" validate:"required"`
	Quantity        int64  `json:"quantity" validate:"required,gt=0"`
	OrderID         string `json:"order_id,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty" validate:"max=64"`
	Notes           string `json:"notes,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// AdjustRequest body para POST /api/inventory/:id/adjust.
type AdjustRequest struct {
	QuantityChange  int64  `json:"quantity_change" validate:"required,ne=0"`
	Notes           string `json:"notes,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// CountRequest body para POST /api/inventory/:id/count.
type CountRequest struct {
	CountedQuantity int64  `json:"counted_quantity" validate:"min=0"`
	Notes           string `json:"notes,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// TransferRequest body para POST /api/inventory/transfer.
type TransferRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	FromWarehouseID string `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Quantity        int64  `json:"quantity" validate:"required,gt=0"`
	Notes           string `json:"notes,omitempty"`
}

// StockLevelsRequest body para PUT /api/inventory/:id/stock-levels.
type StockLevelsRequest struct {
	MinimumStockLevel int64  `json:"minimum_stock_level" validate:"min=0"`
	MaximumStockLevel int64  `json:"maximum_stock_level" validate:"min=0"`
	ExpectedVersion   *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// UnitCostRequest body para PUT /api/inventory/:id/unit-cost.
type UnitCostRequest struct {
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ExpectedVersion *int64          `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// LocationRequest body para PUT /api/inventory/:id/location.
type LocationRequest struct {
	Location        string `json:"location" validate:"max=100"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// InventoryResponse registro de inventario.
type InventoryResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	WarehouseID       string          `json:"warehouse_id"`
	Quantity          int64           `json:"quantity"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	AvailableQuantity int64           `json:"available_quantity"`
	MinimumStockLevel int64           `json:"minimum_stock_level"`
	MaximumStockLevel int64           `json:"maximum_stock_level"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Location          string          `json:"location,omitempty"`
	IsLowStock        bool            `json:"is_low_stock"`
	LastRestockedAt   *time.Time      `json:"last_restocked_at,omitempty"`
	LastCountedAt     *time.Time      `json:"last_counted_at,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InventoryListResponse lista paginada de registros.
type InventoryListResponse struct {
	Items []InventoryResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// MovementResponse entrada de la bitácora.
type MovementResponse struct {
	ID              string    `json:"id"`
	InventoryID     string    `json:"inventory_id"`
	ProductID       string    `json:"product_id"`
	WarehouseID     string    `json:"warehouse_id"`
	Type            string    `json:"movement_type"`
	Quantity        int64     `json:"quantity"`
	QuantityBefore  int64     `json:"quantity_before"`
	QuantityAfter   int64     `json:"quantity_after"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	ReferenceID     string    `json:"reference_id,omitempty"`
	PerformedBy     string    `json:"performed_by,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	FromWarehouseID string    `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string    `json:"to_warehouse_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// MovementListResponse historial paginado.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MovementQuery filtros de GET /api/inventory/movements. Fechas en RFC3339.
type MovementQuery struct {
	ProductID   string `query:"product_id"`
	WarehouseID string `query:"warehouse_id"`
	Type        string `query:"type" validate:"omitempty,oneof=INBOUND OUTBOUND RESERVATION RESERVATION_RELEASE ADJUSTMENT TRANSFER_OUT TRANSFER_IN CORRECTION"`
	ReferenceID string `query:"reference_id"`
	From        string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To          string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PageRequest
}

// TransferResponse resultado del traslado.
type TransferResponse struct {
	ReferenceNumber string             `json:"reference_number"`
	Source          InventoryResponse  `json:"source"`
	Destination     InventoryResponse  `json:"destination"`
	Movements       []MovementResponse `json:"movements"`
}

// StockReportRow agregado por producto.
type StockReportRow struct {
	ProductID         string          `json:"product_id"`
	Quantity          int64           `json:"quantity"`
	ReservedQuantity  int64           `json:"reserved_quantity"`
	AvailableQuantity int64           `json:"available_quantity"`
	TotalValue        decimal.Decimal `json:"total_value"`
	WarehouseCount    int             `json:"warehouse_count"`
}
