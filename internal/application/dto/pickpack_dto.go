package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePickPackItemRequest línea de la orden.
type CreatePickPackItemRequest struct {
	OrderItemID string `json:"order_item_id" validate:"required"`
	ProductID   string `json:"product_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
	Location    string `json:"location,omitempty" validate:"max=100"`
}

// CreatePickPackRequest body para POST /api/pick-packs.
type CreatePickPackRequest struct {
	OrderID     string                      `json:"order_id" validate:"required"`
	WarehouseID string                      `json:"warehouse_id" validate:"required"`
	PackNumber  string                      `json:"pack_number,omitempty" validate:"max=40"`
	Notes       string                      `json:"notes,omitempty"`
	Items       []CreatePickPackItemRequest `json:"items" validate:"dive"`
}

// VersionedRequest cuerpo opcional de las transiciones sin datos.
type VersionedRequest struct {
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// CompletePackingRequest body para POST /api/pick-packs/:id/complete-packing y PUT .../details.
type CompletePackingRequest struct {
	Weight          decimal.Decimal `json:"weight"`
	Dimensions      string          `json:"dimensions,omitempty" validate:"max=60"`
	PackageCount    int             `json:"package_count" validate:"min=1"`
	ExpectedVersion *int64          `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// CancelPickPackRequest body para POST /api/pick-packs/:id/cancel.
type CancelPickPackRequest struct {
	Reason          string `json:"reason,omitempty" validate:"max=500"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// NotesRequest body para PUT /api/pick-packs/:id/notes.
type NotesRequest struct {
	Notes           string `json:"notes" validate:"max=2000"`
	ExpectedVersion *int64 `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// PickItemRequest body para POST /api/pick-packs/:id/items/:itemId/pick.
type PickItemRequest struct {
	Location string `json:"location,omitempty" validate:"max=100"`
}

// PickPackItemResponse ítem de la unidad.
type PickPackItemResponse struct {
	ID          string `json:"id"`
	OrderItemID string `json:"order_item_id"`
	ProductID   string `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	IsPicked    bool   `json:"is_picked"`
	IsPacked    bool   `json:"is_packed"`
	Location    string `json:"location,omitempty"`
}

// PickPackResponse unidad de alistamiento.
type PickPackResponse struct {
	ID             string                 `json:"id"`
	OrderID        string                 `json:"order_id"`
	WarehouseID    string                 `json:"warehouse_id"`
	PackNumber     string                 `json:"pack_number"`
	Status         string                 `json:"status"`
	PickedByUserID string                 `json:"picked_by_user_id,omitempty"`
	PackedByUserID string                 `json:"packed_by_user_id,omitempty"`
	PickedAt       *time.Time             `json:"picked_at,omitempty"`
	PackedAt       *time.Time             `json:"packed_at,omitempty"`
	ShippedAt      *time.Time             `json:"shipped_at,omitempty"`
	Weight         decimal.Decimal        `json:"weight"`
	Dimensions     string                 `json:"dimensions,omitempty"`
	PackageCount   int                    `json:"package_count"`
	Notes          string                 `json:"notes,omitempty"`
	Items          []PickPackItemResponse `json:"items"`
	Version        int64                  `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// PickPackListResponse lista paginada.
type PickPackListResponse struct {
	Items []PickPackResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
