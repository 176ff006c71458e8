package dto

import "github.com/jhoicas/stockflow/internal/domain/entity"

// InventoryFromState convierte la instantánea de dominio en respuesta.
func InventoryFromState(s entity.InventoryState) InventoryResponse {
	return InventoryResponse{
		ID:                s.ID,
		ProductID:         s.ProductID,
		WarehouseID:       s.WarehouseID,
		Quantity:          s.Quantity,
		ReservedQuantity:  s.ReservedQuantity,
		AvailableQuantity: s.AvailableQuantity(),
		MinimumStockLevel: s.MinimumStockLevel,
		MaximumStockLevel: s.MaximumStockLevel,
		UnitCost:          s.UnitCost,
		Location:          s.Location,
		IsLowStock:        s.IsLowStock(),
		LastRestockedAt:   s.LastRestockedAt,
		LastCountedAt:     s.LastCountedAt,
		Version:           s.Version,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// InventoryList convierte una lista de instantáneas.
func InventoryList(states []entity.InventoryState) []InventoryResponse {
	out := make([]InventoryResponse, 0, len(states))
	for _, s := range states {
		out = append(out, InventoryFromState(s))
	}
	return out
}

// MovementFromEntity convierte un movimiento.
func MovementFromEntity(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		InventoryID:     m.InventoryID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		Type:            string(m.Type),
		Quantity:        m.Quantity,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		ReferenceNumber: m.ReferenceNumber,
		ReferenceID:     m.ReferenceID,
		PerformedBy:     m.PerformedBy,
		Notes:           m.Notes,
		FromWarehouseID: m.FromWarehouseID,
		ToWarehouseID:   m.ToWarehouseID,
		CreatedAt:       m.CreatedAt,
	}
}

// PickPackFromState convierte una unidad con sus ítems.
func PickPackFromState(s entity.PickPackState) PickPackResponse {
	items := make([]PickPackItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, PickPackItemResponse{
			ID:          it.ID,
			OrderItemID: it.OrderItemID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			IsPicked:    it.IsPicked,
			IsPacked:    it.IsPacked,
			Location:    it.Location,
		})
	}
	return PickPackResponse{
		ID:             s.ID,
		OrderID:        s.OrderID,
		WarehouseID:    s.WarehouseID,
		PackNumber:     s.PackNumber,
		Status:         string(s.Status),
		PickedByUserID: s.PickedByUserID,
		PackedByUserID: s.PackedByUserID,
		PickedAt:       s.PickedAt,
		PackedAt:       s.PackedAt,
		ShippedAt:      s.ShippedAt,
		Weight:         s.Weight,
		Dimensions:     s.Dimensions,
		PackageCount:   s.PackageCount,
		Notes:          s.Notes,
		Items:          items,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
