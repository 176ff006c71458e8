package entity

import "time"

// Warehouse bodega donde se almacena inventario. Capacity es informativa (unidades);
// una bodega inactiva no admite operaciones de inventario.
type Warehouse struct {
	ID        string
	Code      string
	Name      string
	Address   string
	Capacity  int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
