package ports

import "context"

// ReportCache caché de proyecciones de lectura (stock bajo, reporte de stock).
// Los valores se serializan en JSON; un fallo de caché nunca debe romper la lectura.
type ReportCache interface {
	// Get deserializa en dst. found=false si la llave no existe o expiró.
	Get(ctx context.Context, key string, dst any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
	// InvalidateStock borra todas las proyecciones de stock; se llama tras cada mutación confirmada.
	InvalidateStock(ctx context.Context) error
}
