package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// InventoryHandler operaciones del ledger y consultas de inventario (protegido).
type InventoryHandler struct {
	ledger  *inventory.LedgerUseCase
	reports *inventory.ReportUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, reports *inventory.ReportUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, reports: reports}
}

// Create godoc
// @Summary      Crear registro de inventario (producto en bodega)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInventoryRequest  true  "Registro inicial"
// @Success      201   {object}  dto.InventoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory [post]
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInventoryRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.Create(c.UserContext(), inventory.CreateCommand{
		ProductID:         in.ProductID,
		WarehouseID:       in.WarehouseID,
		Quantity:          in.Quantity,
		MinimumStockLevel: in.MinimumStockLevel,
		MaximumStockLevel: in.MaximumStockLevel,
		UnitCost:          in.UnitCost,
		Location:          in.Location,
		PerformedBy:       GetUserID(c),
		Notes:             in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.InventoryFromState(out))
}

// GetByID godoc
// @Summary      Obtener registro de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.reports.GetInventory(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

// List godoc
// @Summary      Listar inventario por producto y/o bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.InventoryListResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return respondError(c, err)
	}
	out, err := h.reports.ListInventory(c.UserContext(), repository.InventoryFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
	}, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inventoryList(out))
}

// Reserve godoc
// @Summary      Reservar stock disponible
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockRequest  true  "Producto, bodega y cantidad"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reserve [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	return h.stock(c, h.ledger.Reserve)
}

// Release godoc
// @Summary      Liberar una reserva
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockRequest  true  "Producto, bodega y cantidad"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	return h.stock(c, h.ledger.Release)
}

// Consume godoc
// @Summary      Consumir stock reservado (salida)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockRequest  true  "Producto, bodega y cantidad"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/consume [post]
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	return h.stock(c, h.ledger.Consume)
}

// Adjust godoc
// @Summary      Ajustar existencia (delta con signo)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del registro"
// @Param        body  body  dto.AdjustRequest  true  "Cambio de cantidad"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.Adjust(c.UserContext(), inventory.AdjustCommand{
		InventoryID:     c.Params("id"),
		Delta:           in.QuantityChange,
		PerformedBy:     GetUserID(c),
		Notes:           in.Notes,
		ExpectedVersion: in.ExpectedVersion,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

// Count godoc
// @Summary      Registrar conteo físico
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "ID del registro"
// @Param        body  body  dto.CountRequest  true  "Cantidad contada"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/count [post]
func (h *InventoryHandler) Count(c *fiber.Ctx) error {
	var in dto.CountRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.Count(c.UserContext(), inventory.CountCommand{
		InventoryID:     c.Params("id"),
		Counted:         in.CountedQuantity,
		PerformedBy:     GetUserID(c),
		Notes:           in.Notes,
		ExpectedVersion: in.ExpectedVersion,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "Producto, origen, destino y cantidad"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	res, err := h.ledger.Transfer(c.UserContext(), inventory.TransferCommand{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		PerformedBy:     GetUserID(c),
		Notes:           in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferResponse{
		ReferenceNumber: res.ReferenceNumber,
		Source:          dto.InventoryFromState(res.Source),
		Destination:     dto.InventoryFromState(res.Destination),
		Movements:       []dto.MovementResponse{dto.MovementFromEntity(res.Out), dto.MovementFromEntity(res.In)},
	})
}

// UpdateStockLevels godoc
// @Summary      Cambiar niveles mínimo y máximo
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del registro"
// @Param        body  body  dto.StockLevelsRequest  true  "Niveles"
// @Success      200   {object}  dto.InventoryResponse
// @Router       /api/inventory/{id}/stock-levels [put]
func (h *InventoryHandler) UpdateStockLevels(c *fiber.Ctx) error {
	var in dto.StockLevelsRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.UpdateStockLevels(c.UserContext(), c.Params("id"), in.MinimumStockLevel, in.MaximumStockLevel, in.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

// UpdateUnitCost godoc
// @Summary      Cambiar costo unitario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del registro"
// @Param        body  body  dto.UnitCostRequest  true  "Costo"
// @Success      200   {object}  dto.InventoryResponse
// @Router       /api/inventory/{id}/unit-cost [put]
func (h *InventoryHandler) UpdateUnitCost(c *fiber.Ctx) error {
	var in dto.UnitCostRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.UpdateUnitCost(c.UserContext(), c.Params("id"), in.UnitCost, in.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

// UpdateLocation godoc
// @Summary      Cambiar ubicación dentro de la bodega
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del registro"
// @Param        body  body  dto.LocationRequest  true  "Ubicación"
// @Success      200   {object}  dto.InventoryResponse
// @Router       /api/inventory/{id}/location [put]
func (h *InventoryHandler) UpdateLocation(c *fiber.Ctx) error {
	var in dto.LocationRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.ledger.UpdateLocation(c.UserContext(), c.Params("id"), in.Location, in.ExpectedVersion)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

// Delete godoc
// @Summary      Eliminar registro (solo con existencia cero)
// @Tags         inventory
// @Security     Bearer
// @Param        id                path   string  true   "ID del registro"
// @Param        expected_version  query  int     false  "Versión esperada"
// @Success      204
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *fiber.Ctx) error {
	expected, err := expectedVersion(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.ledger.Delete(c.UserContext(), c.Params("id"), expected); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LowStock godoc
// @Summary      Registros con existencia en o bajo el mínimo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.InventoryListResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return respondError(c, err)
	}
	out, err := h.reports.ListLowStock(c.UserContext(), c.Query("warehouse_id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inventoryList(out))
}

// Movements godoc
// @Summary      Historial de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        type          query  string  false  "Tipo de movimiento"
// @Param        reference_id  query  string  false  "Referencia"
// @Param        from          query  string  false  "Desde (RFC3339)"
// @Param        to            query  string  false  "Hasta (RFC3339)"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	var q dto.MovementQuery
	if err := bindQuery(c, &q); err != nil {
		return respondError(c, err)
	}
	filter := repository.MovementFilter{
		ProductID:   q.ProductID,
		WarehouseID: q.WarehouseID,
		Type:        entity.MovementType(q.Type),
		ReferenceID: q.ReferenceID,
		From:        parseTime(q.From),
		To:          parseTime(q.To),
	}
	page, err := h.reports.MovementHistory(c.UserContext(), filter, q.Limit, q.Offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(page.Items))
	for _, m := range page.Items {
		items = append(items, dto.MovementFromEntity(m))
	}
	return c.JSON(dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: page.Total},
	})
}

// Report godoc
// @Summary      Reporte de stock por producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Producto"
// @Success      200  {array}  dto.StockReportRow
// @Router       /api/inventory/report [get]
func (h *InventoryHandler) Report(c *fiber.Ctx) error {
	rows, err := h.reports.StockReport(c.UserContext(), c.Query("product_id"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.StockReportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.StockReportRow{
			ProductID:         r.ProductID,
			Quantity:          r.Quantity,
			ReservedQuantity:  r.ReservedQuantity,
			AvailableQuantity: r.AvailableQuantity,
			TotalValue:        r.TotalValue,
			WarehouseCount:    r.WarehouseCount,
		})
	}
	return c.JSON(out)
}

type stockOp func(ctx context.Context, cmd inventory.StockCommand) (entity.InventoryState, error)

func (h *InventoryHandler) stock(c *fiber.Ctx, op stockOp) error {
	var in dto.StockRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := op(c.UserContext(), inventory.StockCommand{
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		Quantity:        in.Quantity,
		OrderID:         in.OrderID,
		ReferenceNumber: in.ReferenceNumber,
		PerformedBy:     GetUserID(c),
		Notes:           in.Notes,
		ExpectedVersion: in.ExpectedVersion,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.InventoryFromState(out))
}

func inventoryList(p inventory.InventoryPage) dto.InventoryListResponse {
	return dto.InventoryListResponse{
		Items: dto.InventoryList(p.Items),
		Page:  dto.PageResponse{Limit: p.Limit, Offset: p.Offset, Total: p.Total},
	}
}

// expectedVersion lee ?expected_version= (opcional).
func expectedVersion(c *fiber.Ctx) (*int64, error) {
	raw := c.Query("expected_version")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "http", "expected_version inválido: %q", raw)
	}
	return &v, nil
}

// parseTime ya validado como RFC3339 por las etiquetas del DTO.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
