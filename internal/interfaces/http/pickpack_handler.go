package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/fulfillment"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// PickPackHandler flujo de alistamiento y empaque (protegido).
type PickPackHandler struct {
	uc *fulfillment.PickPackUseCase
}

// NewPickPackHandler construye el handler.
func NewPickPackHandler(uc *fulfillment.PickPackUseCase) *PickPackHandler {
	return &PickPackHandler{uc: uc}
}

// Create godoc
// @Summary      Crear unidad de pick-pack para una orden
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePickPackRequest  true  "Orden, bodega e ítems"
// @Success      201   {object}  dto.PickPackResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pick-packs [post]
func (h *PickPackHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePickPackRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	items := make([]entity.NewPickPackItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.NewPickPackItemInput{
			OrderItemID: it.OrderItemID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Location:    it.Location,
		})
	}
	out, err := h.uc.Create(c.UserContext(), fulfillment.CreateCommand{
		OrderID:     in.OrderID,
		WarehouseID: in.WarehouseID,
		PackNumber:  in.PackNumber,
		Notes:       in.Notes,
		Items:       items,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PickPackFromState(out))
}

// GetByID godoc
// @Summary      Obtener unidad de pick-pack
// @Tags         pick-packs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la unidad"
// @Success      200  {object}  dto.PickPackResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id} [get]
func (h *PickPackHandler) GetByID(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Get(c.UserContext(), c.Params("id")))
}

// ListByOrder godoc
// @Summary      Unidades de una orden
// @Tags         pick-packs
// @Security     Bearer
// @Produce      json
// @Param        order_id  query  string  true   "Orden"
// @Param        limit     query  int     false  "Límite"  default(20)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.PickPackListResponse
// @Router       /api/pick-packs [get]
func (h *PickPackHandler) ListByOrder(c *fiber.Ctx) error {
	orderID := c.Query("order_id")
	if orderID == "" {
		return respondError(c, domain.Errorf(domain.ErrInvalidInput, "http", "order_id es requerido"))
	}
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return respondError(c, err)
	}
	page.DefaultPage()
	units, total, err := h.uc.ListByOrder(c.UserContext(), orderID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.PickPackResponse, 0, len(units))
	for _, u := range units {
		items = append(items, dto.PickPackFromState(u))
	}
	return c.JSON(dto.PickPackListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// StartPicking godoc
// @Summary      PENDING -> PICKING
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la unidad"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.PickPackResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/start-picking [post]
func (h *PickPackHandler) StartPicking(c *fiber.Ctx) error {
	var in dto.VersionedRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.StartPicking(c.UserContext(), c.Params("id"), GetUserID(c), in.ExpectedVersion))
}

// CompletePicking godoc
// @Summary      PICKING -> PICKED
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la unidad"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.PickPackResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/complete-picking [post]
func (h *PickPackHandler) CompletePicking(c *fiber.Ctx) error {
	var in dto.VersionedRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.CompletePicking(c.UserContext(), c.Params("id"), in.ExpectedVersion))
}

// StartPacking godoc
// @Summary      PICKED -> PACKING
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la unidad"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.PickPackResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/start-packing [post]
func (h *PickPackHandler) StartPacking(c *fiber.Ctx) error {
	var in dto.VersionedRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.StartPacking(c.UserContext(), c.Params("id"), GetUserID(c), in.ExpectedVersion))
}

// CompletePacking godoc
// @Summary      PACKING -> PACKED con peso, dimensiones y bultos
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID de la unidad"
// @Param        body  body  dto.CompletePackingRequest  true  "Datos del paquete"
// @Success      200   {object}  dto.PickPackResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/complete-packing [post]
func (h *PickPackHandler) CompletePacking(c *fiber.Ctx) error {
	var in dto.CompletePackingRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.CompletePacking(c.UserContext(), c.Params("id"), packingCommand(in), in.ExpectedVersion))
}

// Ship godoc
// @Summary      PACKED -> SHIPPED; consume las reservas de los ítems
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true   "ID de la unidad"
// @Param        body  body  dto.VersionedRequest  false  "Versión esperada"
// @Success      200   {object}  dto.PickPackResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/ship [post]
func (h *PickPackHandler) Ship(c *fiber.Ctx) error {
	var in dto.VersionedRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.Ship(c.UserContext(), c.Params("id"), GetUserID(c), in.ExpectedVersion))
}

// Cancel godoc
// @Summary      Cancelar desde cualquier estado no terminal
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true   "ID de la unidad"
// @Param        body  body  dto.CancelPickPackRequest  false  "Motivo"
// @Success      200   {object}  dto.PickPackResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/cancel [post]
func (h *PickPackHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelPickPackRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.Cancel(c.UserContext(), c.Params("id"), in.Reason, GetUserID(c), in.ExpectedVersion))
}

// UpdateDetails godoc
// @Summary      Corregir peso, dimensiones y bultos
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID de la unidad"
// @Param        body  body  dto.CompletePackingRequest  true  "Datos del paquete"
// @Success      200   {object}  dto.PickPackResponse
// @Router       /api/pick-packs/{id}/details [put]
func (h *PickPackHandler) UpdateDetails(c *fiber.Ctx) error {
	var in dto.CompletePackingRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.UpdateDetails(c.UserContext(), c.Params("id"), packingCommand(in), in.ExpectedVersion))
}

// UpdateNotes godoc
// @Summary      Reemplazar notas
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "ID de la unidad"
// @Param        body  body  dto.NotesRequest  true  "Notas"
// @Success      200   {object}  dto.PickPackResponse
// @Router       /api/pick-packs/{id}/notes [put]
func (h *PickPackHandler) UpdateNotes(c *fiber.Ctx) error {
	var in dto.NotesRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.UpdateNotes(c.UserContext(), c.Params("id"), in.Notes, in.ExpectedVersion))
}

// PickItem godoc
// @Summary      Marcar ítem como alistado
// @Tags         pick-packs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string               true   "ID de la unidad"
// @Param        itemId  path  string               true   "ID del ítem"
// @Param        body    body  dto.PickItemRequest  false  "Ubicación de donde se tomó"
// @Success      200     {object}  dto.PickPackResponse
// @Router       /api/pick-packs/{id}/items/{itemId}/pick [post]
func (h *PickPackHandler) PickItem(c *fiber.Ctx) error {
	var in dto.PickItemRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	return h.respond(c)(h.uc.MarkItemPicked(c.UserContext(), c.Params("id"), c.Params("itemId"), in.Location))
}

// PackItem godoc
// @Summary      Marcar ítem como empacado (debe estar alistado)
// @Tags         pick-packs
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "ID de la unidad"
// @Param        itemId  path  string  true  "ID del ítem"
// @Success      200     {object}  dto.PickPackResponse
// @Router       /api/pick-packs/{id}/items/{itemId}/pack [post]
func (h *PickPackHandler) PackItem(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.MarkItemPacked(c.UserContext(), c.Params("id"), c.Params("itemId")))
}

// Delete godoc
// @Summary      Eliminar unidad (no despachada)
// @Tags         pick-packs
// @Security     Bearer
// @Param        id                path   string  true   "ID de la unidad"
// @Param        expected_version  query  int     false  "Versión esperada"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id} [delete]
func (h *PickPackHandler) Delete(c *fiber.Ctx) error {
	expected, err := expectedVersion(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.uc.Delete(c.UserContext(), c.Params("id"), expected); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PackingSlip godoc
// @Summary      Hoja de empaque en PDF
// @Tags         pick-packs
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la unidad"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pick-packs/{id}/packing-slip [get]
func (h *PickPackHandler) PackingSlip(c *fiber.Ctx) error {
	doc, err := h.uc.PackingSlip(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="packing-slip-`+c.Params("id")+`.pdf"`)
	return c.Send(doc)
}

// respond permite encadenar directamente el resultado de un caso de uso.
func (h *PickPackHandler) respond(c *fiber.Ctx) func(entity.PickPackState, error) error {
	return func(s entity.PickPackState, err error) error {
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dto.PickPackFromState(s))
	}
}

func packingCommand(in dto.CompletePackingRequest) fulfillment.CompletePackingCommand {
	return fulfillment.CompletePackingCommand{
		Weight:       in.Weight,
		Dimensions:   in.Dimensions,
		PackageCount: in.PackageCount,
	}
}
