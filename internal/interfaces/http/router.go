package http

import (
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jhoicas/stockflow/internal/application/fulfillment"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/warehouse"
	pkgjwt "github.com/jhoicas/stockflow/pkg/jwt"
	"github.com/jhoicas/stockflow/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	WarehouseUC *warehouse.UseCase
	Ledger      *inventory.LedgerUseCase
	Reports     *inventory.ReportUseCase
	PickPacks   *fulfillment.PickPackUseCase
	JWTSecret   string
	Log         *logger.Logger
	// DocsPath ruta del swagger.json; vacío = sin /docs.
	DocsPath string
}

// NewApp crea la aplicación Fiber con middlewares comunes, /health y las rutas de la API.
func NewApp(name string, deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	if deps.Log != nil {
		app.Use(accessLog(deps.Log.Named("http")))
	}

	if deps.DocsPath != "" {
		// Swagger UI: http://localhost:<port>/docs
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: deps.DocsPath,
			Path:     "docs",
			Title:    "Stockflow API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Warehouses
	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", warehouseHandler.Update)
	warehouses.Post("/:id/deactivate", warehouseHandler.Deactivate)
	warehouses.Post("/:id/activate", warehouseHandler.Activate)
	warehouses.Delete("/:id", RequireRole(pkgjwt.RoleAdmin), warehouseHandler.Delete)

	// Inventory: rutas estáticas antes de /:id
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Reports)
	inv.Post("/", inventoryHandler.Create)
	inv.Get("/", inventoryHandler.List)
	inv.Get("/low-stock", inventoryHandler.LowStock)
	inv.Get("/movements", inventoryHandler.Movements)
	inv.Get("/report", inventoryHandler.Report)
	inv.Post("/reserve", inventoryHandler.Reserve)
	inv.Post("/release", inventoryHandler.Release)
	inv.Post("/consume", inventoryHandler.Consume)
	inv.Post("/transfer", inventoryHandler.Transfer)
	inv.Get("/:id", inventoryHandler.GetByID)
	inv.Delete("/:id", inventoryHandler.Delete)
	inv.Put("/:id/stock-levels", inventoryHandler.UpdateStockLevels)
	inv.Put("/:id/unit-cost", inventoryHandler.UpdateUnitCost)
	inv.Put("/:id/location", inventoryHandler.UpdateLocation)
	inv.Post("/:id/adjust", inventoryHandler.Adjust)
	inv.Post("/:id/count", inventoryHandler.Count)

	// Pick-packs
	packs := api.Group("/pick-packs")
	pickPackHandler := NewPickPackHandler(deps.PickPacks)
	packs.Post("/", pickPackHandler.Create)
	packs.Get("/", pickPackHandler.ListByOrder)
	packs.Get("/:id", pickPackHandler.GetByID)
	packs.Delete("/:id", pickPackHandler.Delete)
	packs.Get("/:id/packing-slip", pickPackHandler.PackingSlip)
	packs.Post("/:id/start-picking", pickPackHandler.StartPicking)
	packs.Post("/:id/complete-picking", pickPackHandler.CompletePicking)
	packs.Post("/:id/start-packing", pickPackHandler.StartPacking)
	packs.Post("/:id/complete-packing", pickPackHandler.CompletePacking)
	packs.Post("/:id/ship", pickPackHandler.Ship)
	packs.Post("/:id/cancel", pickPackHandler.Cancel)
	packs.Put("/:id/details", pickPackHandler.UpdateDetails)
	packs.Put("/:id/notes", pickPackHandler.UpdateNotes)
	packs.Post("/:id/items/:itemId/pick", pickPackHandler.PickItem)
	packs.Post("/:id/items/:itemId/pack", pickPackHandler.PackItem)
}

// accessLog una línea por petición con request id, estado y latencia.
func accessLog(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error().Err(err)
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_id", GetUserID(c)).
			Msg("request")
		return err
	}
}
