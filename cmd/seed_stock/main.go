// seed_stock carga existencias iniciales desde un CSV (';', UTF-8 o ISO-8859-1).
// Crea las bodegas que no existan y un registro de inventario por fila; la cantidad inicial
// queda en la bitácora como INBOUND. Filas ya cargadas se omiten.
//
// Uso: go run ./cmd/seed_stock [ruta/existencias.csv]
package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/application/warehouse"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/infrastructure/cache"
	"github.com/jhoicas/stockflow/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow/pkg/config"
	"github.com/jhoicas/stockflow/pkg/logger"
)

func main() {
	path := "existencias.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_stock"})

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("abrir CSV")
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("leer CSV")
	}

	ctx := context.Background()
	if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	repos := postgres.NewRepositories(pool)
	tx := postgres.NewTxRunner(pool)
	warehouses := warehouse.NewUseCase(tx, repos.Warehouses, log)
	ledger := inventory.NewLedgerUseCase(tx, repos.Inventory, repos.Warehouses, cache.NoopCache{}, log, retry.Default())

	ids := map[string]string{}
	var created, skipped int
	for _, row := range rows {
		whID, ok := ids[row.WarehouseCode]
		if !ok {
			whID, err = ensureWarehouse(ctx, warehouses, row)
			if err != nil {
				log.Fatal().Err(err).Int("line", row.Line).Str("warehouse", row.WarehouseCode).Msg("bodega")
			}
			ids[row.WarehouseCode] = whID
		}
		_, err := ledger.Create(ctx, inventory.CreateCommand{
			ProductID:         row.ProductID,
			WarehouseID:       whID,
			Quantity:          row.Quantity,
			MinimumStockLevel: row.Minimum,
			MaximumStockLevel: row.Maximum,
			UnitCost:          row.UnitCost,
			Location:          row.Location,
			PerformedBy:       "seed_stock",
			Notes:             "carga inicial",
		})
		switch {
		case errors.Is(err, domain.ErrConflict):
			skipped++
		case err != nil:
			log.Fatal().Err(err).Int("line", row.Line).Str("product_id", row.ProductID).Msg("registro de inventario")
		default:
			created++
		}
	}
	log.Info().Int("rows", len(rows)).Int("created", created).Int("skipped", skipped).Msg("carga inicial terminada")
}

// ensureWarehouse busca la bodega por código y la crea si no existe.
func ensureWarehouse(ctx context.Context, uc *warehouse.UseCase, row stockRow) (string, error) {
	for offset := 0; ; offset += 100 {
		page, err := uc.List(ctx, false, dto.PageRequest{Limit: 100, Offset: offset})
		if err != nil {
			return "", err
		}
		for _, w := range page.Items {
			if strings.EqualFold(w.Code, row.WarehouseCode) {
				return w.ID, nil
			}
		}
		if offset+len(page.Items) >= page.Page.Total || len(page.Items) == 0 {
			break
		}
	}
	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: row.WarehouseCode, Name: row.WarehouseName})
	if err != nil {
		return "", err
	}
	return w.ID, nil
}
