package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/stockflow/internal/application/fulfillment"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/outbox"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/application/warehouse"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/infrastructure/cache"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/stockflow/internal/infrastructure/pdf"
	"github.com/jhoicas/stockflow/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stockflow/internal/interfaces/http"
	"github.com/jhoicas/stockflow/pkg/config"
	"github.com/jhoicas/stockflow/pkg/logger"
	"github.com/jhoicas/stockflow/pkg/telemetry"

	_ "github.com/jhoicas/stockflow/docs"
)

var version = "dev"

// @title                       Stockflow API
// @version                     1.0
// @description                 Ledger de inventario por bodega y flujo de alistamiento, empaque y despacho.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Bearer <token>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.StorageDriver).
		Str("version", version).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.App.Name,
		ServiceVersion: version,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	// Almacenamiento
	var (
		tx    ports.TxRunner
		repos ports.Repositories
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.NewStore()
		tx, repos = store, store.Repositories()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
			log.Info().Msg("migraciones aplicadas")
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		tx, repos = postgres.NewTxRunner(pool), postgres.NewRepositories(pool)
	}

	// Caché de reportes
	var reportCache ports.ReportCache = cache.NoopCache{}
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer client.Close()
		reportCache = cache.NewRedisReportCache(client, cfg.Redis.TTL)
	}

	// Destino del outbox
	var publisher outbox.Publisher = messaging.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("publicador Kafka")
		}
		publisher = kp
	}

	retryCfg := retry.Config{MaxRetries: cfg.Ledger.MaxRetries, InitialInterval: cfg.Ledger.InitialInterval}
	ledger := inventory.NewLedgerUseCase(tx, repos.Inventory, repos.Warehouses, reportCache, log, retryCfg)
	reports := inventory.NewReportUseCase(repos.Inventory, repos.Movements, reportCache, log)
	pickPacks := fulfillment.NewPickPackUseCase(
		tx, repos.PickPacks, repos.Warehouses, ledger,
		infrapdf.NewPackingSlipRenderer(cfg.App.Name),
		fulfillment.Policy{
			CompletionRules: entity.CompletionRules{
				RequireAllItemsPicked: cfg.Fulfillment.RequireAllPicked,
				RequireAllItemsPacked: cfg.Fulfillment.RequireAllPacked,
			},
			ReleaseReservationOnCancel: cfg.Fulfillment.ReleaseOnCancel,
		},
		retryCfg, log,
	)
	warehouseUC := warehouse.NewUseCase(tx, repos.Warehouses, log)

	relay := outbox.NewRelay(tx, publisher, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	}, log)
	relay.Start(ctx)

	docsPath := "./docs/swagger.json"
	if _, err := os.Stat(docsPath); err != nil {
		docsPath = ""
	}
	app := httpRouter.NewApp(cfg.App.Name, httpRouter.RouterDeps{
		WarehouseUC: warehouseUC,
		Ledger:      ledger,
		Reports:     reports,
		PickPacks:   pickPacks,
		JWTSecret:   cfg.JWT.Secret,
		Log:         log,
		DocsPath:    docsPath,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := relay.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("detener relay de outbox")
	}
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("cerrar publicador")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("vaciar trazas")
	}

	log.Info().Msg("aplicación detenida")
}
