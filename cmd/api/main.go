package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// backend repositorios y ejecutor de transacciones del driver elegido.
type backend struct {
	runner inventory.TxRunner
	repos  inventory.Repos
	close  func()
}

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
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer be.close()

	var healthCache inventory.StockHealthCache = cache.NoopStockHealthCache{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisStockHealthCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.DefaultPrefix)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, resumen de salud sin caché")
			_ = rc.Close()
		} else {
			healthCache = rc
			defer rc.Close()
		}
		cancel()
	}

	agg := inventory.NewQuantityAggregator(be.repos)
	tracker := inventory.NewBatchTracker(be.repos.Batches, be.repos.Products)
	monitor := inventory.NewReorderMonitor(be.repos.Products, tracker, healthCache, inventory.ReorderMonitorConfig{
		ExpiringDays: cfg.Inventory.ExpiringDays,
		CacheTTL:     cfg.Inventory.HealthCacheTTL(),
		Logger:       log.Component("reorder_monitor"),
	})
	coord := inventory.NewStockCoordinator(be.runner, agg,
		inventory.WithLogger(log.Component("coordinator")),
		inventory.WithAuthorizer(inventory.DefaultRolePolicy()),
		inventory.WithListener(monitor),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Inventory: httpRouter.InventoryServices{
			Coordinator: coord,
			Aggregator:  agg,
			Ledger:      inventory.NewLedger(be.repos.Movements),
			Tracker:     tracker,
			Monitor:     monitor,
			Reconciler:  inventory.NewReconciler(be.runner, log.Component("reconciler")),
		},
		Warehouses: be.repos.Warehouses,
		JWTSecret:  cfg.JWT.Secret,
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

	log.Info().Msg("aplicación detenida")
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.Storage.Driver == config.DriverPostgres {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &backend{
			runner: postgres.NewTxRunner(pool, cfg.DB.LockTimeout()),
			repos:  postgres.NewRepos(pool),
			close:  pool.Close,
		}, nil
	}

	store := memory.NewStore(memory.WithLockTimeout(cfg.Inventory.LockTimeout()))
	if cfg.Storage.CatalogFile != "" {
		if err := seedCatalog(store, cfg.Storage.CatalogFile, cfg.Storage.CatalogCharset); err != nil {
			return nil, err
		}
		log.Info().Str("file", cfg.Storage.CatalogFile).Msg("catálogo sembrado en memoria")
	} else {
		log.Warn().Msg("almacén en memoria sin catálogo (CATALOG_FILE vacío)")
	}
	return &backend{runner: store, repos: store.Repos(), close: func() {}}, nil
}

func seedCatalog(store *memory.Store, path, charset string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	c, err := catalog.Read(f, charset)
	if err != nil {
		return err
	}
	return c.Seed(store)
}
