package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Roles reconocidos en el claim "role" del token.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory  InventoryServices
	Warehouses repository.WarehouseRepository
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	stockWriters := RequireRole(RoleAdmin, RoleBodeguero)

	// Warehouses (solo lectura)
	warehouses := protected.Group("/warehouses", anyRole)
	warehouseHandler := NewWarehouseHandler(deps.Warehouses)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	// Inventario
	inv := protected.Group("/inventory")
	h := NewInventoryHandler(deps.Inventory)
	inv.Post("/adjustments", stockWriters, h.Adjust)
	inv.Post("/transfers", stockWriters, h.Transfer)
	inv.Post("/batches", stockWriters, h.ReceiveBatch)
	inv.Post("/consumptions", anyRole, h.Consume)
	inv.Post("/products/:id/reconcile", RequireRole(RoleAdmin), h.Reconcile)

	inv.Get("/quantity", anyRole, h.Quantity)
	inv.Get("/movements", anyRole, h.Movements)
	inv.Get("/batches/expiring", anyRole, h.ExpiringBatches)
	inv.Get("/batches/expired", anyRole, h.ExpiredBatches)
	inv.Get("/low-stock", anyRole, h.LowStock)
	inv.Get("/out-of-stock", anyRole, h.OutOfStock)
	inv.Get("/stock-health", anyRole, h.StockHealth)
	inv.Get("/replenishment-list", anyRole, h.GetReplenishmentList)
}
