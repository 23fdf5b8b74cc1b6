package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// InventoryServices servicios del motor de inventario que expone la API.
type InventoryServices struct {
	Coordinator *inventory.StockCoordinator
	Aggregator  *inventory.QuantityAggregator
	Ledger      *inventory.Ledger
	Tracker     *inventory.BatchTracker
	Monitor     *inventory.ReorderMonitor
	Reconciler  *inventory.Reconciler
	Now         func() time.Time
}

// InventoryHandler maneja las peticiones HTTP de cantidades, movimientos y lotes (protegido).
type InventoryHandler struct {
	svc InventoryServices
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(svc InventoryServices) *InventoryHandler {
	if svc.Now == nil {
		svc.Now = time.Now
	}
	return &InventoryHandler{svc: svc}
}

// Adjust godoc
// @Summary      Ajustar cantidad de un alcance
// @Description  delta con signo o new_quantity absoluta (no ambos). El tipo de movimiento se infiere.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "alcance + delta o new_quantity"
// @Success      201   {object}  dto.StockOperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	meta := inventory.Meta{ReferenceNumber: in.ReferenceNumber, Notes: in.Notes}
	scope := toScope(in.ScopeDTO)

	var (
		out *inventory.Outcome
		err error
	)
	switch {
	case in.Delta != nil && in.NewQuantity != nil:
		return badRequest(c, "VALIDATION", "indique delta o new_quantity, no ambos")
	case in.Delta != nil:
		out, err = h.svc.Coordinator.AdjustQuantity(c.UserContext(), scope, *in.Delta, meta)
	case in.NewQuantity != nil:
		out, err = h.svc.Coordinator.SetQuantity(c.UserContext(), scope, *in.NewQuantity, meta)
	default:
		return badRequest(c, "VALIDATION", "delta o new_quantity es requerido")
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(out))
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas o entre lotes
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferStockRequest  true  "product_id + source/target_warehouse_id, o source/target_batch_id"
// @Success      201   {object}  dto.StockOperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	meta := inventory.Meta{ReferenceNumber: in.ReferenceNumber, Notes: in.Notes}

	var (
		out *inventory.Outcome
		err error
	)
	if in.SourceBatchID != "" || in.TargetBatchID != "" {
		out, err = h.svc.Coordinator.TransferBatch(c.UserContext(), in.SourceBatchID, in.TargetBatchID, in.Quantity, meta)
	} else {
		out, err = h.svc.Coordinator.TransferStock(c.UserContext(),
			entity.WarehouseScope(in.ProductID, in.SourceWarehouseID),
			entity.WarehouseScope(in.ProductID, in.TargetWarehouseID),
			in.Quantity, meta)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(out))
}

// ReceiveBatch godoc
// @Summary      Recibir un lote con vencimiento
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveBatchRequest  true  "Datos del lote (fechas YYYY-MM-DD)"
// @Success      201   {object}  dto.StockOperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/batches [post]
func (h *InventoryHandler) ReceiveBatch(c *fiber.Ctx) error {
	var in dto.ReceiveBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	expiry, err := parseDate("expiry_date", in.ExpiryDate)
	if err != nil {
		return writeError(c, err)
	}
	if expiry == nil {
		return writeError(c, domain.Invalid("expiry_date", "requerida"))
	}
	manufactured, err := parseDate("manufacturing_date", in.ManufacturingDate)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.Coordinator.ReceiveBatch(c.UserContext(), inventory.BatchReceipt{
		ProductID:         in.ProductID,
		VariantID:         in.VariantID,
		WarehouseID:       in.WarehouseID,
		BatchNumber:       in.BatchNumber,
		Quantity:          in.Quantity,
		ManufacturingDate: manufactured,
		ExpiryDate:        *expiry,
		Meta:              inventory.Meta{ReferenceNumber: in.ReferenceNumber, Notes: in.Notes},
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(out))
}

// Consume godoc
// @Summary      Consumir stock por lotes (FEFO)
// @Description  Descuenta primero del lote que vence antes; nunca de lotes vencidos.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeStockRequest  true  "product_id, warehouse_id opcional, quantity"
// @Success      201   {object}  dto.StockOperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/consumptions [post]
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.svc.Coordinator.ConsumeFEFO(c.UserContext(), in.ProductID, in.WarehouseID, in.Quantity,
		inventory.Meta{ReferenceNumber: in.ReferenceNumber, Notes: in.Notes})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(out))
}

// Quantity godoc
// @Summary      Cantidad actual de un alcance
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        variant_id    query  string  false  "Variante"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        batch_id      query  string  false  "Lote"
// @Success      200  {object}  dto.QuantityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/quantity [get]
func (h *InventoryHandler) Quantity(c *fiber.Ctx) error {
	var in dto.ScopeDTO
	if err := c.QueryParser(&in); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	q, err := h.svc.Aggregator.GetQuantity(c.UserContext(), toScope(in))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.QuantityResponse{ScopeDTO: in, Quantity: q})
}

// Movements godoc
// @Summary      Consultar el libro de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id        query  string  false  "Producto"
// @Param        warehouse_id      query  string  false  "Bodega (ubicación, origen o destino)"
// @Param        batch_id          query  string  false  "Lote"
// @Param        types             query  string  false  "incoming,outgoing,adjustment,transfer"
// @Param        reference_number  query  string  false  "Referencia"
// @Param        from              query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to                query  string  false  "Hasta (RFC3339 o YYYY-MM-DD)"
// @Param        order             query  string  false  "asc|desc"  default(desc)
// @Param        limit             query  int     false  "Límite"    default(100)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	var in dto.MovementQueryRequest
	if err := c.QueryParser(&in); err != nil {
		return badRequest(c, "INVALID_QUERY", "parámetros inválidos")
	}
	filter, opts, err := toMovementQuery(in)
	if err != nil {
		return writeError(c, err)
	}
	list, err := inventory.Collect(h.svc.Ledger.Query(c.UserContext(), filter, opts))
	if err != nil {
		return writeError(c, err)
	}
	items := toMovementDTOs(list)
	return c.JSON(dto.MovementListResponse{Items: items, Count: len(items)})
}

// ExpiringBatches godoc
// @Summary      Lotes que vencen pronto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        days   query  int     false  "Ventana en días"  default(30)
// @Param        as_of  query  string  false  "Fecha de referencia YYYY-MM-DD (hoy por defecto)"
// @Success      200  {array}   dto.BatchDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/batches/expiring [get]
func (h *InventoryHandler) ExpiringBatches(c *fiber.Ctx) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.Tracker.ListExpiring(c.UserContext(), c.QueryInt("days", 30), asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toBatchDTOs(list))
}

// ExpiredBatches godoc
// @Summary      Lotes vencidos con existencia
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        as_of  query  string  false  "Fecha de referencia YYYY-MM-DD (hoy por defecto)"
// @Success      200  {array}   dto.BatchDTO
// @Router       /api/inventory/batches/expired [get]
func (h *InventoryHandler) ExpiredBatches(c *fiber.Ctx) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.Tracker.ListExpired(c.UserContext(), asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toBatchDTOs(list))
}

func (h *InventoryHandler) asOf(c *fiber.Ctx) (time.Time, error) {
	t, err := parseDate("as_of", c.Query("as_of"))
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return h.svc.Now(), nil
	}
	return *t, nil
}

// LowStock godoc
// @Summary      Productos en bajo stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega. Vacío = stock global."
// @Success      200  {array}  inventory.StockLevel
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	list, err := h.svc.Monitor.LowStock(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// OutOfStock godoc
// @Summary      Productos agotados
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega. Vacío = stock global."
// @Success      200  {array}  inventory.StockLevel
// @Router       /api/inventory/out-of-stock [get]
func (h *InventoryHandler) OutOfStock(c *fiber.Ctx) error {
	list, err := h.svc.Monitor.OutOfStock(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// StockHealth godoc
// @Summary      Resumen de salud de stock (bajo, agotado y por vencer)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega. Vacío = stock global."
// @Success      200  {object}  inventory.StockHealth
// @Router       /api/inventory/stock-health [get]
func (h *InventoryHandler) StockHealth(c *fiber.Ctx) error {
	health, err := h.svc.Monitor.StockHealth(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(health)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  SKUs en o por debajo del punto de reorden con la cantidad sugerida de pedido,
//
//	primero los agotados y luego los de mayor déficit.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega. Vacío = stock global."
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.svc.Monitor.ReplenishmentList(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

// Reconcile godoc
// @Summary      Conciliar un producto contra su libro de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ReconciliationDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/reconcile [post]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "MISSING_ID", "id es requerido")
	}
	rec, err := h.svc.Reconciler.VerifyProduct(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toReconciliationDTO(rec))
}
