package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
)

var handlerToday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// buildInventoryApp arma el router completo sobre el almacén en memoria con
// un producto P1 (reorden 5) y las bodegas A y B.
func buildInventoryApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	store := memory.NewStore(memory.WithClock(func() time.Time { return handlerToday }))
	require.NoError(t, store.AddProduct(&entity.Product{
		ID: "P1", SKU: "SKU-P1", Name: "Camiseta", UnitPrice: decimal.NewFromInt(25000), ReorderLevel: 5,
	}))
	require.NoError(t, store.AddWarehouse(&entity.Warehouse{ID: "A", Name: "Bodega A", Active: true}))
	require.NoError(t, store.AddWarehouse(&entity.Warehouse{ID: "B", Name: "Bodega B", Active: true}))

	repos := store.Repos()
	agg := inventory.NewQuantityAggregator(repos)
	tracker := inventory.NewBatchTracker(repos.Batches, repos.Products)
	monitor := inventory.NewReorderMonitor(repos.Products, tracker, nil, inventory.ReorderMonitorConfig{
		ExpiringDays: 30,
		Now:          func() time.Time { return handlerToday },
	})
	coord := inventory.NewStockCoordinator(store, agg,
		inventory.WithAuthorizer(inventory.DefaultRolePolicy()),
		inventory.WithListener(monitor),
		inventory.WithClock(func() time.Time { return handlerToday }),
	)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Inventory: apphttp.InventoryServices{
			Coordinator: coord,
			Aggregator:  agg,
			Ledger:      inventory.NewLedger(repos.Movements),
			Tracker:     tracker,
			Monitor:     monitor,
			Reconciler:  inventory.NewReconciler(store, zeroLog()),
			Now:         func() time.Time { return handlerToday },
		},
		Warehouses: repos.Warehouses,
		JWTSecret:  testJWTSecret,
	})
	return app, store
}

func send(t *testing.T, app *fiber.App, method, path, role string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func zeroLog() zerolog.Logger { return zerolog.Nop() }

func ptr(v int64) *int64 { return &v }

// ── Ajustes ─────────────────────────────────────────────────────────────────

func TestAdjust_DeltaYCantidadAbsoluta(t *testing.T) {
	app, _ := buildInventoryApp(t)

	// Caso 1: delta positivo en (P1, A) → 201 y entrada registrada
	resp := send(t, app, http.MethodPost, "/api/inventory/adjustments", "bodeguero",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, Delta: ptr(10), ReferenceNumber: "OC-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.StockOperationResponse](t, resp)
	assert.Equal(t, int64(10), out.ProductQuantity)
	require.Len(t, out.Movements, 1)
	assert.Equal(t, entity.MovementTypeIncoming, out.Movements[0].MovementType)
	assert.Equal(t, "OC-1", out.Movements[0].ReferenceNumber)

	// Caso 2: new_quantity 7 → salida de 3
	resp = send(t, app, http.MethodPost, "/api/inventory/adjustments", "admin",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, NewQuantity: ptr(7)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out = decode[dto.StockOperationResponse](t, resp)
	assert.Equal(t, int64(7), out.ProductQuantity)
	assert.Equal(t, entity.MovementTypeOutgoing, out.Movements[0].MovementType)
	assert.Equal(t, int64(3), out.Movements[0].Quantity)

	// Caso 3: ambos campos → 400
	resp = send(t, app, http.MethodPost, "/api/inventory/adjustments", "admin",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, Delta: ptr(1), NewQuantity: ptr(1)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdjust_StockInsuficienteRetorna409(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/adjustments", "admin",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, Delta: ptr(-1)})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
}

func TestAdjust_VendedorNoPuedeAjustar(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/adjustments", "vendedor",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, Delta: ptr(1)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdjust_ProductoInexistenteRetorna404(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/adjustments", "admin",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "NOPE", WarehouseID: "A"}, Delta: ptr(1)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ── Traslados y consultas ───────────────────────────────────────────────────

func TestTransfer_YConsultaDeMovimientos(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/adjustments", "admin",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, Delta: ptr(10)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = send(t, app, http.MethodPost, "/api/inventory/transfers", "bodeguero", dto.TransferStockRequest{
		ProductID: "P1", SourceWarehouseID: "A", TargetWarehouseID: "B", Quantity: 4, ReferenceNumber: "TR-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.StockOperationResponse](t, resp)
	require.Len(t, out.Movements, 1)
	assert.Equal(t, entity.MovementTypeTransfer, out.Movements[0].MovementType)
	assert.Equal(t, "A", out.Movements[0].SourceWarehouseID)
	assert.Equal(t, "B", out.Movements[0].TargetWarehouseID)
	assert.Equal(t, int64(10), out.ProductQuantity)

	resp = send(t, app, http.MethodGet, "/api/inventory/quantity?product_id=P1&warehouse_id=B", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decode[dto.QuantityResponse](t, resp)
	assert.Equal(t, int64(4), q.Quantity)

	resp = send(t, app, http.MethodGet, "/api/inventory/movements?warehouse_id=B&types=transfer", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.MovementListResponse](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "TR-1", list.Items[0].ReferenceNumber)

	resp = send(t, app, http.MethodGet, "/api/inventory/movements?order=asc", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = decode[dto.MovementListResponse](t, resp)
	require.Equal(t, 2, list.Count)
	assert.Less(t, list.Items[0].Sequence, list.Items[1].Sequence)
}

func TestTransfer_MismaBodegaRetorna400(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/transfers", "admin", dto.TransferStockRequest{
		ProductID: "P1", SourceWarehouseID: "A", TargetWarehouseID: "A", Quantity: 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMovements_ParametrosInvalidos(t *testing.T) {
	app, _ := buildInventoryApp(t)
	for _, q := range []string{"types=robo", "order=up", "limit=-1", "from=ayer"} {
		resp := send(t, app, http.MethodGet, "/api/inventory/movements?"+q, "admin", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		resp.Body.Close()
	}
}

// ── Lotes ───────────────────────────────────────────────────────────────────

func TestReceiveBatch_YConsumoFEFO(t *testing.T) {
	app, _ := buildInventoryApp(t)
	for _, b := range []dto.ReceiveBatchRequest{
		{ProductID: "P1", WarehouseID: "A", BatchNumber: "L-TARDE", Quantity: 5, ExpiryDate: "2026-04-30"},
		{ProductID: "P1", WarehouseID: "A", BatchNumber: "L-PRONTO", Quantity: 5, ExpiryDate: "2026-03-05"},
	} {
		resp := send(t, app, http.MethodPost, "/api/inventory/batches", "bodeguero", b)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := send(t, app, http.MethodGet, "/api/inventory/batches/expiring?days=7", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	expiring := decode[[]dto.BatchDTO](t, resp)
	require.Len(t, expiring, 1)
	assert.Equal(t, "L-PRONTO", expiring[0].BatchNumber)

	resp = send(t, app, http.MethodPost, "/api/inventory/consumptions", "vendedor",
		dto.ConsumeStockRequest{ProductID: "P1", WarehouseID: "A", Quantity: 7, ReferenceNumber: "FV-9"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.StockOperationResponse](t, resp)
	require.Len(t, out.Movements, 2)
	assert.Equal(t, int64(5), out.Movements[0].Quantity)
	assert.Equal(t, int64(2), out.Movements[1].Quantity)
	assert.Equal(t, int64(3), out.ProductQuantity)
}

func TestReceiveBatch_FechaInvalida(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/batches", "admin",
		dto.ReceiveBatchRequest{ProductID: "P1", BatchNumber: "L1", Quantity: 1, ExpiryDate: "30/04/2026"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/api/inventory/batches", "admin",
		dto.ReceiveBatchRequest{ProductID: "P1", BatchNumber: "L1", Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Monitoreo y conciliación ────────────────────────────────────────────────

func TestLowStockYConciliacion(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodPost, "/api/inventory/adjustments", "admin",
		dto.AdjustStockRequest{ScopeDTO: dto.ScopeDTO{ProductID: "P1", WarehouseID: "A"}, Delta: ptr(3)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = send(t, app, http.MethodGet, "/api/inventory/low-stock", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	low := decode[[]inventory.StockLevel](t, resp)
	require.Len(t, low, 1)
	assert.Equal(t, "P1", low[0].ProductID)

	// Caso: la conciliación es solo para admin
	resp = send(t, app, http.MethodPost, "/api/inventory/products/P1/reconcile", "bodeguero", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/api/inventory/products/P1/reconcile", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[dto.ReconciliationDTO](t, resp)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(3), rec.ReplayQuantity)
}

func TestWarehouses_Listado(t *testing.T) {
	app, _ := buildInventoryApp(t)
	resp := send(t, app, http.MethodGet, "/api/warehouses?limit=1", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.WarehouseListResponse](t, resp)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page.Limit)

	resp = send(t, app, http.MethodGet, "/api/warehouses?limit=500", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = decode[dto.WarehouseListResponse](t, resp)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, dto.MaxPageLimit, list.Page.Limit)

	resp = send(t, app, http.MethodGet, "/api/warehouses/ZZ", "vendedor", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = send(t, app, http.MethodGet, "/api/warehouses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
