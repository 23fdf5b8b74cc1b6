package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Libro de movimientos
// ──────────────────────────────────────────────────────────────────────────────

func seedLedger(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, nil)
	f.addProduct(t, "P", 0)
	f.addProduct(t, "Q", 0)
	f.addWarehouse(t, "A")
	f.addWarehouse(t, "B")
	f.adjust(t, entity.WarehouseScope("P", "A"), 10)
	f.adjust(t, entity.WarehouseScope("Q", "B"), 3)
	_, err := f.coord.TransferStock(context.Background(), entity.WarehouseScope("P", "A"), entity.WarehouseScope("P", "B"), 4, inventory.Meta{ReferenceNumber: "TR-7"})
	require.NoError(t, err)
	f.adjust(t, entity.WarehouseScope("P", "B"), -1)
	return f
}

func TestLedgerQuery_OrdenPorDefectoMasRecientePrimero(t *testing.T) {
	f := seedLedger(t)
	list, err := inventory.Collect(f.ledger.Query(context.Background(), repository.MovementFilter{}, repository.MovementQueryOptions{}))
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i-1].Sequence, list[i].Sequence)
		assert.False(t, list[i-1].CreatedAt.Before(list[i].CreatedAt))
	}
	assert.Equal(t, entity.MovementTypeOutgoing, list[0].Type)
}

func TestLedgerQuery_Filtros(t *testing.T) {
	f := seedLedger(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter repository.MovementFilter
		want   int
	}{
		{"por producto", repository.MovementFilter{ProductID: "P"}, 3},
		{"por bodega incluye origen y destino de traslados", repository.MovementFilter{WarehouseID: "B"}, 3},
		{"por tipo", repository.MovementFilter{Types: []string{entity.MovementTypeTransfer}}, 1},
		{"por varios tipos", repository.MovementFilter{Types: []string{entity.MovementTypeIncoming, entity.MovementTypeOutgoing}}, 3},
		{"por referencia", repository.MovementFilter{ReferenceNumber: "TR-7"}, 1},
		{"sin coincidencias", repository.MovementFilter{ProductID: "Z"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := inventory.Collect(f.ledger.Query(ctx, tc.filter, repository.MovementQueryOptions{}))
			require.NoError(t, err)
			assert.Len(t, list, tc.want)
		})
	}

	future := time.Now().Add(time.Hour)
	list, err := inventory.Collect(f.ledger.Query(ctx, repository.MovementFilter{From: &future}, repository.MovementQueryOptions{}))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLedgerQuery_LimiteYRelectura(t *testing.T) {
	f := seedLedger(t)
	seq := f.ledger.Query(context.Background(), repository.MovementFilter{ProductID: "P"},
		repository.MovementQueryOptions{Limit: 2, Order: repository.OldestFirst})

	first, err := inventory.Collect(seq)
	require.NoError(t, err)
	second, err := inventory.Collect(seq)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, entity.MovementTypeIncoming, first[0].Type)
	assert.Equal(t, entity.MovementTypeTransfer, first[1].Type)

	// Caso: sin límite se recorre el libro completo del producto.
	all, err := inventory.Collect(f.ledger.Query(context.Background(), repository.MovementFilter{ProductID: "P"},
		repository.MovementQueryOptions{}))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Cortar el recorrido antes del final no falla.
	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestLedgerAppend_ValidaCampos(t *testing.T) {
	f := newFixture(t, nil)
	err := f.ledger.Append(context.Background(), &entity.StockMovement{
		ProductID: "P", Type: entity.MovementTypeTransfer, Quantity: 2, SourceWarehouseID: "A", TargetWarehouseID: "A",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Empty(t, f.movements(t))
}

// El libro reproduce exactamente los agregados finales.
func TestReconciler_ReproduceAgregados(t *testing.T) {
	f := seedLedger(t)
	rec, err := inventory.NewReconciler(f.store, zeroLogger()).VerifyProduct(context.Background(), "P")
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.Equal(t, 3, rec.Movements)
	assert.Equal(t, int64(9), rec.CachedQuantity)
	assert.Equal(t, int64(9), rec.ReplayQuantity)

	_, err = inventory.NewReconciler(f.store, zeroLogger()).VerifyProduct(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ──────────────────────────────────────────────────────────────────────────────
// Lotes por vencer
// ──────────────────────────────────────────────────────────────────────────────

// Caso 5: B1 vence en 3 días, B2 en 40 → solo B1 dentro de 7 días.
func TestBatchTracker_ListExpiring(t *testing.T) {
	f := newFixture(t, nil)
	f.addPerishable(t, "L")
	today := time.Now()
	f.receive(t, "L", "B2", "", 8, today.AddDate(0, 0, 40))
	f.receive(t, "L", "B1", "", 4, today.AddDate(0, 0, 3))
	f.receive(t, "L", "B0", "", 2, today.AddDate(0, 0, -2))

	list, err := f.tracker.ListExpiring(context.Background(), 7, today)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B1", list[0].ID)

	list, err = f.tracker.ListExpiring(context.Background(), 60, today)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B1", list[0].ID)
	assert.Equal(t, "B2", list[1].ID)

	_, err = f.tracker.ListExpiring(context.Background(), -1, today)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestBatchTracker_ListExpiredYElegibles(t *testing.T) {
	f := newFixture(t, nil)
	f.addPerishable(t, "L")
	today := time.Now()
	f.receive(t, "L", "viejo", "", 2, today.AddDate(0, 0, -2))
	f.receive(t, "L", "hoy", "", 3, today)
	f.receive(t, "L", "nuevo", "", 5, today.AddDate(0, 0, 10))

	expired, err := f.tracker.ListExpired(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "viejo", expired[0].ID)

	// Los vencidos no se dan de baja solos.
	assert.Equal(t, int64(2), f.quantity(t, entity.Scope{BatchID: "viejo"}))

	eligible, err := f.tracker.EligibleForConsumption(context.Background(), "L", "", today)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "hoy", eligible[0].ID)
	assert.Equal(t, "nuevo", eligible[1].ID)

	// Un lote agotado deja de aparecer.
	_, err = f.coord.ConsumeFEFO(context.Background(), "L", "", 3, inventory.Meta{})
	require.NoError(t, err)
	list, err := f.tracker.ListExpiring(context.Background(), 30, today)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "nuevo", list[0].ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Monitor de reorden
// ──────────────────────────────────────────────────────────────────────────────

func TestReorderMonitor_BajoYAgotado(t *testing.T) {
	f := newFixture(t, nil)
	f.addProduct(t, "OK", 5)
	f.addProduct(t, "LOW", 5)
	f.addProduct(t, "OUT", 5)
	f.addWarehouse(t, "A")
	f.adjust(t, entity.ProductScope("OK"), 6)
	f.adjust(t, entity.ProductScope("LOW"), 5)
	f.adjust(t, entity.WarehouseScope("OUT", "A"), 2)
	f.adjust(t, entity.WarehouseScope("OUT", "A"), -2)
	ctx := context.Background()

	low, err := f.monitor.LowStock(ctx, "")
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "LOW", low[0].ProductID)
	assert.Equal(t, domaininv.StockStatusLow, low[0].Status)

	out, err := f.monitor.OutOfStock(ctx, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "OUT", out[0].ProductID)

	// Por bodega solo cuentan los productos presentes en ella.
	out, err = f.monitor.OutOfStock(ctx, "A")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].WarehouseID)
	low, err = f.monitor.LowStock(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestReorderMonitor_ReplenishmentList(t *testing.T) {
	f := newFixture(t, nil)
	f.addProduct(t, "LOW", 10)
	f.addProduct(t, "OUT", 4)
	f.addProduct(t, "OK", 1)
	f.adjust(t, entity.ProductScope("LOW"), 7)
	f.adjust(t, entity.ProductScope("OK"), 9)

	list, err := f.monitor.ReplenishmentList(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "OUT", list[0].ProductID)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(6), list[0].IdealStock)
	assert.Equal(t, int64(6), list[0].SuggestedOrderQty)
	assert.Equal(t, string(domaininv.StockStatusOutOfStock), list[0].Status)
	assert.Equal(t, "6000", list[0].EstimatedOrderValue.String())

	assert.Equal(t, "LOW", list[1].ProductID)
	assert.Equal(t, int64(15), list[1].IdealStock)
	assert.Equal(t, int64(8), list[1].SuggestedOrderQty)
	assert.Equal(t, 2, list[1].Priority)
}

type memoryHealthCache struct {
	items       map[string]*inventory.StockHealth
	invalidated int
}

func (c *memoryHealthCache) Get(_ context.Context, key string) (*inventory.StockHealth, bool, error) {
	h, ok := c.items[key]
	return h, ok, nil
}

func (c *memoryHealthCache) Set(_ context.Context, key string, h *inventory.StockHealth, _ time.Duration) error {
	c.items[key] = h
	return nil
}

func (c *memoryHealthCache) Invalidate(context.Context) error {
	c.items = map[string]*inventory.StockHealth{}
	c.invalidated++
	return nil
}

func TestReorderMonitor_StockHealthSeInvalidaTrasCommit(t *testing.T) {
	cache := &memoryHealthCache{items: map[string]*inventory.StockHealth{}}
	store := newFixture(t, nil).store
	repos := store.Repos()
	tracker := inventory.NewBatchTracker(repos.Batches, repos.Products)
	monitor := inventory.NewReorderMonitor(repos.Products, tracker, cache, inventory.ReorderMonitorConfig{ExpiringDays: 7, CacheTTL: time.Minute})
	f := newFixtureWithRunner(t, store, store, inventory.WithListener(monitor))
	f.addProduct(t, "P", 5)
	f.addPerishable(t, "L")
	f.adjust(t, entity.ProductScope("P"), 8)
	f.receive(t, "L", "b1", "", 20, time.Now().AddDate(0, 0, 2))
	ctx := context.Background()

	h, err := monitor.StockHealth(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, h.LowStock)
	require.Len(t, h.Expiring, 1)
	assert.Equal(t, "b1", h.Expiring[0].BatchID)
	assert.Equal(t, 2, h.Expiring[0].DaysLeft)

	cached, err := monitor.StockHealth(ctx, "")
	require.NoError(t, err)
	assert.Same(t, h, cached)

	f.adjust(t, entity.ProductScope("P"), -4)
	assert.GreaterOrEqual(t, cache.invalidated, 1)

	h, err = monitor.StockHealth(ctx, "")
	require.NoError(t, err)
	require.Len(t, h.LowStock, 1)
	assert.Equal(t, "P", h.LowStock[0].ProductID)
}
