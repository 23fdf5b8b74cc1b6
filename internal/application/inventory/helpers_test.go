package inventory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

var errDisk = errors.New("disco lleno")

func zeroLogger() zerolog.Logger { return zerolog.Nop() }

type fixture struct {
	store   *memory.Store
	repos   inventory.Repos
	agg     *inventory.QuantityAggregator
	coord   *inventory.StockCoordinator
	ledger  *inventory.Ledger
	tracker *inventory.BatchTracker
	monitor *inventory.ReorderMonitor
}

func newFixture(t *testing.T, storeOpts []memory.Option, opts ...inventory.Option) *fixture {
	t.Helper()
	store := memory.NewStore(storeOpts...)
	return newFixtureWithRunner(t, store, store, opts...)
}

func newFixtureWithRunner(t *testing.T, store *memory.Store, runner inventory.TxRunner, opts ...inventory.Option) *fixture {
	t.Helper()
	repos := store.Repos()
	agg := inventory.NewQuantityAggregator(repos)
	tracker := inventory.NewBatchTracker(repos.Batches, repos.Products)
	monitor := inventory.NewReorderMonitor(repos.Products, tracker, nil, inventory.ReorderMonitorConfig{ExpiringDays: 7})
	return &fixture{
		store:   store,
		repos:   repos,
		agg:     agg,
		coord:   inventory.NewStockCoordinator(runner, agg, opts...),
		ledger:  inventory.NewLedger(repos.Movements),
		tracker: tracker,
		monitor: monitor,
	}
}

func (f *fixture) addProduct(t *testing.T, id string, reorder int64) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:           id,
		SKU:          "SKU-" + id,
		Name:         "Producto " + id,
		UnitPrice:    decimal.NewFromInt(1000),
		ReorderLevel: reorder,
	}
	require.NoError(t, f.store.AddProduct(p))
	return p
}

func (f *fixture) addPerishable(t *testing.T, id string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:           id,
		SKU:          "SKU-" + id,
		Name:         "Perecedero " + id,
		UnitPrice:    decimal.NewFromInt(500),
		ReorderLevel: 10,
		IsPerishable: true,
		HasExpiry:    true,
	}
	require.NoError(t, f.store.AddProduct(p))
	return p
}

func (f *fixture) addWarehouse(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.AddWarehouse(&entity.Warehouse{ID: id, Name: "Bodega " + id, Active: true}))
}

func (f *fixture) addVariant(t *testing.T, productID, id, value string) {
	t.Helper()
	require.NoError(t, f.store.AddVariant(&entity.Variant{ID: id, ProductID: productID, AttributeName: "Talla", Value: value}))
}

func (f *fixture) adjust(t *testing.T, scope entity.Scope, delta int64) {
	t.Helper()
	_, err := f.coord.AdjustQuantity(context.Background(), scope, delta, inventory.Meta{Notes: "carga inicial"})
	require.NoError(t, err)
}

func (f *fixture) receive(t *testing.T, productID, batchID, warehouseID string, qty int64, expiry time.Time) {
	t.Helper()
	_, err := f.coord.ReceiveBatch(context.Background(), inventory.BatchReceipt{
		BatchID:     batchID,
		ProductID:   productID,
		WarehouseID: warehouseID,
		BatchNumber: "L-" + batchID,
		Quantity:    qty,
		ExpiryDate:  expiry,
	})
	require.NoError(t, err)
}

func (f *fixture) quantity(t *testing.T, scope entity.Scope) int64 {
	t.Helper()
	q, err := f.agg.GetQuantity(context.Background(), scope)
	require.NoError(t, err)
	return q
}

func (f *fixture) movements(t *testing.T) []*entity.StockMovement {
	t.Helper()
	list, err := inventory.Collect(f.ledger.Query(context.Background(),
		repository.MovementFilter{}, repository.MovementQueryOptions{Order: repository.OldestFirst}))
	require.NoError(t, err)
	return list
}

// ── Inyección de fallos ─────────────────────────────────────────────────────

// faultyRunner decora los repositorios de cada unidad de trabajo.
type faultyRunner struct {
	inner *memory.Store
	wrap  func(tx inventory.Repos) inventory.Repos
}

func (r *faultyRunner) Run(ctx context.Context, fn func(ctx context.Context, tx inventory.Repos) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, tx inventory.Repos) error {
		return fn(ctx, r.wrap(tx))
	})
}

func (r *faultyRunner) Atomic() bool { return r.inner.Atomic() }

type failingMovements struct {
	repository.StockMovementRepository
	err error
}

func (m failingMovements) Append(context.Context, *entity.StockMovement) error { return m.err }

// flakyMovements falla los Append cuyo número (1, 2, ...) cumpla fail.
type flakyMovements struct {
	repository.StockMovementRepository
	calls *atomic.Int64
	fail  func(n int64) bool
}

func (m flakyMovements) Append(ctx context.Context, mv *entity.StockMovement) error {
	if m.fail(m.calls.Add(1)) {
		return errDisk
	}
	return m.StockMovementRepository.Append(ctx, mv)
}

// failingStock falla los Upsert cuyo número (1, 2, ...) cumpla fail.
type failingStock struct {
	repository.StockRepository
	calls *atomic.Int64
	fail  func(n int64) bool
	hook  func(n int64)
}

func (s failingStock) Upsert(ctx context.Context, st *entity.Stock) error {
	n := s.calls.Add(1)
	if s.hook != nil {
		s.hook(n)
	}
	if s.fail != nil && s.fail(n) {
		return errDisk
	}
	return s.StockRepository.Upsert(ctx, st)
}
