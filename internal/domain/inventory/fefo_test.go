package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func TestPlanFEFO(t *testing.T) {
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return today.AddDate(0, 0, n) }

	late := &entity.Batch{ID: "late", BatchNumber: "L-3", Quantity: 10, ExpiryDate: day(40)}
	soon := &entity.Batch{ID: "soon", BatchNumber: "L-2", Quantity: 4, ExpiryDate: day(3)}
	expired := &entity.Batch{ID: "old", BatchNumber: "L-1", Quantity: 9, ExpiryDate: day(-1)}
	empty := &entity.Batch{ID: "empty", BatchNumber: "L-0", Quantity: 0, ExpiryDate: day(1)}

	plan, shortfall := inventory.PlanFEFO([]*entity.Batch{late, expired, soon, empty}, 6, today)
	require.Len(t, plan, 2)
	assert.Equal(t, "soon", plan[0].Batch.ID)
	assert.Equal(t, int64(4), plan[0].Quantity)
	assert.Equal(t, "late", plan[1].Batch.ID)
	assert.Equal(t, int64(2), plan[1].Quantity)
	assert.Zero(t, shortfall)

	_, shortfall = inventory.PlanFEFO([]*entity.Batch{soon}, 6, today)
	assert.Equal(t, int64(2), shortfall)
}

func TestClassifyStock(t *testing.T) {
	assert.Equal(t, inventory.StockStatusOutOfStock, inventory.ClassifyStock(0, 5))
	assert.Equal(t, inventory.StockStatusLow, inventory.ClassifyStock(2, 5))
	assert.Equal(t, inventory.StockStatusLow, inventory.ClassifyStock(5, 5))
	assert.Equal(t, inventory.StockStatusOK, inventory.ClassifyStock(6, 5))
}
