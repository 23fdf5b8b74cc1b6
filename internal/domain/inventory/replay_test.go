package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func TestReplay_ReconstruyeContadores(t *testing.T) {
	movs := []*entity.StockMovement{
		{ID: "1", ProductID: "p", WarehouseID: "a", Type: entity.MovementTypeIncoming, Quantity: 10},
		{ID: "2", ProductID: "p", Type: entity.MovementTypeTransfer, Quantity: 4, SourceWarehouseID: "a", TargetWarehouseID: "b"},
		{ID: "3", ProductID: "p", WarehouseID: "b", Type: entity.MovementTypeOutgoing, Quantity: 1},
		{ID: "4", ProductID: "p", WarehouseID: "b", Type: entity.MovementTypeAdjustment, Notes: "recuento"},
		{ID: "5", ProductID: "p", BatchID: "l1", WarehouseID: "a", Type: entity.MovementTypeIncoming, Quantity: 7},
	}
	snap, err := inventory.Replay(nil, movs)
	require.NoError(t, err)

	assert.Equal(t, int64(6), snap[entity.WarehouseScope("p", "a")])
	assert.Equal(t, int64(3), snap[entity.WarehouseScope("p", "b")])
	assert.Equal(t, int64(7), snap[entity.BatchScope("p", "l1")])
	assert.Equal(t, int64(16), snap.Total("p"))
}

func TestReplay_DetectaNegativo(t *testing.T) {
	movs := []*entity.StockMovement{
		{ID: "1", ProductID: "p", Type: entity.MovementTypeOutgoing, Quantity: 1},
	}
	_, err := inventory.Replay(inventory.Snapshot{}, movs)
	assert.Error(t, err)
}

func TestReplay_RespetaEstadoInicial(t *testing.T) {
	initial := inventory.Snapshot{entity.ProductScope("p"): 20}
	movs := []*entity.StockMovement{
		{ID: "1", ProductID: "p", Type: entity.MovementTypeOutgoing, Quantity: 18},
	}
	snap, err := inventory.Replay(initial, movs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Total("p"))
	assert.Equal(t, int64(20), initial[entity.ProductScope("p")], "el estado inicial no se modifica")
}
