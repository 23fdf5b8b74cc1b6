package inventory

import (
	"slices"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// CompareFEFO ordena por vencimiento más próximo; en empate, por número de lote.
func CompareFEFO(a, b *entity.Batch) int {
	if c := a.ExpiryDate.Compare(b.ExpiryDate); c != 0 {
		return c
	}
	if a.BatchNumber < b.BatchNumber {
		return -1
	}
	if a.BatchNumber > b.BatchNumber {
		return 1
	}
	return 0
}

// SortFEFO ordena los lotes en sitio (primero en vencer, primero en salir).
func SortFEFO(batches []*entity.Batch) {
	slices.SortStableFunc(batches, CompareFEFO)
}

// BatchAllocation cantidad a consumir de un lote.
type BatchAllocation struct {
	Batch    *entity.Batch
	Quantity int64
}

// PlanFEFO reparte amount entre los lotes con existencia, primero los no vencidos al día asOf
// en orden FEFO. Los vencidos no se consumen. Devuelve el faltante si no alcanza.
func PlanFEFO(batches []*entity.Batch, amount int64, asOf time.Time) ([]BatchAllocation, int64) {
	eligible := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b.Quantity > 0 && !b.ExpiredAt(asOf) {
			eligible = append(eligible, b)
		}
	}
	SortFEFO(eligible)

	remaining := amount
	var plan []BatchAllocation
	for _, b := range eligible {
		if remaining == 0 {
			break
		}
		take := min(b.Quantity, remaining)
		plan = append(plan, BatchAllocation{Batch: b, Quantity: take})
		remaining -= take
	}
	return plan, remaining
}
