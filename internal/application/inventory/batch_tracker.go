package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// BatchTracker expone los lotes en orden FEFO y señala los que vencen o ya vencieron.
// Solo lectura: nunca da de baja stock vencido.
type BatchTracker struct {
	batches  repository.BatchRepository
	products repository.ProductRepository
}

// NewBatchTracker construye el rastreador de lotes.
func NewBatchTracker(batches repository.BatchRepository, products repository.ProductRepository) *BatchTracker {
	return &BatchTracker{batches: batches, products: products}
}

// ListExpiring lotes con existencia que vencen en [asOf, asOf+withinDays], el más próximo primero.
func (t *BatchTracker) ListExpiring(ctx context.Context, withinDays int, asOf time.Time) ([]*entity.Batch, error) {
	if withinDays < 0 {
		return nil, domain.Invalid("within_days", "no puede ser negativo")
	}
	from := entity.StartOfDay(asOf)
	to := from.AddDate(0, 0, withinDays)
	list, err := t.batches.ListExpiringBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Batch, 0, len(list))
	for _, b := range list {
		if b.Quantity > 0 && b.ExpiresWithin(withinDays, asOf) {
			out = append(out, b)
		}
	}
	domaininv.SortFEFO(out)
	return out, nil
}

// ListExpired lotes con existencia cuyo vencimiento es anterior a asOf (señal de reporte).
func (t *BatchTracker) ListExpired(ctx context.Context, asOf time.Time) ([]*entity.Batch, error) {
	list, err := t.batches.ListExpiredBefore(ctx, entity.StartOfDay(asOf))
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Batch, 0, len(list))
	for _, b := range list {
		if b.Quantity > 0 && b.ExpiredAt(asOf) {
			out = append(out, b)
		}
	}
	domaininv.SortFEFO(out)
	return out, nil
}

// EligibleForConsumption lotes no vencidos con existencia de un producto (y bodega, si se indica)
// en el orden en que ConsumeFEFO los descontaría.
func (t *BatchTracker) EligibleForConsumption(ctx context.Context, productID, warehouseID string, asOf time.Time) ([]*entity.Batch, error) {
	if productID == "" {
		return nil, domain.Invalid("product_id", "requerido")
	}
	p, err := t.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	list, err := t.batches.ListByProduct(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Batch, 0, len(list))
	for _, b := range list {
		if b.Quantity > 0 && !b.ExpiredAt(asOf) {
			out = append(out, b)
		}
	}
	domaininv.SortFEFO(out)
	return out, nil
}
