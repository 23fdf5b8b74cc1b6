package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// BatchRepository define el puerto de persistencia para lotes.
type BatchRepository interface {
	// Create falla con domain.ErrDuplicate si el número de lote ya existe.
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	// Delete elimina un lote sin existencia; solo se usa para compensar una recepción fallida.
	Delete(ctx context.Context, id string) error
	UpdateQuantity(ctx context.Context, id string, quantity int64) error
	// ListByProduct lotes del producto (de una bodega si warehouseID no es vacío).
	ListByProduct(ctx context.Context, productID, warehouseID string) ([]*entity.Batch, error)
	// ListExpiringBetween lotes con existencia que vencen en [from, to], primero el más próximo.
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*entity.Batch, error)
	// ListExpiredBefore lotes con existencia cuyo vencimiento es anterior a asOf.
	ListExpiredBefore(ctx context.Context, asOf time.Time) ([]*entity.Batch, error)
}
