package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockRepository define el puerto para los contadores hoja por alcance.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve la fila del alcance o una fila en cero si no existe.
	Get(ctx context.Context, scope entity.Scope) (*entity.Stock, error)
	// GetForUpdate igual que Get pero bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, scope entity.Scope) (*entity.Stock, error)
	Upsert(ctx context.Context, stock *entity.Stock) error
	// Sum suma todas las filas que coinciden con los campos no vacíos del alcance.
	Sum(ctx context.Context, scope entity.Scope) (int64, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.Stock, error)
	// HasLocated indica si el producto tiene alguna fila con cantidad distinta de cero asociada a una bodega.
	HasLocated(ctx context.Context, productID string) (bool, error)
}
