package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// VariantRepository define el puerto para variantes de producto.
type VariantRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Variant, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.Variant, error)
	UpdateStock(ctx context.Context, id string, stock int64) error
}
