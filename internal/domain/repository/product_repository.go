package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ProductLevel producto con la cantidad evaluada (global o de una bodega).
type ProductLevel struct {
	Product  *entity.Product
	Quantity int64
}

// ProductRepository define el puerto de lectura del catálogo de productos y de su caché de cantidad.
// GetByID devuelve (nil, nil) si no existe.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea el producto: serializa toda escritura de cantidades del producto.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateQuantity actualiza solo el caché de cantidad (usado por el agregador).
	UpdateQuantity(ctx context.Context, id string, quantity int64) error
	// ListAtOrBelowReorder productos cuya cantidad (en warehouseID, o global si es vacío)
	// es menor o igual a su nivel de reorden, con mayor déficit primero.
	ListAtOrBelowReorder(ctx context.Context, warehouseID string) ([]ProductLevel, error)
}
