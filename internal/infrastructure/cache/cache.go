// Package cache guarda el último resumen de salud de stock calculado por el monitor de reorden.
package cache

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

var (
	_ inventory.StockHealthCache = NoopStockHealthCache{}
	_ inventory.StockHealthCache = (*RedisStockHealthCache)(nil)
)

// NoopStockHealthCache no guarda nada: cada consulta recalcula.
type NoopStockHealthCache struct{}

func (NoopStockHealthCache) Get(_ context.Context, _ string) (*inventory.StockHealth, bool, error) {
	return nil, false, nil
}

func (NoopStockHealthCache) Set(_ context.Context, _ string, _ *inventory.StockHealth, _ time.Duration) error {
	return nil
}

func (NoopStockHealthCache) Invalidate(_ context.Context) error { return nil }
