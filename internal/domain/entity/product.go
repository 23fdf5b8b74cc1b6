package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del inventario (multi-bodega).
// Quantity es un caché: siempre igual a la suma de sus contadores hoja (bodega, variante o lote)
// y solo lo modifica el agregador de cantidades.
type Product struct {
	ID           string
	SKU          string // único
	Name         string
	Category     string
	UnitPrice    decimal.Decimal
	ReorderLevel int64
	IsPerishable bool
	HasExpiry    bool // true: el stock vive en lotes con fecha de vencimiento
	Quantity     int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
