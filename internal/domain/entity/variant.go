package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variant agrega una dimensión de atributo (p. ej. Talla=M) a un producto.
// (ProductID, AttributeName, Value) es único. Stock es caché derivado de sus contadores.
type Variant struct {
	ID              string
	ProductID       string
	AttributeName   string
	Value           string
	SKU             string
	PriceAdjustment decimal.Decimal
	Stock           int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
