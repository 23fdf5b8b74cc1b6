package entity

import "time"

// Batch es un sub-inventario con fecha de vencimiento de un producto (FEFO).
// Quantity solo cambia mediante movimientos registrados en el libro.
type Batch struct {
	ID                string
	ProductID         string
	VariantID         string // opcional
	WarehouseID       string // opcional: bodega donde está el lote
	BatchNumber       string // único
	Quantity          int64
	ManufacturingDate *time.Time
	ExpiryDate        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Scope devuelve el alcance completo del lote (con variante y bodega si las tiene).
func (b *Batch) Scope() Scope {
	return Scope{ProductID: b.ProductID, VariantID: b.VariantID, WarehouseID: b.WarehouseID, BatchID: b.ID}
}

// ExpiresWithin indica si vence en [asOf, asOf+days] (por día calendario, UTC).
func (b *Batch) ExpiresWithin(days int, asOf time.Time) bool {
	start := StartOfDay(asOf)
	end := start.AddDate(0, 0, days)
	exp := StartOfDay(b.ExpiryDate)
	return !exp.Before(start) && !exp.After(end)
}

// ExpiredAt indica si la fecha de vencimiento es anterior al día asOf.
func (b *Batch) ExpiredAt(asOf time.Time) bool {
	return StartOfDay(b.ExpiryDate).Before(StartOfDay(asOf))
}

// StartOfDay trunca a medianoche UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
