package entity

import "time"

// Stock es un contador hoja: la cantidad de un producto en un alcance normalizado
// (ver Scope.Leaf). Los cachés de producto, variante y lote se recalculan desde estas filas.
type Stock struct {
	ProductID   string
	VariantID   string
	WarehouseID string
	BatchID     string
	Quantity    int64
	UpdatedAt   time.Time
}

// Scope devuelve el alcance de la fila.
func (s *Stock) Scope() Scope {
	return Scope{ProductID: s.ProductID, VariantID: s.VariantID, WarehouseID: s.WarehouseID, BatchID: s.BatchID}
}

// Matches indica si la fila contribuye a la cantidad del alcance q
// (todos los campos no vacíos de q coinciden).
func (s *Stock) Matches(q Scope) bool {
	if q.ProductID != "" && q.ProductID != s.ProductID {
		return false
	}
	if q.VariantID != "" && q.VariantID != s.VariantID {
		return false
	}
	if q.WarehouseID != "" && q.WarehouseID != s.WarehouseID {
		return false
	}
	if q.BatchID != "" && q.BatchID != s.BatchID {
		return false
	}
	return true
}
