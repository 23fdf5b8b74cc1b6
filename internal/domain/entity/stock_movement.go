package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementTypeIncoming   = "incoming"   // entrada
	MovementTypeOutgoing   = "outgoing"   // salida
	MovementTypeAdjustment = "adjustment" // corrección sin cambio de cantidad (solo nota)
	MovementTypeTransfer   = "transfer"   // traslado entre bodegas o entre lotes
)

// StockMovement es una entrada inmutable del libro de movimientos.
// Quantity siempre es una magnitud no negativa; la dirección la da Type.
// Para transfer: SourceWarehouseID/TargetWarehouseID (o SourceBatchID/TargetBatchID) obligatorios y distintos.
// Para el resto: WarehouseID/BatchID ubican el movimiento y los campos source/target van vacíos.
type StockMovement struct {
	ID                string
	Sequence          int64 // asignado por el libro, estrictamente creciente
	TransactionID     string
	ProductID         string
	VariantID         string
	WarehouseID       string
	BatchID           string
	Type              string
	Quantity          int64
	ReferenceNumber   string
	Notes             string
	SourceWarehouseID string
	TargetWarehouseID string
	SourceBatchID     string
	TargetBatchID     string
	CreatedAt         time.Time
	CreatedBy         string
}

// IsTransfer indica si es un traslado.
func (m *StockMovement) IsTransfer() bool { return m.Type == MovementTypeTransfer }

// SourceScope alcance hoja debitado por un traslado.
func (m *StockMovement) SourceScope() Scope {
	return Scope{ProductID: m.ProductID, VariantID: m.VariantID, WarehouseID: m.SourceWarehouseID, BatchID: m.SourceBatchID}.Leaf()
}

// TargetScope alcance hoja acreditado por un traslado.
func (m *StockMovement) TargetScope() Scope {
	return Scope{ProductID: m.ProductID, VariantID: m.VariantID, WarehouseID: m.TargetWarehouseID, BatchID: m.TargetBatchID}.Leaf()
}

// Scope alcance hoja de un movimiento que no es traslado.
func (m *StockMovement) Scope() Scope {
	return Scope{ProductID: m.ProductID, VariantID: m.VariantID, WarehouseID: m.WarehouseID, BatchID: m.BatchID}.Leaf()
}
