package inventory

import (
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// InferMovementType deduce el tipo de un ajuste simple a partir de la cantidad anterior y la nueva:
// incoming si sube, outgoing si baja, adjustment si no cambia (corrección solo de nota).
func InferMovementType(oldQty, newQty int64) string {
	switch {
	case newQty > oldQty:
		return entity.MovementTypeIncoming
	case newQty < oldQty:
		return entity.MovementTypeOutgoing
	default:
		return entity.MovementTypeAdjustment
	}
}

// Magnitude valor absoluto de un delta.
func Magnitude(delta int64) int64 {
	if delta < 0 {
		return -delta
	}
	return delta
}

// ValidateMovement verifica que los campos del movimiento sean coherentes con su tipo.
// Traslado: par de bodegas o par de lotes, ambos presentes y distintos; un par de lotes
// lleva además las bodegas cuando están en bodegas distintas.
// Resto: sin campos de origen/destino.
func ValidateMovement(m *entity.StockMovement) error {
	if m == nil {
		return domain.Invalid("movement", "requerido")
	}
	if m.ProductID == "" {
		return domain.Invalid("product_id", "requerido")
	}
	if m.Quantity < 0 {
		return domain.Invalid("quantity", "debe ser una magnitud no negativa")
	}
	switch m.Type {
	case entity.MovementTypeIncoming, entity.MovementTypeOutgoing:
		if m.Quantity == 0 {
			return domain.Invalid("quantity", "debe ser mayor que cero")
		}
	case entity.MovementTypeAdjustment:
		// Un ajuste registra una corrección sin cambio de cantidad; los cambios se infieren como entrada o salida.
		if m.Quantity != 0 {
			return domain.Invalid("quantity", "un ajuste no cambia la cantidad")
		}
	case entity.MovementTypeTransfer:
		if m.Quantity == 0 {
			return domain.Invalid("quantity", "debe ser mayor que cero")
		}
		return validateTransferEndpoints(m)
	default:
		return domain.Invalid("movement_type", "tipo desconocido: "+m.Type)
	}
	if m.SourceWarehouseID != "" || m.TargetWarehouseID != "" || m.SourceBatchID != "" || m.TargetBatchID != "" {
		return domain.Invalid("source/target", "solo aplican a traslados")
	}
	return nil
}

func validateTransferEndpoints(m *entity.StockMovement) error {
	byWarehouse := m.SourceWarehouseID != "" || m.TargetWarehouseID != ""
	byBatch := m.SourceBatchID != "" || m.TargetBatchID != ""
	switch {
	case byBatch:
		if m.SourceBatchID == "" || m.TargetBatchID == "" {
			return domain.Invalid("source_batch_id/target_batch_id", "ambos son obligatorios en un traslado")
		}
		if m.SourceBatchID == m.TargetBatchID {
			return domain.Invalid("target_batch_id", "debe ser distinto del lote origen")
		}
		// Entre lotes de bodegas distintas el movimiento también lleva las bodegas.
		if byWarehouse && m.SourceWarehouseID == m.TargetWarehouseID {
			return domain.Invalid("target_warehouse_id", "solo se indica si los lotes están en bodegas distintas")
		}
	case byWarehouse:
		if m.SourceWarehouseID == "" || m.TargetWarehouseID == "" {
			return domain.Invalid("source_warehouse_id/target_warehouse_id", "ambos son obligatorios en un traslado")
		}
		if m.SourceWarehouseID == m.TargetWarehouseID {
			return domain.Invalid("target_warehouse_id", "debe ser distinta de la bodega origen")
		}
	default:
		return domain.Invalid("source_warehouse_id/target_warehouse_id", "ambos son obligatorios en un traslado")
	}
	if m.WarehouseID != "" || m.BatchID != "" {
		return domain.Invalid("warehouse_id/batch_id", "un traslado se ubica con origen y destino")
	}
	return nil
}
