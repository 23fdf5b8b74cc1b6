package inventory

import (
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Snapshot cantidades por contador hoja (claves normalizadas con Scope.Leaf).
type Snapshot map[entity.Scope]int64

// Apply aplica un movimiento al snapshot. Falla si el movimiento deja un contador en negativo,
// lo que indica un libro inconsistente con el estado inicial.
func (s Snapshot) Apply(m *entity.StockMovement) error {
	switch m.Type {
	case entity.MovementTypeIncoming:
		s[m.Scope()] += m.Quantity
	case entity.MovementTypeOutgoing:
		return s.debit(m.Scope(), m)
	case entity.MovementTypeTransfer:
		if err := s.debit(m.SourceScope(), m); err != nil {
			return err
		}
		s[m.TargetScope()] += m.Quantity
	case entity.MovementTypeAdjustment:
	default:
		return fmt.Errorf("movimiento %s: tipo desconocido %q", m.ID, m.Type)
	}
	return nil
}

func (s Snapshot) debit(leaf entity.Scope, m *entity.StockMovement) error {
	if s[leaf] < m.Quantity {
		return fmt.Errorf("movimiento %s deja %s en negativo (%d - %d)", m.ID, leaf, s[leaf], m.Quantity)
	}
	s[leaf] -= m.Quantity
	return nil
}

// Total suma de todos los contadores de un producto.
func (s Snapshot) Total(productID string) int64 {
	var total int64
	for k, q := range s {
		if k.ProductID == productID {
			total += q
		}
	}
	return total
}

// Replay reconstruye las cantidades hoja desde un estado inicial y los movimientos en orden de inserción.
func Replay(initial Snapshot, movements []*entity.StockMovement) (Snapshot, error) {
	out := make(Snapshot, len(initial))
	for k, v := range initial {
		out[k] = v
	}
	for _, m := range movements {
		if err := out.Apply(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}
