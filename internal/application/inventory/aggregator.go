package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// QuantityAggregator responde "cuál es la cantidad actual" por producto, variante, lote o
// (producto, bodega) y mantiene los cachés de producto/variante/lote iguales a la suma de sus
// contadores hoja. Los cachés se recalculan en cada escritura; no hay contabilidad paralela.
type QuantityAggregator struct {
	repos Repos
	now   func() time.Time
}

// NewQuantityAggregator construye el agregador. repos se usa para lecturas fuera de transacción.
func NewQuantityAggregator(repos Repos) *QuantityAggregator {
	return &QuantityAggregator{repos: repos, now: time.Now}
}

// GetQuantity devuelve la cantidad confirmada del alcance (nunca negativa).
func (a *QuantityAggregator) GetQuantity(ctx context.Context, scope entity.Scope) (int64, error) {
	return quantityOf(ctx, a.repos, scope)
}

func quantityOf(ctx context.Context, r Repos, scope entity.Scope) (int64, error) {
	switch {
	case scope.IsZero():
		return 0, domain.Invalid("scope", "indique product_id, variant_id, warehouse_id o batch_id")
	case scope.BatchID != "":
		b, err := r.Batches.GetByID(ctx, scope.BatchID)
		if err != nil {
			return 0, err
		}
		if b == nil {
			return 0, fmt.Errorf("%w: lote %s", domain.ErrNotFound, scope.BatchID)
		}
		if scope.ProductID != "" && scope.ProductID != b.ProductID {
			return 0, domain.Invalid("batch_id", "el lote no pertenece al producto")
		}
		return b.Quantity, nil
	case scope.VariantID != "":
		v, err := r.Variants.GetByID(ctx, scope.VariantID)
		if err != nil {
			return 0, err
		}
		if v == nil {
			return 0, fmt.Errorf("%w: variante %s", domain.ErrNotFound, scope.VariantID)
		}
		if scope.ProductID != "" && scope.ProductID != v.ProductID {
			return 0, domain.Invalid("variant_id", "la variante no pertenece al producto")
		}
		if scope.WarehouseID != "" {
			return r.Stock.Sum(ctx, entity.Scope{ProductID: v.ProductID, VariantID: v.ID, WarehouseID: scope.WarehouseID})
		}
		return v.Stock, nil
	case scope.ProductID == "":
		return 0, domain.Invalid("product_id", "requerido junto a warehouse_id")
	}

	p, err := r.Products.GetByID(ctx, scope.ProductID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, fmt.Errorf("%w: producto %s", domain.ErrNotFound, scope.ProductID)
	}
	if scope.WarehouseID == "" {
		return p.Quantity, nil
	}
	w, err := r.Warehouses.GetByID(ctx, scope.WarehouseID)
	if err != nil {
		return 0, err
	}
	if w == nil {
		return 0, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, scope.WarehouseID)
	}
	return r.Stock.Sum(ctx, entity.WarehouseScope(p.ID, w.ID))
}

// Target alcance de escritura resuelto: el contador hoja y las entidades que lo componen.
// Resolver bloquea el producto hasta el fin de la unidad de trabajo.
type Target struct {
	Scope   entity.Scope
	Product *entity.Product
	Variant *entity.Variant
	Batch   *entity.Batch
}

// Resolve valida y normaliza un alcance de escritura dentro de tx. Reglas:
// los productos con lotes (o con vencimiento) se escriben por lote, los productos con variantes por variante,
// y el alcance de producto solo es escribible mientras el producto no tenga stock por bodega.
// Con estas reglas GetQuantity del alcance coincide con su contador hoja.
func (a *QuantityAggregator) Resolve(ctx context.Context, tx Repos, scope entity.Scope) (*Target, error) {
	t := &Target{}
	switch {
	case scope.IsZero():
		return nil, domain.Invalid("scope", "indique product_id, variant_id, warehouse_id o batch_id")
	case scope.BatchID != "":
		b, err := tx.Batches.GetByID(ctx, scope.BatchID)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, fmt.Errorf("%w: lote %s", domain.ErrNotFound, scope.BatchID)
		}
		if scope.ProductID != "" && scope.ProductID != b.ProductID {
			return nil, domain.Invalid("batch_id", "el lote no pertenece al producto")
		}
		if scope.WarehouseID != "" && scope.WarehouseID != b.WarehouseID {
			return nil, domain.Invalid("warehouse_id", "el lote está en otra bodega")
		}
		if scope.VariantID != "" && scope.VariantID != b.VariantID {
			return nil, domain.Invalid("variant_id", "el lote es de otra variante")
		}
		t.Batch = b
		t.Scope = b.Scope()
	case scope.VariantID != "":
		if scope.WarehouseID != "" {
			return nil, domain.Invalid("warehouse_id", "las variantes no se ubican por bodega")
		}
		v, err := tx.Variants.GetByID(ctx, scope.VariantID)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%w: variante %s", domain.ErrNotFound, scope.VariantID)
		}
		if scope.ProductID != "" && scope.ProductID != v.ProductID {
			return nil, domain.Invalid("variant_id", "la variante no pertenece al producto")
		}
		t.Variant = v
		t.Scope = entity.VariantScope(v.ProductID, v.ID)
	case scope.ProductID == "":
		return nil, domain.Invalid("product_id", "requerido")
	case scope.WarehouseID != "":
		w, err := tx.Warehouses.GetByID(ctx, scope.WarehouseID)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, scope.WarehouseID)
		}
		t.Scope = entity.WarehouseScope(scope.ProductID, w.ID)
	default:
		t.Scope = entity.ProductScope(scope.ProductID)
	}

	p, err := tx.Products.GetForUpdate(ctx, t.Scope.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, t.Scope.ProductID)
	}
	t.Product = p

	if t.Batch == nil {
		if p.HasExpiry {
			return nil, domain.Invalid("batch_id", "el producto maneja lotes con vencimiento")
		}
		batches, err := tx.Batches.ListByProduct(ctx, p.ID, "")
		if err != nil {
			return nil, err
		}
		if len(batches) > 0 {
			return nil, domain.Invalid("batch_id", "el producto maneja lotes")
		}
	}
	if t.Variant == nil && t.Batch == nil {
		variants, err := tx.Variants.ListByProduct(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(variants) > 0 {
			return nil, domain.Invalid("variant_id", "el producto maneja variantes")
		}
	}
	if t.Scope == entity.ProductScope(p.ID) {
		located, err := tx.Stock.HasLocated(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if located {
			return nil, domain.Invalid("warehouse_id", "el producto tiene stock por bodega")
		}
	}
	return t, nil
}

// Current cantidad del contador hoja del destino, bloqueando la fila.
func (a *QuantityAggregator) Current(ctx context.Context, tx Repos, t *Target) (int64, error) {
	leaf, err := tx.Stock.GetForUpdate(ctx, t.Scope)
	if err != nil {
		return 0, err
	}
	return leaf.Quantity, nil
}

// ApplyDelta es la única vía para cambiar una cantidad: resuelve el alcance, aplica delta al
// contador hoja y recalcula los cachés. Debe ejecutarse en la misma unidad de trabajo que la
// anotación en el libro. Rechaza por completo si la cantidad quedaría negativa.
func (a *QuantityAggregator) ApplyDelta(ctx context.Context, tx Repos, scope entity.Scope, delta int64) (int64, error) {
	t, err := a.Resolve(ctx, tx, scope)
	if err != nil {
		return 0, err
	}
	return a.Apply(ctx, tx, t, delta)
}

// Apply aplica delta sobre un destino ya resuelto.
func (a *QuantityAggregator) Apply(ctx context.Context, tx Repos, t *Target, delta int64) (int64, error) {
	leaf, err := tx.Stock.GetForUpdate(ctx, t.Scope)
	if err != nil {
		return 0, err
	}
	next := leaf.Quantity + delta
	if next < 0 {
		return 0, &domain.InsufficientStockError{Scope: t.Scope.Key(), Available: leaf.Quantity, Requested: -delta}
	}
	leaf.ProductID, leaf.VariantID, leaf.WarehouseID, leaf.BatchID = t.Scope.ProductID, t.Scope.VariantID, t.Scope.WarehouseID, t.Scope.BatchID
	leaf.Quantity = next
	leaf.UpdatedAt = a.now()
	if err := tx.Stock.Upsert(ctx, leaf); err != nil {
		return 0, err
	}
	if err := a.recompute(ctx, tx, t); err != nil {
		return 0, err
	}
	return next, nil
}

// recompute recalcula los cachés afectados desde los contadores hoja.
func (a *QuantityAggregator) recompute(ctx context.Context, tx Repos, t *Target) error {
	total, err := tx.Stock.Sum(ctx, entity.ProductScope(t.Scope.ProductID))
	if err != nil {
		return err
	}
	if err := tx.Products.UpdateQuantity(ctx, t.Scope.ProductID, total); err != nil {
		return err
	}
	t.Product.Quantity = total

	if t.Scope.VariantID != "" {
		stock, err := tx.Stock.Sum(ctx, entity.VariantScope(t.Scope.ProductID, t.Scope.VariantID))
		if err != nil {
			return err
		}
		if err := tx.Variants.UpdateStock(ctx, t.Scope.VariantID, stock); err != nil {
			return err
		}
		if t.Variant != nil {
			t.Variant.Stock = stock
		}
	}
	if t.Scope.BatchID != "" {
		qty, err := tx.Stock.Sum(ctx, entity.BatchScope(t.Scope.ProductID, t.Scope.BatchID))
		if err != nil {
			return err
		}
		if err := tx.Batches.UpdateQuantity(ctx, t.Scope.BatchID, qty); err != nil {
			return err
		}
		t.Batch.Quantity = qty
	}
	return nil
}
