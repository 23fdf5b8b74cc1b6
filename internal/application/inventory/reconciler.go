package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Drift diferencia entre una cantidad guardada y la esperada.
type Drift struct {
	Scope    entity.Scope
	Stored   int64
	Replayed int64
}

// Reconciliation resultado de reconstruir un producto desde su libro.
// LeafDrifts compara contadores hoja con el libro; CacheDrifts compara los cachés
// de producto, variante y lote con la suma de sus contadores.
type Reconciliation struct {
	ProductID      string
	Movements      int
	CachedQuantity int64
	ReplayQuantity int64
	LeafDrifts     []Drift
	CacheDrifts    []Drift
}

// Consistent indica que no hay ninguna diferencia.
func (r *Reconciliation) Consistent() bool {
	return len(r.LeafDrifts) == 0 && len(r.CacheDrifts) == 0 && r.CachedQuantity == r.ReplayQuantity
}

// Reconciler herramienta de operador: reproduce el libro de un producto desde cero y
// reporta lo que no coincide. No corrige nada; una corrección es un movimiento nuevo.
type Reconciler struct {
	runner TxRunner
	log    zerolog.Logger
}

// NewReconciler construye el conciliador.
func NewReconciler(runner TxRunner, log zerolog.Logger) *Reconciler {
	return &Reconciler{runner: runner, log: log}
}

// VerifyProduct bloquea el producto y compara su estado con la reproducción del libro.
func (r *Reconciler) VerifyProduct(ctx context.Context, productID string) (*Reconciliation, error) {
	if productID == "" {
		return nil, domain.Invalid("product_id", "requerido")
	}
	var out *Reconciliation
	err := r.runner.Run(ctx, func(ctx context.Context, tx Repos) error {
		p, err := tx.Products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
		}
		movements, err := Collect(tx.Movements.Query(ctx,
			repository.MovementFilter{ProductID: productID},
			repository.MovementQueryOptions{Order: repository.OldestFirst}))
		if err != nil {
			return err
		}
		replayed, err := domaininv.Replay(nil, movements)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		rows, err := tx.Stock.ListByProduct(ctx, productID)
		if err != nil {
			return err
		}

		rec := &Reconciliation{
			ProductID:      productID,
			Movements:      len(movements),
			CachedQuantity: p.Quantity,
			ReplayQuantity: replayed.Total(productID),
		}
		stored := domaininv.Snapshot{}
		var leafTotal int64
		for _, s := range rows {
			stored[s.Scope().Leaf()] += s.Quantity
			leafTotal += s.Quantity
		}
		for scope, q := range stored {
			if replayed[scope] != q {
				rec.LeafDrifts = append(rec.LeafDrifts, Drift{Scope: scope, Stored: q, Replayed: replayed[scope]})
			}
		}
		for scope, q := range replayed {
			if _, ok := stored[scope]; !ok && q != 0 {
				rec.LeafDrifts = append(rec.LeafDrifts, Drift{Scope: scope, Replayed: q})
			}
		}

		if p.Quantity != leafTotal {
			rec.CacheDrifts = append(rec.CacheDrifts, Drift{Scope: entity.ProductScope(p.ID), Stored: p.Quantity, Replayed: leafTotal})
		}
		variants, err := tx.Variants.ListByProduct(ctx, productID)
		if err != nil {
			return err
		}
		for _, v := range variants {
			sum := sumMatching(rows, entity.VariantScope(p.ID, v.ID))
			if v.Stock != sum {
				rec.CacheDrifts = append(rec.CacheDrifts, Drift{Scope: entity.VariantScope(p.ID, v.ID), Stored: v.Stock, Replayed: sum})
			}
		}
		batches, err := tx.Batches.ListByProduct(ctx, productID, "")
		if err != nil {
			return err
		}
		for _, b := range batches {
			sum := sumMatching(rows, entity.BatchScope(p.ID, b.ID))
			if b.Quantity != sum {
				rec.CacheDrifts = append(rec.CacheDrifts, Drift{Scope: entity.BatchScope(p.ID, b.ID), Stored: b.Quantity, Replayed: sum})
			}
		}

		sortDrifts(rec.LeafDrifts)
		sortDrifts(rec.CacheDrifts)
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent() {
		r.log.Warn().
			Str("producto", productID).
			Int("diferencias_hoja", len(out.LeafDrifts)).
			Int("diferencias_cache", len(out.CacheDrifts)).
			Msg("inventario no coincide con el libro")
	}
	return out, nil
}

func sumMatching(rows []*entity.Stock, q entity.Scope) int64 {
	var total int64
	for _, s := range rows {
		if s.Matches(q) {
			total += s.Quantity
		}
	}
	return total
}

func sortDrifts(d []Drift) {
	sort.Slice(d, func(i, j int) bool { return d[i].Scope.Key() < d[j].Scope.Key() })
}
