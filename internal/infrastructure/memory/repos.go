package memory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

func pickProducts(st *state) map[string]*entity.Product { return st.products }
func pickVariants(st *state) map[string]*entity.Variant { return st.variants }
func pickWarehouses(st *state) map[string]*entity.Warehouse { return st.warehouses }
func pickBatches(st *state) map[string]*entity.Batch { return st.batches }
func pickStock(st *state) map[entity.Scope]*entity.Stock { return st.stock }

// ── Productos ────────────────────────────────────────────────────────────────

type productRepo struct{ u *unit }

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := lookup(r.u, pickProducts, id)
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if _, ok := lookup(r.u, pickProducts, id); !ok {
		return nil, nil
	}
	if err := r.u.lockProduct(ctx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *productRepo) UpdateQuantity(_ context.Context, id string, quantity int64) error {
	p, ok := lookup(r.u, pickProducts, id)
	if !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	c := *p
	c.Quantity = quantity
	c.UpdatedAt = r.u.s.now()
	r.u.write(func(st *state) { st.products[id] = &c })
	return nil
}

func (r *productRepo) ListAtOrBelowReorder(_ context.Context, warehouseID string) ([]repository.ProductLevel, error) {
	products := all(r.u, pickProducts)
	var perWarehouse map[string]int64
	if warehouseID != "" {
		perWarehouse = map[string]int64{}
		for _, s := range all(r.u, pickStock) {
			if s.WarehouseID == warehouseID {
				perWarehouse[s.ProductID] += s.Quantity
			}
		}
	}
	out := []repository.ProductLevel{}
	for _, p := range products {
		qty := p.Quantity
		if perWarehouse != nil {
			q, present := perWarehouse[p.ID]
			if !present {
				continue
			}
			qty = q
		}
		if qty <= p.ReorderLevel {
			c := *p
			out = append(out, repository.ProductLevel{Product: &c, Quantity: qty})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di := out[i].Product.ReorderLevel - out[i].Quantity
		dj := out[j].Product.ReorderLevel - out[j].Quantity
		if di != dj {
			return di > dj
		}
		return out[i].Product.SKU < out[j].Product.SKU
	})
	return out, nil
}

// ── Variantes ────────────────────────────────────────────────────────────────

type variantRepo struct{ u *unit }

func (r *variantRepo) GetByID(_ context.Context, id string) (*entity.Variant, error) {
	v, ok := lookup(r.u, pickVariants, id)
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (r *variantRepo) ListByProduct(_ context.Context, productID string) ([]*entity.Variant, error) {
	out := []*entity.Variant{}
	for _, v := range all(r.u, pickVariants) {
		if v.ProductID == productID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttributeName != out[j].AttributeName {
			return out[i].AttributeName < out[j].AttributeName
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

func (r *variantRepo) UpdateStock(_ context.Context, id string, stock int64) error {
	v, ok := lookup(r.u, pickVariants, id)
	if !ok {
		return fmt.Errorf("%w: variante %s", domain.ErrNotFound, id)
	}
	c := *v
	c.Stock = stock
	c.UpdatedAt = r.u.s.now()
	r.u.write(func(st *state) { st.variants[id] = &c })
	return nil
}

// ── Bodegas ──────────────────────────────────────────────────────────────────

type warehouseRepo struct{ u *unit }

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	w, ok := lookup(r.u, pickWarehouses, id)
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

func (r *warehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	list := []*entity.Warehouse{}
	for _, w := range all(r.u, pickWarehouses) {
		c := *w
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	if offset >= len(list) {
		return []*entity.Warehouse{}, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

// ── Lotes ────────────────────────────────────────────────────────────────────

type batchRepo struct{ u *unit }

func (r *batchRepo) Create(_ context.Context, b *entity.Batch) error {
	for _, o := range all(r.u, pickBatches) {
		if o.ID == b.ID || o.BatchNumber == b.BatchNumber {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, b.BatchNumber)
		}
	}
	c := *b
	r.u.write(func(st *state) { st.batches[b.ID] = &c })
	return nil
}

func (r *batchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	b, ok := lookup(r.u, pickBatches, id)
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *batchRepo) Delete(_ context.Context, id string) error {
	b, ok := lookup(r.u, pickBatches, id)
	if !ok {
		return fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
	}
	if b.Quantity != 0 {
		return domain.Invalid("batch_id", "el lote tiene existencia")
	}
	// Dentro de una transacción solo se descarta un lote creado en la misma unidad.
	if r.u.over != nil {
		r.u.s.mu.RLock()
		_, committed := r.u.s.base.batches[id]
		r.u.s.mu.RUnlock()
		if committed {
			return fmt.Errorf("lote %s ya confirmado: no se elimina dentro de una transacción", id)
		}
	}
	r.u.write(func(st *state) { delete(st.batches, id) })
	return nil
}

func (r *batchRepo) UpdateQuantity(_ context.Context, id string, quantity int64) error {
	b, ok := lookup(r.u, pickBatches, id)
	if !ok {
		return fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
	}
	c := *b
	c.Quantity = quantity
	c.UpdatedAt = r.u.s.now()
	r.u.write(func(st *state) { st.batches[id] = &c })
	return nil
}

func (r *batchRepo) ListByProduct(_ context.Context, productID, warehouseID string) ([]*entity.Batch, error) {
	return r.filter(func(b *entity.Batch) bool {
		return b.ProductID == productID && (warehouseID == "" || b.WarehouseID == warehouseID)
	}), nil
}

func (r *batchRepo) ListExpiringBetween(_ context.Context, from, to time.Time) ([]*entity.Batch, error) {
	return r.filter(func(b *entity.Batch) bool {
		exp := entity.StartOfDay(b.ExpiryDate)
		return b.Quantity > 0 && !exp.Before(from) && !exp.After(to)
	}), nil
}

func (r *batchRepo) ListExpiredBefore(_ context.Context, asOf time.Time) ([]*entity.Batch, error) {
	return r.filter(func(b *entity.Batch) bool {
		return b.Quantity > 0 && entity.StartOfDay(b.ExpiryDate).Before(asOf)
	}), nil
}

func (r *batchRepo) filter(keep func(b *entity.Batch) bool) []*entity.Batch {
	out := []*entity.Batch{}
	for _, b := range all(r.u, pickBatches) {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	domaininv.SortFEFO(out)
	return out
}

// ── Contadores hoja ──────────────────────────────────────────────────────────

type stockRepo struct{ u *unit }

func (r *stockRepo) Get(_ context.Context, scope entity.Scope) (*entity.Stock, error) {
	s, ok := lookup(r.u, pickStock, scope)
	if !ok {
		return &entity.Stock{
			ProductID:   scope.ProductID,
			VariantID:   scope.VariantID,
			WarehouseID: scope.WarehouseID,
			BatchID:     scope.BatchID,
		}, nil
	}
	c := *s
	return &c, nil
}

// GetForUpdate: la fila queda protegida por el bloqueo del producto.
func (r *stockRepo) GetForUpdate(ctx context.Context, scope entity.Scope) (*entity.Stock, error) {
	if err := r.u.lockProduct(ctx, scope.ProductID); err != nil {
		return nil, err
	}
	return r.Get(ctx, scope)
}

func (r *stockRepo) Upsert(_ context.Context, s *entity.Stock) error {
	if s.ProductID == "" {
		return domain.Invalid("product_id", "requerido")
	}
	c := *s
	r.u.write(func(st *state) { st.stock[c.Scope()] = &c })
	return nil
}

func (r *stockRepo) Sum(_ context.Context, scope entity.Scope) (int64, error) {
	var total int64
	for _, s := range all(r.u, pickStock) {
		if s.Matches(scope) {
			total += s.Quantity
		}
	}
	return total, nil
}

func (r *stockRepo) ListByProduct(_ context.Context, productID string) ([]*entity.Stock, error) {
	out := []*entity.Stock{}
	for _, s := range all(r.u, pickStock) {
		if s.ProductID == productID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope().Key() < out[j].Scope().Key() })
	return out, nil
}

func (r *stockRepo) HasLocated(_ context.Context, productID string) (bool, error) {
	for _, s := range all(r.u, pickStock) {
		if s.ProductID == productID && s.WarehouseID != "" && s.Quantity != 0 {
			return true, nil
		}
	}
	return false, nil
}

// ── Libro de movimientos ─────────────────────────────────────────────────────

type movementRepo struct{ u *unit }

// Append en una transacción queda pendiente y recibe secuencia al confirmar.
func (r *movementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if r.u.over != nil {
		r.u.pending = append(r.u.pending, m)
		return nil
	}
	r.u.s.mu.Lock()
	defer r.u.s.mu.Unlock()
	r.u.s.stamp(m)
	return nil
}

func (r *movementRepo) Query(ctx context.Context, filter repository.MovementFilter, opts repository.MovementQueryOptions) iter.Seq2[*entity.StockMovement, error] {
	return func(yield func(*entity.StockMovement, error) bool) {
		r.u.s.mu.RLock()
		snapshot := slices.Clone(r.u.s.movements)
		r.u.s.mu.RUnlock()
		snapshot = append(snapshot, r.u.pending...)
		if opts.Order != repository.OldestFirst {
			slices.Reverse(snapshot)
		}
		n := 0
		for _, m := range snapshot {
			if opts.Limit > 0 && n >= opts.Limit {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !matches(m, filter) {
				continue
			}
			n++
			c := *m
			if !yield(&c, nil) {
				return
			}
		}
	}
}

func matches(m *entity.StockMovement, f repository.MovementFilter) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.VariantID != "" && m.VariantID != f.VariantID {
		return false
	}
	if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID && m.SourceWarehouseID != f.WarehouseID && m.TargetWarehouseID != f.WarehouseID {
		return false
	}
	if f.BatchID != "" && m.BatchID != f.BatchID && m.SourceBatchID != f.BatchID && m.TargetBatchID != f.BatchID {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, m.Type) {
		return false
	}
	if f.ReferenceNumber != "" && m.ReferenceNumber != f.ReferenceNumber {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
