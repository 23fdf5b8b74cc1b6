package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `product_id, variant_id, warehouse_id, batch_id, quantity, updated_at`

// Coincide con los campos no vacíos del alcance ($1..$4).
const scopeMatch = `($1 = '' OR product_id = $1) AND ($2 = '' OR variant_id = $2)
	AND ($3 = '' OR warehouse_id = $3) AND ($4 = '' OR batch_id = $4)`

// StockRepo contadores hoja sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func scopeArgs(s entity.Scope) []any {
	return []any{s.ProductID, s.VariantID, s.WarehouseID, s.BatchID}
}

func scanStock(row scanner, s *entity.Stock) error {
	return row.Scan(&s.ProductID, &s.VariantID, &s.WarehouseID, &s.BatchID, &s.Quantity, &s.UpdatedAt)
}

// Get obtiene la fila exacta del alcance, o una fila en cero si no existe.
func (r *StockRepo) Get(ctx context.Context, scope entity.Scope) (*entity.Stock, error) {
	return r.get(ctx, scope, "")
}

// GetForUpdate igual que Get pero bloquea la fila (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, scope entity.Scope) (*entity.Stock, error) {
	return r.get(ctx, scope, " FOR UPDATE")
}

func (r *StockRepo) get(ctx context.Context, scope entity.Scope, lock string) (*entity.Stock, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3 AND batch_id = $4` + lock
	var s entity.Stock
	if err := scanStock(r.q.QueryRow(ctx, query, scopeArgs(scope)...), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{
				ProductID:   scope.ProductID,
				VariantID:   scope.VariantID,
				WarehouseID: scope.WarehouseID,
				BatchID:     scope.BatchID,
			}, nil
		}
		return nil, wrap("get stock", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza la cantidad del contador hoja.
func (r *StockRepo) Upsert(ctx context.Context, s *entity.Stock) error {
	if s.ProductID == "" {
		return domain.Invalid("product_id", "requerido")
	}
	query := `
		INSERT INTO stock (product_id, variant_id, warehouse_id, batch_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (product_id, variant_id, warehouse_id, batch_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING updated_at`
	args := append(scopeArgs(s.Scope()), s.Quantity)
	if err := r.q.QueryRow(ctx, query, args...).Scan(&s.UpdatedAt); err != nil {
		return wrap("upsert stock", err)
	}
	return nil
}

// Sum suma las filas que coinciden con los campos no vacíos del alcance.
func (r *StockRepo) Sum(ctx context.Context, scope entity.Scope) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM stock WHERE ` + scopeMatch
	if err := r.q.QueryRow(ctx, query, scopeArgs(scope)...).Scan(&total); err != nil {
		return 0, wrap("sum stock", err)
	}
	return total, nil
}

func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Stock, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+stockColumns+` FROM stock WHERE product_id = $1
		ORDER BY variant_id, warehouse_id, batch_id`, productID)
	if err != nil {
		return nil, wrap("list stock", err)
	}
	defer rows.Close()
	list := []*entity.Stock{}
	for rows.Next() {
		var s entity.Stock
		if err := scanStock(rows, &s); err != nil {
			return nil, wrap("scan stock", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

func (r *StockRepo) HasLocated(ctx context.Context, productID string) (bool, error) {
	var located bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock WHERE product_id = $1 AND warehouse_id <> '' AND quantity <> 0)`,
		productID).Scan(&located)
	if err != nil {
		return false, wrap("stock located", err)
	}
	return located, nil
}
