package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.VariantRepository = (*VariantRepo)(nil)

const variantColumns = `id, product_id, attribute_name, value, sku, price_adjustment, stock, created_at, updated_at`

// VariantRepo variantes de producto sobre PostgreSQL.
type VariantRepo struct {
	q Querier
}

// NewVariantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

func scanVariant(row scanner, v *entity.Variant) error {
	return row.Scan(&v.ID, &v.ProductID, &v.AttributeName, &v.Value, &v.SKU,
		&v.PriceAdjustment, &v.Stock, &v.CreatedAt, &v.UpdatedAt)
}

// Create registra una variante; (producto, atributo, valor) es único.
func (r *VariantRepo) Create(ctx context.Context, v *entity.Variant) error {
	query := `
		INSERT INTO product_variants (id, product_id, attribute_name, value, sku, price_adjustment, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query, v.ID, v.ProductID, v.AttributeName, v.Value, v.SKU, v.PriceAdjustment).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: variante %s=%s", domain.ErrDuplicate, v.AttributeName, v.Value)
		}
		return wrap("insert variant", err)
	}
	v.Stock = 0
	return nil
}

func (r *VariantRepo) GetByID(ctx context.Context, id string) (*entity.Variant, error) {
	var v entity.Variant
	err := scanVariant(r.q.QueryRow(ctx, `SELECT `+variantColumns+` FROM product_variants WHERE id = $1`, id), &v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get variant", err)
	}
	return &v, nil
}

func (r *VariantRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Variant, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE product_id = $1 ORDER BY attribute_name, value`,
		productID)
	if err != nil {
		return nil, wrap("list variants", err)
	}
	defer rows.Close()
	list := []*entity.Variant{}
	for rows.Next() {
		var v entity.Variant
		if err := scanVariant(rows, &v); err != nil {
			return nil, wrap("scan variant", err)
		}
		list = append(list, &v)
	}
	return list, rows.Err()
}

// UpdateStock actualiza el caché de stock de la variante.
func (r *VariantRepo) UpdateStock(ctx context.Context, id string, stock int64) error {
	cmd, err := r.q.Exec(ctx, `UPDATE product_variants SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		return wrap("update variant stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: variante %s", domain.ErrNotFound, id)
	}
	return nil
}
