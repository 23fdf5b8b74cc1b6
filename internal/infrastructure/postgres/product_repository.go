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

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, sku, name, category, unit_price, reorder_level, is_perishable, has_expiry, quantity, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func scanProduct(row scanner, p *entity.Product, extra ...any) error {
	dest := []any{
		&p.ID, &p.SKU, &p.Name, &p.Category, &p.UnitPrice, &p.ReorderLevel,
		&p.IsPerishable, &p.HasExpiry, &p.Quantity, &p.CreatedAt, &p.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create registra un producto del catálogo. La cantidad inicia en 0: solo cambia con movimientos.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (id, sku, name, category, unit_price, reorder_level, is_perishable, has_expiry, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		p.ID, p.SKU, p.Name, p.Category, p.UnitPrice, p.ReorderLevel, p.IsPerishable, p.HasExpiry,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: producto %s", domain.ErrDuplicate, p.SKU)
		}
		return wrap("insert product", err)
	}
	p.Quantity = 0
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate obtiene el producto y bloquea su fila hasta el fin de la transacción.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepo) get(ctx context.Context, query, id string) (*entity.Product, error) {
	var p entity.Product
	if err := scanProduct(r.q.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get product", err)
	}
	return &p, nil
}

// UpdateQuantity actualiza solo el caché de cantidad (usado por el motor de inventario).
func (r *ProductRepo) UpdateQuantity(ctx context.Context, id string, quantity int64) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return wrap("update product quantity", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListAtOrBelowReorder productos en o bajo su nivel de reorden, con mayor déficit primero.
// Con warehouseID solo cuenta el stock de esa bodega (productos sin filas allí no aparecen).
func (r *ProductRepo) ListAtOrBelowReorder(ctx context.Context, warehouseID string) ([]repository.ProductLevel, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if warehouseID == "" {
		rows, err = r.q.Query(ctx, `
			SELECT `+productColumns+`, quantity
			FROM products
			WHERE quantity <= reorder_level
			ORDER BY reorder_level - quantity DESC, sku`)
	} else {
		rows, err = r.q.Query(ctx, `
			SELECT p.id, p.sku, p.name, p.category, p.unit_price, p.reorder_level, p.is_perishable, p.has_expiry,
			       p.quantity, p.created_at, p.updated_at, SUM(s.quantity)::BIGINT AS local_quantity
			FROM products p
			JOIN stock s ON s.product_id = p.id AND s.warehouse_id = $1
			GROUP BY p.id
			HAVING SUM(s.quantity) <= p.reorder_level
			ORDER BY p.reorder_level - SUM(s.quantity) DESC, p.sku`, warehouseID)
	}
	if err != nil {
		return nil, wrap("list products at or below reorder", err)
	}
	defer rows.Close()

	list := []repository.ProductLevel{}
	for rows.Next() {
		var (
			p   entity.Product
			qty int64
		)
		if err := scanProduct(rows, &p, &qty); err != nil {
			return nil, wrap("scan product level", err)
		}
		list = append(list, repository.ProductLevel{Product: &p, Quantity: qty})
	}
	return list, rows.Err()
}
