package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `id, product_id, variant_id, warehouse_id, batch_number, quantity, manufacturing_date, expiry_date, created_at, updated_at`

// Orden FEFO: primero el que vence antes; a igual fecha, por número de lote.
const fefoOrder = ` ORDER BY expiry_date, batch_number`

// BatchRepo lotes con vencimiento sobre PostgreSQL.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

func scanBatch(row scanner, b *entity.Batch) error {
	if err := row.Scan(&b.ID, &b.ProductID, &b.VariantID, &b.WarehouseID, &b.BatchNumber, &b.Quantity,
		&b.ManufacturingDate, &b.ExpiryDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	b.ExpiryDate = entity.StartOfDay(b.ExpiryDate)
	return nil
}

// Create persiste el lote con cantidad 0; la cantidad llega con el movimiento de recepción.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (id, product_id, variant_id, warehouse_id, batch_number, quantity, manufacturing_date, expiry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		b.ID, b.ProductID, b.VariantID, b.WarehouseID, b.BatchNumber, b.ManufacturingDate, entity.StartOfDay(b.ExpiryDate),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, b.BatchNumber)
		}
		return wrap("insert batch", err)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	var b entity.Batch
	if err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get batch", err)
	}
	return &b, nil
}

// Delete elimina el lote solo si no tiene existencia.
func (r *BatchRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM batches WHERE id = $1 AND quantity = 0`, id)
	if err != nil {
		return wrap("delete batch", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: lote %s sin existencia", domain.ErrNotFound, id)
	}
	return nil
}

// UpdateQuantity actualiza el caché de cantidad del lote.
func (r *BatchRepo) UpdateQuantity(ctx context.Context, id string, quantity int64) error {
	cmd, err := r.q.Exec(ctx, `UPDATE batches SET quantity = $2, updated_at = now() WHERE id = $1`, id, quantity)
	if err != nil {
		return wrap("update batch quantity", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *BatchRepo) ListByProduct(ctx context.Context, productID, warehouseID string) ([]*entity.Batch, error) {
	return r.list(ctx, "list batches by product",
		`SELECT `+batchColumns+` FROM batches WHERE product_id = $1 AND ($2 = '' OR warehouse_id = $2)`+fefoOrder,
		productID, warehouseID)
}

func (r *BatchRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*entity.Batch, error) {
	return r.list(ctx, "list expiring batches",
		`SELECT `+batchColumns+` FROM batches WHERE quantity > 0 AND expiry_date BETWEEN $1::DATE AND $2::DATE`+fefoOrder,
		entity.StartOfDay(from), entity.StartOfDay(to))
}

func (r *BatchRepo) ListExpiredBefore(ctx context.Context, asOf time.Time) ([]*entity.Batch, error) {
	return r.list(ctx, "list expired batches",
		`SELECT `+batchColumns+` FROM batches WHERE quantity > 0 AND expiry_date < $1::DATE`+fefoOrder,
		entity.StartOfDay(asOf))
}

func (r *BatchRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	list := []*entity.Batch{}
	for rows.Next() {
		var b entity.Batch
		if err := scanBatch(rows, &b); err != nil {
			return nil, wrap("scan batch", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
