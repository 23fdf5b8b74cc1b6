package postgres

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// DefaultPageSize filas por consulta al recorrer el libro.
const DefaultPageSize = 500

const movementColumns = `seq, id, transaction_id, product_id, variant_id, warehouse_id, batch_id, type, quantity,
	reference_number, notes, source_warehouse_id, target_warehouse_id, source_batch_id, target_batch_id, created_at, created_by`

// StockMovementRepo libro de movimientos sobre PostgreSQL (solo INSERT y SELECT).
type StockMovementRepo struct {
	q        Querier
	pageSize int
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q, pageSize: DefaultPageSize}
}

// Append persiste el movimiento; la BD asigna secuencia y created_at.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	var createdBy *string
	if m.CreatedBy != "" {
		createdBy = &m.CreatedBy
	}
	query := `
		INSERT INTO stock_movements (id, transaction_id, product_id, variant_id, warehouse_id, batch_id, type, quantity,
			reference_number, notes, source_warehouse_id, target_warehouse_id, source_batch_id, target_batch_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING seq, created_at`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.TransactionID, m.ProductID, m.VariantID, m.WarehouseID, m.BatchID, m.Type, m.Quantity,
		m.ReferenceNumber, m.Notes, m.SourceWarehouseID, m.TargetWarehouseID, m.SourceBatchID, m.TargetBatchID, createdBy,
	).Scan(&m.Sequence, &m.CreatedAt)
	if err != nil {
		return wrap("append stock movement", err)
	}
	return nil
}

// Query recorre el libro por páginas (keyset sobre seq). Cada recorrido fija el último seq visible
// al empezar, así las inserciones concurrentes no aparecen a mitad de camino.
func (r *StockMovementRepo) Query(ctx context.Context, filter repository.MovementFilter, opts repository.MovementQueryOptions) iter.Seq2[*entity.StockMovement, error] {
	return func(yield func(*entity.StockMovement, error) bool) {
		var ceiling int64
		if err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM stock_movements`).Scan(&ceiling); err != nil {
			yield(nil, wrap("query stock movements", err))
			return
		}
		newest := opts.Order != repository.OldestFirst
		cursor := int64(0)
		if newest {
			cursor = ceiling + 1
		}

		emitted := 0
		for {
			size := r.pageSize
			if opts.Limit > 0 && opts.Limit-emitted < size {
				size = opts.Limit - emitted
			}
			if size <= 0 {
				return
			}
			page, err := r.page(ctx, filter, newest, cursor, ceiling, size)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range page {
				emitted++
				if !yield(m, nil) {
					return
				}
			}
			if len(page) < size {
				return
			}
			cursor = page[len(page)-1].Sequence
		}
	}
}

func (r *StockMovementRepo) page(ctx context.Context, f repository.MovementFilter, newest bool, cursor, ceiling int64, size int) ([]*entity.StockMovement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	add("seq <= ?", ceiling)
	if newest {
		add("seq < ?", cursor)
	} else {
		add("seq > ?", cursor)
	}
	if f.ProductID != "" {
		add("product_id = ?", f.ProductID)
	}
	if f.VariantID != "" {
		add("variant_id = ?", f.VariantID)
	}
	if f.WarehouseID != "" {
		add("(warehouse_id = ? OR source_warehouse_id = ? OR target_warehouse_id = ?)", f.WarehouseID)
	}
	if f.BatchID != "" {
		add("(batch_id = ? OR source_batch_id = ? OR target_batch_id = ?)", f.BatchID)
	}
	if len(f.Types) > 0 {
		add("type = ANY(?)", f.Types)
	}
	if f.ReferenceNumber != "" {
		add("reference_number = ?", f.ReferenceNumber)
	}
	if f.From != nil {
		add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		add("created_at <= ?", *f.To)
	}

	order := "ASC"
	if newest {
		order = "DESC"
	}
	args = append(args, size)
	query := fmt.Sprintf(`SELECT %s FROM stock_movements WHERE %s ORDER BY seq %s LIMIT $%d`,
		movementColumns, strings.Join(where, " AND "), order, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("query stock movements", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0, size)
	for rows.Next() {
		var (
			m         entity.StockMovement
			createdBy *string
		)
		if err := rows.Scan(&m.Sequence, &m.ID, &m.TransactionID, &m.ProductID, &m.VariantID, &m.WarehouseID,
			&m.BatchID, &m.Type, &m.Quantity, &m.ReferenceNumber, &m.Notes, &m.SourceWarehouseID,
			&m.TargetWarehouseID, &m.SourceBatchID, &m.TargetBatchID, &m.CreatedAt, &createdBy); err != nil {
			return nil, wrap("scan stock movement", err)
		}
		if createdBy != nil {
			m.CreatedBy = *createdBy
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
