package repository

import (
	"context"
	"iter"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// SortOrder orden de lectura del libro.
type SortOrder string

const (
	NewestFirst SortOrder = "desc"
	OldestFirst SortOrder = "asc"
)

// MovementFilter filtros del libro; los campos vacíos no filtran.
// WarehouseID coincide con la bodega del movimiento o con su origen/destino.
type MovementFilter struct {
	ProductID       string
	VariantID       string
	WarehouseID     string
	BatchID         string
	Types           []string
	ReferenceNumber string
	From            *time.Time
	To              *time.Time
}

// MovementQueryOptions límite (0 = sin límite) y orden (por defecto, más reciente primero).
type MovementQueryOptions struct {
	Limit int
	Order SortOrder
}

// StockMovementRepository puerto del libro de movimientos (solo anexar y leer).
// No existe operación de actualización ni borrado: una corrección es un movimiento nuevo.
type StockMovementRepository interface {
	// Append asigna ID (si falta), secuencia y CreatedAt, y persiste el movimiento.
	Append(ctx context.Context, movement *entity.StockMovement) error
	// Query devuelve una secuencia perezosa y finita; puede recorrerse varias veces (cada recorrido consulta de nuevo).
	Query(ctx context.Context, filter MovementFilter, opts MovementQueryOptions) iter.Seq2[*entity.StockMovement, error]
}
