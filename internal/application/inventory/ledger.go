package inventory

import (
	"context"
	"iter"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// DefaultQueryLimit límite que la API HTTP aplica cuando la consulta del libro no indica uno.
// Ledger.Query no lo impone: 0 significa sin límite (el conciliador recorre el libro completo).
const DefaultQueryLimit = 100

// Ledger fachada del libro de movimientos: valida antes de anexar y normaliza las lecturas.
type Ledger struct {
	repo repository.StockMovementRepository
}

// NewLedger construye el servicio de libro sobre un repositorio (del pool o de una tx).
func NewLedger(repo repository.StockMovementRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Append valida los campos según el tipo y anexa el movimiento.
// Los fallos de persistencia llegan como StorageError.
func (l *Ledger) Append(ctx context.Context, m *entity.StockMovement) error {
	if err := domaininv.ValidateMovement(m); err != nil {
		return err
	}
	if err := l.repo.Append(ctx, m); err != nil {
		if domain.IsKnown(err) {
			return err
		}
		return &domain.StorageError{Step: StepRecord, Scope: m.Scope().Key(), Amount: m.Quantity, Err: err}
	}
	return nil
}

// Query devuelve una secuencia perezosa del libro. Orden por defecto: más reciente primero.
// Recorrerla de nuevo vuelve a consultar el almacenamiento.
func (l *Ledger) Query(ctx context.Context, filter repository.MovementFilter, opts repository.MovementQueryOptions) iter.Seq2[*entity.StockMovement, error] {
	if opts.Order == "" {
		opts.Order = repository.NewestFirst
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	return l.repo.Query(ctx, filter, opts)
}

// Collect materializa una secuencia del libro.
func Collect(seq iter.Seq2[*entity.StockMovement, error]) ([]*entity.StockMovement, error) {
	out := []*entity.StockMovement{}
	for m, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
