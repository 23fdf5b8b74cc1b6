package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// DefaultLockTimeout espera máxima por un bloqueo de fila dentro de una transacción.
const DefaultLockTimeout = 2 * time.Second

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout <= 0 usa DefaultLockTimeout.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// NewRepos repositorios atados a q (pool para lecturas, tx dentro de Run).
func NewRepos(q Querier) inventory.Repos {
	return inventory.Repos{
		Movements:  NewStockMovementRepository(q),
		Stock:      NewStockRepository(q),
		Products:   NewProductRepository(q),
		Variants:   NewVariantRepository(q),
		Batches:    NewBatchRepository(q),
		Warehouses: NewWarehouseRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Una espera de bloqueo mayor a lockTimeout aborta con domain.ErrContention.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, tx inventory.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	timeout := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return wrap("set lock_timeout", err)
	}

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	// El commit no se abandona si el llamador cancela después de escribir.
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// Atomic: un error dentro de Run revierte toda la transacción.
func (r *TxRunner) Atomic() bool { return true }
