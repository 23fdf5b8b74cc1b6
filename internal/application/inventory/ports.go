package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Repos agrupa los repositorios que usa el motor de inventario. Dentro de TxRunner.Run
// todos están atados a la misma unidad de trabajo.
type Repos struct {
	Movements  repository.StockMovementRepository
	Stock      repository.StockRepository
	Products   repository.ProductRepository
	Variants   repository.VariantRepository
	Batches    repository.BatchRepository
	Warehouses repository.WarehouseRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error no queda nada escrito
// (salvo en almacenamientos sin transacciones, donde el coordinador compensa).
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}

// OperationKind tipo de operación que se somete a autorización.
type OperationKind string

const (
	OpAdjust       OperationKind = "adjust"
	OpTransfer     OperationKind = "transfer"
	OpReceiveBatch OperationKind = "receive_batch"
	OpConsume      OperationKind = "consume"
)

// Authorizer decide si el llamador puede ejecutar una operación sobre un alcance.
// Lo provee el colaborador de permisos; el motor no implementa roles.
type Authorizer interface {
	CanPerform(ctx context.Context, op OperationKind, scope entity.Scope) bool
}

// AuthorizerFunc adapta una función a Authorizer.
type AuthorizerFunc func(ctx context.Context, op OperationKind, scope entity.Scope) bool

func (f AuthorizerFunc) CanPerform(ctx context.Context, op OperationKind, scope entity.Scope) bool {
	return f(ctx, op, scope)
}

// AllowAll autoriza todo (modo desarrollo y pruebas).
var AllowAll Authorizer = AuthorizerFunc(func(context.Context, OperationKind, entity.Scope) bool { return true })

// StockChangeListener recibe aviso después de cada commit que cambió cantidades.
type StockChangeListener interface {
	StockChanged(ctx context.Context, productIDs ...string)
}

// StockHealthCache guarda el último resumen de salud de stock calculado.
type StockHealthCache interface {
	Get(ctx context.Context, key string) (*StockHealth, bool, error)
	Set(ctx context.Context, key string, value *StockHealth, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
