package inventory

import (
	"context"
	"slices"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// RolePolicy autoriza según el rol del actor en el contexto.
// Un rol ausente del mapa no puede ejecutar ninguna operación.
type RolePolicy map[string][]OperationKind

// DefaultRolePolicy roles de la aplicación: admin todo; bodeguero mueve y recibe; vendedor solo consume.
func DefaultRolePolicy() RolePolicy {
	return RolePolicy{
		"admin":     {OpAdjust, OpTransfer, OpReceiveBatch, OpConsume},
		"bodeguero": {OpAdjust, OpTransfer, OpReceiveBatch, OpConsume},
		"vendedor":  {OpConsume},
	}
}

// CanPerform implementa Authorizer.
func (p RolePolicy) CanPerform(ctx context.Context, op OperationKind, _ entity.Scope) bool {
	role := ActorFrom(ctx).Role
	if role == "" {
		return false
	}
	return slices.Contains(p[role], op)
}
