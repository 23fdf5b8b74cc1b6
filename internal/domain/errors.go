package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Cada uno identifica un tipo de fallo; los errores con detalle envuelven a uno de ellos
// y se comparan con errors.Is.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrContention        = errors.New("recurso ocupado, reintente la operación")
	ErrCrossProduct      = errors.New("los lotes pertenecen a productos distintos")
	ErrStorage           = errors.New("fallo de persistencia")
)

// ValidationError describe una solicitud mal formada. Nunca se aplica parcialmente.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError indica que el débito dejaría la cantidad en negativo.
type InsufficientStockError struct {
	Scope     string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s en %s: disponible %d, solicitado %d", ErrInsufficientStock, e.Scope, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StorageError envuelve un fallo de persistencia con el contexto necesario para conciliar a mano
// (paso del protocolo, alcance y cantidad).
type StorageError struct {
	Step   string
	Scope  string
	Amount int64
	Err    error
}

func (e *StorageError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("%s en paso %s: %v", ErrStorage, e.Step, e.Err)
	}
	return fmt.Sprintf("%s en paso %s (alcance %s, cantidad %d): %v", ErrStorage, e.Step, e.Scope, e.Amount, e.Err)
}

// Unwrap expone tanto el tipo ErrStorage como la causa original.
func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// IsKnown indica si err ya pertenece a la taxonomía de dominio.
func IsKnown(err error) bool {
	for _, k := range []error{
		ErrNotFound, ErrInvalidInput, ErrDuplicate, ErrUnauthorized, ErrForbidden,
		ErrInsufficientStock, ErrContention, ErrCrossProduct, ErrStorage,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
