package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Cada error devuelto por el dominio o los casos de uso envuelve uno de estos sentinels,
// así los adaptadores (HTTP, reintentos) deciden con errors.Is.
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvariantViolation     = errors.New("violación de invariante")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrConcurrencyConflict    = errors.New("conflicto de concurrencia")
)

// ErrWarehouseHasStock la bodega aún tiene inventario y no puede desactivarse ni eliminarse.
var ErrWarehouseHasStock = &Error{Kind: ErrConflict, Op: "warehouse", Msg: "la bodega tiene inventario disponible"}

// Error agrega contexto (operación y detalle) a un sentinel de dominio.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap permite errors.Is(err, domain.ErrXxx).
func (e *Error) Unwrap() error { return e.Kind }

// Errorf construye un *Error del tipo indicado.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsRetryable indica si el error corresponde a una escritura optimista que perdió la carrera.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
