package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	// ErrNotFound la agregación no produjo ningún grupo.
	ErrNotFound = errors.New("sin datos para la agregación")
	// ErrInvalidVisitDate la fecha de visita no respeta el layout configurado.
	ErrInvalidVisitDate = errors.New("fecha de visita inválida")
)

// OperationError fallo de una consulta de analítica (store caído, query inválida, fecha no parseable...).
// Op identifica la operación; Err conserva la causa para logging.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Fail envuelve err como OperationError de op. ErrNotFound se devuelve tal cual.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}
