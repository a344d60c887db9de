package orders

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation")
	ErrProductNotFound = errors.New("product not found")
	ErrVariantRequired = errors.New("variant required")
	ErrVariantNotFound = errors.New("variant not found")
	ErrNotFound        = errors.New("order not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidStatus   = errors.New("invalid status")
)

// InsufficientStockError carries the remaining quantity so handlers can
// render a useful message.
type InsufficientStockError struct {
	ProductName string
	VariantName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantName != "" {
		return fmt.Sprintf("insufficient stock for %s - %s: %d available", e.ProductName, e.VariantName, e.Available)
	}
	return fmt.Sprintf("insufficient stock for %s: %d available", e.ProductName, e.Available)
}
