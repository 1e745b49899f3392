package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/common"
)

var (
	// ErrValidation marks malformed cart input. Always caused by the client.
	ErrValidation = errors.New("pricing: invalid cart")
	// ErrNotFound marks a cart line that references an unknown or mistyped record.
	ErrNotFound = errors.New("pricing: referenced record not found")
	// ErrUnavailable marks data-layer failures.
	ErrUnavailable = errors.New("pricing: data unavailable")
)

func validationError(message string) error {
	return common.NewAppError("VALIDATION_ERROR", message, http.StatusBadRequest, ErrValidation)
}

func productNotFound(id string, cause error) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("Producto con ID %s no encontrado.", id), http.StatusBadRequest, fmt.Errorf("%w: %w", ErrNotFound, cause))
}

func packageNotFound(id string, cause error) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("Paquete con ID %s no encontrado.", id), http.StatusBadRequest, fmt.Errorf("%w: %w", ErrNotFound, cause))
}

func notAPackage(id string, cause error) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("El ID %s no corresponde a un paquete.", id), http.StatusBadRequest, fmt.Errorf("%w: %w", ErrNotFound, cause))
}

func unavailable(message string, cause error) error {
	return common.NewAppError("UNAVAILABLE", message, http.StatusInternalServerError, fmt.Errorf("%w: %w", ErrUnavailable, cause))
}

// productLookupError maps a catalog failure for a product id into the pricing taxonomy.
func productLookupError(id string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return productNotFound(id, err)
	}
	return lookupFailure(err)
}

// packageLookupError maps a catalog failure for a package id into the pricing taxonomy.
func packageLookupError(id string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return packageNotFound(id, err)
	case errors.Is(err, catalog.ErrInvalidType):
		return notAPackage(id, err)
	}
	return lookupFailure(err)
}

func lookupFailure(err error) error {
	if common.IsAppError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return unavailable("catalog lookup failed", err)
}
