package cart

import (
	"errors"
	"fmt"

	"cart-service/internal/models"
)

var (
	// ErrNotFound is returned when a product, part or variation does not exist
	ErrNotFound = errors.New("not found")

	// ErrOutOfStock is returned when the requested variation cannot be purchased
	ErrOutOfStock = errors.New("the product is not in stock")

	// ErrConstraintViolation is matched by every *ConstraintViolationError
	ErrConstraintViolation = errors.New("these two variations can't be used together")

	// ErrEmptyCart is returned when checking out a cart without selections
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidSelection is returned for a quantity below one or a variation
	// that does not belong to the given part
	ErrInvalidSelection = errors.New("invalid part selection")
)

// ConstraintViolationError reports the already selected variation that
// blocks the candidate
type ConstraintViolationError struct {
	Candidate   models.VariationID
	Conflicting models.VariationID
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("variation %d conflicts with selected variation %d: %s",
		e.Candidate, e.Conflicting, ErrConstraintViolation)
}

func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

// DeserializationError reports a persisted cart that does not have the
// expected shape
type DeserializationError struct {
	Path   string
	Reason string
}

func (e *DeserializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed cart: %s", e.Reason)
	}
	return fmt.Sprintf("malformed cart at %s: %s", e.Path, e.Reason)
}
