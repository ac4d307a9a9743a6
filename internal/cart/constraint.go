package cart

import (
	"context"
	"errors"
	"fmt"

	"cart-service/internal/models"
)

// ConstraintRules looks up the constraints a variation takes part in, on
// either side
type ConstraintRules interface {
	GetConstraints(ctx context.Context, variation models.VariationID) ([]models.Constraint, error)
}

// Resolver decides whether a variation may join a cart
type Resolver struct {
	rules ConstraintRules
}

// NewResolver creates a new constraint resolver
func NewResolver(rules ConstraintRules) *Resolver {
	return &Resolver{rules: rules}
}

// Check returns a *ConstraintViolationError when any constraint of candidate
// names a variation whose part is already selected in its product's entry;
// stock is not checked here
func (r *Resolver) Check(ctx context.Context, candidate models.Variation, c *Cart) error {
	if c.IsEmpty() {
		return nil
	}

	constraints, err := r.rules.GetConstraints(ctx, candidate.ID)
	if err != nil {
		return fmt.Errorf("failed to get constraints for variation %d: %w", candidate.ID, err)
	}

	for _, constraint := range constraints {
		other, ok := constraint.Other(candidate.ID)
		if !ok {
			continue
		}
		if c.HasPart(other.ProductID, other.PartID) {
			return &ConstraintViolationError{
				Candidate:   candidate.ID,
				Conflicting: other.VariationID,
			}
		}
	}

	return nil
}

// CanAdd reports whether candidate passes every constraint
func (r *Resolver) CanAdd(ctx context.Context, candidate models.Variation, c *Cart) (bool, error) {
	err := r.Check(ctx, candidate, c)
	if err == nil {
		return true, nil
	}
	var violation *ConstraintViolationError
	if errors.As(err, &violation) {
		return false, nil
	}
	return false, err
}
