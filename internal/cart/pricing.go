package cart

import (
	"context"
	"fmt"
	"iter"

	"cart-service/internal/models"
)

// PriceRules looks up the dependent pricing rules of a base variation
type PriceRules interface {
	GetPriceDependents(ctx context.Context, base models.VariationID) ([]models.PriceDependent, error)
}

// Pricer derives line, entry and cart totals from the current cart and
// catalog rules. Nothing is cached between calls
type Pricer struct {
	rules PriceRules
}

// NewPricer creates a new pricer
func NewPricer(rules PriceRules) *Pricer {
	return &Pricer{rules: rules}
}

// Entries yields the cart entries with freshly computed totals. Each range
// over the sequence recomputes from scratch. Iteration stops after the first
// error
func (p *Pricer) Entries(ctx context.Context, c *Cart) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		present := c.VariationIDs()

		for entry := range c.All() {
			entry.TotalPrice = 0

			for i := range entry.Parts {
				part := &entry.Parts[i]
				part.ExtraPrice = 0
				part.TotalPrice = int64(part.Quantity) * part.UnitPrice

				rules, err := p.rules.GetPriceDependents(ctx, part.VariationID)
				if err != nil {
					yield(Entry{}, fmt.Errorf("failed to get price dependents for variation %d: %w", part.VariationID, err))
					return
				}

				for _, rule := range rules {
					if rule.BaseVariation != part.VariationID {
						continue
					}
					if _, ok := present[rule.DependentVariation]; ok {
						part.ExtraPrice += rule.AdjustedPrice
						part.TotalPrice += rule.AdjustedPrice
					}
				}

				entry.TotalPrice += part.TotalPrice
			}

			if !yield(entry, nil) {
				return
			}
		}
	}
}

// Quote is a priced snapshot of a cart
type Quote struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
}

// TotalDisplay returns the total in major currency units
func (q *Quote) TotalDisplay() float64 {
	return Display(q.Total)
}

// Quote prices every entry of the cart
func (p *Pricer) Quote(ctx context.Context, c *Cart) (*Quote, error) {
	q := &Quote{Entries: make([]Entry, 0, c.Len())}
	for entry, err := range p.Entries(ctx, c) {
		if err != nil {
			return nil, err
		}
		q.Entries = append(q.Entries, entry)
		q.Total += entry.TotalPrice
	}
	return q, nil
}

// Total returns the cart total in minor currency units
func (p *Pricer) Total(ctx context.Context, c *Cart) (int64, error) {
	var total int64
	for entry, err := range p.Entries(ctx, c) {
		if err != nil {
			return 0, err
		}
		total += entry.TotalPrice
	}
	return total, nil
}

// TotalDisplay returns the cart total in major currency units, for
// presentation only
func (p *Pricer) TotalDisplay(ctx context.Context, c *Cart) (float64, error) {
	total, err := p.Total(ctx, c)
	if err != nil {
		return 0, err
	}
	return Display(total), nil
}

// Display converts minor currency units to major units
func Display(amount int64) float64 {
	return float64(amount) / 100
}
