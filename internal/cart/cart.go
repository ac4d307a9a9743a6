// Package cart holds the session cart together with the pricing and
// constraint rules evaluated against it
package cart

import (
	"fmt"
	"iter"
	"math"

	"cart-service/internal/models"
)

// MaxQuantity is the largest quantity one part selection may carry
const MaxQuantity = 10000

// quantityAllowed reports whether quantity is in range and its line total
// at unitPrice fits in an int64
func quantityAllowed(quantity int, unitPrice int64) bool {
	if quantity < 1 || quantity > MaxQuantity {
		return false
	}
	return unitPrice <= 0 || int64(quantity) <= math.MaxInt64/unitPrice
}

// Session is the key/value state the cart is persisted in
type Session interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// PartSelection is the chosen variation of one product part
type PartSelection struct {
	PartID      models.PartID      `json:"id"`
	VariationID models.VariationID `json:"variant"`
	Quantity    int                `json:"quantity"`
	UnitPrice   int64              `json:"price"`
	ExtraPrice  int64              `json:"extra_price"`
	TotalPrice  int64              `json:"total_price"`
}

// Entry groups the part selections of one product
type Entry struct {
	ProductID  models.ProductID `json:"id"`
	Parts      []PartSelection  `json:"parts"`
	TotalPrice int64            `json:"total_price"`
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Parts = append([]PartSelection(nil), e.Parts...)
	return &c
}

func (e *Entry) partIndex(partID models.PartID) int {
	for i, p := range e.Parts {
		if p.PartID == partID {
			return i
		}
	}
	return -1
}

// Cart is the product to part selections mapping stored in a
// session, owned by one request and not safe for concurrent use
type Cart struct {
	session Session
	key     string
	order   []models.ProductID
	entries map[models.ProductID]*Entry
}

// Load restores the cart stored under key, or an empty cart when the
// session has none
func Load(s Session, key string) (*Cart, error) {
	c := &Cart{
		session: s,
		key:     key,
		entries: make(map[models.ProductID]*Entry),
	}

	data, ok := s.Get(key)
	if !ok {
		return c, nil
	}

	order, entries, err := decode(data)
	if err != nil {
		return nil, err
	}
	c.order = order
	c.entries = entries
	return c, nil
}

// AddOrUpdate selects variation for part. A part that is already selected
// has its variation and quantity replaced, never accumulated. The result
// reports whether an existing selection was replaced. The cart is written to
// the session only after the whole change succeeded
func (c *Cart) AddOrUpdate(part models.Part, variation models.Variation, quantity int) (bool, error) {
	if !quantityAllowed(quantity, variation.Price) {
		return false, fmt.Errorf("%w: quantity %d", ErrInvalidSelection, quantity)
	}
	if variation.PartID != part.ID {
		return false, fmt.Errorf("%w: variation %d does not belong to part %d",
			ErrInvalidSelection, variation.ID, part.ID)
	}

	selection := PartSelection{
		PartID:      part.ID,
		VariationID: variation.ID,
		Quantity:    quantity,
		UnitPrice:   variation.Price,
		ExtraPrice:  0,
		TotalPrice:  int64(quantity) * variation.Price,
	}

	order := c.order
	entries := make(map[models.ProductID]*Entry, len(c.entries)+1)
	for id, e := range c.entries {
		entries[id] = e
	}

	replaced := false
	entry, ok := entries[part.ProductID]
	if !ok {
		entry = &Entry{ProductID: part.ProductID}
		order = append(append([]models.ProductID(nil), c.order...), part.ProductID)
	} else {
		entry = entry.clone()
	}

	if i := entry.partIndex(part.ID); i >= 0 {
		entry.Parts[i] = selection
		replaced = true
	} else {
		entry.Parts = append(entry.Parts, selection)
	}
	entries[part.ProductID] = entry

	data, err := encode(order, entries)
	if err != nil {
		return false, err
	}
	c.session.Set(c.key, data)
	c.order = order
	c.entries = entries

	return replaced, nil
}

// HasPart reports whether the entry for productID already holds a selection
// for partID. It is false for an empty cart and for a product that has no
// entry
func (c *Cart) HasPart(productID models.ProductID, partID models.PartID) bool {
	entry, ok := c.entries[productID]
	if !ok {
		return false
	}
	return entry.partIndex(partID) >= 0
}

// Clear removes the cart from the session
func (c *Cart) Clear() {
	c.session.Delete(c.key)
	c.order = nil
	c.entries = make(map[models.ProductID]*Entry)
}

// Len returns the number of products in the cart
func (c *Cart) Len() int {
	return len(c.order)
}

// IsEmpty reports whether the cart has no selections
func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

// Entry returns a copy of the stored entry for productID
func (c *Cart) Entry(productID models.ProductID) (Entry, bool) {
	e, ok := c.entries[productID]
	if !ok {
		return Entry{}, false
	}
	return *e.clone(), true
}

// All yields copies of the stored entries in insertion order. Stored derived
// prices are yielded as persisted; use a Pricer for current totals
func (c *Cart) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, id := range c.order {
			if !yield(*c.entries[id].clone()) {
				return
			}
		}
	}
}

// VariationIDs returns the presence set: every variation selected anywhere
// in the cart
func (c *Cart) VariationIDs() map[models.VariationID]struct{} {
	present := make(map[models.VariationID]struct{})
	for _, e := range c.entries {
		for _, p := range e.Parts {
			present[p.VariationID] = struct{}{}
		}
	}
	return present
}

// MarshalJSON returns the persisted mapping shape
func (c *Cart) MarshalJSON() ([]byte, error) {
	return encode(c.order, c.entries)
}
