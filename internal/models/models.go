package models

import (
	"strconv"
	"time"
)

// ProductID identifies a product in the catalog
type ProductID int64

// PartID identifies a product part
type PartID int64

// VariationID identifies a purchasable part variation
type VariationID int64

func (id ProductID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id PartID) String() string      { return strconv.FormatInt(int64(id), 10) }
func (id VariationID) String() string { return strconv.FormatInt(int64(id), 10) }

// Category groups products
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product represents a configurable product in the catalog
type Product struct {
	ID          ProductID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       int64     `db:"price" json:"price"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
}

// DisplayPrice returns the price in major currency units
func (p Product) DisplayPrice() float64 {
	return float64(p.Price) / 100
}

// Part is a component of a product, offered in several variations
type Part struct {
	ID        PartID    `db:"id" json:"id"`
	ProductID ProductID `db:"product_id" json:"product_id"`
	Name      string    `db:"name" json:"name"`
}

// Variation is a purchasable option of a part
type Variation struct {
	ID          VariationID `db:"id" json:"id"`
	PartID      PartID      `db:"part_id" json:"part_id"`
	ProductID   ProductID   `db:"product_id" json:"product_id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description,omitempty"`
	Price       int64       `db:"price" json:"price"`
	InStock     bool        `db:"is_in_stock" json:"is_in_stock"`
}

// DisplayPrice returns the price in major currency units
func (v Variation) DisplayPrice() float64 {
	return float64(v.Price) / 100
}

// PriceDependent charges AdjustedPrice on the base variation's line when the
// dependent variation is also in the cart
type PriceDependent struct {
	ID                 int64       `db:"id" json:"id"`
	BaseVariation      VariationID `db:"base_variation_id" json:"base_variation_id"`
	DependentVariation VariationID `db:"dependent_variation_id" json:"dependent_variation_id"`
	AdjustedPrice      int64       `db:"adjusted_price" json:"adjusted_price"`
}

// ConstraintSide is one variation of a constraint with its owning part and product
type ConstraintSide struct {
	VariationID VariationID `db:"variation_id" json:"variation_id"`
	PartID      PartID      `db:"part_id" json:"part_id"`
	ProductID   ProductID   `db:"product_id" json:"product_id"`
}

// Constraint forbids two variations from coexisting in a cart
type Constraint struct {
	ID int64          `db:"id" json:"id"`
	A  ConstraintSide `db:"a" json:"a"`
	B  ConstraintSide `db:"b" json:"b"`
}

// Other returns the side of the constraint opposite to v. The second return
// value is false when v is on neither side
func (c Constraint) Other(v VariationID) (ConstraintSide, bool) {
	switch v {
	case c.A.VariationID:
		return c.B, true
	case c.B.VariationID:
		return c.A, true
	}
	return ConstraintSide{}, false
}

// PartDetail is a part with its variations, used by the product detail view
type PartDetail struct {
	Part
	Variations []Variation `json:"variations"`
}

// ProductDetail is a product with its parts
type ProductDetail struct {
	Product
	Parts []PartDetail `json:"parts"`
}

// Order is the persisted snapshot of a checked-out cart
type Order struct {
	ID             int64     `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	AddressLine1   string    `db:"address_line_1" json:"address_line_1"`
	AddressLine2   *string   `db:"address_line_2" json:"address_line_2,omitempty"`
	Zipcode        string    `db:"zipcode" json:"zipcode"`
	City           string    `db:"city" json:"city"`
	Country        string    `db:"country" json:"country"`
	Email          string    `db:"email" json:"email"`
	Status         string    `db:"status" json:"status"`
	TotalPrice     int64     `db:"total_price" json:"total_price"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	ModifiedAt     time.Time `db:"modified_at" json:"modified_at"`
}

// OrderItem is one priced part selection of an order
type OrderItem struct {
	ID             int64       `db:"id" json:"id"`
	OrderID        int64       `db:"order_id" json:"order_id"`
	ProductID      ProductID   `db:"product_id" json:"product_id"`
	PartID         PartID      `db:"product_part_id" json:"product_part_id"`
	VariationID    VariationID `db:"product_part_variation_id" json:"product_part_variation_id"`
	Quantity       int         `db:"quantity" json:"quantity"`
	ItemPrice      int64       `db:"item_price" json:"item_price"`
	ItemExtraPrice int64       `db:"item_extra_price" json:"item_extra_price"`
	ItemTotalPrice int64       `db:"item_total_price" json:"item_total_price"`
}

// Order statuses
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusCancelled  = "cancelled"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
