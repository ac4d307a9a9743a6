package models

import "time"

// Event types
const (
	EventTypeCartPartSelected = "CART_PART_SELECTED"
	EventTypeCartCleared      = "CART_CLEARED"
	EventTypeOrderPlaced      = "ORDER_PLACED"
	EventTypeOrderStatus      = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CartPartSelectedEvent published when a part selection is added or replaced
type CartPartSelectedEvent struct {
	BaseEvent
	SessionID   string      `json:"session_id"`
	ProductID   ProductID   `json:"product_id"`
	PartID      PartID      `json:"part_id"`
	VariationID VariationID `json:"variation_id"`
	Quantity    int         `json:"quantity"`
	UnitPrice   int64       `json:"unit_price"`
	Replaced    bool        `json:"replaced"`
}

// CartClearedEvent published when a session cart is emptied
type CartClearedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
}

// OrderPlacedEvent published when a cart is materialized into an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	SessionID  string          `json:"session_id"`
	TotalPrice int64           `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published when an order is shipped or cancelled
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID   ProductID   `json:"product_id"`
	PartID      PartID      `json:"part_id"`
	VariationID VariationID `json:"variation_id"`
	Quantity    int         `json:"quantity"`
	UnitPrice   int64       `json:"unit_price"`
	ExtraPrice  int64       `json:"extra_price"`
	TotalPrice  int64       `json:"total_price"`
}
