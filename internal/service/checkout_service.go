package service

import (
	"context"
	"fmt"
	"time"

	"cart-service/internal/cart"
	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore persists materialized orders
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// OrderEventPublisher publishes order events
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CheckoutService snapshots priced carts into orders
type CheckoutService struct {
	carts     *CartService
	orders    OrderStore
	publisher OrderEventPublisher
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(carts *CartService, orders OrderStore, publisher OrderEventPublisher) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CheckoutRequest carries the customer details of an order
type CheckoutRequest struct {
	FirstName      string  `json:"first_name" binding:"required,max=50"`
	LastName       string  `json:"last_name" binding:"required,max=50"`
	AddressLine1   string  `json:"address_line_1" binding:"required,max=100"`
	AddressLine2   *string `json:"address_line_2,omitempty" binding:"omitempty,max=100"`
	Zipcode        string  `json:"zipcode" binding:"required,max=15"`
	City           string  `json:"city" binding:"required,max=100"`
	Country        string  `json:"country" binding:"required,max=100"`
	Email          string  `json:"email" binding:"required,email"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// CheckoutResponse represents the response after placing an order
type CheckoutResponse struct {
	OrderID      int64   `json:"order_id"`
	Status       string  `json:"status"`
	TotalPrice   int64   `json:"total_price"`
	TotalDisplay float64 `json:"total_display"`
}

// Checkout prices the session cart, stores it as an order and clears the
// cart. Repeating a request with the same idempotency key returns the order
// created the first time
func (s *CheckoutService) Checkout(ctx context.Context, sessionID string, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	logger := util.SessionLogger(sessionID)

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	if resp, err := s.existingOrder(ctx, logger, req.IdempotencyKey); resp != nil || err != nil {
		return resp, err
	}

	unlock, err := s.carts.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// a duplicate that waited on the lock finds the order placed by the
	// request holding it
	if resp, err := s.existingOrder(ctx, logger, req.IdempotencyKey); resp != nil || err != nil {
		return resp, err
	}

	sess, c, err := s.carts.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, cart.ErrEmptyCart
	}

	q, err := s.carts.quote(ctx, c)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("pricing").Inc()
		return nil, err
	}

	order := &models.Order{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		Zipcode:        req.Zipcode,
		City:           req.City,
		Country:        req.Country,
		Email:          req.Email,
		Status:         models.OrderStatusProcessing,
		TotalPrice:     q.Total,
		IdempotencyKey: req.IdempotencyKey,
	}
	items := orderItems(q)

	if err := s.orders.CreateOrder(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("total_price", order.TotalPrice),
		zap.Int("items", len(items)))

	// The order exists from here on; a failed cart cleanup must not fail
	// the checkout
	c.Clear()
	if err := s.carts.sessions.Save(ctx, sess); err != nil {
		logger.Error("Failed to clear cart after checkout",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}

	itemData := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		itemData = append(itemData, models.OrderItemData{
			ProductID:   item.ProductID,
			PartID:      item.PartID,
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
			UnitPrice:   item.ItemPrice,
			ExtraPrice:  item.ItemExtraPrice,
			TotalPrice:  item.ItemTotalPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		SessionID:  sessionID,
		TotalPrice: order.TotalPrice,
		Items:      itemData,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return &CheckoutResponse{
		OrderID:      order.ID,
		Status:       order.Status,
		TotalPrice:   order.TotalPrice,
		TotalDisplay: cart.Display(order.TotalPrice),
	}, nil
}

// existingOrder returns the response for an order already placed with key,
// or nil when there is none
func (s *CheckoutService) existingOrder(ctx context.Context, logger *zap.Logger, key string) (*CheckoutResponse, error) {
	order, err := s.orders.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if order == nil {
		return nil, nil
	}

	logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", order.ID))
	return &CheckoutResponse{
		OrderID:      order.ID,
		Status:       order.Status,
		TotalPrice:   order.TotalPrice,
		TotalDisplay: cart.Display(order.TotalPrice),
	}, nil
}

// GetOrder retrieves an order by ID
func (s *CheckoutService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.GetOrder")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.orders.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// orderItems flattens a quote into order item snapshots
func orderItems(q *cart.Quote) []models.OrderItem {
	var items []models.OrderItem
	for _, entry := range q.Entries {
		for _, part := range entry.Parts {
			items = append(items, models.OrderItem{
				ProductID:      entry.ProductID,
				PartID:         part.PartID,
				VariationID:    part.VariationID,
				Quantity:       part.Quantity,
				ItemPrice:      part.UnitPrice,
				ItemExtraPrice: part.ExtraPrice,
				ItemTotalPrice: part.TotalPrice,
			})
		}
	}
	return items
}
