package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when an order has already left the
// processing status
var ErrInvalidTransition = errors.New("order is no longer processing")

// FulfillmentStore reads orders and changes their status
type FulfillmentStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	TransitionOrderStatus(ctx context.Context, orderID int64, from, to string) (bool, error)
}

// StatusEventPublisher publishes order status events
type StatusEventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// FulfillmentService ships or cancels processing orders
type FulfillmentService struct {
	store     FulfillmentStore
	publisher StatusEventPublisher
	logger    *zap.Logger
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(store FulfillmentStore, publisher StatusEventPublisher) *FulfillmentService {
	return &FulfillmentService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ShipOrder marks a processing order as shipped
func (f *FulfillmentService) ShipOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return f.transition(ctx, orderID, models.OrderStatusShipped)
}

// CancelOrder marks a processing order as cancelled
func (f *FulfillmentService) CancelOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return f.transition(ctx, orderID, models.OrderStatusCancelled)
}

func (f *FulfillmentService) transition(ctx context.Context, orderID int64, to string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.transition",
		attribute.Int64("order_id", orderID),
		attribute.String("status", to))
	defer span.End()

	order, err := f.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if from != models.OrderStatusProcessing {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, from, ErrInvalidTransition)
	}

	moved, err := f.store.TransitionOrderStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !moved {
		// changed by a concurrent request between the read and the update
		return nil, fmt.Errorf("order %d: %w", orderID, ErrInvalidTransition)
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(to).Inc()
	f.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", from),
		zap.String("to", to))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatus,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		From:    from,
		To:      to,
	}
	if err := f.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		f.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	order.Status = to
	return order, nil
}
