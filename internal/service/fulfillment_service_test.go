package service

import (
	"context"
	"testing"

	"cart-service/internal/cart"
	"cart-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipOrder(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders()
	order := seedOrder(orders)
	publisher := &recordingPublisher{}
	fulfillment := NewFulfillmentService(orders, publisher)

	shipped, err := fulfillment.ShipOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)
	assert.Equal(t, models.OrderStatusShipped, orders.orders[order.ID].Status)

	require.Len(t, publisher.statuses, 1)
	assert.Equal(t, models.OrderStatusProcessing, publisher.statuses[0].From)
	assert.Equal(t, models.OrderStatusShipped, publisher.statuses[0].To)

	_, err = fulfillment.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, publisher.statuses, 1)
}

func TestCancelOrder(t *testing.T) {
	orders := newMemOrders()
	order := seedOrder(orders)
	fulfillment := NewFulfillmentService(orders, &recordingPublisher{})

	cancelled, err := fulfillment.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}

func TestShipOrder_NotFound(t *testing.T) {
	fulfillment := NewFulfillmentService(newMemOrders(), &recordingPublisher{})

	_, err := fulfillment.ShipOrder(context.Background(), 7)
	assert.ErrorIs(t, err, cart.ErrNotFound)
}
