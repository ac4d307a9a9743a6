package service

import (
	"context"
	"testing"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(orders *memOrders) *models.Order {
	order := &models.Order{TotalPrice: 2200, Status: models.OrderStatusProcessing}
	_ = orders.CreateOrder(context.Background(), order, []models.OrderItem{
		{ProductID: 1, PartID: 10, VariationID: 100, Quantity: 1, ItemPrice: 1000, ItemExtraPrice: 200, ItemTotalPrice: 1200},
		{ProductID: 1, PartID: 11, VariationID: 110, Quantity: 2, ItemPrice: 500, ItemTotalPrice: 1000},
	})
	return order
}

func placedEvent(id string, order *models.Order, total int64) *models.OrderPlacedEvent {
	return &models.OrderPlacedEvent{
		BaseEvent:  models.BaseEvent{EventID: id, EventType: models.EventTypeOrderPlaced},
		OrderID:    order.ID,
		TotalPrice: total,
		Items:      make([]models.OrderItemData, 2),
	}
}

func TestHandleOrderPlaced(t *testing.T) {
	orders := newMemOrders()
	order := seedOrder(orders)
	audit := NewAuditService(orders)
	before := testutil.ToFloat64(util.OrderAuditMismatchTotal)

	require.NoError(t, audit.HandleOrderPlaced(context.Background(), placedEvent("evt-1", order, 2200)))

	assert.True(t, orders.processed["evt-1"])
	assert.Equal(t, before, testutil.ToFloat64(util.OrderAuditMismatchTotal))
}

func TestHandleOrderPlaced_Mismatch(t *testing.T) {
	orders := newMemOrders()
	order := seedOrder(orders)
	audit := NewAuditService(orders)
	before := testutil.ToFloat64(util.OrderAuditMismatchTotal)

	require.NoError(t, audit.HandleOrderPlaced(context.Background(), placedEvent("evt-2", order, 2000)))

	assert.Equal(t, before+1, testutil.ToFloat64(util.OrderAuditMismatchTotal))
	assert.True(t, orders.processed["evt-2"])
}

func TestHandleOrderPlaced_AlreadyProcessed(t *testing.T) {
	orders := newMemOrders()
	order := seedOrder(orders)
	orders.processed["evt-3"] = true
	audit := NewAuditService(orders)
	before := testutil.ToFloat64(util.OrderAuditMismatchTotal)

	require.NoError(t, audit.HandleOrderPlaced(context.Background(), placedEvent("evt-3", order, 1)))

	assert.Equal(t, before, testutil.ToFloat64(util.OrderAuditMismatchTotal))
}
