package service

import (
	"context"
	"fmt"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// AuditStore is what the order audit reads and records
type AuditStore interface {
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AuditService checks placed orders against their stored items
type AuditService struct {
	store  AuditStore
	logger *zap.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// HandleOrderPlaced recomputes the order total from its stored items and
// compares it with the published total. Each event is audited once
func (a *AuditService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "AuditService.HandleOrderPlaced")
	defer span.End()

	processed, err := a.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		a.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	items, err := a.store.GetOrderItemsByOrderID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}

	var total int64
	for _, item := range items {
		if item.ItemTotalPrice != int64(item.Quantity)*item.ItemPrice+item.ItemExtraPrice {
			a.logger.Warn("Order item total does not match its price",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("order_item_id", item.ID))
		}
		total += item.ItemTotalPrice
	}

	if total != event.TotalPrice || len(items) != len(event.Items) {
		util.OrderAuditMismatchTotal.Inc()
		a.logger.Error("Order total mismatch",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("published_total", event.TotalPrice),
			zap.Int64("stored_total", total),
			zap.Int("published_items", len(event.Items)),
			zap.Int("stored_items", len(items)))
	} else {
		a.logger.Info("Order audited", zap.Int64("order_id", event.OrderID))
	}

	if err := a.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	return nil
}
