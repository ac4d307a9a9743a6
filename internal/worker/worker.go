package worker

import (
	"context"
	"errors"

	"cart-service/internal/broker"
	"cart-service/internal/models"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource delivers kafka messages to a handler until ctx is done
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// OrderAuditor checks a placed order
type OrderAuditor interface {
	HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// OrderWorker audits placed orders in the background
type OrderWorker struct {
	source       MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(source MessageSource, auditor OrderAuditor) *OrderWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(auditor.HandleOrderPlaced)

	return &OrderWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes events until ctx is cancelled. Cancellation is not
// reported as an error
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")

	err := w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.source.Close()
}
