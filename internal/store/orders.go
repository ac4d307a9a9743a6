package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cart-service/internal/models"
)

// CreateOrder inserts the order and its items in one transaction
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (first_name, last_name, address_line_1, address_line_2, zipcode,
			city, country, email, status, total_price, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, modified_at`

	row := tx.QueryRowxContext(ctx, query,
		order.FirstName, order.LastName, order.AddressLine1, order.AddressLine2, order.Zipcode,
		order.City, order.Country, order.Email, order.Status, order.TotalPrice, order.IdempotencyKey)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.ModifiedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.OrderID = order.ID

		err := tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_part_id, product_part_variation_id,
				quantity, item_price, item_extra_price, item_total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			item.OrderID, item.ProductID, item.PartID, item.VariationID,
			item.Quantity, item.ItemPrice, item.ItemExtraPrice, item.ItemTotalPrice).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrderStatus moves an order from one status to another. It
// reports false when the order was not in the from status
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID int64, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, modified_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
