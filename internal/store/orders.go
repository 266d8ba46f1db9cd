package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// InsertOrder records an order. A second insert for the same reference
// returns ErrConflict and leaves the first row untouched.
func (s *Store) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, product_id, seller_id, buyer_email, amount, reference, status, access_key, follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := s.db.GetContext(ctx, &order.CreatedAt, query,
		order.ID, order.ProductID, order.SellerID, order.BuyerEmail, order.Amount,
		order.Reference, order.Status, order.AccessKey, order.FollowUp)
	if isUniqueViolation(err) {
		return fmt.Errorf("order reference %s: %w", order.Reference, ErrConflict)
	}
	return err
}

// FindOrderByReference retrieves an order by its transaction reference
func (s *Store) FindOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE reference = $1", reference)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order reference %s: %w", reference, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersForSeller retrieves a seller's orders, newest first
func (s *Store) ListOrdersForSeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return orders, err
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
